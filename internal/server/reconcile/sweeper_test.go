package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavelar/admitd/internal/logging"
	"github.com/lavelar/admitd/internal/server/blobstore"
	sc "github.com/lavelar/admitd/internal/server/config"
)

type fakeBlobs struct {
	objects []blobstore.ObjectInfo
	listErr error

	deleteErr  map[string]error
	deleteKeys []string
}

func (f *fakeBlobs) List(ctx context.Context) ([]blobstore.ObjectInfo, error) {
	return f.objects, f.listErr
}

func (f *fakeBlobs) Delete(ctx context.Context, key string) error {
	f.deleteKeys = append(f.deleteKeys, key)
	return f.deleteErr[key]
}

type fakeRefs struct {
	keys []string
	err  error
}

func (f *fakeRefs) ListAnswerKeys(ctx context.Context) ([]string, error) {
	return f.keys, f.err
}

func object(key string, changed time.Time) blobstore.ObjectInfo {
	return blobstore.ObjectInfo{Key: key, LastChanged: blobstore.Timestamp{Time: changed}}
}

func newSweeper(t *testing.T, blobs *fakeBlobs, refs *fakeRefs, now time.Time) *Sweeper {
	t.Helper()
	cfg := &sc.Config{}
	cfg.LoadDefaults()
	l := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	s := NewSweeper(blobs, refs, cfg, l)
	s.now = func() time.Time { return now }
	return s
}

func TestSweep_DeletesOnlyOldOrphans(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	blobs := &fakeBlobs{objects: []blobstore.ObjectInfo{
		object("referenced.pdf", now.Add(-72*time.Hour)),
		object("old-orphan.pdf", now.Add(-48*time.Hour)),
		object("fresh-orphan.pdf", now.Add(-time.Hour)),
	}}
	refs := &fakeRefs{keys: []string{"referenced.pdf"}}

	s := newSweeper(t, blobs, refs, now)

	result, err := s.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, Result{Candidates: 1, Deleted: 1, Failed: 0}, result)
	assert.Equal(t, []string{"old-orphan.pdf"}, blobs.deleteKeys,
		"referenced and recently-written blobs must be left alone")
}

func TestSweep_CountsFailedDeletes(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	blobs := &fakeBlobs{
		objects: []blobstore.ObjectInfo{
			object("orphan-a.pdf", now.Add(-48*time.Hour)),
			object("orphan-b.pdf", now.Add(-48*time.Hour)),
		},
		deleteErr: map[string]error{"orphan-a.pdf": errors.New("endpoint busy")},
	}
	refs := &fakeRefs{}

	s := newSweeper(t, blobs, refs, now)

	result, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{Candidates: 2, Deleted: 1, Failed: 1}, result)
}

func TestSweep_ListFailuresAbort(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	t.Run("blob listing fails", func(t *testing.T) {
		blobs := &fakeBlobs{listErr: errors.New("list failed")}
		s := newSweeper(t, blobs, &fakeRefs{}, now)

		_, err := s.Sweep(context.Background())
		require.Error(t, err)
		assert.Empty(t, blobs.deleteKeys)
	})

	t.Run("reference listing fails", func(t *testing.T) {
		blobs := &fakeBlobs{objects: []blobstore.ObjectInfo{
			object("orphan.pdf", now.Add(-48*time.Hour)),
		}}
		refs := &fakeRefs{err: errors.New("rpc down")}
		s := newSweeper(t, blobs, refs, now)

		_, err := s.Sweep(context.Background())
		require.Error(t, err)
		assert.Empty(t, blobs.deleteKeys, "nothing may be deleted without the reference set")
	})
}

func TestSweep_EmptyStore(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s := newSweeper(t, &fakeBlobs{}, &fakeRefs{}, now)

	result, err := s.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Result{}, result)
}
