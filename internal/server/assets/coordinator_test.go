package assets

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lavelar/admitd/internal/common"
	"github.com/lavelar/admitd/internal/logging"
	"github.com/lavelar/admitd/internal/server/models"
)

// -------- test fakes --------

type fakeBlobStore struct {
	putErr    error
	deleteErr error

	putKeys    []string
	putData    [][]byte
	deleteKeys []string
}

func (f *fakeBlobStore) Put(ctx context.Context, key string, data []byte) error {
	f.putKeys = append(f.putKeys, key)
	f.putData = append(f.putData, data)
	return f.putErr
}

func (f *fakeBlobStore) Delete(ctx context.Context, key string) error {
	f.deleteKeys = append(f.deleteKeys, key)
	return f.deleteErr
}

type fakeMetadataStore struct {
	recordErr error
	eraseErr  error

	recorded []models.AssetReference
	erased   [][2]string
}

func (f *fakeMetadataStore) RecordAnswer(ctx context.Context, ref models.AssetReference) error {
	f.recorded = append(f.recorded, ref)
	return f.recordErr
}

func (f *fakeMetadataStore) EraseAnswer(ctx context.Context, ownerID, questionID string) error {
	f.erased = append(f.erased, [2]string{ownerID, questionID})
	return f.eraseErr
}

// -------- helpers --------

func newCoordinator(t *testing.T, blobs *fakeBlobStore, meta *fakeMetadataStore) *Coordinator {
	t.Helper()
	l := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	return NewCoordinator(blobs, meta, l)
}

func validUpload() UploadRequest {
	return UploadRequest{
		OwnerID:      "own-1",
		QuestionID:   "q-1",
		ClassID:      "cls-1",
		OriginalName: "diploma.pdf",
		Data:         []byte("%PDF-1.5 ..."),
	}
}

// -------- upload tests --------

func TestUploadAsset_Success(t *testing.T) {
	blobs := &fakeBlobStore{}
	meta := &fakeMetadataStore{}
	c := newCoordinator(t, blobs, meta)

	ref, result, err := c.UploadAsset(context.Background(), validUpload())
	require.NoError(t, err)

	assert.True(t, result.OverallSucceeded)
	assert.True(t, result.Blob.Succeeded)
	assert.True(t, result.Metadata.Succeeded)

	require.Len(t, blobs.putKeys, 1)
	assert.Equal(t, ref.StorageKey, blobs.putKeys[0])
	require.Len(t, meta.recorded, 1)
	assert.Equal(t, ref, meta.recorded[0])
	assert.Equal(t, "diploma.pdf", meta.recorded[0].OriginalName)
}

func TestUploadAsset_StorageKeyNeverUserControlled(t *testing.T) {
	c := newCoordinator(t, &fakeBlobStore{}, &fakeMetadataStore{})

	ref, _, err := c.UploadAsset(context.Background(), validUpload())
	require.NoError(t, err)

	assert.NotEqual(t, "diploma.pdf", ref.StorageKey)
	assert.True(t, strings.HasSuffix(ref.StorageKey, ".pdf"), "extension is preserved: %s", ref.StorageKey)
}

func TestUploadAsset_FreshKeyPerCall(t *testing.T) {
	blobs := &fakeBlobStore{}
	meta := &fakeMetadataStore{}
	c := newCoordinator(t, blobs, meta)

	// Same owner, same question, uploaded twice: two distinct keys, the
	// metadata upsert keeps one row, and the first blob is not deleted.
	ref1, _, err := c.UploadAsset(context.Background(), validUpload())
	require.NoError(t, err)
	ref2, _, err := c.UploadAsset(context.Background(), validUpload())
	require.NoError(t, err)

	assert.NotEqual(t, ref1.StorageKey, ref2.StorageKey)
	assert.Len(t, meta.recorded, 2)
	assert.Empty(t, blobs.deleteKeys, "no automatic delete of the replaced blob")
}

func TestUploadAsset_BlobFailureSkipsMetadata(t *testing.T) {
	blobs := &fakeBlobStore{putErr: errors.New("storage endpoint rejected write")}
	meta := &fakeMetadataStore{}
	c := newCoordinator(t, blobs, meta)

	_, result, err := c.UploadAsset(context.Background(), validUpload())
	require.NoError(t, err)

	assert.False(t, result.OverallSucceeded)
	assert.False(t, result.Blob.Succeeded)
	assert.Contains(t, result.Blob.Error, "rejected write")
	assert.False(t, result.Metadata.Succeeded)
	assert.Contains(t, result.Metadata.Error, "not attempted")
	assert.Empty(t, meta.recorded, "metadata call must be skipped when the blob write fails")
}

func TestUploadAsset_MetadataFailureIsFatalButBlobRemains(t *testing.T) {
	blobs := &fakeBlobStore{}
	meta := &fakeMetadataStore{recordErr: errors.New("rpc unavailable")}
	c := newCoordinator(t, blobs, meta)

	_, result, err := c.UploadAsset(context.Background(), validUpload())
	require.NoError(t, err)

	assert.False(t, result.OverallSucceeded, "an unrecorded blob is a failed upload")
	assert.True(t, result.Blob.Succeeded)
	assert.False(t, result.Metadata.Succeeded)
	assert.Empty(t, blobs.deleteKeys, "no compensating blob delete")
}

func TestUploadAsset_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *UploadRequest)
	}{
		{"missing owner id", func(r *UploadRequest) { r.OwnerID = "" }},
		{"missing question id", func(r *UploadRequest) { r.QuestionID = "" }},
		{"missing class id", func(r *UploadRequest) { r.ClassID = "" }},
		{"missing content", func(r *UploadRequest) { r.Data = nil }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			blobs := &fakeBlobStore{}
			meta := &fakeMetadataStore{}
			c := newCoordinator(t, blobs, meta)

			req := validUpload()
			tc.mutate(&req)

			_, _, err := c.UploadAsset(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrValidation))
			assert.Empty(t, blobs.putKeys, "validation failure must not reach the network")
			assert.Empty(t, meta.recorded)
		})
	}
}

// -------- delete tests --------

func TestDeleteAsset_Aggregation(t *testing.T) {
	tests := []struct {
		name        string
		blobErr     error
		metaErr     error
		wantOverall bool
	}{
		{"both succeed", nil, nil, true},
		{"blob fails, metadata succeeds", errors.New("blob down"), nil, true},
		{"blob succeeds, metadata fails", nil, errors.New("rpc down"), true},
		{"both fail", errors.New("blob down"), errors.New("rpc down"), false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			blobs := &fakeBlobStore{deleteErr: tc.blobErr}
			meta := &fakeMetadataStore{eraseErr: tc.metaErr}
			c := newCoordinator(t, blobs, meta)

			result, err := c.DeleteAsset(context.Background(), "own-1", "q-1", "k.pdf")
			require.NoError(t, err)

			assert.Equal(t, tc.wantOverall, result.OverallSucceeded)
			assert.Equal(t, tc.blobErr == nil, result.Blob.Succeeded)
			assert.Equal(t, tc.metaErr == nil, result.Metadata.Succeeded)

			// Both sides are attempted no matter what.
			assert.Equal(t, []string{"k.pdf"}, blobs.deleteKeys)
			assert.Equal(t, [][2]string{{"own-1", "q-1"}}, meta.erased)
		})
	}
}

func TestDeleteAsset_BothOutcomesCarryDetails(t *testing.T) {
	blobs := &fakeBlobStore{deleteErr: errors.New("blob 404")}
	meta := &fakeMetadataStore{eraseErr: errors.New("rpc timeout")}
	c := newCoordinator(t, blobs, meta)

	result, err := c.DeleteAsset(context.Background(), "own-1", "q-1", "k.pdf")
	require.NoError(t, err)

	assert.False(t, result.OverallSucceeded)
	assert.Contains(t, result.Blob.Error, "blob 404")
	assert.Contains(t, result.Metadata.Error, "rpc timeout")
}

func TestDeleteAsset_Validation(t *testing.T) {
	tests := []struct {
		name       string
		ownerID    string
		questionID string
		storageKey string
	}{
		{"missing owner id", "", "q-1", "k.pdf"},
		{"missing question id", "own-1", "", "k.pdf"},
		{"missing storage key", "own-1", "q-1", ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			blobs := &fakeBlobStore{}
			meta := &fakeMetadataStore{}
			c := newCoordinator(t, blobs, meta)

			_, err := c.DeleteAsset(context.Background(), tc.ownerID, tc.questionID, tc.storageKey)
			require.Error(t, err)
			assert.True(t, errors.Is(err, common.ErrValidation))
			assert.Empty(t, blobs.deleteKeys)
			assert.Empty(t, meta.erased)
		})
	}
}

// -------- key generation --------

func TestNewStorageKey(t *testing.T) {
	k1 := NewStorageKey("My Diploma.PDF")
	k2 := NewStorageKey("My Diploma.PDF")

	assert.NotEqual(t, k1, k2, "keys are unique across calls")
	assert.True(t, strings.HasSuffix(k1, ".pdf"), "extension is lowercased: %s", k1)
	assert.NotContains(t, k1, " ")

	assert.Len(t, NewStorageKey(""), 36, "no extension yields a bare uuid")
}
