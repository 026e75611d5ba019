// Package reconcile implements the orphan-blob sweep: an optional scheduled
// cleanup for blobs left behind when an upload's metadata write failed. The
// upload path deliberately performs no compensating delete, so orphans are
// expected to accumulate at a low rate. The sweep only ever touches the blob
// side; metadata rows are never reconciled from here.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/lavelar/admitd/internal/logging"
	"github.com/lavelar/admitd/internal/server/blobstore"
	sc "github.com/lavelar/admitd/internal/server/config"
)

const sweepTimeout = 5 * time.Minute

// BlobStore is the listing/removal surface of the object store.
type BlobStore interface {
	List(ctx context.Context) ([]blobstore.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// ReferenceSource reports every storage key still referenced by a metadata
// row.
type ReferenceSource interface {
	ListAnswerKeys(ctx context.Context) ([]string, error)
}

// Result summarizes one sweep run.
type Result struct {
	Candidates int
	Deleted    int
	Failed     int
}

type Sweeper struct {
	blobs BlobStore
	refs  ReferenceSource
	// minAge protects in-flight uploads: a blob younger than this may simply
	// not have its metadata row yet.
	minAge time.Duration
	logger logging.Logger

	// now is replaceable in tests.
	now func() time.Time
}

func NewSweeper(blobs BlobStore, refs ReferenceSource, cfg *sc.Config, l logging.Logger) *Sweeper {
	return &Sweeper{
		blobs:  blobs,
		refs:   refs,
		minAge: cfg.SweepMinAge,
		logger: l.With("module", "reconcile"),
		now:    time.Now,
	}
}

// Sweep lists the stored blobs, drops every key still referenced by a
// metadata row, and deletes what remains if old enough. Failures to delete
// individual blobs are counted, logged and left for the next run.
func (s *Sweeper) Sweep(ctx context.Context) (Result, error) {
	var result Result

	objects, err := s.blobs.List(ctx)
	if err != nil {
		return result, fmt.Errorf("listing blobs: %w", err)
	}

	keys, err := s.refs.ListAnswerKeys(ctx)
	if err != nil {
		return result, fmt.Errorf("listing referenced keys: %w", err)
	}

	referenced := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		referenced[k] = struct{}{}
	}

	cutoff := s.now().Add(-s.minAge)

	for _, obj := range objects {
		if _, ok := referenced[obj.Key]; ok {
			continue
		}
		if obj.LastChanged.After(cutoff) {
			// Possibly an upload whose metadata write has not landed yet.
			continue
		}

		result.Candidates++
		if err := s.blobs.Delete(ctx, obj.Key); err != nil {
			result.Failed++
			s.logger.Warn(ctx, "sweep: orphan delete failed", "key", obj.Key, "error", err)
			continue
		}
		result.Deleted++
	}

	s.logger.Info(ctx, "sweep finished",
		"objects", len(objects), "referenced", len(referenced),
		"candidates", result.Candidates, "deleted", result.Deleted, "failed", result.Failed)

	return result, nil
}

// Schedule registers the sweep on the given scheduler under the cron
// expression from config. The scheduler's lifecycle (Start/Shutdown) stays
// with the caller.
func (s *Sweeper) Schedule(sched gocron.Scheduler, cronExpr string) error {
	_, err := sched.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
			defer cancel()
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error(ctx, "sweep failed", "error", err)
			}
		}),
	)
	if err != nil {
		return fmt.Errorf("scheduling sweep: %w", err)
	}
	return nil
}
