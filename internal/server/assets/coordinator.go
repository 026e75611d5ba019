// Package assets coordinates file-answer operations across the two
// independently-failing backends: the blob store holding the bytes and the
// relational backend holding the metadata row. There is no transaction
// spanning the two; each operation applies an explicit aggregation policy
// instead, asymmetric between upload and delete, and the two sub-outcomes
// are always reported back so the caller can decide what to retry.
package assets

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/lavelar/admitd/internal/common"
	"github.com/lavelar/admitd/internal/logging"
	"github.com/lavelar/admitd/internal/server/models"
)

// BlobStore is the write side of the object-storage endpoint.
type BlobStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// MetadataStore is the file-answer surface of the relational backend.
type MetadataStore interface {
	RecordAnswer(ctx context.Context, ref models.AssetReference) error
	EraseAnswer(ctx context.Context, ownerID, questionID string) error
}

type Coordinator struct {
	blobs  BlobStore
	meta   MetadataStore
	logger logging.Logger
}

func NewCoordinator(blobs BlobStore, meta MetadataStore, l logging.Logger) *Coordinator {
	return &Coordinator{
		blobs:  blobs,
		meta:   meta,
		logger: l.With("module", "assets"),
	}
}

// errNotAttempted marks the metadata outcome when the blob write already
// failed and the metadata call was skipped.
var errNotAttempted = errors.New("not attempted: blob write failed")

// NewStorageKey generates the object key for an upload: a fresh UUID
// carrying over only the original file's extension. User-supplied names
// never reach the storage path.
func NewStorageKey(originalName string) string {
	ext := strings.ToLower(filepath.Ext(originalName))
	return uuid.New().String() + ext
}

// UploadRequest is the validated input for UploadAsset. OriginalName is
// display metadata and may be empty; everything else is required.
type UploadRequest struct {
	OwnerID      string
	QuestionID   string
	ClassID      string
	OriginalName string
	Data         []byte
}

func (r *UploadRequest) validate() error {
	switch {
	case r.OwnerID == "":
		return fmt.Errorf("%w: owner id is required", common.ErrValidation)
	case r.QuestionID == "":
		return fmt.Errorf("%w: question id is required", common.ErrValidation)
	case r.ClassID == "":
		return fmt.Errorf("%w: class id is required", common.ErrValidation)
	case len(r.Data) == 0:
		return fmt.Errorf("%w: file content is required", common.ErrValidation)
	}
	return nil
}

// UploadAsset stores the bytes and records the metadata row, in that order.
// The blob write failing skips the metadata call entirely. The metadata
// write failing is also fatal for the upload, but the blob stays written:
// there is no compensating delete. An orphan is recoverable by the
// reconciliation sweep, a lost record is not.
//
// A validation error is returned before any network call; otherwise the
// outcome is in the AggregatedResult and err is nil.
func (c *Coordinator) UploadAsset(ctx context.Context, req UploadRequest) (models.AssetReference, models.AggregatedResult, error) {
	if err := req.validate(); err != nil {
		return models.AssetReference{}, models.AggregatedResult{}, err
	}

	ref := models.AssetReference{
		OwnerID:      req.OwnerID,
		QuestionID:   req.QuestionID,
		ClassID:      req.ClassID,
		OriginalName: req.OriginalName,
		StorageKey:   NewStorageKey(req.OriginalName),
	}

	blobErr := c.blobs.Put(ctx, ref.StorageKey, req.Data)
	if blobErr != nil {
		c.logger.Error(ctx, "upload: blob write failed", "key", ref.StorageKey, "error", blobErr)
		return ref, models.AggregatedResult{
			OverallSucceeded: false,
			Blob:             models.Outcome(blobErr),
			Metadata:         models.Outcome(errNotAttempted),
		}, nil
	}

	metaErr := c.meta.RecordAnswer(ctx, ref)
	if metaErr != nil {
		// The blob is left behind on purpose; see the package comment.
		c.logger.Error(ctx, "upload: metadata record failed, blob remains written",
			"key", ref.StorageKey, "owner_id", ref.OwnerID, "question_id", ref.QuestionID, "error", metaErr)
	}

	return ref, models.AggregatedResult{
		OverallSucceeded: metaErr == nil,
		Blob:             models.Outcome(nil),
		Metadata:         models.Outcome(metaErr),
	}, nil
}

// DeleteAsset removes the blob and erases the metadata row. Both sides are
// always attempted, blob first, and their failures are independent. Either
// side confirming removal makes the overall operation a success: a stale
// blob without a metadata reference, or a cleared row with a lingering blob,
// are both acceptable degraded states. Only both sides failing is surfaced
// as an error so the caller retries.
func (c *Coordinator) DeleteAsset(ctx context.Context, ownerID, questionID, storageKey string) (models.AggregatedResult, error) {
	switch {
	case ownerID == "":
		return models.AggregatedResult{}, fmt.Errorf("%w: owner id is required", common.ErrValidation)
	case questionID == "":
		return models.AggregatedResult{}, fmt.Errorf("%w: question id is required", common.ErrValidation)
	case storageKey == "":
		return models.AggregatedResult{}, fmt.Errorf("%w: storage key is required", common.ErrValidation)
	}

	blobErr := c.blobs.Delete(ctx, storageKey)
	metaErr := c.meta.EraseAnswer(ctx, ownerID, questionID)

	if blobErr != nil && metaErr != nil {
		c.logger.Error(ctx, "delete: both sides failed",
			"key", storageKey, "blob_error", blobErr, "metadata_error", metaErr)
	} else if blobErr != nil || metaErr != nil {
		c.logger.Warn(ctx, "delete: one side failed, accepting degraded state",
			"key", storageKey, "blob_error", blobErr, "metadata_error", metaErr)
	}

	return models.AggregatedResult{
		OverallSucceeded: blobErr == nil || metaErr == nil,
		Blob:             models.Outcome(blobErr),
		Metadata:         models.Outcome(metaErr),
	}, nil
}
