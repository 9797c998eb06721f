package upload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/marinoska/cv-ingest/internal/adapter/uploads"
	"github.com/marinoska/cv-ingest/internal/extractor"
	"github.com/marinoska/cv-ingest/internal/hash"
	"github.com/marinoska/cv-ingest/internal/storage"
)

type Service struct {
	store    storage.ObjectStore
	records  RecordOwner
	maxBytes int64
}

func NewService(store storage.ObjectStore, records RecordOwner, maxBytes int64) *Service {
	return &Service{store: store, records: records, maxBytes: maxBytes}
}

// Handle runs the upload sequence: validate, extract, init, store, finalize.
// Text is extracted before anything durable happens, so an unparseable or
// mistyped file is rejected without ever reserving a record or storing bytes.
// The hash is computed over the exact bytes that get stored.
func (s *Service) Handle(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	format, err := formatForContentType(req.ContentType)
	if err != nil {
		return nil, err
	}
	if int64(len(req.Data)) > s.maxBytes {
		return nil, ErrTooLarge
	}

	raw, err := extractor.Extract(req.Data, format)
	if err != nil {
		return nil, err
	}
	text := extractor.Normalize(raw)
	fileHash := hash.Bytes(req.Data)

	init, err := s.records.Init(ctx, uploads.UploadMeta{
		FileName:    req.FileName,
		ContentType: req.ContentType,
		UserID:      req.UserID,
	})
	if err != nil {
		return nil, &InitError{Err: err}
	}

	size, err := s.store.Put(ctx, init.ObjectKey, req.Data, req.ContentType)
	if err != nil {
		return nil, &StorageError{Err: err}
	}

	// From here every failure must be followed by a rollback of the stored
	// object, otherwise a blob without a committed record leaks.
	fin, err := s.records.Finalize(ctx, uploads.FinalizeRequest{
		FileID:    init.FileID,
		ProcessID: init.ProcessID,
		Size:      size,
		RawText:   text,
		FileHash:  fileHash,
	})
	if err != nil {
		s.rollback(ctx, init.ObjectKey)
		return nil, fmt.Errorf("finalize upload: %w", err)
	}

	switch fin.Outcome {
	case uploads.FinalizeCommitted:
		return &UploadResult{
			FileID:      fin.FileID,
			ObjectKey:   init.ObjectKey,
			ProcessID:   fin.ProcessID,
			Size:        size,
			ContentType: req.ContentType,
		}, nil

	case uploads.FinalizeRejected:
		s.rollback(ctx, init.ObjectKey)
		return nil, &RejectedError{Reason: fin.Reason}

	case uploads.FinalizeDuplicate:
		// Identical content is already stored and processed; the object
		// written above is redundant and the prior identifiers are returned.
		// No second parse job exists.
		s.rollback(ctx, init.ObjectKey)
		return &UploadResult{
			FileID:       fin.ExistingFileID,
			ProcessID:    fin.ExistingProcessID,
			Size:         size,
			ContentType:  req.ContentType,
			Deduplicated: true,
		}, nil
	}

	s.rollback(ctx, init.ObjectKey)
	return nil, fmt.Errorf("finalize returned unknown outcome %d", fin.Outcome)
}

// rollback is best-effort: a failed delete leaves an orphaned object behind,
// which costs storage but never correctness since no record references it.
// The failure is logged, not retried.
func (s *Service) rollback(ctx context.Context, objectKey string) {
	if err := s.store.Delete(ctx, objectKey); err != nil {
		slog.WarnContext(ctx, "rollback delete failed, object orphaned", "object_key", objectKey, "error", err)
	}
}
