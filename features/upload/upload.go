// Package upload implements the store-then-commit upload protocol: bytes are
// validated and text-extracted before any durable effect, stored under a
// reserved key, then committed through the record owner. Any failure after
// the store step rolls the object back so no record ever references bytes
// that were not finalized.
package upload

import (
	"context"
	"errors"
	"fmt"

	"github.com/marinoska/cv-ingest/internal/adapter/uploads"
	"github.com/marinoska/cv-ingest/internal/extractor"
)

const (
	ContentTypePDF  = "application/pdf"
	ContentTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	// ErrUnsupportedType rejects a declared content type outside the supported set.
	ErrUnsupportedType = errors.New("unsupported content type")
	// ErrTooLarge rejects an upload whose size exceeds the configured ceiling.
	ErrTooLarge = errors.New("file exceeds maximum upload size")
)

// InitError means the record owner could not reserve a pending record; no
// durable side effect exists yet.
type InitError struct {
	Err error
}

func (e *InitError) Error() string { return fmt.Sprintf("upload init failed: %v", e.Err) }
func (e *InitError) Unwrap() error { return e.Err }

// StorageError means the object store write failed or was left in an unknown
// state during the store call itself.
type StorageError struct {
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("object store failed: %v", e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// RejectedError means the record owner refused to commit the upload; the
// stored object has already been rolled back when this surfaces.
type RejectedError struct {
	Reason string
}

func (e *RejectedError) Error() string { return fmt.Sprintf("upload rejected: %s", e.Reason) }

type UploadRequest struct {
	FileName    string
	ContentType string
	UserID      string
	Data        []byte
}

type UploadResult struct {
	FileID       string `json:"fileId"`
	ObjectKey    string `json:"objectKey,omitempty"`
	ProcessID    string `json:"processId"`
	Size         int64  `json:"size"`
	ContentType  string `json:"contentType"`
	Deduplicated bool   `json:"deduplicated,omitempty"`
}

// RecordOwner is the collaborator that owns file records and parse jobs. It
// reserves identifiers before any bytes are stored, and on finalize it either
// commits the record and enqueues the parse job, rejects the upload, or
// recognizes the hash as already-processed content.
type RecordOwner interface {
	Init(ctx context.Context, meta uploads.UploadMeta) (*uploads.InitResult, error)
	Finalize(ctx context.Context, req uploads.FinalizeRequest) (*uploads.FinalizeResult, error)
}

// SupportedContentType reports whether a declared content type is in the
// supported set, so handlers can reject before reading the body. The service
// re-checks after the read; neither guard replaces signature sniffing.
func SupportedContentType(contentType string) bool {
	_, err := formatForContentType(contentType)
	return err == nil
}

func formatForContentType(contentType string) (extractor.Format, error) {
	switch contentType {
	case ContentTypePDF:
		return extractor.FormatPDF, nil
	case ContentTypeDOCX:
		return extractor.FormatDOCX, nil
	}
	return "", ErrUnsupportedType
}
