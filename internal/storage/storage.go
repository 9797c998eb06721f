package storage

import "context"

// ObjectStore is the narrow contract the upload pipeline has with the blob
// bucket. Delete is best-effort: callers use it for rollback and must log a
// failure rather than treat it as fatal, since no record ever references an
// object that failed to finalize.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (int64, error)
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
