package storage

import (
	"context"
	"errors"
	"io"
)

var (
	ErrNotFound   = errors.New("object not found")
	ErrTooLarge   = errors.New("object exceeds size limit")
	ErrInvalidKey = errors.New("invalid object key")
)

// ObjectStore keeps the bytes of uploaded evidence. Keys are slash
// separated relative paths such as "<orderID>/<proofID>.jpg".
type ObjectStore interface {
	// Save writes r under key and returns the number of bytes stored. A
	// partially written object is removed before an error is returned.
	Save(ctx context.Context, key string, r io.Reader) (int64, error)

	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Delete is idempotent
	Delete(ctx context.Context, key string) error
}
