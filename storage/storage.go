package storage

import (
	"context"
	"errors"
)

/*
Storage providers hold whole objects under string keys. The tree manager uses
them as a destination for snapshots: a snapshot is one object containing every
node record, written by Export and read back by Import.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrObjectNotFound is returned when a requested object does not exist.
var ErrObjectNotFound = errors.New("object not found")

// Provider is the interface for snapshot object storage.
type Provider interface {
	Put(ctx context.Context, id string, data []byte) error
	Get(ctx context.Context, id string) ([]byte, error)
	Delete(ctx context.Context, id string) error
}
