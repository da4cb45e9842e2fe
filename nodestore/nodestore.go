package nodestore

//go:generate mockgen -source nodestore.go -destination nodestore_mocks.go -package nodestore

import (
	"context"
	"fmt"
)

/*
The nodestore persists node records: an ID, a name, an optional parent
reference, and an opaque payload. It knows nothing about what the payload
means; encoding and decoding happen a layer up, in the tree manager.

Every backend commits each operation before returning. There is no batching
across calls, and a record written by one process is visible to the next one
to open the same storage location.
*/

////////////////////////////////////////////////////////////////////////////////

// Record is a stored node.
type Record struct {
	ID      NodeID
	Name    string
	Parent  *NodeID
	Payload []byte
}

// IsRoot reports whether the record has no parent.
func (r Record) IsRoot() bool {
	return r.Parent == nil
}

func (r Record) String() string {
	if r.Parent == nil {
		return fmt.Sprintf("%s (id: %d)", r.Name, r.ID)
	}
	return fmt.Sprintf("%s (id: %d, parent: %d)", r.Name, r.ID, *r.Parent)
}

// Store is the durable node store interface.
type Store interface {
	// Insert allocates a new ID, persists the record and returns the ID. If
	// parent is non-nil and does not exist, an IntegrityError is returned and
	// nothing is written.
	Insert(ctx context.Context, name string, payload []byte, parent *NodeID) (NodeID, error)

	// Get returns the record for id, or ErrNodeNotFound.
	Get(ctx context.Context, id NodeID) (*Record, error)

	// ChildrenOf returns the records whose parent is parent, ordered by ID. A
	// nil parent selects the roots.
	ChildrenOf(ctx context.Context, parent *NodeID) ([]Record, error)

	Close() error
}
