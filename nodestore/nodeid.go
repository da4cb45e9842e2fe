package nodestore

import (
	"encoding/binary"
	"fmt"
	"strconv"
)

/*
Node IDs are signed 64-bit integers assigned by the store on insert. They are
monotonic within a store and never reused, which lets every backend order
children by ID to get insertion order for free.
*/

////////////////////////////////////////////////////////////////////////////////

// NodeID identifies a node in the nodestore.
type NodeID int64

// String returns a string representation of the node ID.
func (n NodeID) String() string {
	return strconv.FormatInt(int64(n), 10)
}

// Ptr returns a pointer to a copy of the ID, for use as a parent reference.
func (n NodeID) Ptr() *NodeID {
	return &n
}

// bytes returns the big-endian encoding of the ID, which sorts the same way
// the IDs do for all non-negative values.
func (n NodeID) bytes() []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(n))
	return buf
}

func nodeIDFromBytes(buf []byte) NodeID {
	return NodeID(binary.BigEndian.Uint64(buf))
}

// ParseNodeID parses a decimal node ID.
func ParseNodeID(s string) (NodeID, error) {
	x, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid node ID %q: %w", s, err)
	}
	if x <= 0 {
		return 0, fmt.Errorf("invalid node ID %q: must be positive", s)
	}
	return NodeID(x), nil
}
