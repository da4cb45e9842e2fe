package treemgr

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/goccy/go-json"
	"github.com/wkalt/lazytree/nodestore"
	"github.com/wkalt/lazytree/storage"
	"github.com/wkalt/lazytree/util/log"
)

/*
Snapshots copy a whole forest into a storage provider as a single JSON object
and back. Nodes are listed in ascending id order. Nodes are never moved, so a
parent always has a smaller id than its children and import can re-insert them
in one pass. Importing into an empty store reproduces the original ids.

Payloads travel as opaque bytes; the codec is never involved, so a snapshot can
only be read back by a manager using the same codec configuration.
*/

////////////////////////////////////////////////////////////////////////////////

const snapshotVersion = 1

// ErrInvalidSnapshot is returned when a snapshot object cannot be imported.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

type snapshot struct {
	Version int            `json:"version"`
	Nodes   []snapshotNode `json:"nodes"`
}

type snapshotNode struct {
	ID      nodestore.NodeID  `json:"id"`
	Name    string            `json:"name"`
	Parent  *nodestore.NodeID `json:"parent,omitempty"`
	Payload []byte            `json:"payload"`
}

// Export writes every node to provider under key and returns the number of
// nodes written.
func (tm *TreeManager) Export(ctx context.Context, provider storage.Provider, key string) (int, error) {
	snap := snapshot{Version: snapshotVersion, Nodes: []snapshotNode{}}
	err := tm.Walk(ctx, nil, 0, func(_ int, record nodestore.Record) error {
		snap.Nodes = append(snap.Nodes, snapshotNode{
			ID:      record.ID,
			Name:    record.Name,
			Parent:  record.Parent,
			Payload: record.Payload,
		})
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to collect nodes: %w", err)
	}
	slices.SortFunc(snap.Nodes, func(a, b snapshotNode) int {
		return cmp.Compare(a.ID, b.ID)
	})
	data, err := json.Marshal(snap)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize snapshot: %w", err)
	}
	if err := provider.Put(ctx, key, data); err != nil {
		return 0, fmt.Errorf("failed to write snapshot %s: %w", key, err)
	}
	log.Infow(ctx, "Exported snapshot", "key", key, "nodes", len(snap.Nodes), "bytes", len(data))
	return len(snap.Nodes), nil
}

// Import reads the snapshot stored under key and inserts its nodes, placing
// the snapshot's roots under parent (or as roots if parent is nil). Nodes
// receive new IDs. It returns the number of nodes inserted. A failure partway
// through leaves the nodes inserted so far in place.
func (tm *TreeManager) Import(
	ctx context.Context,
	provider storage.Provider,
	key string,
	parent *nodestore.NodeID,
) (int, error) {
	data, err := provider.Get(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("failed to read snapshot %s: %w", key, err)
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidSnapshot, err)
	}
	if snap.Version != snapshotVersion {
		return 0, fmt.Errorf("%w: unsupported version %d", ErrInvalidSnapshot, snap.Version)
	}
	ids := make(map[nodestore.NodeID]nodestore.NodeID, len(snap.Nodes))
	for i, node := range snap.Nodes {
		target := parent
		if node.Parent != nil {
			mapped, ok := ids[*node.Parent]
			if !ok {
				return i, fmt.Errorf("%w: node %d precedes its parent %d", ErrInvalidSnapshot, node.ID, *node.Parent)
			}
			target = mapped.Ptr()
		}
		id, err := tm.store.Insert(ctx, node.Name, node.Payload, target)
		if err != nil {
			return i, fmt.Errorf("failed to import node %d: %w", node.ID, err)
		}
		ids[node.ID] = id
	}
	log.Infow(ctx, "Imported snapshot", "key", key, "nodes", len(snap.Nodes))
	return len(snap.Nodes), nil
}
