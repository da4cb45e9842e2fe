package treemgr

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/wkalt/lazytree/codec"
	"github.com/wkalt/lazytree/nodestore"
	"github.com/wkalt/lazytree/util"
	"github.com/wkalt/lazytree/util/log"
)

/*
The tree manager is the entry point to a lazily materialized tree. Node
records live in a nodestore; payloads are stored encoded and only decoded when
someone asks for them. Decoded payloads are kept in a bounded LRU so that
repeated reads of the same node skip both the store and the codec.

Writes do not populate the cache. The first read of a node always goes to the
store, even immediately after creation. Traversal reads structure straight from
the store and never touches payloads or the cache.

A tree manager has no global state: two managers over different stores never
interfere, and two managers over the same store each keep their own cache. The
cache is internally synchronized, but the manager makes no promises about
racing writers; callers that share a manager across goroutines and need a
consistent view must serialize access themselves.
*/

////////////////////////////////////////////////////////////////////////////////

// ErrInvalidCapacity is returned when the configured cache capacity is less
// than one.
var ErrInvalidCapacity = errors.New("cache capacity must be at least 1")

// TreeManager is the main interface to the treemgr package.
type TreeManager struct {
	store nodestore.Store
	codec codec.Codec
	cache *util.LRU[nodestore.NodeID, any]

	hits      atomic.Uint64
	misses    atomic.Uint64
	evictions atomic.Uint64
}

// CacheStats summarizes cache behavior since the manager was created.
type CacheStats struct {
	Hits      uint64 `json:"hits"`
	Misses    uint64 `json:"misses"`
	Evictions uint64 `json:"evictions"`
	Resident  int64  `json:"resident"`
	Capacity  int64  `json:"capacity"`
}

// NewTreeManager returns a new TreeManager over the given store and codec. The
// manager takes ownership of the store and closes it on Close.
func NewTreeManager(store nodestore.Store, c codec.Codec, opts ...Option) (*TreeManager, error) {
	conf := config{
		cacheCapacity: DefaultCacheCapacity,
	}
	for _, opt := range opts {
		opt(&conf)
	}
	if conf.cacheCapacity < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidCapacity, conf.cacheCapacity)
	}
	tm := &TreeManager{
		store: store,
		codec: c,
		cache: util.NewLRU[nodestore.NodeID, any](int64(conf.cacheCapacity)),
	}
	tm.cache.OnEvict(func(nodestore.NodeID, any) {
		tm.evictions.Add(1)
	})
	return tm, nil
}

// AddNode encodes value and stores it as a new node under parent, or as a root
// if parent is nil. The payload is not cached.
func (tm *TreeManager) AddNode(
	ctx context.Context,
	name string,
	value any,
	parent *nodestore.NodeID,
) (nodestore.NodeID, error) {
	payload, err := tm.codec.Encode(value)
	if err != nil {
		return 0, fmt.Errorf("failed to encode payload for %s: %w", name, err)
	}
	id, err := tm.store.Insert(ctx, name, payload, parent)
	if err != nil {
		return 0, fmt.Errorf("failed to insert node %s: %w", name, err)
	}
	log.Debugw(ctx, "Added node", "id", id, "name", name, "bytes", len(payload))
	return id, nil
}

// GetNodeData returns the decoded payload of the node. A cache hit returns the
// cached value without consulting the store or the codec. On a miss the record
// is read and decoded, and the result is cached. Decode failures are returned
// and nothing is cached.
//
// Cached values are shared between callers and must not be mutated.
func (tm *TreeManager) GetNodeData(ctx context.Context, id nodestore.NodeID) (any, error) {
	if value, ok := tm.cache.Get(id); ok {
		tm.hits.Add(1)
		return value, nil
	}
	tm.misses.Add(1)
	record, err := tm.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get node %d: %w", id, err)
	}
	value, err := tm.codec.Decode(record.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to decode node %d: %w", id, err)
	}
	tm.cache.Put(id, value)
	log.Debugw(ctx, "Materialized node", "id", id, "bytes", len(record.Payload))
	return value, nil
}

// IsCached reports whether the node's payload is resident. It does not affect
// eviction order.
func (tm *TreeManager) IsCached(id nodestore.NodeID) bool {
	return tm.cache.Contains(id)
}

// CachedIDs returns the ids of resident payloads, most recently used first.
// It does not affect eviction order.
func (tm *TreeManager) CachedIDs() []nodestore.NodeID {
	return tm.cache.Keys()
}

// Node returns the stored record for id. It bypasses the cache.
func (tm *TreeManager) Node(ctx context.Context, id nodestore.NodeID) (*nodestore.Record, error) {
	record, err := tm.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get node %d: %w", id, err)
	}
	return record, nil
}

// Children returns the children of parent, or the roots if parent is nil.
func (tm *TreeManager) Children(ctx context.Context, parent *nodestore.NodeID) ([]nodestore.Record, error) {
	children, err := tm.store.ChildrenOf(ctx, parent)
	if err != nil {
		return nil, fmt.Errorf("failed to list children: %w", err)
	}
	return children, nil
}

// WalkFunc is called for each node visited by Walk, with the node's depth
// relative to the walk's starting level.
type WalkFunc func(level int, record nodestore.Record) error

// Walk visits every node under root depth-first in pre-order, or every node in
// the forest if root is nil. Siblings are visited in store order. Children of
// root are reported at the given level.
func (tm *TreeManager) Walk(ctx context.Context, root *nodestore.NodeID, level int, fn WalkFunc) error {
	children, err := tm.Children(ctx, root)
	if err != nil {
		return err
	}
	for _, child := range children {
		if err := fn(level, child); err != nil {
			return err
		}
		if err := tm.Walk(ctx, child.ID.Ptr(), level+1, fn); err != nil {
			return err
		}
	}
	return nil
}

// PrintTree writes an indented listing of every node under root, or of the
// whole forest if root is nil, in depth-first pre-order.
func (tm *TreeManager) PrintTree(ctx context.Context, w io.Writer, root *nodestore.NodeID, level int) error {
	return tm.Walk(ctx, root, level, func(level int, record nodestore.Record) error {
		_, err := fmt.Fprintf(w, "%s- %s (id: %d)\n", strings.Repeat("  ", level), record.Name, record.ID)
		if err != nil {
			return fmt.Errorf("failed to write tree: %w", err)
		}
		return nil
	})
}

// Stats returns cache statistics.
func (tm *TreeManager) Stats() CacheStats {
	return CacheStats{
		Hits:      tm.hits.Load(),
		Misses:    tm.misses.Load(),
		Evictions: tm.evictions.Load(),
		Resident:  tm.cache.Len(),
		Capacity:  tm.cache.Cap(),
	}
}

// ResetCache drops every cached payload. Stored nodes are unaffected.
func (tm *TreeManager) ResetCache() {
	tm.cache.Reset()
}

// Close closes the underlying store.
func (tm *TreeManager) Close() error {
	if err := tm.store.Close(); err != nil {
		return fmt.Errorf("failed to close store: %w", err)
	}
	return nil
}

func (tm *TreeManager) String() string {
	return fmt.Sprintf("treemgr(%v, %v, cache %d/%d)", tm.store, tm.codec, tm.cache.Len(), tm.cache.Cap())
}
