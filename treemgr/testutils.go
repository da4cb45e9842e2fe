package treemgr

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wkalt/lazytree/codec"
	"github.com/wkalt/lazytree/nodestore"
)

// TestTreeManager returns a tree manager over a fresh sqlite database in a
// temporary directory, using the JSON codec. The manager is closed when the
// test completes.
func TestTreeManager(ctx context.Context, tb testing.TB, opts ...Option) *TreeManager {
	tb.Helper()
	store, err := nodestore.OpenSQLStore(ctx, filepath.Join(tb.TempDir(), "tree.db"))
	require.NoError(tb, err)
	tmgr, err := NewTreeManager(store, codec.NewJSON(), opts...)
	require.NoError(tb, err)
	tb.Cleanup(func() {
		require.NoError(tb, tmgr.Close())
	})
	return tmgr
}

// BuildSampleTree creates the example forest used throughout the tests and
// returns the IDs by name:
//
//	Root
//	  Child 1
//	    Grandchild 1
//	  Child 2
func BuildSampleTree(ctx context.Context, tb testing.TB, tmgr *TreeManager) map[string]nodestore.NodeID {
	tb.Helper()
	ids := map[string]nodestore.NodeID{}
	add := func(name string, value any, parent string) {
		var p *nodestore.NodeID
		if parent != "" {
			p = ids[parent].Ptr()
		}
		id, err := tmgr.AddNode(ctx, name, value, p)
		require.NoError(tb, err)
		ids[name] = id
	}
	add("Root", map[string]any{"value": 1}, "")
	add("Child 1", map[string]any{"value": 10}, "Root")
	add("Child 2", map[string]any{"value": 20}, "Root")
	add("Grandchild 1", map[string]any{"value": 100}, "Child 1")
	return ids
}
