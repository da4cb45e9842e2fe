package treemgr_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/lazytree/codec"
	"github.com/wkalt/lazytree/nodestore"
	"github.com/wkalt/lazytree/treemgr"
	"go.uber.org/mock/gomock"
)

func canonical(t *testing.T, v any) any {
	t.Helper()
	c, err := codec.Canonical(v)
	require.NoError(t, err)
	return c
}

// delegatingStore returns a mock store whose calls are forwarded to a real
// in-memory store, along with a manager that writes to the real store.
func delegatingStore(t *testing.T) (*nodestore.MockStore, nodestore.Store, *treemgr.TreeManager) {
	t.Helper()
	ctrl := gomock.NewController(t)
	real := nodestore.NewMemStore()
	writer, err := treemgr.NewTreeManager(real, codec.NewJSON())
	require.NoError(t, err)
	return nodestore.NewMockStore(ctrl), real, writer
}

func TestRoundTripAfterColdCache(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "tree.db")
	rng := rand.New(rand.NewSource(1))

	store, err := nodestore.OpenSQLStore(ctx, path)
	require.NoError(t, err)
	tmgr, err := treemgr.NewTreeManager(store, codec.NewJSON(), treemgr.WithCacheCapacity(4))
	require.NoError(t, err)

	expected := map[nodestore.NodeID]any{}
	ids := []nodestore.NodeID{}
	for i := 0; i < 50; i++ {
		var parent *nodestore.NodeID
		if len(ids) > 0 && rng.Intn(4) > 0 {
			parent = ids[rng.Intn(len(ids))].Ptr()
		}
		value := map[string]any{
			"index": i,
			"score": rng.Float64(),
			"tags":  []string{fmt.Sprintf("t%d", rng.Intn(10))},
			"inner": map[string]any{"ok": i%2 == 0, "items": []any{i, "x", nil}},
		}
		id, err := tmgr.AddNode(ctx, fmt.Sprintf("node-%d", i), value, parent)
		require.NoError(t, err)
		ids = append(ids, id)
		expected[id] = canonical(t, value)
	}
	require.NoError(t, tmgr.Close())

	store, err = nodestore.OpenSQLStore(ctx, path)
	require.NoError(t, err)
	cold, err := treemgr.NewTreeManager(store, codec.NewJSON(), treemgr.WithCacheCapacity(4))
	require.NoError(t, err)
	defer cold.Close()
	for _, id := range ids {
		assert.False(t, cold.IsCached(id))
		value, err := cold.GetNodeData(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, expected[id], value)
	}
}

func TestCacheHitSkipsStoreAndCodec(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	store := nodestore.NewMockStore(ctrl)
	c := codec.NewMockCodec(ctrl)
	tmgr, err := treemgr.NewTreeManager(store, c, treemgr.WithCacheCapacity(2))
	require.NoError(t, err)

	record := &nodestore.Record{ID: 7, Name: "n", Payload: []byte("payload")}
	value := map[string]any{"v": int64(1)}
	gomock.InOrder(
		store.EXPECT().Get(gomock.Any(), nodestore.NodeID(7)).Return(record, nil).Times(1),
		c.EXPECT().Decode([]byte("payload")).Return(value, nil).Times(1),
	)

	first, err := tmgr.GetNodeData(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, value, first)
	for i := 0; i < 5; i++ {
		again, err := tmgr.GetNodeData(ctx, 7)
		require.NoError(t, err)
		assert.Equal(t, value, again)
	}
	stats := tmgr.Stats()
	assert.Equal(t, uint64(5), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestAddNodeDoesNotPopulateCache(t *testing.T) {
	ctx := context.Background()
	tmgr := treemgr.TestTreeManager(ctx, t)
	id, err := tmgr.AddNode(ctx, "fresh", "value", nil)
	require.NoError(t, err)
	assert.False(t, tmgr.IsCached(id))
	assert.Equal(t, int64(0), tmgr.Stats().Resident)

	_, err = tmgr.GetNodeData(ctx, id)
	require.NoError(t, err)
	assert.True(t, tmgr.IsCached(id))
	assert.Equal(t, uint64(1), tmgr.Stats().Misses)
}

func TestEviction(t *testing.T) {
	ctx := context.Background()
	mock, real, writer := delegatingStore(t)
	ids := make([]nodestore.NodeID, 4)
	for i := range ids {
		id, err := writer.AddNode(ctx, fmt.Sprintf("n%d", i), i, nil)
		require.NoError(t, err)
		ids[i] = id
	}
	tmgr, err := treemgr.NewTreeManager(mock, codec.NewJSON(), treemgr.WithCacheCapacity(3))
	require.NoError(t, err)

	mock.EXPECT().Get(gomock.Any(), ids[0]).DoAndReturn(real.Get).Times(1)
	mock.EXPECT().Get(gomock.Any(), ids[1]).DoAndReturn(real.Get).Times(2)
	mock.EXPECT().Get(gomock.Any(), ids[2]).DoAndReturn(real.Get).Times(1)
	mock.EXPECT().Get(gomock.Any(), ids[3]).DoAndReturn(real.Get).Times(1)

	for _, id := range ids[:3] {
		_, err := tmgr.GetNodeData(ctx, id)
		require.NoError(t, err)
	}
	// touch the oldest entry so that ids[1] becomes least recently used.
	_, err = tmgr.GetNodeData(ctx, ids[0])
	require.NoError(t, err)

	_, err = tmgr.GetNodeData(ctx, ids[3])
	require.NoError(t, err)
	assert.True(t, tmgr.IsCached(ids[0]))
	assert.False(t, tmgr.IsCached(ids[1]))
	assert.True(t, tmgr.IsCached(ids[2]))
	assert.True(t, tmgr.IsCached(ids[3]))
	assert.Equal(t, uint64(1), tmgr.Stats().Evictions)
	assert.Equal(t, []nodestore.NodeID{ids[3], ids[0], ids[2]}, tmgr.CachedIDs())

	value, err := tmgr.GetNodeData(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, int64(1), value)
}

func TestCacheProbeDoesNotAffectEviction(t *testing.T) {
	ctx := context.Background()
	tmgr := treemgr.TestTreeManager(ctx, t, treemgr.WithCacheCapacity(2))
	a, err := tmgr.AddNode(ctx, "a", 1, nil)
	require.NoError(t, err)
	b, err := tmgr.AddNode(ctx, "b", 2, nil)
	require.NoError(t, err)
	c, err := tmgr.AddNode(ctx, "c", 3, nil)
	require.NoError(t, err)

	for _, id := range []nodestore.NodeID{a, b} {
		_, err := tmgr.GetNodeData(ctx, id)
		require.NoError(t, err)
	}
	require.True(t, tmgr.IsCached(a))
	_, err = tmgr.GetNodeData(ctx, c)
	require.NoError(t, err)
	assert.False(t, tmgr.IsCached(a))
	assert.True(t, tmgr.IsCached(b))
}

func TestCapacityOneScenario(t *testing.T) {
	ctx := context.Background()
	mock, real, writer := delegatingStore(t)
	r, err := writer.AddNode(ctx, "R", map[string]any{"v": 1}, nil)
	require.NoError(t, err)
	c1, err := writer.AddNode(ctx, "C1", map[string]any{"v": 10}, r.Ptr())
	require.NoError(t, err)

	tmgr, err := treemgr.NewTreeManager(mock, codec.NewJSON(), treemgr.WithCacheCapacity(1))
	require.NoError(t, err)
	mock.EXPECT().Get(gomock.Any(), c1).DoAndReturn(real.Get).Times(2)
	mock.EXPECT().Get(gomock.Any(), r).DoAndReturn(real.Get).Times(1)

	value, err := tmgr.GetNodeData(ctx, c1)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"v": int64(10)}, value)

	value, err = tmgr.GetNodeData(ctx, r)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"v": int64(1)}, value)
	assert.False(t, tmgr.IsCached(c1))

	value, err = tmgr.GetNodeData(ctx, c1)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"v": int64(10)}, value)

	stats := tmgr.Stats()
	assert.Equal(t, uint64(0), stats.Hits)
	assert.Equal(t, uint64(3), stats.Misses)
	assert.Equal(t, uint64(2), stats.Evictions)
	assert.Equal(t, int64(1), stats.Resident)
}

func TestErrors(t *testing.T) {
	ctx := context.Background()
	t.Run("missing parent", func(t *testing.T) {
		tmgr := treemgr.TestTreeManager(ctx, t)
		root, err := tmgr.AddNode(ctx, "root", 1, nil)
		require.NoError(t, err)

		_, err = tmgr.AddNode(ctx, "orphan", 2, nodestore.NodeID(999).Ptr())
		require.ErrorIs(t, err, nodestore.ErrIntegrity)

		roots, err := tmgr.Children(ctx, nil)
		require.NoError(t, err)
		require.Len(t, roots, 1)
		assert.Equal(t, root, roots[0].ID)
		children, err := tmgr.Children(ctx, nodestore.NodeID(999).Ptr())
		require.NoError(t, err)
		assert.Empty(t, children)
		_, err = tmgr.GetNodeData(ctx, root+1)
		require.ErrorIs(t, err, nodestore.ErrNodeNotFound)
	})
	t.Run("never created", func(t *testing.T) {
		tmgr := treemgr.TestTreeManager(ctx, t)
		_, err := tmgr.GetNodeData(ctx, 12345)
		require.ErrorIs(t, err, nodestore.ErrNodeNotFound)
		_, err = tmgr.Node(ctx, 12345)
		require.ErrorIs(t, err, nodestore.ErrNodeNotFound)
	})
	t.Run("unsupported value", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := nodestore.NewMockStore(ctrl)
		tmgr, err := treemgr.NewTreeManager(store, codec.NewJSON())
		require.NoError(t, err)
		_, err = tmgr.AddNode(ctx, "bad", struct{}{}, nil)
		var encodeErr *codec.EncodeError
		require.ErrorAs(t, err, &encodeErr)
	})
	t.Run("invalid utf-8 is rejected before anything is stored", func(t *testing.T) {
		tmgr := treemgr.TestTreeManager(ctx, t)
		for _, value := range []any{"\xff\xfe", map[string]any{"\xff": 1}} {
			_, err := tmgr.AddNode(ctx, "bad", value, nil)
			var encodeErr *codec.EncodeError
			require.ErrorAs(t, err, &encodeErr)
		}
		roots, err := tmgr.Children(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, roots)
	})
	t.Run("decode failure is surfaced and not cached", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		store := nodestore.NewMockStore(ctrl)
		c := codec.NewMockCodec(ctrl)
		tmgr, err := treemgr.NewTreeManager(store, c)
		require.NoError(t, err)

		record := &nodestore.Record{ID: 3, Name: "corrupt", Payload: []byte{0xff}}
		decodeErr := &codec.DecodeError{Err: errors.New("bad bytes")}
		store.EXPECT().Get(gomock.Any(), nodestore.NodeID(3)).Return(record, nil).Times(2)
		c.EXPECT().Decode([]byte{0xff}).Return(nil, decodeErr).Times(2)

		for i := 0; i < 2; i++ {
			_, err = tmgr.GetNodeData(ctx, 3)
			require.ErrorIs(t, err, decodeErr)
			assert.False(t, tmgr.IsCached(3))
		}
	})
	t.Run("invalid capacity", func(t *testing.T) {
		for _, capacity := range []int{0, -1} {
			_, err := treemgr.NewTreeManager(nodestore.NewMemStore(), codec.NewJSON(), treemgr.WithCacheCapacity(capacity))
			require.ErrorIs(t, err, treemgr.ErrInvalidCapacity)
		}
	})
}

func TestPrintTree(t *testing.T) {
	ctx := context.Background()
	cases := []struct {
		assertion string
		order     []string
		expected  string
	}{
		{
			"B inserted before C",
			[]string{"A", "B", "C", "D"},
			"- A (id: 1)\n  - B (id: 2)\n    - D (id: 4)\n  - C (id: 3)\n",
		},
		{
			"C inserted before B",
			[]string{"A", "C", "B", "D"},
			"- A (id: 1)\n  - C (id: 2)\n  - B (id: 3)\n    - D (id: 4)\n",
		},
	}
	parents := map[string]string{"B": "A", "C": "A", "D": "B"}
	for _, c := range cases {
		t.Run(c.assertion, func(t *testing.T) {
			tmgr := treemgr.TestTreeManager(ctx, t)
			ids := map[string]nodestore.NodeID{}
			for _, name := range c.order {
				var parent *nodestore.NodeID
				if p, ok := parents[name]; ok {
					parent = ids[p].Ptr()
				}
				id, err := tmgr.AddNode(ctx, name, name, parent)
				require.NoError(t, err)
				ids[name] = id
			}
			buf := &bytes.Buffer{}
			require.NoError(t, tmgr.PrintTree(ctx, buf, nil, 0))
			assert.Equal(t, c.expected, buf.String())
			assert.Equal(t, int64(0), tmgr.Stats().Resident, "printing must not materialize payloads")
		})
	}
	t.Run("subtree with starting level", func(t *testing.T) {
		tmgr := treemgr.TestTreeManager(ctx, t)
		ids := treemgr.BuildSampleTree(ctx, t, tmgr)
		buf := &bytes.Buffer{}
		require.NoError(t, tmgr.PrintTree(ctx, buf, ids["Root"].Ptr(), 1))
		assert.Equal(t, "  - Child 1 (id: 2)\n    - Grandchild 1 (id: 4)\n  - Child 2 (id: 3)\n", buf.String())
	})
	t.Run("leaf prints nothing", func(t *testing.T) {
		tmgr := treemgr.TestTreeManager(ctx, t)
		ids := treemgr.BuildSampleTree(ctx, t, tmgr)
		buf := &bytes.Buffer{}
		require.NoError(t, tmgr.PrintTree(ctx, buf, ids["Grandchild 1"].Ptr(), 0))
		assert.Empty(t, buf.String())
	})
	t.Run("traversal never touches the cache or codec", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		mock, real, writer := delegatingStore(t)
		treemgr.BuildSampleTree(ctx, t, writer)
		c := codec.NewMockCodec(ctrl)
		tmgr, err := treemgr.NewTreeManager(mock, c)
		require.NoError(t, err)
		mock.EXPECT().ChildrenOf(gomock.Any(), gomock.Any()).DoAndReturn(real.ChildrenOf).AnyTimes()
		require.NoError(t, tmgr.PrintTree(ctx, &bytes.Buffer{}, nil, 0))
		assert.Equal(t, treemgr.CacheStats{Capacity: treemgr.DefaultCacheCapacity}, tmgr.Stats())
	})
}

func TestWalkStopsOnError(t *testing.T) {
	ctx := context.Background()
	tmgr := treemgr.TestTreeManager(ctx, t)
	treemgr.BuildSampleTree(ctx, t, tmgr)
	stop := errors.New("stop")
	visited := []string{}
	err := tmgr.Walk(ctx, nil, 0, func(_ int, record nodestore.Record) error {
		visited = append(visited, record.Name)
		if record.Name == "Child 1" {
			return stop
		}
		return nil
	})
	require.ErrorIs(t, err, stop)
	assert.Equal(t, []string{"Root", "Child 1"}, visited)
}

func TestManagersDoNotShareState(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "shared.db")
	open := func() *treemgr.TreeManager {
		store, err := nodestore.OpenSQLStore(ctx, path)
		require.NoError(t, err)
		tmgr, err := treemgr.NewTreeManager(store, codec.NewJSON())
		require.NoError(t, err)
		t.Cleanup(func() { tmgr.Close() })
		return tmgr
	}
	first, second := open(), open()
	id, err := first.AddNode(ctx, "n", "v", nil)
	require.NoError(t, err)
	_, err = first.GetNodeData(ctx, id)
	require.NoError(t, err)
	assert.True(t, first.IsCached(id))
	assert.False(t, second.IsCached(id))

	value, err := second.GetNodeData(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "v", value)
}

func TestResetCache(t *testing.T) {
	ctx := context.Background()
	tmgr := treemgr.TestTreeManager(ctx, t)
	ids := treemgr.BuildSampleTree(ctx, t, tmgr)
	_, err := tmgr.GetNodeData(ctx, ids["Root"])
	require.NoError(t, err)
	tmgr.ResetCache()
	assert.False(t, tmgr.IsCached(ids["Root"]))
	value, err := tmgr.GetNodeData(ctx, ids["Root"])
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"value": int64(1)}, value)
}
