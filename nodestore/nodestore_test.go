package nodestore_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/lazytree/nodestore"
)

func names(records []nodestore.Record) []string {
	result := make([]string, 0, len(records))
	for _, r := range records {
		result = append(result, r.Name)
	}
	return result
}

func TestStoreConformance(t *testing.T) {
	ctx := context.Background()
	for backend, open := range nodestore.TestStores() {
		t.Run(backend, func(t *testing.T) {
			store := open(t, t.TempDir())
			defer store.Close()

			t.Run("insert and get a root", func(t *testing.T) {
				id, err := store.Insert(ctx, "root", []byte("payload"), nil)
				require.NoError(t, err)
				record, err := store.Get(ctx, id)
				require.NoError(t, err)
				assert.Equal(t, id, record.ID)
				assert.Equal(t, "root", record.Name)
				assert.Nil(t, record.Parent)
				assert.True(t, record.IsRoot())
				assert.Equal(t, []byte("payload"), record.Payload)
			})
			t.Run("insert a child", func(t *testing.T) {
				parent, err := store.Insert(ctx, "parent", nil, nil)
				require.NoError(t, err)
				child, err := store.Insert(ctx, "child", []byte{0x00, 0xff}, parent.Ptr())
				require.NoError(t, err)
				record, err := store.Get(ctx, child)
				require.NoError(t, err)
				require.NotNil(t, record.Parent)
				assert.Equal(t, parent, *record.Parent)
				assert.Equal(t, []byte{0x00, 0xff}, record.Payload)
			})
			t.Run("get a missing node", func(t *testing.T) {
				_, err := store.Get(ctx, 1e9)
				require.ErrorIs(t, err, nodestore.ErrNodeNotFound)
			})
			t.Run("insert under a missing parent", func(t *testing.T) {
				before, err := store.ChildrenOf(ctx, nil)
				require.NoError(t, err)
				_, err = store.Insert(ctx, "orphan", nil, nodestore.NodeID(1e9).Ptr())
				require.ErrorIs(t, err, nodestore.ErrIntegrity)
				require.ErrorIs(t, err, nodestore.IntegrityError{})

				var integrityErr nodestore.IntegrityError
				require.ErrorAs(t, err, &integrityErr)
				assert.Equal(t, nodestore.NodeID(1e9), integrityErr.Parent)

				after, err := store.ChildrenOf(ctx, nil)
				require.NoError(t, err)
				assert.Equal(t, before, after)
				children, err := store.ChildrenOf(ctx, nodestore.NodeID(1e9).Ptr())
				require.NoError(t, err)
				assert.Empty(t, children)
			})
			t.Run("children are ordered by insertion", func(t *testing.T) {
				parent, err := store.Insert(ctx, "p", nil, nil)
				require.NoError(t, err)
				for _, name := range []string{"c", "a", "b"} {
					_, err := store.Insert(ctx, name, nil, parent.Ptr())
					require.NoError(t, err)
				}
				children, err := store.ChildrenOf(ctx, parent.Ptr())
				require.NoError(t, err)
				assert.Equal(t, []string{"c", "a", "b"}, names(children))
				for _, child := range children {
					assert.Equal(t, parent, *child.Parent)
				}
			})
			t.Run("children of a leaf", func(t *testing.T) {
				leaf, err := store.Insert(ctx, "leaf", nil, nil)
				require.NoError(t, err)
				children, err := store.ChildrenOf(ctx, leaf.Ptr())
				require.NoError(t, err)
				assert.Empty(t, children)
			})
			t.Run("roots", func(t *testing.T) {
				roots, err := store.ChildrenOf(ctx, nil)
				require.NoError(t, err)
				assert.Equal(t, []string{"root", "parent", "p", "leaf"}, names(roots))
				for _, root := range roots {
					assert.Nil(t, root.Parent)
				}
			})
			t.Run("ids increase", func(t *testing.T) {
				a, err := store.Insert(ctx, "a", nil, nil)
				require.NoError(t, err)
				b, err := store.Insert(ctx, "b", nil, nil)
				require.NoError(t, err)
				assert.Greater(t, b, a)
			})
		})
	}
}

func TestStoreDurability(t *testing.T) {
	ctx := context.Background()
	stores := nodestore.TestStores()
	for _, backend := range []string{"sqlite", "leveldb"} {
		t.Run(backend, func(t *testing.T) {
			dir := t.TempDir()
			store := stores[backend](t, dir)
			root, err := store.Insert(ctx, "root", []byte("r"), nil)
			require.NoError(t, err)
			child, err := store.Insert(ctx, "child", []byte("c"), root.Ptr())
			require.NoError(t, err)
			require.NoError(t, store.Close())

			store = stores[backend](t, dir)
			defer store.Close()
			record, err := store.Get(ctx, child)
			require.NoError(t, err)
			assert.Equal(t, []byte("c"), record.Payload)
			assert.Equal(t, root, *record.Parent)

			children, err := store.ChildrenOf(ctx, root.Ptr())
			require.NoError(t, err)
			assert.Equal(t, []string{"child"}, names(children))

			next, err := store.Insert(ctx, "next", nil, nil)
			require.NoError(t, err)
			assert.Greater(t, next, child, "ids must not be reused after reopening")
		})
	}
}

func TestSQLStoreWithCallerDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	defer db.Close()

	store, err := nodestore.NewSQLStore(ctx, db)
	require.NoError(t, err)
	id, err := store.Insert(ctx, "root", []byte("x"), nil)
	require.NoError(t, err)

	t.Run("reinitializing is a no-op", func(t *testing.T) {
		again, err := nodestore.NewSQLStore(ctx, db)
		require.NoError(t, err)
		record, err := again.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "root", record.Name)
	})
	t.Run("close leaves the database open", func(t *testing.T) {
		require.NoError(t, store.Close())
		require.NoError(t, db.PingContext(ctx))
	})
}

func TestMemStoreCopiesPayload(t *testing.T) {
	ctx := context.Background()
	store := nodestore.NewMemStore()
	payload := []byte("abc")
	id, err := store.Insert(ctx, "n", payload, nil)
	require.NoError(t, err)
	payload[0] = 'z'
	record, err := store.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), record.Payload)
}
