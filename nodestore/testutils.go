package nodestore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// StoreFactory opens a store over dir. Calling it twice with the same dir must
// reopen the same data, for backends that persist.
type StoreFactory func(t *testing.T, dir string) Store

// TestStores returns a factory for each backend, keyed by name.
func TestStores() map[string]StoreFactory {
	return map[string]StoreFactory{
		"sqlite": func(t *testing.T, dir string) Store {
			t.Helper()
			store, err := OpenSQLStore(context.Background(), filepath.Join(dir, "nodes.db"))
			require.NoError(t, err)
			return store
		},
		"leveldb": func(t *testing.T, dir string) Store {
			t.Helper()
			store, err := NewLevelDBStore(filepath.Join(dir, "nodes.ldb"))
			require.NoError(t, err)
			return store
		},
		"memory": func(t *testing.T, _ string) Store {
			t.Helper()
			return NewMemStore()
		},
	}
}
