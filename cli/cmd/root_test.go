package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wkalt/lazytree/config"
	"github.com/wkalt/lazytree/nodestore"
	"github.com/wkalt/lazytree/treemgr"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootCmd.SetOut(buf)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestWithTreeManager(t *testing.T) {
	ctx := context.Background()
	t.Run("closes the store when the callback fails", func(t *testing.T) {
		cfg = &config.Config{
			Backend:         config.BackendLevelDB,
			StorageLocation: filepath.Join(t.TempDir(), "db"),
			CacheCapacity:   2,
		}
		boom := errors.New("boom")
		err := withTreeManager(ctx, func(*treemgr.TreeManager) error { return boom })
		require.ErrorIs(t, err, boom)

		// leveldb holds a directory lock until closed.
		require.NoError(t, withTreeManager(ctx, func(tmgr *treemgr.TreeManager) error {
			_, err := tmgr.AddNode(ctx, "root", nil, nil)
			return err
		}))
	})
	t.Run("open errors are returned", func(t *testing.T) {
		cfg = &config.Config{Backend: "nope", CacheCapacity: 1}
		called := false
		err := withTreeManager(ctx, func(*treemgr.TreeManager) error {
			called = true
			return nil
		})
		require.Error(t, err)
		assert.False(t, called)
	})
}

func TestCommands(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "db")
	store := []string{"--backend", "leveldb", "--storage", dir}

	out, err := execute(t, append([]string{"add", "root", "--data", `{"a": 1}`}, store...)...)
	require.NoError(t, err)
	assert.Equal(t, "1\n", out)

	_, err = execute(t, append([]string{"get", "99"}, store...)...)
	require.ErrorIs(t, err, nodestore.ErrNodeNotFound)

	out, err = execute(t, append([]string{"get", "1"}, store...)...)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}\n", out)

	t.Run("snapshots can be exported and deleted", func(t *testing.T) {
		snapdir := t.TempDir()
		out, err := execute(t, append([]string{"export", "snap", "--dir", snapdir}, store...)...)
		require.NoError(t, err)
		assert.Equal(t, "exported 1 nodes to snap\n", out)

		entries, err := os.ReadDir(snapdir)
		require.NoError(t, err)
		require.Len(t, entries, 1)

		out, err = execute(t, append([]string{"delete-snapshot", "snap", "--dir", snapdir}, store...)...)
		require.NoError(t, err)
		assert.Equal(t, "deleted snap\n", out)

		entries, err = os.ReadDir(snapdir)
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}
