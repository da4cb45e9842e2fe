package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/wkalt/lazytree/config"
	"github.com/wkalt/lazytree/nodestore"
	"github.com/wkalt/lazytree/service"
	"github.com/wkalt/lazytree/treemgr"
)

var (
	storageLocation string
	backend         string
	cacheCapacity   int
	compress        bool
	logLevel        string

	// populated before any command runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "lazytree",
	Short: "Lazily materialized persistent trees",
	Long: `lazytree stores a forest of named nodes with JSON payloads. Payloads are
decoded only when read and kept in a bounded LRU cache.

Settings are read from LAZYTREE_* environment variables; flags override them.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		return loadConfig(cmd)
	},
}

// Execute runs the root command.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) error {
	c, err := config.Load()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("storage") {
		c.StorageLocation = storageLocation
	}
	if flags.Changed("backend") {
		c.Backend = backend
	}
	if flags.Changed("cache-capacity") {
		c.CacheCapacity = cacheCapacity
	}
	if flags.Changed("compress") {
		c.CompressPayloads = compress
	}
	if flags.Changed("log-level") {
		c.LogLevel = logLevel
	}
	applyServeFlags(cmd, c)
	applySnapshotFlags(cmd, c)
	if err := c.Validate(); err != nil {
		return err
	}
	slog.SetLogLoggerLevel(c.Level())
	cfg = c
	return nil
}

// withTreeManager opens the configured tree manager, runs f, and closes the
// manager whether or not f fails.
func withTreeManager(ctx context.Context, f func(*treemgr.TreeManager) error) (err error) {
	tmgr, err := service.OpenTreeManager(ctx, service.WithConfig(cfg))
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, tmgr.Close())
	}()
	return f(tmgr)
}

func parseParent(s string) (*nodestore.NodeID, error) {
	if s == "" {
		return nil, nil
	}
	id, err := nodestore.ParseNodeID(s)
	if err != nil {
		return nil, err
	}
	return id.Ptr(), nil
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&storageLocation, "storage", "s", "tree.db", "sqlite database file or leveldb directory")
	flags.StringVarP(&backend, "backend", "b", config.BackendSQLite, "node store backend (sqlite, leveldb, memory)")
	flags.IntVarP(&cacheCapacity, "cache-capacity", "c", 10, "number of decoded payloads to keep cached")
	flags.BoolVarP(&compress, "compress", "", false, "snappy-compress stored payloads")
	flags.StringVarP(&logLevel, "log-level", "l", "info", "log level")
}
