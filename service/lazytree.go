package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/wkalt/lazytree/codec"
	"github.com/wkalt/lazytree/config"
	"github.com/wkalt/lazytree/nodestore"
	"github.com/wkalt/lazytree/routes"
	"github.com/wkalt/lazytree/treemgr"
	"github.com/wkalt/lazytree/util"
	"github.com/wkalt/lazytree/util/log"
	"golang.org/x/sync/errgroup"
)

/*
This file is the main entrypoint for lazytree server startup, and for opening
a tree manager from configuration.
*/

////////////////////////////////////////////////////////////////////////////////

const shutdownGracePeriod = 10 * time.Second

// OpenStore opens the node store for the named backend. The location is a
// sqlite database file for sqlite and a directory for leveldb; it is ignored
// for the memory backend.
func OpenStore(ctx context.Context, backend, location string) (nodestore.Store, error) {
	switch backend {
	case config.BackendSQLite:
		return nodestore.OpenSQLStore(ctx, location)
	case config.BackendLevelDB:
		return nodestore.NewLevelDBStore(location)
	case config.BackendMemory:
		return nodestore.NewMemStore(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", backend)
	}
}

// NewCodec returns the payload codec, optionally compressing.
func NewCodec(compress bool) codec.Codec {
	return util.When(compress, codec.NewSnappy(codec.NewJSON()), codec.NewJSON())
}

// OpenTreeManager opens a tree manager according to the given options. The
// caller must close it.
func OpenTreeManager(ctx context.Context, options ...Option) (*treemgr.TreeManager, error) {
	return openTreeManager(ctx, readOpts(options...))
}

func openTreeManager(ctx context.Context, opts *Options) (*treemgr.TreeManager, error) {
	store, err := OpenStore(ctx, opts.Backend, opts.StorageLocation)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store at %s: %w", opts.Backend, opts.StorageLocation, err)
	}
	tmgr, err := treemgr.NewTreeManager(
		store,
		NewCodec(opts.CompressPayloads),
		treemgr.WithCacheCapacity(opts.CacheCapacity),
	)
	if err != nil {
		if closeErr := util.CloseAll(store); closeErr != nil {
			log.Warnw(ctx, "failed to close store", "error", closeErr)
		}
		return nil, fmt.Errorf("failed to create tree manager: %w", err)
	}
	log.Debugw(ctx, "Opened tree manager", "tmgr", tmgr)
	return tmgr, nil
}

// LazyTree is the HTTP service.
type LazyTree struct{}

// NewLazyTreeService creates a new lazytree service.
func NewLazyTreeService() *LazyTree {
	return &LazyTree{}
}

// Start opens the tree manager and serves it over HTTP until ctx is canceled
// or the process receives SIGINT or SIGTERM.
func (lt *LazyTree) Start(ctx context.Context, options ...Option) error {
	opts := readOpts(options...)
	slog.SetLogLoggerLevel(opts.LogLevel)
	log.Debugf(ctx, "Debug logging enabled")

	tmgr, err := openTreeManager(ctx, opts)
	if err != nil {
		return err
	}
	defer util.MaybeWarn(ctx, tmgr.Close)

	listener := opts.Listener
	if listener == nil {
		listener, err = net.Listen("tcp", fmt.Sprintf(":%d", opts.Port))
		if err != nil {
			return fmt.Errorf("failed to listen on port %d: %w", opts.Port, err)
		}
	}
	log.Infof(ctx, "Building routes with allowed origins %+v", opts.AllowedOrigins)
	srv := &http.Server{
		Handler:           routes.MakeRoutes(tmgr, opts.AllowedOrigins),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Infow(ctx, "Starting server",
			"addr", listener.Addr().String(), "backend", opts.Backend,
			"storage", opts.StorageLocation, "cache", opts.CacheCapacity)
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Infof(ctx, "Shutting down, allowing %s for existing connections to close", shutdownGracePeriod)
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGracePeriod)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		log.Infof(ctx, "Server stopped")
		return nil
	})
	return g.Wait()
}
