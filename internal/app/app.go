// Package app wires the quickset components together and manages their
// lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	httpapi "github.com/quickset/quickset/internal/api/http"
	"github.com/quickset/quickset/internal/auth"
	"github.com/quickset/quickset/internal/config"
	"github.com/quickset/quickset/internal/observability"
	"github.com/quickset/quickset/internal/query"
	"github.com/quickset/quickset/internal/server"
	"github.com/quickset/quickset/internal/source"
	"github.com/quickset/quickset/internal/table"
)

// statsWindow bounds how long idle columns stay in the search stats.
const statsWindow = time.Hour

// App manages the quickset server lifecycle.
type App struct {
	cfg    *config.Config
	logger *slog.Logger

	registry *table.Registry
	authMgr  *auth.Manager
	stats    *observability.SearchStats
	engine   *query.Engine
	shutdown *server.ShutdownManager

	httpServer *http.Server
	syncRunner *source.Runner

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// New creates an App with the given configuration.
func New(cfg *config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &App{
		cfg:    cfg,
		logger: logger,
	}, nil
}

// Registry exposes the table registry, mainly for preloading data before
// Start.
func (a *App) Registry() *table.Registry {
	if a.registry == nil {
		a.initCore()
	}
	return a.registry
}

// initCore builds the in-memory components.
func (a *App) initCore() {
	a.registry = table.NewRegistry()
	a.authMgr = auth.NewManager(a.cfg.AuthLevel, a.cfg.AdminUser, a.cfg.AdminPass)
	a.stats = observability.NewSearchStats(statsWindow)
	a.engine = query.NewEngine(a.registry, a.stats)
	a.shutdown = server.NewShutdownManager(server.DefaultShutdownConfig())
}

// Start initializes the components and starts the HTTP server, the stats
// pruner, and the sync runner when configured.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app is already running")
	}
	a.running = true
	a.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	if a.registry == nil {
		a.initCore()
	}

	api := httpapi.NewAPI(a.registry, a.engine, a.authMgr, a.stats,
		a.cfg.TableDefaultCapacity, a.logger)

	middleware := httpapi.ChainMiddleware(
		server.ShutdownMiddleware(a.shutdown),
		httpapi.RecoveryMiddleware,
		httpapi.RequestIDMiddleware,
		httpapi.ContentTypeMiddleware,
	)

	a.httpServer = &http.Server{
		Addr:         a.cfg.Addr(),
		Handler:      api.Routes(middleware),
		ReadTimeout:  a.cfg.HTTP.ReadTimeout,
		WriteTimeout: a.cfg.HTTP.WriteTimeout,
		IdleTimeout:  a.cfg.HTTP.IdleTimeout,
	}
	a.shutdown.RegisterCloser(server.CloserFunc(func() error {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer closeCancel()
		return a.httpServer.Shutdown(closeCtx)
	}))

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.logger.Info("http server listening", "addr", a.cfg.Addr(), "auth_level", a.cfg.AuthLevel)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Error("http server error", "error", err)
		}
	}()

	// Prune idle search stats on a fixed cadence
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				a.stats.Prune()
			}
		}
	}()

	if a.cfg.Sync.Interval > 0 && len(a.cfg.Sync.Sources) > 0 {
		a.syncRunner = source.NewRunner(a.cfg.Sync, a.registry,
			a.cfg.TableDefaultCapacity, a.logger)
		if err := a.syncRunner.Start(ctx); err != nil {
			return fmt.Errorf("failed to start sync runner: %w", err)
		}
		a.logger.Info("sync runner started",
			"sources", len(a.cfg.Sync.Sources), "interval", a.cfg.Sync.Interval)
	}

	a.logger.Info("quickset started", "tables", len(a.registry.Names()))
	return nil
}

// Stop gracefully stops all components.
func (a *App) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	a.running = false
	a.mu.Unlock()

	a.logger.Info("initiating graceful shutdown")

	if a.syncRunner != nil {
		if err := a.syncRunner.Stop(); err != nil {
			a.logger.Error("sync runner stop error", "error", err)
		}
	}

	if err := a.shutdown.Shutdown(ctx, "stop requested"); err != nil {
		a.logger.Error("shutdown error", "error", err)
	}

	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(30 * time.Second):
		a.logger.Warn("shutdown timeout, some goroutines may not have finished")
	}

	a.logger.Info("quickset stopped")
	return nil
}

// WaitForShutdown blocks until a shutdown signal is received.
func (a *App) WaitForShutdown(ctx context.Context) error {
	return a.shutdown.ListenForSignals(ctx)
}
