package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quickset/quickset/internal/config"
	qerr "github.com/quickset/quickset/internal/errors"
	"github.com/quickset/quickset/internal/table"
	"github.com/quickset/quickset/pkg/types"
)

// Runner periodically pulls every configured source table and swaps the
// fresh rows into the registry.
type Runner struct {
	cfg             config.SyncConfig
	registry        *table.Registry
	defaultCapacity int
	logger          *slog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewRunner creates a sync runner.
func NewRunner(cfg config.SyncConfig, registry *table.Registry, defaultCapacity int, logger *slog.Logger) *Runner {
	return &Runner{
		cfg:             cfg,
		registry:        registry,
		defaultCapacity: defaultCapacity,
		logger:          logger,
	}
}

// Start begins the sync loop. It runs until the context is cancelled or Stop
// is called.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return fmt.Errorf("sync: runner is already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.done = make(chan struct{})
	r.mu.Unlock()

	go r.run(ctx)
	return nil
}

// Stop gracefully stops the runner.
func (r *Runner) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return nil
	}

	r.cancel()
	<-r.done
	r.running = false
	return nil
}

// run is the main sync loop.
func (r *Runner) run(ctx context.Context) {
	defer close(r.done)

	// Sync immediately on start
	r.RunOnce(ctx)

	ticker := time.NewTicker(r.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single sync cycle across all sources. Sources run
// concurrently; a failing source does not halt the others.
func (r *Runner) RunOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, srcCfg := range r.cfg.Sources {
		g.Go(func() error {
			if err := r.syncSource(gctx, srcCfg); err != nil {
				r.logger.Error("source sync failed", "source", srcCfg.Name, "error", err)
			}
			return nil
		})
	}
	g.Wait()
}

// syncSource connects one source and refreshes each of its tables.
func (r *Runner) syncSource(ctx context.Context, srcCfg config.SourceConfig) error {
	src, err := New(srcCfg)
	if err != nil {
		return err
	}
	if err := src.Connect(ctx); err != nil {
		return err
	}
	defer src.Close()

	for _, tblCfg := range srcCfg.Tables {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := r.syncTable(ctx, src, tblCfg); err != nil {
			r.logger.Error("table sync failed",
				"source", srcCfg.Name, "table", tblCfg.Source, "error", err)
			// Continue with the remaining tables
		}
	}
	return nil
}

// syncTable fetches one table and swaps the rows into its target.
func (r *Runner) syncTable(ctx context.Context, src Source, tblCfg config.SourceTableConfig) error {
	start := time.Now()

	rows, dropped, err := src.FetchTable(ctx, tblCfg)
	if err != nil {
		return err
	}

	target := tblCfg.Target
	if target == "" {
		target = tblCfg.Source
	}

	tbl, err := r.ensureTable(target, tblCfg)
	if err != nil {
		return err
	}
	if err := tbl.ReplaceAll(rows); err != nil {
		return err
	}

	r.logger.Info("table synced",
		"source", src.Name(),
		"table", target,
		"rows", len(rows),
		"dropped", dropped,
		"elapsed", time.Since(start))
	return nil
}

// ensureTable returns the target table, creating it from the configured
// column mapping on first sync.
func (r *Runner) ensureTable(name string, tblCfg config.SourceTableConfig) (*table.Table, error) {
	tbl, err := r.registry.Get(name)
	if err == nil {
		return tbl, nil
	}
	if !errors.Is(err, qerr.NewTableNotFound(name)) {
		return nil, err
	}

	columns := make([]types.Column, len(tblCfg.Columns))
	for i, col := range tblCfg.Columns {
		t, err := types.ParseColumnType(col.Type)
		if err != nil {
			return nil, err
		}
		columns[i] = types.Column{Name: col.Name, Type: t}
	}
	schema, err := types.NewSchema(columns)
	if err != nil {
		return nil, err
	}

	capacity := tblCfg.Capacity
	if capacity <= 0 {
		capacity = r.defaultCapacity
	}

	tbl, err = r.registry.Create(name, schema, capacity)
	if err != nil && errors.Is(err, qerr.NewTableAlreadyExists(name)) {
		// Lost a create race; the table exists now
		return r.registry.Get(name)
	}
	return tbl, err
}
