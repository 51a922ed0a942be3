package cli

import (
	"context"
	"log/slog"

	"github.com/roach88/electrolyte/internal/engine"
	"github.com/roach88/electrolyte/internal/filter"
	"github.com/roach88/electrolyte/internal/metrics"
	"github.com/roach88/electrolyte/internal/schema"
	"github.com/roach88/electrolyte/internal/store"
)

// session is an open store with its engine, for one command invocation.
type session struct {
	engine  *engine.Engine
	store   *store.Store
	metrics *metrics.Recorder
	push    string
}

// openSession opens (and migrates) the configured store.
func openSession(ctx context.Context, opts *RootOptions) (*session, error) {
	if opts.Database == "" {
		return nil, NewExitError(ExitCommandError, "--db is required")
	}

	rec, err := metrics.New(metrics.DefaultJob)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to set up metrics", err)
	}

	slog.Debug("opening store", "driver", opts.Driver)
	st, err := store.Open(ctx, store.Config{Driver: opts.Driver, DSN: opts.Database}, schema.MustDefault())
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open store", err)
	}

	return &session{
		engine:  engine.New(st, engine.WithMetrics(rec)),
		store:   st,
		metrics: rec,
		push:    opts.PushGateway,
	}, nil
}

// Close pushes metrics (when a gateway is configured) and closes the store.
// A failed push is logged, not returned: the command's work is already done.
func (s *session) Close() error {
	if err := s.metrics.Push(s.push); err != nil {
		slog.Warn("metrics push failed", "error", err)
	}
	return s.store.Close()
}

// loadFilter reads a filter file. No path means no filter: every experiment.
func loadFilter(path string) (filter.Model, error) {
	if path == "" {
		return filter.Model{}, nil
	}
	m, err := filter.Load(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load filter", err)
	}
	return m, nil
}
