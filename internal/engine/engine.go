package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/electrolyte/internal/compiler"
	"github.com/roach88/electrolyte/internal/filter"
	"github.com/roach88/electrolyte/internal/ingest"
	"github.com/roach88/electrolyte/internal/materialize"
	"github.com/roach88/electrolyte/internal/metrics"
	"github.com/roach88/electrolyte/internal/record"
	"github.com/roach88/electrolyte/internal/schema"
	"github.com/roach88/electrolyte/internal/store"
)

// BatchIDGenerator generates correlation ids for bulk imports.
// Implemented by UUIDv7Generator (production) and SequenceGenerator (tests).
type BatchIDGenerator interface {
	Generate() string
}

// Engine runs the write and read paths against one store.
//
// Thread-safety: Engine holds no mutable state of its own; concurrency is
// whatever the store allows. The SQLite store serializes on one connection.
type Engine struct {
	store    *store.Store
	reg      *schema.Registry
	metrics  *metrics.Recorder
	batchGen BatchIDGenerator
}

// EngineOption allows configuration of engine collaborators.
type EngineOption func(*Engine)

// WithMetrics installs a metrics recorder. Nil disables metrics.
func WithMetrics(r *metrics.Recorder) EngineOption {
	return func(e *Engine) {
		e.metrics = r
	}
}

// WithBatchIDs replaces the default UUIDv7 batch id generator.
func WithBatchIDs(g BatchIDGenerator) EngineOption {
	return func(e *Engine) {
		e.batchGen = g
	}
}

// New creates an Engine over s, validating against the store's registry.
func New(s *store.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		store:    s,
		reg:      s.Registry(),
		batchGen: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry records are validated against.
func (e *Engine) Registry() *schema.Registry {
	return e.reg
}

// Submit validates one raw form submission and upserts it.
//
// Validation failures come back as *schema.ValidationError with the message
// meant for the user; nothing is written in that case.
func (e *Engine) Submit(ctx context.Context, raw map[string]string) (store.UpsertResult, error) {
	exp, err := e.reg.Build(raw)
	if err != nil {
		slog.Debug("submission rejected", "error", err)
		return store.UpsertResult{}, err
	}
	return e.Upsert(ctx, exp)
}

// Upsert stores an already-built experiment.
func (e *Engine) Upsert(ctx context.Context, exp record.Experiment) (store.UpsertResult, error) {
	defer e.metrics.Time("upsert")()

	res, err := e.store.Upsert(ctx, exp)
	e.metrics.Upsert(res.Replaced, err)
	if err != nil {
		slog.Error("upsert failed", "id", exp.ID, "error", err)
		return store.UpsertResult{}, opErr("upsert", err)
	}

	slog.Info("experiment stored", "id", res.ID, "replaced", res.Replaced)
	return res, nil
}

// ImportResult summarizes one bulk import.
type ImportResult struct {
	BatchID string
	Applied []store.UpsertResult
}

// Replaced counts imported rows that overwrote an existing experiment.
func (r ImportResult) Replaced() int {
	return store.BatchResult{Applied: r.Applied}.Replaced()
}

// Import reads a CSV upload and stores every row in one transaction.
//
// The upload is validated in full first: a missing column or a bad row
// rejects the file and nothing is written.
func (e *Engine) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	return e.importWith(ctx, func() ([]record.Experiment, error) {
		return ingest.Read(r, e.reg)
	})
}

// ImportFile imports the CSV file at path. Files without a .csv extension
// are rejected with ingest.ErrNotCSV.
func (e *Engine) ImportFile(ctx context.Context, path string) (ImportResult, error) {
	return e.importWith(ctx, func() ([]record.Experiment, error) {
		return ingest.ReadFile(path, e.reg)
	})
}

func (e *Engine) importWith(ctx context.Context, read func() ([]record.Experiment, error)) (ImportResult, error) {
	defer e.metrics.Time("import")()

	batchID := e.batchGen.Generate()
	log := slog.With("batch", batchID)

	exps, err := read()
	if err != nil {
		var re *ingest.RowError
		if errors.As(err, &re) {
			e.metrics.ImportRows(0, 1)
		}
		log.Info("import rejected", "error", err)
		return ImportResult{BatchID: batchID}, err
	}

	res, err := e.store.UpsertBatch(ctx, exps)
	if err != nil {
		e.metrics.ImportRows(0, len(exps))
		log.Error("import failed", "rows", len(exps), "error", err)
		return ImportResult{BatchID: batchID}, opErr("import", err)
	}

	e.metrics.ImportRows(len(res.Applied), 0)
	for _, a := range res.Applied {
		e.metrics.Upsert(a.Replaced, nil)
	}
	log.Info("import applied", "rows", len(res.Applied), "replaced", res.Replaced())
	return ImportResult{BatchID: batchID, Applied: res.Applied}, nil
}

// Query compiles a filter, runs it and applies display transforms.
func (e *Engine) Query(ctx context.Context, model filter.Model, opts compiler.Options) (materialize.Table, error) {
	start := time.Now()
	defer func() { e.metrics.Observe("query", time.Since(start)) }()

	plan, err := compiler.Compile(e.reg, model, opts)
	if err != nil {
		e.metrics.Query(0, err)
		slog.Error("filter compile failed", "error", err)
		return materialize.Table{}, err
	}

	res, err := e.store.Run(ctx, plan)
	if err != nil {
		e.metrics.Query(0, err)
		slog.Error("query failed", "categories", plan.Categories, "error", err)
		return materialize.Table{}, opErr("query", err)
	}
	e.metrics.Query(res.Len(), nil)

	slog.Debug("query complete",
		"categories", plan.Categories,
		"rows", res.Len(),
		"duration", time.Since(start),
	)
	return materialize.Apply(e.reg, res), nil
}

// Explanation is the rendered form of a filter query.
type Explanation struct {
	Categories []string `json:"categories"`
	Columns    []string `json:"columns"`
	SQL        string   `json:"sql"`
	Params     []any    `json:"params"`
}

// Explain compiles a filter and renders it for the store's dialect without
// running it.
func (e *Engine) Explain(model filter.Model, opts compiler.Options) (Explanation, error) {
	plan, err := compiler.Compile(e.reg, model, opts)
	if err != nil {
		return Explanation{}, err
	}
	sql, params, err := e.store.Render(plan)
	if err != nil {
		return Explanation{}, opErr("explain", err)
	}
	return Explanation{
		Categories: plan.Categories,
		Columns:    plan.Columns(),
		SQL:        sql,
		Params:     params,
	}, nil
}

// Choices lists the filter options per category.
func (e *Engine) Choices(ctx context.Context) ([]schema.Choice, error) {
	choices, err := e.store.Choices(ctx)
	if err != nil {
		slog.Error("choices failed", "error", err)
		return nil, opErr("choices", err)
	}
	return choices, nil
}

// Get reads a stored experiment by id.
func (e *Engine) Get(ctx context.Context, id string) (record.Experiment, error) {
	if !record.ValidID(id) {
		return record.Experiment{}, ErrInvalidID
	}
	exp, err := e.store.Get(ctx, id)
	if err != nil {
		return record.Experiment{}, opErr("get", err)
	}
	return exp, nil
}
