package harness

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/electrolyte/internal/compiler"
	"github.com/roach88/electrolyte/internal/engine"
	"github.com/roach88/electrolyte/internal/schema"
	"github.com/roach88/electrolyte/internal/store"
	"github.com/roach88/electrolyte/internal/testutil"
)

// Harness runs scenarios against one store through the engine.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. An error
// means the scenario could not run at all (storage failure, a filter the
// compiler refused); failed expectations are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	ctx := context.Background()

	st, err := store.Open(ctx, store.Config{Driver: store.DriverSQLite, DSN: ":memory:"}, schema.MustDefault())
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		engine: engine.New(st, engine.WithBatchIDs(testutil.NewFixedBatchGenerator(scenario.Name))),
	}
	return h.run(ctx, scenario)
}

func (h *Harness) run(ctx context.Context, scenario *Scenario) (*Result, error) {
	result := NewResult()
	result.Key = h.engine.Registry().Header().ID

	if err := h.submitRecords(ctx, scenario.Records, result); err != nil {
		return nil, err
	}
	if err := h.checkRejects(ctx, scenario.Rejects, result); err != nil {
		return nil, err
	}

	table, err := h.engine.Query(ctx, scenario.Filter, compiler.Options{AllColumns: scenario.AllColumns})
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	result.Table = table

	for _, msg := range EvaluateExpectation(table, scenario.Expect) {
		result.AddError(msg)
	}
	return result, nil
}

// submitRecords stores every record. A record that fails validation is a
// scenario defect, not a failed expectation.
func (h *Harness) submitRecords(ctx context.Context, records []map[string]string, result *Result) error {
	for i, raw := range records {
		res, err := h.engine.Submit(ctx, raw)
		if err != nil {
			return fmt.Errorf("records[%d]: %w", i, err)
		}
		result.Stored = append(result.Stored, res.ID)
	}
	return nil
}

// checkRejects submits each rejection and checks its validation message.
// Rejected submissions must not change the number of stored experiments.
func (h *Harness) checkRejects(ctx context.Context, rejects []Rejection, result *Result) error {
	if len(rejects) == 0 {
		return nil
	}
	before, err := h.store.Total(ctx)
	if err != nil {
		return err
	}

	for i, rej := range rejects {
		_, err := h.engine.Submit(ctx, rej.Record)
		var ve *schema.ValidationError
		switch {
		case err == nil:
			result.AddError(fmt.Sprintf("rejects[%d]: accepted, want error %q", i, rej.Error))
		case !errors.As(err, &ve):
			return fmt.Errorf("rejects[%d]: %w", i, err)
		case err.Error() != rej.Error:
			result.AddError(fmt.Sprintf("rejects[%d]: error %q, want %q", i, err.Error(), rej.Error))
		}
	}

	after, err := h.store.Total(ctx)
	if err != nil {
		return err
	}
	if after != before {
		result.AddError(fmt.Sprintf("rejects changed the store: %d experiments, want %d", after, before))
	}
	return nil
}
