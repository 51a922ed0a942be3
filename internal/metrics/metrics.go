// Package metrics records operational counters for the experiment store.
//
// A Recorder owns a private Prometheus registry rather than the global one,
// so several stores (and tests) can live in one process. A nil *Recorder is
// valid and records nothing, which keeps instrumentation optional for callers.
//
// The CLI is short-lived, so there is no scrape endpoint: when a Pushgateway
// URL is configured, the collected metrics are pushed once before exit.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
)

// DefaultJob is the Pushgateway job name used when none is configured.
const DefaultJob = "electrolyte"

// Upsert outcomes.
const (
	OutcomeInserted = "inserted"
	OutcomeReplaced = "replaced"
	OutcomeFailed   = "failed"
)

// Import row and query statuses.
const (
	StatusApplied  = "applied"
	StatusRejected = "rejected"
	StatusOK       = "ok"
	StatusError    = "error"
)

var summaryObjectives = map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001}

// Recorder holds the electrolyte collectors.
type Recorder struct {
	job string
	reg *prometheus.Registry

	upserts    *prometheus.CounterVec
	importRows *prometheus.CounterVec
	queries    *prometheus.CounterVec
	queryRows  prometheus.Summary
	duration   *prometheus.SummaryVec
}

// New builds a Recorder with its own registry. An empty job uses DefaultJob.
func New(job string) (*Recorder, error) {
	if job == "" {
		job = DefaultJob
	}

	r := &Recorder{
		job: job,
		reg: prometheus.NewRegistry(),
		upserts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "electrolyte_upserts_total",
				Help: "Experiment upserts, partitioned by outcome.",
			},
			[]string{"outcome"},
		),
		importRows: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "electrolyte_import_rows_total",
				Help: "CSV rows seen by bulk import, partitioned by status.",
			},
			[]string{"status"},
		),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "electrolyte_queries_total",
				Help: "Filter queries executed, partitioned by status.",
			},
			[]string{"status"},
		),
		queryRows: prometheus.NewSummary(prometheus.SummaryOpts{
			Name:       "electrolyte_query_rows",
			Help:       "Rows returned per successful filter query.",
			Objectives: summaryObjectives,
		}),
		duration: prometheus.NewSummaryVec(
			prometheus.SummaryOpts{
				Name:       "electrolyte_operation_duration_seconds",
				Help:       "Duration of store operations in seconds, partitioned by operation.",
				Objectives: summaryObjectives,
			},
			[]string{"op"},
		),
	}

	for name, c := range map[string]prometheus.Collector{
		"upserts":     r.upserts,
		"import rows": r.importRows,
		"queries":     r.queries,
		"query rows":  r.queryRows,
		"duration":    r.duration,
	} {
		if err := r.reg.Register(c); err != nil {
			return nil, fmt.Errorf("metrics: register %s: %w", name, err)
		}
	}
	return r, nil
}

// Registry exposes the private registry, mainly for tests.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.reg
}

// Upsert counts one upsert. A non-nil err counts as failed regardless of
// replaced.
func (r *Recorder) Upsert(replaced bool, err error) {
	if r == nil {
		return
	}
	outcome := OutcomeInserted
	switch {
	case err != nil:
		outcome = OutcomeFailed
	case replaced:
		outcome = OutcomeReplaced
	}
	r.upserts.WithLabelValues(outcome).Inc()
}

// ImportRows counts rows applied and rejected by one bulk import.
func (r *Recorder) ImportRows(applied, rejected int) {
	if r == nil {
		return
	}
	if applied > 0 {
		r.importRows.WithLabelValues(StatusApplied).Add(float64(applied))
	}
	if rejected > 0 {
		r.importRows.WithLabelValues(StatusRejected).Add(float64(rejected))
	}
}

// Query counts one filter query and, on success, observes its row count.
func (r *Recorder) Query(rows int, err error) {
	if r == nil {
		return
	}
	if err != nil {
		r.queries.WithLabelValues(StatusError).Inc()
		return
	}
	r.queries.WithLabelValues(StatusOK).Inc()
	r.queryRows.Observe(float64(rows))
}

// Observe records the duration of op.
func (r *Recorder) Observe(op string, d time.Duration) {
	if r == nil {
		return
	}
	r.duration.WithLabelValues(op).Observe(d.Seconds())
}

// Time starts a timer for op. Call the returned func when op finishes.
func (r *Recorder) Time(op string) func() {
	start := time.Now()
	return func() { r.Observe(op, time.Since(start)) }
}

// Push sends the registry to the Pushgateway at url. It is a no-op for a nil
// Recorder or an empty url.
func (r *Recorder) Push(url string) error {
	if r == nil || url == "" {
		return nil
	}
	if err := push.New(url, r.job).Gatherer(r.reg).Push(); err != nil {
		return fmt.Errorf("metrics: push to %s: %w", url, err)
	}
	return nil
}
