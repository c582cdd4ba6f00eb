package metrics

import (
	"net/http"
	"time"

	"relsave/core/relsave"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels the result of one save.
type Outcome string

const (
	// OutcomeCommitted is a save that wrote relations and committed.
	OutcomeCommitted Outcome = "committed"
	// OutcomePlain is a save with nothing staged.
	OutcomePlain Outcome = "plain"
	// OutcomeInvalid is a save rejected by validation.
	OutcomeInvalid Outcome = "invalid"
	// OutcomeAborted is a save that failed and rolled back.
	OutcomeAborted Outcome = "aborted"
)

// Recorder owns a registry with the save metrics.
type Recorder struct {
	registry *prometheus.Registry
	saves    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	actions  *prometheus.CounterVec
}

// New creates a recorder registering its collectors on a fresh registry.
func New(namespace string) *Recorder {
	if namespace == "" {
		namespace = "relsave"
	}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		saves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "save",
				Name:      "total",
				Help:      "Total record saves by outcome.",
			},
			[]string{"model", "outcome"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "save",
				Name:      "duration_seconds",
				Help:      "Record save duration in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"model", "outcome"},
		),
		actions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "save",
				Name:      "actions_total",
				Help:      "Relation writes performed by committed saves.",
			},
			[]string{"model", "type"},
		),
	}
	r.registry.MustRegister(r.saves, r.duration, r.actions)
	return r
}

// ObserveSave records one save. Action counts are only added for committed saves.
func (r *Recorder) ObserveSave(model string, outcome Outcome, elapsed time.Duration, summary relsave.PlanSummary) {
	r.saves.WithLabelValues(model, string(outcome)).Inc()
	r.duration.WithLabelValues(model, string(outcome)).Observe(elapsed.Seconds())
	if outcome != OutcomeCommitted {
		return
	}
	r.add(model, relsave.ActionInsert, summary.Inserts)
	r.add(model, relsave.ActionUpdate, summary.Updates)
	r.add(model, relsave.ActionLink, summary.Links)
	r.add(model, relsave.ActionUnlink, summary.Unlinks)
}

func (r *Recorder) add(model string, typ relsave.ActionType, n int) {
	if n > 0 {
		r.actions.WithLabelValues(model, string(typ)).Add(float64(n))
	}
}

// Registry returns the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
