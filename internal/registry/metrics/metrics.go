package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the registry's Prometheus metrics. Components accept a nil
// *Metrics so unit tests skip registration entirely.
type Metrics struct {
	Upserts     *prometheus.CounterVec
	Transitions *prometheus.CounterVec
	CacheErrors prometheus.Counter
}

// New creates and registers all registry metrics.
func New() *Metrics {
	return &Metrics{
		Upserts: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "memgate_registry_upserts_total",
			Help: "Registry upserts, partitioned by whether a new entry was created",
		}, []string{"outcome"}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "memgate_registry_transitions_total",
			Help: "Trust status transition attempts by target status and result",
		}, []string{"target", "result"}),
		CacheErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "memgate_registry_cache_errors_total",
			Help: "Status cache write failures (best effort, never propagated)",
		}),
	}
}

func (m *Metrics) RecordUpsert(created bool) {
	if m == nil {
		return
	}
	outcome := "seen"
	if created {
		outcome = "created"
	}
	m.Upserts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordTransition(target, result string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(target, result).Inc()
}

func (m *Metrics) RecordCacheError() {
	if m == nil {
		return
	}
	m.CacheErrors.Inc()
}
