package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks gateway traffic. All methods are nil-safe so handlers can
// run without metrics in tests.
type Metrics struct {
	Detections     *prometheus.CounterVec
	Writes         *prometheus.CounterVec
	DegradedWrites prometheus.Counter
	Rejections     prometheus.Counter
}

// NewMetrics creates and registers all gateway metrics.
func NewMetrics() *Metrics {
	return &Metrics{
		Detections: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "memgate_gateway_detections_total",
			Help: "Client detections by method and resolved client type",
		}, []string{"method", "client_type"}),
		Writes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "memgate_gateway_memory_writes_total",
			Help: "Memory writes by outcome",
		}, []string{"outcome"}),
		DegradedWrites: promauto.NewCounter(prometheus.CounterOpts{
			Name: "memgate_gateway_degraded_writes_total",
			Help: "Writes stamped unverified because the registry was unavailable",
		}),
		Rejections: promauto.NewCounter(prometheus.CounterOpts{
			Name: "memgate_gateway_rejections_total",
			Help: "Requests rejected under the blocked-client policy",
		}),
	}
}

func (m *Metrics) RecordDetection(method, clientType string) {
	if m == nil {
		return
	}
	m.Detections.WithLabelValues(method, clientType).Inc()
}

func (m *Metrics) RecordWrite(outcome string) {
	if m == nil {
		return
	}
	m.Writes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordDegradedWrite() {
	if m == nil {
		return
	}
	m.DegradedWrites.Inc()
}

func (m *Metrics) RecordRejection() {
	if m == nil {
		return
	}
	m.Rejections.Inc()
}
