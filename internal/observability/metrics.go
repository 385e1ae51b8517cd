package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics registry and standard meters.
type Metrics struct {
	Registry          *prometheus.Registry
	OperationDuration *prometheus.HistogramVec
	OperationTotal    *prometheus.CounterVec
	DecisionsTotal    *prometheus.CounterVec
	ResolveTypeTotal  *prometheus.CounterVec
	ErrorsTotal       *prometheus.CounterVec
}

// NewMetrics creates a custom Prometheus registry with the standard
// streamgate meters.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()

	opDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "streamgate_operation_duration_seconds",
		Help:    "Duration of operations in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})

	opTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_operation_total",
		Help: "Total number of operations.",
	}, []string{"operation", "status"})

	decisionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_decisions_total",
		Help: "Total per-item visibility decisions by scope and outcome.",
	}, []string{"scope", "outcome"})

	resolveTypeTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_resolve_type_total",
		Help: "Per-target-type outcomes of bulk id resolution.",
	}, []string{"target", "status"})

	errorsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "streamgate_errors_total",
		Help: "Total number of errors.",
	}, []string{"operation", "type"})

	reg.MustRegister(opDuration, opTotal, decisionsTotal, resolveTypeTotal, errorsTotal)

	return &Metrics{
		Registry:          reg,
		OperationDuration: opDuration,
		OperationTotal:    opTotal,
		DecisionsTotal:    decisionsTotal,
		ResolveTypeTotal:  resolveTypeTotal,
		ErrorsTotal:       errorsTotal,
	}
}
