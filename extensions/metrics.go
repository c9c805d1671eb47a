package extensions

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	celldag "github.com/celldag/celldag-go"
)

// Metrics exports graph operation counters and timings to Prometheus.
type Metrics struct {
	celldag.BaseExtension

	operations *prometheus.CounterVec
	failures   *prometheus.CounterVec
	durations  *prometheus.HistogramVec
}

// NewMetrics creates a metrics extension and registers its collectors.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		BaseExtension: celldag.NewBaseExtension("metrics"),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "celldag_operations_total",
			Help: "Graph operations by kind and cell.",
		}, []string{"op", "cell"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "celldag_operation_failures_total",
			Help: "Failed graph operations by kind, cell and error class.",
		}, []string{"op", "cell", "reason"}),
		durations: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "celldag_operation_duration_seconds",
			Help:    "Graph operation latency by kind.",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}

	for _, c := range []prometheus.Collector{m.operations, m.failures, m.durations} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) Wrap(next func() (any, error), op *celldag.Operation) (any, error) {
	start := time.Now()
	result, err := next()

	kind := string(op.Kind)
	m.operations.WithLabelValues(kind, op.Cell).Inc()
	m.durations.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		m.failures.WithLabelValues(kind, op.Cell, errorReason(err)).Inc()
	}
	return result, err
}

func errorReason(err error) string {
	var (
		capErr   *celldag.CapabilityError
		ctxErr   *celldag.ContextError
		cycErr   *celldag.CycleError
		evalErr  *celldag.EvaluationError
		ownerErr *celldag.ReclaimedOwnerError
	)
	switch {
	case errors.As(err, &cycErr):
		return "cycle"
	case errors.As(err, &capErr):
		return "capability"
	case errors.As(err, &ctxErr):
		return "context"
	case errors.As(err, &ownerErr):
		return "reclaimed_owner"
	case errors.As(err, &evalErr):
		return "evaluation"
	default:
		return "other"
	}
}
