package follows

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/odyssey-erp/odyssey-social/internal/shared"
)

// Metrics counts follow operations by outcome.
type Metrics struct {
	operations *prometheus.CounterVec
}

// NewMetrics registers the follow collectors. A nil registerer uses the
// default Prometheus registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	ops := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "odyssey_follow_operations_total",
		Help: "Follow and unfollow requests by outcome.",
	}, []string{"operation", "outcome"})
	registerer.MustRegister(ops)
	return &Metrics{operations: ops}
}

func (m *Metrics) observe(operation string, err error) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(operation, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, shared.ErrSelfReference):
		return "self"
	case errors.Is(err, shared.ErrNotFound):
		return "not_found"
	case errors.Is(err, shared.ErrConflict):
		return "conflict"
	default:
		return "error"
	}
}
