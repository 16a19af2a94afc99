// Package metrics exports objective evaluation counts to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/cwbudde/benchfn/internal/objective"
)

// Recorder counts evaluations per function and derivative order.
type Recorder struct {
	evaluations *prometheus.CounterVec
}

// NewRecorder creates a Recorder and registers its collectors with reg.
func NewRecorder(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		evaluations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "benchfn",
			Name:      "evaluations_total",
			Help:      "Number of objective function evaluations by derivative order.",
		}, []string{"function", "order"}),
	}
	if err := reg.Register(r.evaluations); err != nil {
		return nil, err
	}
	return r, nil
}

// Hook returns a callback suitable for objective.Count.
func (r *Recorder) Hook(function string) func(objective.Order) {
	value := r.evaluations.WithLabelValues(function, objective.OrderValue.String())
	first := r.evaluations.WithLabelValues(function, objective.OrderFirst.String())
	second := r.evaluations.WithLabelValues(function, objective.OrderSecond.String())
	return func(o objective.Order) {
		switch o {
		case objective.OrderFirst:
			first.Inc()
		case objective.OrderSecond:
			second.Inc()
		default:
			value.Inc()
		}
	}
}

// Count wraps fn so that its evaluations are recorded.
func (r *Recorder) Count(fn objective.Function) *objective.Counted {
	return objective.Count(fn, r.Hook(fn.Name()))
}

// Evaluations returns the counter for one function and order.
func (r *Recorder) Evaluations(function string, o objective.Order) prometheus.Counter {
	return r.evaluations.WithLabelValues(function, o.String())
}
