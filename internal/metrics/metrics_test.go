package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/cwbudde/benchfn/internal/objective"
)

func TestRecorderCountsByOrder(t *testing.T) {
	rec, err := NewRecorder(prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("NewRecorder failed: %v", err)
	}

	fn, err := objective.NewRosenbrock(2)
	if err != nil {
		t.Fatalf("NewRosenbrock failed: %v", err)
	}
	c := rec.Count(fn)
	x := []float64{0.5, 0.5}

	c.Eval(x)
	c.Eval(x)
	c.EvalDerivative(x, &objective.FirstOrderDerivative{})
	c.EvalSecondDerivative(x, &objective.SecondOrderDerivative{})

	tests := []struct {
		order objective.Order
		want  float64
	}{
		{objective.OrderValue, 2},
		{objective.OrderFirst, 1},
		{objective.OrderSecond, 1},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(rec.Evaluations("Rosenbrock", tt.order))
		if got != tt.want {
			t.Errorf("order %v: expected %g, got %g", tt.order, tt.want, got)
		}
	}
	if c.Evaluations() != 4 {
		t.Errorf("Expected 4 evaluations on the wrapper, got %d", c.Evaluations())
	}
}

func TestNewRecorderDuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewRecorder(reg); err != nil {
		t.Fatalf("first NewRecorder failed: %v", err)
	}
	if _, err := NewRecorder(reg); err == nil {
		t.Error("Expected error registering twice")
	}
}
