package objective

import (
	"strings"

	"gonum.org/v1/gonum/mat"
)

// Features declares what an objective function can provide beyond its value.
type Features uint

const (
	// CanProposeStartingPoint means the function implements StartingPointProposer.
	CanProposeStartingPoint Features = 1 << iota
	// HasFirstDerivative means the function implements FirstOrder.
	HasFirstDerivative
	// HasSecondDerivative means the function implements SecondOrder.
	HasSecondDerivative
)

// Has reports whether all flags in want are set.
func (f Features) Has(want Features) bool {
	return f&want == want
}

func (f Features) String() string {
	var names []string
	if f.Has(CanProposeStartingPoint) {
		names = append(names, "starting-point")
	}
	if f.Has(HasFirstDerivative) {
		names = append(names, "gradient")
	}
	if f.Has(HasSecondDerivative) {
		names = append(names, "hessian")
	}
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ",")
}

// Order identifies which derivative an evaluation computed.
type Order int

const (
	OrderValue Order = iota
	OrderFirst
	OrderSecond
)

func (o Order) String() string {
	switch o {
	case OrderValue:
		return "value"
	case OrderFirst:
		return "first"
	case OrderSecond:
		return "second"
	default:
		return "unknown"
	}
}

// Function is a real-valued objective over a fixed number of variables.
type Function interface {
	Name() string
	NumberOfVariables() int
	Features() Features
	Eval(x []float64) (float64, error)
}

// FirstOrderDerivative holds the gradient of a function at a point.
type FirstOrderDerivative struct {
	Gradient []float64
}

// SecondOrderDerivative holds the gradient and Hessian of a function at a point.
type SecondOrderDerivative struct {
	Gradient []float64
	Hessian  *mat.Dense
}

// FirstOrder is a Function that can compute its gradient.
type FirstOrder interface {
	Function
	EvalDerivative(x []float64, d *FirstOrderDerivative) (float64, error)
}

// SecondOrder is a Function that can compute its gradient and Hessian.
type SecondOrder interface {
	FirstOrder
	EvalSecondDerivative(x []float64, d *SecondOrderDerivative) (float64, error)
}

// Uniform draws uniformly distributed numbers from [low, high).
type Uniform interface {
	Uniform(low, high float64) float64
}

// StartingPointProposer produces random feasible starting points.
type StartingPointProposer interface {
	ProposeStartingPoint(u Uniform) []float64
}

// Options is a read-only view of a function's configuration.
type Options interface {
	Float64(key string, def float64) float64
}

// Configurable is implemented by functions that accept configuration.
type Configurable interface {
	Configure(opts Options) error
}

// resizeGradient returns g if it already has length n, otherwise a new slice.
func resizeGradient(g []float64, n int) []float64 {
	if len(g) == n {
		return g
	}
	return make([]float64, n)
}

// resetHessian returns a zeroed n×n matrix, reusing h when its shape matches.
func resetHessian(h *mat.Dense, n int) *mat.Dense {
	if h == nil || h.IsEmpty() {
		return mat.NewDense(n, n, nil)
	}
	if r, c := h.Dims(); r != n || c != n {
		return mat.NewDense(n, n, nil)
	}
	h.Zero()
	return h
}
