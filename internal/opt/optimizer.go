package opt

import (
	"context"
	"fmt"
	"time"

	"github.com/cwbudde/benchfn/internal/objective"
)

// Optimizer defines an optimization algorithm interface
type Optimizer interface {
	// Name identifies the algorithm, e.g. "mayfly" or "bfgs"
	Name() string

	// Run minimizes p.Function. It returns the best point found even when
	// the context ends the run early, together with ctx.Err().
	Run(ctx context.Context, p Problem) (*Result, error)
}

// Recorder observes progress. iter counts major iterations (or improving
// evaluations for population methods); x must not be retained.
type Recorder func(iter int, x []float64, f float64)

// Problem describes a single minimization run.
type Problem struct {
	Function objective.Function

	// Start is the initial point for local methods. When nil it is proposed
	// from Source if the function supports it, otherwise the origin is used.
	Start  []float64
	Source objective.Uniform

	// Lower and Upper bound the search space for population methods.
	// Only the first element is used; nil means [-5, 5].
	Lower, Upper []float64

	Record Recorder
}

// Result summarizes a finished run.
type Result struct {
	X           []float64     `json:"x"`
	F           float64       `json:"f"`
	Evaluations int64         `json:"evaluations"`
	Iterations  int           `json:"iterations"`
	Status      string        `json:"status"`
	Runtime     time.Duration `json:"runtime"`
}

func (p Problem) validate() error {
	if p.Function == nil {
		return fmt.Errorf("problem has no function")
	}
	n := p.Function.NumberOfVariables()
	if p.Start != nil && len(p.Start) != n {
		return &objective.DimensionError{Function: p.Function.Name(), Want: n, Got: len(p.Start)}
	}
	if len(p.Lower) > 0 && len(p.Upper) > 0 && p.Lower[0] >= p.Upper[0] {
		return fmt.Errorf("lower bound %g must be below upper bound %g", p.Lower[0], p.Upper[0])
	}
	return nil
}

func (p Problem) initialPoint() []float64 {
	if p.Start != nil {
		return append([]float64(nil), p.Start...)
	}
	if sp, ok := p.Function.(objective.StartingPointProposer); ok && p.Source != nil &&
		p.Function.Features().Has(objective.CanProposeStartingPoint) {
		return sp.ProposeStartingPoint(p.Source)
	}
	return make([]float64, p.Function.NumberOfVariables())
}

func (p Problem) bounds() (float64, float64) {
	lower, upper := -5.0, 5.0
	if len(p.Lower) > 0 {
		lower = p.Lower[0]
	}
	if len(p.Upper) > 0 {
		upper = p.Upper[0]
	}
	return lower, upper
}

// New returns the optimizer registered under method. Population settings
// apply to mayfly, iteration limits to every method.
func New(method string, maxIters, popSize int, seed int64) (Optimizer, error) {
	if method == "mayfly" {
		return NewMayfly(maxIters, popSize, seed), nil
	}
	g, err := NewGonum(method, GonumSettings{MajorIterations: maxIters})
	if err != nil {
		return nil, err
	}
	return g, nil
}
