package objective

import (
	"fmt"
	"sync/atomic"
)

// Counted wraps a Function and counts its evaluations. Every call to Eval,
// EvalDerivative or EvalSecondDerivative counts once, regardless of how the
// wrapped function computes its value internally.
//
// Counted is safe for concurrent use when the wrapped function is.
type Counted struct {
	Function
	evals  atomic.Int64
	onEval func(Order)
}

// Count wraps f. The optional hook is called after every successful evaluation.
func Count(f Function, hook func(Order)) *Counted {
	return &Counted{Function: f, onEval: hook}
}

// Evaluations returns the number of evaluations so far.
func (c *Counted) Evaluations() int64 {
	return c.evals.Load()
}

// Reset sets the counter back to zero and returns its previous value.
func (c *Counted) Reset() int64 {
	return c.evals.Swap(0)
}

// Unwrap returns the wrapped function.
func (c *Counted) Unwrap() Function {
	return c.Function
}

func (c *Counted) Eval(x []float64) (float64, error) {
	v, err := c.Function.Eval(x)
	if err != nil {
		return 0, err
	}
	c.observe(OrderValue)
	return v, nil
}

func (c *Counted) EvalDerivative(x []float64, d *FirstOrderDerivative) (float64, error) {
	fo, ok := c.Function.(FirstOrder)
	if !ok {
		return 0, fmt.Errorf("%s: first derivative not supported", c.Name())
	}
	v, err := fo.EvalDerivative(x, d)
	if err != nil {
		return 0, err
	}
	c.observe(OrderFirst)
	return v, nil
}

func (c *Counted) EvalSecondDerivative(x []float64, d *SecondOrderDerivative) (float64, error) {
	so, ok := c.Function.(SecondOrder)
	if !ok {
		return 0, fmt.Errorf("%s: second derivative not supported", c.Name())
	}
	v, err := so.EvalSecondDerivative(x, d)
	if err != nil {
		return 0, err
	}
	c.observe(OrderSecond)
	return v, nil
}

// ProposeStartingPoint forwards to the wrapped function. It returns nil when
// the wrapped function cannot propose one.
func (c *Counted) ProposeStartingPoint(u Uniform) []float64 {
	p, ok := c.Function.(StartingPointProposer)
	if !ok {
		return nil
	}
	return p.ProposeStartingPoint(u)
}

func (c *Counted) Configure(opts Options) error {
	if cf, ok := c.Function.(Configurable); ok {
		return cf.Configure(opts)
	}
	return nil
}

func (c *Counted) observe(o Order) {
	c.evals.Add(1)
	if c.onEval != nil {
		c.onEval(o)
	}
}
