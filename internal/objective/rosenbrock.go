package objective

// DefaultRosenbrockDimensions is the number of variables used when none is given.
const DefaultRosenbrockDimensions = 23

// DefaultRosenbrockAlpha is the value of the alpha option when unset.
const DefaultRosenbrockAlpha = 1e-3

// Rosenbrock is the generalized Rosenbrock benchmark function
//
//	f(x) = Σ_{i=0}^{n-2} 100·(x[i+1] − x[i]²)² + (1 − x[i])²
//
// a non-convex generalization of H. H. Rosenbrock's 1960 two-variable
// function. Its global minimum is f(1, ..., 1) = 0.
//
// Evaluation does not mutate the receiver, so a single Rosenbrock may be
// shared between goroutines. Wrap it with Count to track evaluations.
type Rosenbrock struct {
	n     int
	alpha float64
}

// NewRosenbrock creates a Rosenbrock function over dims variables.
func NewRosenbrock(dims int) (*Rosenbrock, error) {
	if dims < 2 {
		return nil, &DimensionError{Function: "Rosenbrock", Want: 2, Got: dims, Min: true}
	}
	return &Rosenbrock{n: dims, alpha: DefaultRosenbrockAlpha}, nil
}

func (r *Rosenbrock) Name() string { return "Rosenbrock" }

func (r *Rosenbrock) NumberOfVariables() int { return r.n }

func (r *Rosenbrock) Features() Features {
	return CanProposeStartingPoint | HasFirstDerivative | HasSecondDerivative
}

// Configure reads the alpha option. Alpha is stored for callers that inspect
// it but does not enter the formula.
func (r *Rosenbrock) Configure(opts Options) error {
	r.alpha = opts.Float64("alpha", DefaultRosenbrockAlpha)
	return nil
}

// Alpha returns the configured alpha option.
func (r *Rosenbrock) Alpha() float64 { return r.alpha }

// ProposeStartingPoint draws every coordinate uniformly from [0, 1).
func (r *Rosenbrock) ProposeStartingPoint(u Uniform) []float64 {
	x := make([]float64, r.n)
	for i := range x {
		x[i] = u.Uniform(0, 1)
	}
	return x
}

func (r *Rosenbrock) Eval(x []float64) (float64, error) {
	if err := r.check(x); err != nil {
		return 0, err
	}
	return r.value(x), nil
}

func (r *Rosenbrock) EvalDerivative(x []float64, d *FirstOrderDerivative) (float64, error) {
	if err := r.check(x); err != nil {
		return 0, err
	}
	d.Gradient = resizeGradient(d.Gradient, r.n)
	r.gradient(x, d.Gradient)
	return r.value(x), nil
}

func (r *Rosenbrock) EvalSecondDerivative(x []float64, d *SecondOrderDerivative) (float64, error) {
	if err := r.check(x); err != nil {
		return 0, err
	}
	d.Gradient = resizeGradient(d.Gradient, r.n)
	r.gradient(x, d.Gradient)

	h := resetHessian(d.Hessian, r.n)
	last := r.n - 1
	h.Set(0, 0, 2-400*(x[1]-3*x[0]*x[0]))
	h.Set(0, 1, -400*x[0])
	h.Set(last, last, 200)
	h.Set(last, last-1, -400*x[last-1])
	for i := 1; i < last; i++ {
		h.Set(i, i, 202-400*(x[i+1]-3*x[i]*x[i]))
		h.Set(i, i+1, -400*x[i])
		h.Set(i, i-1, -400*x[i-1])
	}
	d.Hessian = h
	return r.value(x), nil
}

func (r *Rosenbrock) check(x []float64) error {
	if len(x) != r.n {
		return &DimensionError{Function: r.Name(), Want: r.n, Got: len(x)}
	}
	return nil
}

func (r *Rosenbrock) value(x []float64) float64 {
	var sum float64
	for i := 0; i < len(x)-1; i++ {
		a := x[i+1] - x[i]*x[i]
		b := 1 - x[i]
		sum += 100*a*a + b*b
	}
	return sum
}

func (r *Rosenbrock) gradient(x, g []float64) {
	last := len(x) - 1
	g[0] = 2*(x[0]-1) - 400*(x[1]-x[0]*x[0])*x[0]
	g[last] = 200 * (x[last] - x[last-1]*x[last-1])
	for i := 1; i < last; i++ {
		g[i] = 2*(x[i]-1) - 400*(x[i+1]-x[i]*x[i])*x[i] + 200*(x[i]-x[i-1]*x[i-1])
	}
}
