package opt

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"

	"github.com/cwbudde/benchfn/internal/objective"
)

type gonumMethod struct {
	new      func() optimize.Method
	gradient bool
	hessian  bool
}

var gonumMethods = map[string]gonumMethod{
	"bfgs":             {func() optimize.Method { return &optimize.BFGS{} }, true, false},
	"lbfgs":            {func() optimize.Method { return &optimize.LBFGS{} }, true, false},
	"cg":               {func() optimize.Method { return &optimize.CG{} }, true, false},
	"gradient-descent": {func() optimize.Method { return &optimize.GradientDescent{} }, true, false},
	"newton":           {func() optimize.Method { return &optimize.Newton{} }, true, true},
	"nelder-mead":      {func() optimize.Method { return &optimize.NelderMead{} }, false, false},
}

// GonumMethods lists the local methods available through NewGonum.
func GonumMethods() []string {
	names := make([]string, 0, len(gonumMethods))
	for name := range gonumMethods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// statusCancelled marks runs stopped by their context.
var statusCancelled = optimize.NewStatus("Cancelled", true, nil)

// GonumSettings limits a gonum run. Zero values select the defaults.
type GonumSettings struct {
	MajorIterations   int
	FuncEvaluations   int
	GradientThreshold float64 // default 1e-8
}

// GonumAdapter runs a gonum/optimize local method.
type GonumAdapter struct {
	name     string
	method   gonumMethod
	settings GonumSettings
}

// NewGonum creates an adapter for the named gonum method.
func NewGonum(method string, settings GonumSettings) (*GonumAdapter, error) {
	key := strings.ToLower(method)
	m, ok := gonumMethods[key]
	if !ok {
		return nil, fmt.Errorf("unknown method %q (available: %s, mayfly)", method, strings.Join(GonumMethods(), ", "))
	}
	return &GonumAdapter{name: key, method: m, settings: settings}, nil
}

func (g *GonumAdapter) Name() string { return g.name }

// Run minimizes p.Function from its initial point.
func (g *GonumAdapter) Run(ctx context.Context, p Problem) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	features := p.Function.Features()
	if g.method.gradient && !features.Has(objective.HasFirstDerivative) {
		return nil, fmt.Errorf("%s needs a gradient but %s does not provide one", g.name, p.Function.Name())
	}
	if g.method.hessian && !features.Has(objective.HasSecondDerivative) {
		return nil, fmt.Errorf("%s needs a Hessian but %s does not provide one", g.name, p.Function.Name())
	}

	counted := objective.Count(p.Function, nil)
	problem := g.problem(counted, features)

	threshold := g.settings.GradientThreshold
	if threshold == 0 {
		threshold = 1e-8
	}
	settings := &optimize.Settings{
		GradientThreshold: threshold,
		MajorIterations:   g.settings.MajorIterations,
		FuncEvaluations:   g.settings.FuncEvaluations,
		Converger: &contextConverger{
			ctx:    ctx,
			record: p.Record,
			next:   &optimize.FunctionConverge{Absolute: 1e-10, Iterations: 100},
		},
	}

	x0 := p.initialPoint()
	slog.Debug("Starting gonum method", "method", g.name, "function", p.Function.Name(), "dims", len(x0))

	res, err := optimize.Minimize(problem, x0, settings, g.method.new())
	if res == nil {
		return nil, fmt.Errorf("%s optimization failed: %w", g.name, err)
	}

	out := &Result{
		X:           res.X,
		F:           res.F,
		Evaluations: counted.Evaluations(),
		Iterations:  res.MajorIterations,
		Status:      res.Status.String(),
		Runtime:     res.Runtime,
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return out, ctxErr
	}
	if err != nil {
		return out, fmt.Errorf("%s optimization failed: %w", g.name, err)
	}
	return out, nil
}

func (g *GonumAdapter) problem(c *objective.Counted, features objective.Features) optimize.Problem {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			v, err := c.Eval(x)
			if err != nil {
				return math.NaN()
			}
			return v
		},
	}
	if features.Has(objective.HasFirstDerivative) {
		// A failed evaluation poisons the gradient with NaN so the method
		// stops instead of stepping on stale values, as Func does.
		problem.Grad = func(grad, x []float64) {
			d := objective.FirstOrderDerivative{Gradient: grad}
			if _, err := c.EvalDerivative(x, &d); err != nil {
				for i := range grad {
					grad[i] = math.NaN()
				}
			}
		}
	}
	if features.Has(objective.HasSecondDerivative) {
		var d objective.SecondOrderDerivative
		problem.Hess = func(hess *mat.SymDense, x []float64) {
			n := len(x)
			if _, err := c.EvalSecondDerivative(x, &d); err != nil {
				for i := 0; i < n; i++ {
					for j := i; j < n; j++ {
						hess.SetSym(i, j, math.NaN())
					}
				}
				return
			}
			for i := 0; i < n; i++ {
				for j := i; j < n; j++ {
					hess.SetSym(i, j, d.Hessian.At(i, j))
				}
			}
		}
	}
	return problem
}

// contextConverger stops a run when its context ends and reports each major
// iteration to the recorder before deferring to next.
type contextConverger struct {
	ctx    context.Context
	record Recorder
	next   optimize.Converger
	iter   int
}

func (c *contextConverger) Init(dim int) {
	c.iter = 0
	c.next.Init(dim)
}

func (c *contextConverger) Converged(loc *optimize.Location) optimize.Status {
	if c.ctx.Err() != nil {
		return statusCancelled
	}
	c.iter++
	if c.record != nil {
		c.record(c.iter, loc.X, loc.F)
	}
	return c.next.Converged(loc)
}
