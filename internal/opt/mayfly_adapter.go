package opt

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/benchfn/internal/objective"
	"github.com/cwbudde/benchfn/internal/rng"
)

// MayflyAdapter wraps the external Mayfly library to conform to our Optimizer interface
type MayflyAdapter struct {
	maxIters int
	popSize  int
	seed     int64
}

// NewMayfly creates a new Mayfly optimizer adapter.
// mayfly v0.1.0 requires popSize >= 20.
func NewMayfly(maxIters, popSize int, seed int64) Optimizer {
	return &MayflyAdapter{
		maxIters: maxIters,
		popSize:  popSize,
		seed:     seed,
	}
}

func (m *MayflyAdapter) Name() string { return "mayfly" }

// Run executes the Mayfly optimization using the external library.
// Mayfly cannot be interrupted, so ctx is only checked before and after the run.
func (m *MayflyAdapter) Run(ctx context.Context, p Problem) (*Result, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	counted := objective.Count(p.Function, nil)
	dim := p.Function.NumberOfVariables()

	var (
		mu    sync.Mutex
		best  = math.Inf(1)
		steps int
	)
	eval := func(x []float64) float64 {
		v, err := counted.Eval(x)
		if err != nil {
			return math.Inf(1)
		}
		if p.Record != nil {
			mu.Lock()
			if v < best {
				best = v
				steps++
				p.Record(steps, x, v)
			}
			mu.Unlock()
		}
		return v
	}

	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = eval
	config.ProblemSize = dim
	config.MaxIterations = m.maxIters
	config.NPop = m.popSize

	// External library uses scalar bounds
	config.LowerBound, config.UpperBound = p.bounds()

	// Set random seed for reproducibility
	config.Rand = rng.New(m.seed).Rand()

	slog.Debug("Starting mayfly", "function", p.Function.Name(), "dims", dim, "iters", m.maxIters, "pop", m.popSize)

	start := time.Now()
	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, fmt.Errorf("mayfly optimization failed: %w", err)
	}

	res := &Result{
		X:           append([]float64(nil), result.GlobalBest.Position...),
		F:           result.GlobalBest.Cost,
		Evaluations: counted.Evaluations(),
		Iterations:  m.maxIters,
		Status:      "IterationLimit",
		Runtime:     time.Since(start),
	}
	return res, ctx.Err()
}
