// Package runner builds configured objective functions and executes
// optimization runs against them, persisting the results.
package runner

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cwbudde/benchfn/internal/config"
	"github.com/cwbudde/benchfn/internal/metrics"
	"github.com/cwbudde/benchfn/internal/objective"
	"github.com/cwbudde/benchfn/internal/opt"
	"github.com/cwbudde/benchfn/internal/registry"
	"github.com/cwbudde/benchfn/internal/rng"
	"github.com/cwbudde/benchfn/internal/store"
)

const (
	DefaultMethod  = "bfgs"
	DefaultIters   = 1000
	DefaultPopSize = 30
)

// Runner ties the registry, configuration, metrics and store together.
// Metrics and Store are optional.
type Runner struct {
	Registry *registry.Registry
	Config   *config.Config
	Metrics  *metrics.Recorder
	Store    *store.FSStore
}

// Function creates the named function, applies its configuration and, when
// metrics are enabled, wraps it so evaluations are exported.
func (r *Runner) Function(name string, dims int) (objective.Function, error) {
	fn, err := r.Registry.New(name, dims)
	if err != nil {
		return nil, err
	}
	cfg := r.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Configure(fn); err != nil {
		return nil, err
	}
	if r.Metrics != nil {
		return r.Metrics.Count(fn), nil
	}
	return fn, nil
}

// Run executes one optimization run. The returned record is saved when a
// store is configured. A run that fails inside the optimizer is still
// returned and saved, with Error set, alongside the error.
func (r *Runner) Run(ctx context.Context, cfg store.RunConfig) (*store.Run, error) {
	cfg = withDefaults(cfg)

	fn, err := r.Function(cfg.Function, cfg.Dims)
	if err != nil {
		return nil, err
	}
	cfg.Dims = fn.NumberOfVariables()

	optimizer, err := opt.New(cfg.Method, cfg.Iters, cfg.PopSize, cfg.Seed)
	if err != nil {
		return nil, err
	}

	src := rng.New(cfg.Seed)
	problem := opt.Problem{Function: fn, Source: src, Start: cfg.Start}

	run := store.NewRun(cfg)
	if cfg.Method != "mayfly" {
		if problem.Start == nil && fn.Features().Has(objective.CanProposeStartingPoint) {
			if sp, ok := fn.(objective.StartingPointProposer); ok {
				problem.Start = sp.ProposeStartingPoint(src)
			}
		}
		if problem.Start != nil {
			run.Config.Start = problem.Start
			if run.InitialF, err = fn.Eval(problem.Start); err != nil {
				return nil, err
			}
		}
	}

	var trace *store.TraceWriter
	if r.Store != nil {
		trace, err = store.NewTraceWriter(r.Store.BaseDir(), run.ID)
		if err != nil {
			return nil, err
		}
		defer trace.Close()
		problem.Record = func(iter int, x []float64, f float64) {
			if err := trace.Record(iter, x, f); err != nil {
				slog.Warn("Failed to record trace", "id", run.ID, "error", err)
			}
		}
	}

	slog.Info("Starting run", "id", run.ID, "function", fn.Name(), "dims", cfg.Dims, "method", cfg.Method)

	res, runErr := optimizer.Run(ctx, problem)
	if res == nil {
		return nil, runErr
	}
	run.BestX = res.X
	run.BestF = res.F
	run.Evaluations = res.Evaluations
	run.Iterations = res.Iterations
	run.Status = res.Status
	run.Runtime = res.Runtime
	if runErr != nil {
		run.Error = runErr.Error()
	}

	slog.Info("Run complete",
		"id", run.ID,
		"best_f", run.BestF,
		"evaluations", run.Evaluations,
		"iterations", run.Iterations,
		"status", run.Status,
		"runtime", run.Runtime,
	)

	if r.Store != nil {
		if err := r.Store.SaveRun(run); err != nil {
			return run, fmt.Errorf("failed to save run: %w", err)
		}
	}
	return run, runErr
}

// StartingPoint proposes a starting point for fn from a source seeded with seed.
func StartingPoint(fn objective.Function, seed int64) ([]float64, error) {
	sp, ok := fn.(objective.StartingPointProposer)
	if !ok || !fn.Features().Has(objective.CanProposeStartingPoint) {
		return nil, fmt.Errorf("%s cannot propose a starting point", fn.Name())
	}
	return sp.ProposeStartingPoint(rng.New(seed)), nil
}

func withDefaults(cfg store.RunConfig) store.RunConfig {
	cfg.Method = strings.ToLower(cfg.Method)
	if cfg.Method == "" {
		cfg.Method = DefaultMethod
	}
	if cfg.Iters <= 0 {
		cfg.Iters = DefaultIters
	}
	if cfg.Method == "mayfly" && cfg.PopSize <= 0 {
		cfg.PopSize = DefaultPopSize
	}
	return cfg
}
