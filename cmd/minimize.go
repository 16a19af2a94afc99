package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cwbudde/benchfn/internal/runner"
	"github.com/cwbudde/benchfn/internal/store"
)

var (
	minFunction string
	minDims     int
	minMethod   string
	minIters    int
	minPopSize  int
	minSeed     int64
	minStart    []float64
	minStoreDir string
	minNoStore  bool
)

var minimizeCmd = &cobra.Command{
	Use:   "minimize",
	Short: "Run a single optimization",
	Long: `Minimizes a registered function with the chosen method and stores the
run (record plus per-iteration trace) under the store directory.

Methods: mayfly, bfgs, lbfgs, cg, gradient-descent, newton, nelder-mead.`,
	RunE: runMinimize,
}

func init() {
	minimizeCmd.Flags().StringVar(&minFunction, "function", "rosenbrock", "Function name")
	minimizeCmd.Flags().IntVar(&minDims, "dims", 0, "Number of variables (0 = function default)")
	minimizeCmd.Flags().StringVar(&minMethod, "method", runner.DefaultMethod, "Optimization method")
	minimizeCmd.Flags().IntVar(&minIters, "iters", runner.DefaultIters, "Max iterations")
	minimizeCmd.Flags().IntVar(&minPopSize, "pop", runner.DefaultPopSize, "Population size (mayfly)")
	minimizeCmd.Flags().Int64Var(&minSeed, "seed", 42, "Random seed")
	minimizeCmd.Flags().Float64SliceVar(&minStart, "start", nil, "Starting point (default: proposed by the function)")
	minimizeCmd.Flags().StringVar(&minStoreDir, "store-dir", "", "Run store directory (default from config)")
	minimizeCmd.Flags().BoolVar(&minNoStore, "no-store", false, "Do not persist the run")
	rootCmd.AddCommand(minimizeCmd)
}

func runMinimize(cmd *cobra.Command, args []string) error {
	storeDir := resolveStoreDir(minStoreDir)
	if minNoStore {
		storeDir = ""
	}
	r, err := newRunner(storeDir, nil)
	if err != nil {
		return err
	}

	run, err := r.Run(cmd.Context(), store.RunConfig{
		Function: minFunction,
		Dims:     minDims,
		Method:   minMethod,
		Iters:    minIters,
		PopSize:  minPopSize,
		Seed:     minSeed,
		Start:    minStart,
	})
	if run == nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run %s (%s, %s, n=%d)\n", run.ID, run.Config.Function, run.Config.Method, run.Config.Dims)
	if run.Config.Start != nil {
		fmt.Fprintf(out, "  Initial f: %g\n", run.InitialF)
	}
	fmt.Fprintf(out, "  Best f: %g\n", run.BestF)
	fmt.Fprintf(out, "  Status: %s after %d iteration(s), %d evaluation(s), %s\n",
		run.Status, run.Iterations, run.Evaluations, run.Runtime)
	if r.Store != nil {
		fmt.Fprintf(out, "  Stored in %s\n", r.Store.BaseDir())
	}
	return err
}
