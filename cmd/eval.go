package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cwbudde/benchfn/internal/objective"
	"github.com/cwbudde/benchfn/internal/runner"
)

var (
	evalFunction string
	evalDims     int
	evalX        []float64
	evalOrder    int
	startSeed    int64
)

var evalCmd = &cobra.Command{
	Use:   "eval",
	Short: "Evaluate a function, its gradient or its Hessian at a point",
	Long: `Evaluates the function at --x. With --order 1 the gradient is printed as
well, with --order 2 also the Hessian.`,
	RunE: runEval,
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Propose a starting point for a function",
	RunE:  runStart,
}

func init() {
	evalCmd.Flags().StringVar(&evalFunction, "function", "rosenbrock", "Function name")
	evalCmd.Flags().IntVar(&evalDims, "dims", 0, "Number of variables (0 = len(x))")
	evalCmd.Flags().Float64SliceVar(&evalX, "x", nil, "Point, comma separated (required)")
	evalCmd.Flags().IntVar(&evalOrder, "order", 0, "Derivative order: 0, 1 or 2")
	evalCmd.MarkFlagRequired("x")
	rootCmd.AddCommand(evalCmd)

	startCmd.Flags().StringVar(&evalFunction, "function", "rosenbrock", "Function name")
	startCmd.Flags().IntVar(&evalDims, "dims", 0, "Number of variables (0 = function default)")
	startCmd.Flags().Int64Var(&startSeed, "seed", 42, "Random seed")
	rootCmd.AddCommand(startCmd)
}

func runEval(cmd *cobra.Command, args []string) error {
	dims := evalDims
	if dims == 0 {
		dims = len(evalX)
	}
	r, err := newRunner("", nil)
	if err != nil {
		return err
	}
	fn, err := r.Function(evalFunction, dims)
	if err != nil {
		return err
	}
	return printEval(cmd.OutOrStdout(), fn, evalX, objective.Order(evalOrder))
}

func printEval(out io.Writer, fn objective.Function, x []float64, order objective.Order) error {
	switch order {
	case objective.OrderValue:
		v, err := fn.Eval(x)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "f = %g\n", v)

	case objective.OrderFirst:
		fo, ok := fn.(objective.FirstOrder)
		if !ok || !fn.Features().Has(objective.HasFirstDerivative) {
			return fmt.Errorf("%s has no gradient", fn.Name())
		}
		var d objective.FirstOrderDerivative
		v, err := fo.EvalDerivative(x, &d)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "f = %g\n", v)
		fmt.Fprintf(out, "gradient = %v\n", d.Gradient)

	case objective.OrderSecond:
		so, ok := fn.(objective.SecondOrder)
		if !ok || !fn.Features().Has(objective.HasSecondDerivative) {
			return fmt.Errorf("%s has no Hessian", fn.Name())
		}
		var d objective.SecondOrderDerivative
		v, err := so.EvalSecondDerivative(x, &d)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "f = %g\n", v)
		fmt.Fprintf(out, "gradient = %v\n", d.Gradient)
		fmt.Fprintln(out, "hessian =")
		n, _ := d.Hessian.Dims()
		for i := 0; i < n; i++ {
			fmt.Fprintf(out, "  %v\n", d.Hessian.RawRowView(i))
		}

	default:
		return fmt.Errorf("invalid order %d: must be 0, 1 or 2", int(order))
	}
	return nil
}

func runStart(cmd *cobra.Command, args []string) error {
	r, err := newRunner("", nil)
	if err != nil {
		return err
	}
	fn, err := r.Function(evalFunction, evalDims)
	if err != nil {
		return err
	}
	x, err := runner.StartingPoint(fn, startSeed)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%v\n", x)
	return nil
}
