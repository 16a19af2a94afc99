package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cwbudde/benchfn/internal/registry"
)

var functionsCmd = &cobra.Command{
	Use:   "functions",
	Short: "List registered objective functions",
	RunE:  runFunctions,
}

func init() {
	rootCmd.AddCommand(functionsCmd)
}

func runFunctions(cmd *cobra.Command, args []string) error {
	reg := registry.Builtin()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDISPLAY NAME\tDEFAULT DIMS\tFEATURES")
	for _, name := range reg.Names() {
		fn, err := reg.New(name, 0)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", name, fn.Name(), fn.NumberOfVariables(), fn.Features())
	}
	return w.Flush()
}
