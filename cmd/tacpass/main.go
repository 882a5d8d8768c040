// The tacpass command runs the three-address IR pass toolkit's
// dataflow analyses and loop unroller over a JSON-encoded program.
package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var cfgPath string

var rootCmd = &cobra.Command{
	Use:   "tacpass",
	Short: "Dataflow analyses and loop unrolling for a three-address IR",
	Long: `tacpass reads a JSON-encoded three-address-code program, forms its
control-flow graph, and runs one of the toolkit's dataflow analyses or
its full loop unroller over it.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a tacpass.yaml config file")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.Red("tacpass: %v", err)
		os.Exit(1)
	}
}

func fail(format string, args ...any) error {
	return fmt.Errorf(format, args...)
}
