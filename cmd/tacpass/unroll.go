package main

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tacpass/tacpass/internal/config"
	"github.com/tacpass/tacpass/internal/loopopt"
)

var (
	outFlag    string
	budgetFlag int
)

var unrollCmd = &cobra.Command{
	Use:   "unroll <program.json>",
	Short: "Fully unroll every eligible innermost loop in a function",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		budget, err := resolveBudget(cmd)
		if err != nil {
			return err
		}

		prog, err := loadProgram(args[0])
		if err != nil {
			return err
		}
		fn, err := findFunction(prog, fnFlag)
		if err != nil {
			return err
		}

		unrolled, reports, err := loopopt.RunLoopUnroll(fn, budget)
		if err != nil {
			return err
		}
		printReports(reports)

		for i := range prog.Functions {
			if prog.Functions[i].Name == unrolled.Name {
				prog.Functions[i] = *unrolled
				break
			}
		}
		return writeProgram(outFlag, prog)
	},
}

func init() {
	rootCmd.AddCommand(unrollCmd)
	unrollCmd.Flags().StringVar(&fnFlag, "fn", "", "function name (defaults to the first function)")
	unrollCmd.Flags().StringVarP(&outFlag, "out", "o", "", "output path (defaults to stdout)")
	unrollCmd.Flags().IntVar(&budgetFlag, "budget", 0, "unroll budget override (trip * body size)")
}

func resolveBudget(cmd *cobra.Command) (int, error) {
	if cmd.Flags().Changed("budget") {
		return budgetFlag, nil
	}
	if cfgPath == "" {
		return config.Default().UnrollBudget, nil
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return 0, err
	}
	return cfg.UnrollBudget, nil
}

func printReports(reports []loopopt.Report) {
	for _, r := range reports {
		if r.Unrolled {
			color.Green("%s unrolled ×%d", r.Loop.Name, r.TripCount)
			continue
		}
		color.Yellow("%s not unrolled: %s", r.Loop.Name, r.Reason)
	}
}
