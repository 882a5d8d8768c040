package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/tacpass/tacpass/internal/cfgbuild"
	"github.com/tacpass/tacpass/internal/config"
	"github.com/tacpass/tacpass/internal/dataflow"
)

var (
	analysisFlag string
	fnFlag       string
)

var runDataflowCmd = &cobra.Command{
	Use:   "run-dataflow <program.json>",
	Short: "Run a dataflow analysis over a function and print its per-block facts",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		analysis, err := resolveAnalysis(cmd)
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

		bm, cfg, err := cfgbuild.Prepare(fn)
		if err != nil {
			return err
		}

		switch analysis {
		case "defined":
			printResult(bm, dataflow.Run(bm, cfg, dataflow.Defined))
		case "live":
			printResult(bm, dataflow.Run(bm, cfg, dataflow.Live))
		case "rd":
			printResult(bm, dataflow.Run(bm, cfg, dataflow.ReachingDefs))
		case "cprop":
			printResult(bm, dataflow.Run(bm, cfg, dataflow.ConstProp))
		default:
			return fail("unknown analysis %q (want defined, live, rd, or cprop)", analysis)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runDataflowCmd)
	runDataflowCmd.Flags().StringVar(&analysisFlag, "analysis", "live", "defined, live, rd, or cprop")
	runDataflowCmd.Flags().StringVar(&fnFlag, "fn", "", "function name (defaults to the first function)")
}

// resolveAnalysis returns the analysis name to run: the explicit
// -analysis flag if the caller set one, otherwise the config file's
// default_analysis, following resolveBudget's same flag-overrides-
// config precedence.
func resolveAnalysis(cmd *cobra.Command) (string, error) {
	if cmd.Flags().Changed("analysis") {
		return analysisFlag, nil
	}
	if cfgPath == "" {
		return config.Default().DefaultAnalysis, nil
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return "", err
	}
	return cfg.DefaultAnalysis, nil
}

func printResult[V any](bm *cfgbuild.BlockMap, res dataflow.Result[V]) {
	header := color.New(color.Bold, color.FgCyan).SprintFunc()
	for _, name := range bm.Keys() {
		fmt.Println(header(name + ":"))
		fmt.Printf("  in:  %s\n", dataflow.Format(res.In[name]))
		fmt.Printf("  out: %s\n", dataflow.Format(res.Out[name]))
	}
}
