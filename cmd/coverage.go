package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mapalei/fiscal-cli/internal/model"
)

var coverageRefresh bool

var coverageCmd = &cobra.Command{
	Use:   "coverage [leaf-id]",
	Short: "Show rule coverage for one leaf or all leaves",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if len(args) == 1 {
			report, err := env.Leaves.Coverage(ctx, args[0])
			if coverageRefresh {
				report, err = env.Leaves.RefreshCoverage(ctx, args[0])
			}
			if err != nil {
				return err
			}

			fmt.Printf("%s (%s): %d%%, %d/%d tasks done\n",
				report.LeafName, report.LeafID, report.CoveragePct, report.TasksDone, report.TasksTotal)
			for _, item := range report.Missing {
				switch item.TipoRegra {
				case model.TipoUFIntra:
					fmt.Printf("  missing %s %s\n", item.TipoRegra, item.UFOrigem)
				case model.TipoUFInter:
					fmt.Printf("  missing %s %s→%s\n", item.TipoRegra, item.UFOrigem, item.UFDestino)
				default:
					fmt.Printf("  missing %s\n", item.TipoRegra)
				}
			}
			return nil
		}

		all, err := env.Leaves.List(ctx)
		if err != nil {
			return err
		}
		if len(all) == 0 {
			fmt.Println("no leaves tracked")
			return nil
		}
		for _, leaf := range all {
			fmt.Printf("%-40s %3d%%  %s\n", leaf.CategoryPath, leaf.CoveragePct, leaf.Status)
		}
		return nil
	},
}

func init() {
	coverageCmd.Flags().BoolVar(&coverageRefresh, "refresh", false, "recompute and persist coverage before printing")
	rootCmd.AddCommand(coverageCmd)
}
