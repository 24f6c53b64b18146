package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	pilotLimit       int
	pilotConcurrency int
)

var pilotCmd = &cobra.Command{
	Use:   "pilot",
	Short: "Pull candidate leaves from the taxonomy and activate them",
	Long:  "Reads active level-6 leaves from the taxonomy database, registers each one locally, and generates its backlog. Already-activated leaves are skipped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if env.Taxonomy == nil {
			return eris.New("pilot requires MAPALEI_TAXONOMY_DATABASE_URL")
		}

		candidates, err := env.Taxonomy.Leaves(ctx, pilotLimit)
		if err != nil {
			return err
		}
		if len(candidates) == 0 {
			fmt.Println("no candidate leaves found")
			return nil
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(pilotConcurrency)

		for _, candidate := range candidates {
			g.Go(func() error {
				leaf, err := env.Leaves.Create(gctx, candidate.Name, candidate.CategoryPath, candidate.NCM)
				if err != nil {
					return err
				}

				taskIDs, err := env.Leaves.Activate(gctx, leaf.ID)
				if err != nil {
					// Leaves activated in an earlier pilot run are expected.
					zap.L().Info("skipping leaf", zap.String("leaf_id", leaf.ID), zap.Error(err))
					return nil
				}

				fmt.Printf("activated %-40s %d tasks\n", leaf.CategoryPath, len(taskIDs))
				return nil
			})
		}
		return g.Wait()
	},
}

func init() {
	pilotCmd.Flags().IntVar(&pilotLimit, "limit", 10, "max candidate leaves to pull")
	pilotCmd.Flags().IntVar(&pilotConcurrency, "concurrency", 3, "parallel activations")
	rootCmd.AddCommand(pilotCmd)
}
