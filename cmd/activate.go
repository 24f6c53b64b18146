package main

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/mapalei/fiscal-cli/internal/leaves"
)

var (
	activateName string
	activatePath string
	activateNCM  string
)

var activateCmd = &cobra.Command{
	Use:   "activate [leaf-id]",
	Short: "Activate a leaf: create it if needed and generate its backlog",
	Long:  "With a leaf id, activates an existing leaf. With --name and --path, creates the leaf first and then activates it. A leaf that already has tasks is refused.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		var leafID string
		switch {
		case len(args) == 1:
			leafID = args[0]
		case activateName != "" && activatePath != "":
			leaf, err := env.Leaves.Create(ctx, activateName, activatePath, activateNCM)
			if err != nil {
				return err
			}
			leafID = leaf.ID
			fmt.Printf("leaf %s (%s)\n", leaf.ID, leaf.CategoryPath)
		default:
			return eris.New("either a leaf id or --name with --path is required")
		}

		taskIDs, err := env.Leaves.Activate(ctx, leafID)
		if err != nil {
			if errors.Is(err, leaves.ErrAlreadyActivated) {
				return eris.Errorf("leaf %s already has a backlog", leafID)
			}
			return err
		}

		fmt.Printf("activated %s: %d tasks created\n", leafID, len(taskIDs))
		return nil
	},
}

func init() {
	activateCmd.Flags().StringVar(&activateName, "name", "", "leaf name (creates the leaf)")
	activateCmd.Flags().StringVar(&activatePath, "path", "", "leaf category path (creates the leaf)")
	activateCmd.Flags().StringVar(&activateNCM, "ncm", "", "representative NCM code")
	rootCmd.AddCommand(activateCmd)
}
