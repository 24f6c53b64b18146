package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mapalei/fiscal-cli/internal/model"
)

var proposeFile string

var proposeCmd = &cobra.Command{
	Use:   "propose",
	Short: "Submit a proposal file through the pipeline",
	Long:  "Reads a proposal from a JSON or YAML file and runs it through QA, the semantic gate, and the writer, printing the outcome of each stage.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if proposeFile == "" {
			return eris.New("--file is required")
		}

		raw, err := os.ReadFile(proposeFile)
		if err != nil {
			return eris.Wrapf(err, "read proposal file %s", proposeFile)
		}

		var proposal model.Proposal
		if strings.HasSuffix(proposeFile, ".yaml") || strings.HasSuffix(proposeFile, ".yml") {
			// YAML proposals go through the same JSON field names.
			var generic map[string]any
			if err := yaml.Unmarshal(raw, &generic); err != nil {
				return eris.Wrap(err, "parse yaml proposal")
			}
			encoded, err := json.Marshal(generic)
			if err != nil {
				return eris.Wrap(err, "convert yaml proposal")
			}
			if err := json.Unmarshal(encoded, &proposal); err != nil {
				return eris.Wrap(err, "decode proposal fields")
			}
		} else {
			if err := json.Unmarshal(raw, &proposal); err != nil {
				return eris.Wrap(err, "parse json proposal")
			}
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		result := env.Pipeline.Run(cmd.Context(), proposal)

		fmt.Printf("outcome: %s\n", result.Outcome)
		fmt.Printf("qa: pass=%v score=%d\n", result.QA.Pass, result.QA.Score)
		for _, check := range result.QA.Checks {
			mark := "ok"
			if !check.Pass {
				mark = "FAIL"
			}
			fmt.Printf("  [%s] %s %s\n", mark, check.Name, check.Message)
		}
		if result.Decision != nil {
			fmt.Printf("gate: %s (%s)\n", result.Decision.Decision, result.Decision.Rationale)
		}
		if result.Write != nil && len(result.Write.RuleIDs) > 0 {
			fmt.Printf("rules: %s\n", strings.Join(result.Write.RuleIDs, ", "))
		}
		if result.Write != nil && result.Write.Error != "" {
			fmt.Printf("write error: %s\n", result.Write.Error)
		}
		return nil
	},
}

func init() {
	proposeCmd.Flags().StringVar(&proposeFile, "file", "", "proposal file (.json, .yaml)")
	rootCmd.AddCommand(proposeCmd)
}
