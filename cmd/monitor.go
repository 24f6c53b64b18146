package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mapalei/fiscal-cli/internal/monitor"
)

var (
	monitorEvidenceID string
	monitorCapture    string
	monitorTitle      string
	monitorTaskID     int64
	monitorUF         string
)

var monitorCmd = &cobra.Command{
	Use:   "monitor",
	Short: "Check tracked legislative sources for changes",
	Long:  "Re-fetches captured legislative sources and compares content hashes. Changed sources are flagged and a rework task is opened on the affected leaf. With --capture, stores a new source snapshot instead.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if monitorCapture != "" {
			ev, err := env.Monitor.Capture(ctx, monitorCapture, monitorTitle, monitorTaskID, cfg.Pipeline.DefaultOwnerAgent, monitorUF)
			if err != nil {
				return err
			}
			fmt.Printf("captured %s as %s (hash %s)\n", ev.URL, ev.ID, ev.HashSHA256[:16])
			return nil
		}

		var results []monitor.CheckResult
		if monitorEvidenceID != "" {
			res, err := env.Monitor.CheckOne(ctx, monitorEvidenceID)
			if err != nil {
				return err
			}
			results = []monitor.CheckResult{*res}
		} else {
			results, err = env.Monitor.CheckAll(ctx, cfg.Monitor.Concurrency)
			if err != nil {
				return err
			}
		}

		changed := 0
		for _, res := range results {
			switch {
			case res.FetchError != "":
				fmt.Printf("error    %s: %s\n", res.URL, res.FetchError)
			case res.Changed:
				changed++
				fmt.Printf("CHANGED  %s (rework task %d)\n", res.URL, res.ReworkTaskID)
			default:
				fmt.Printf("ok       %s\n", res.URL)
			}
		}
		fmt.Printf("%d sources checked, %d changed\n", len(results), changed)
		return nil
	},
}

func init() {
	monitorCmd.Flags().StringVar(&monitorEvidenceID, "evidence", "", "check a single evidence id")
	monitorCmd.Flags().StringVar(&monitorCapture, "capture", "", "capture a new source snapshot from this url")
	monitorCmd.Flags().StringVar(&monitorTitle, "title", "", "title for the captured source")
	monitorCmd.Flags().Int64Var(&monitorTaskID, "task", 0, "task id the captured source backs")
	monitorCmd.Flags().StringVar(&monitorUF, "uf", "", "state the captured source applies to")
	rootCmd.AddCommand(monitorCmd)
}
