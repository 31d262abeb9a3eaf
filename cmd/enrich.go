package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/contractlink/contract-hub/internal/model"
)

var enrichBatchSize int

var enrichCmd = &cobra.Command{
	Use:   "enrich",
	Short: "Run an enrichment batch now",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.Migrate(cmd.Context()); err != nil {
			return err
		}

		run, err := env.Scheduler.Run(cmd.Context(), model.TriggerManual, enrichBatchSize)
		if err != nil {
			return err
		}

		fmt.Printf("run %d: %d filled, %d skipped, %d failed (batch %d)\n",
			run.ID, run.Filled, run.Skipped, run.Failed, run.BatchSize)
		for _, r := range run.Results {
			if r.Detail != "" {
				fmt.Printf("  lead %d: %s (%s)\n", r.LeadID, r.Outcome, r.Detail)
			} else {
				fmt.Printf("  lead %d: %s\n", r.LeadID, r.Outcome)
			}
		}
		return nil
	},
}

var runsLimit int

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent enrichment runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		runs, err := env.Store.ListRuns(cmd.Context(), runsLimit)
		if err != nil {
			return err
		}

		if len(runs) == 0 {
			fmt.Println("no runs recorded")
			return nil
		}
		for _, r := range runs {
			fmt.Printf("%d\t%s\t%s\t%d filled / %d skipped / %d failed\t%s\n",
				r.ID, r.Trigger, r.Status, r.Filled, r.Skipped, r.Failed,
				r.StartedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	enrichCmd.Flags().IntVar(&enrichBatchSize, "batch-size", 0, "leads per run (default from config)")
	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "max runs to list")
	rootCmd.AddCommand(enrichCmd)
	rootCmd.AddCommand(runsCmd)
}
