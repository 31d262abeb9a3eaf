package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/contractlink/contract-hub/internal/importer"
	"github.com/contractlink/contract-hub/internal/model"
)

var (
	importCategory string
	importFormat   string
	importEnrich   bool
)

var importCmd = &cobra.Command{
	Use:   "import <source>",
	Short: "Import a lead feed (http, ftp, or local file; csv, json, or xlsx)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := initApp(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Store.Migrate(cmd.Context()); err != nil {
			return err
		}

		im := importer.New(env.Store)
		if importEnrich {
			im.AfterImport = func(ctx context.Context) {
				run, err := env.Scheduler.Run(ctx, model.TriggerImport, 0)
				if err != nil {
					zap.L().Warn("post-import enrichment skipped", zap.Error(err))
					return
				}
				fmt.Printf("post-import enrichment: run %d, %d filled, %d skipped, %d failed\n",
					run.ID, run.Filled, run.Skipped, run.Failed)
			}
		}

		report, err := im.Import(cmd.Context(), args[0], model.Category(importCategory), importFormat)
		if err != nil {
			return err
		}

		fmt.Printf("imported %s: %d parsed, %d dropped, %d deduped, %d upserted\n",
			report.Source, report.Parsed, report.Dropped, report.Deduped, report.Upserted)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importCategory, "category", "", "lead category (federal, state, city, education, commercial)")
	importCmd.Flags().StringVar(&importFormat, "format", "", "feed format: csv, json, or xlsx (default: inferred from source)")
	importCmd.Flags().BoolVar(&importEnrich, "enrich", true, "run an enrichment batch after the import")
	importCmd.MarkFlagRequired("category")
	rootCmd.AddCommand(importCmd)
}
