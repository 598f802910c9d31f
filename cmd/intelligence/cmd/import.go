package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"transaction-intelligence-service/internal/normalizer"
	"transaction-intelligence-service/internal/reporter"
)

var importCmd = &cobra.Command{
	Use:   "import <file>...",
	Short: "Import statement files into the transaction store",
	Long: `Import reads one or more bank or card statement exports, detects each
file's format, normalizes the rows into canonical transactions, and stores
them. Rows already present (same date, amount, and merchant) are skipped.

Examples:
  intelligence import chase_export.csv
  intelligence import wells_fargo_jan.csv wells_fargo_feb.csv --output json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runImport(cmd.Context(), args)
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

func runImport(ctx context.Context, files []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	format, err := reporter.ParseFormat(cfg.OutputFormat)
	if err != nil {
		return err
	}

	db, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	norm := normalizer.New(cfg.Normalizer)
	rep := reporter.New(format, os.Stdout)

	for _, file := range files {
		result, err := norm.NormalizeFile(file)
		if err != nil {
			return err
		}

		inserted, err := db.Insert(ctx, result.Transactions)
		if err != nil {
			return err
		}
		result.Stats.Duplicates = inserted.Duplicates

		report := &reporter.ImportReport{
			File:        file,
			Profile:     result.Profile.ID,
			Institution: result.Profile.Institution,
			Score:       result.Score,
			Stats:       result.Stats,
		}
		if err := rep.WriteImport(report); err != nil {
			return err
		}
	}

	return nil
}
