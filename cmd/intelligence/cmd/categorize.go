package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"transaction-intelligence-service/internal/categorizer"
	"transaction-intelligence-service/internal/reporter"
)

var categorizeCmd = &cobra.Command{
	Use:   "categorize",
	Short: "Categorize stored transactions by similarity",
	Long: `Categorize runs the similarity engine over every uncategorized stored
transaction. The engine compares each transaction against previously
categorized history and only assigns a category when the neighbors agree
strongly enough; everything else is listed for manual review.

Examples:
  intelligence categorize
  intelligence categorize --output json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runCategorize(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(categorizeCmd)
}

func runCategorize(ctx context.Context) error {
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

	engine := categorizer.NewEngine(cfg.Categorizer, categorizer.NewHashEmbedder(), categorizer.NewMemoryIndex())

	transactions, err := db.List(ctx)
	if err != nil {
		return err
	}
	if err := engine.WarmIndex(ctx, transactions); err != nil {
		return err
	}

	report := &reporter.CategorizationReport{}
	for _, txn := range transactions {
		if txn.CategoryName != "" {
			continue
		}

		result, err := engine.CategorizeAndUpdate(ctx, txn, db)
		if err != nil {
			return err
		}

		report.Total++
		if result.IsAuto() {
			report.Auto++
		} else {
			report.NeedsReview++
			report.Reviews = append(report.Reviews, &reporter.ReviewItem{
				Transaction: txn,
				Result:      result,
			})
		}
	}

	return reporter.New(format, os.Stdout).WriteCategorization(report)
}
