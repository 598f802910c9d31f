package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"transaction-intelligence-service/internal/anomaly"
	"transaction-intelligence-service/internal/recurring"
	"transaction-intelligence-service/internal/reporter"
)

var (
	detectRecurringOnly bool
	detectAnomaliesOnly bool
)

var detectCmd = &cobra.Command{
	Use:   "detect",
	Short: "Detect recurring charges and anomalies",
	Long: `Detect analyzes the full stored transaction history. Recurring detection
groups transactions by exact merchant and amount and matches their cadence
against canonical billing intervals. Anomaly detection flags transactions
whose magnitude is an outlier within their category, plus oversized charges
from first-time merchants.

Both passes recompute from scratch, so flags always reflect the current
history.

Examples:
  intelligence detect
  intelligence detect --recurring-only
  intelligence detect --anomalies-only --output json`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runDetect(cmd.Context())
	},
}

func init() {
	detectCmd.Flags().BoolVar(&detectRecurringOnly, "recurring-only", false, "run only recurring detection")
	detectCmd.Flags().BoolVar(&detectAnomaliesOnly, "anomalies-only", false, "run only anomaly detection")
	detectCmd.MarkFlagsMutuallyExclusive("recurring-only", "anomalies-only")
	rootCmd.AddCommand(detectCmd)
}

func runDetect(ctx context.Context) error {
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

	report := &reporter.DetectionReport{}

	if !detectAnomaliesOnly {
		groups, err := recurring.NewDetector(cfg.Recurring).DetectAndMark(ctx, db)
		if err != nil {
			return err
		}
		report.RecurringGroups = groups
	}

	if !detectRecurringOnly {
		flags, err := anomaly.NewDetector(cfg.Anomaly).DetectAndMark(ctx, db)
		if err != nil {
			return err
		}
		report.Anomalies = flags
	}

	return reporter.New(format, os.Stdout).WriteDetection(report)
}
