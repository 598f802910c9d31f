package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"transaction-intelligence-service/cmd/intelligence/config"
	"transaction-intelligence-service/internal/store"
	"transaction-intelligence-service/pkg/logger"
)

var (
	cfgFile string
	verbose bool
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "intelligence",
	Short: "Transaction intelligence pipeline",
	Long: `Intelligence is a command-line pipeline for bank and card statement
analysis. It detects the statement format, normalizes rows into canonical
transactions, categorizes them by similarity to past decisions, and flags
recurring charges and statistical anomalies.

Examples:
  intelligence import chase_export.csv
  intelligence categorize --output json
  intelligence detect --db transactions.db`,
	Version: getVersionString(),
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().String("db", "transactions.db", "transaction database path (empty for in-memory)")
	rootCmd.PersistentFlags().StringP("output", "o", "console", "report format (console or json)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text or json)")

	viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	viper.BindPFlag("database", rootCmd.PersistentFlags().Lookup("db"))
	viper.BindPFlag("output_format", rootCmd.PersistentFlags().Lookup("output"))
	viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

// initConfig reads in config file and ENV variables.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)

		// If a config file is specified, read it in.
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintf(os.Stderr, "Error reading config file: %s\n", err)
			os.Exit(1)
		}

		if viper.GetBool("verbose") {
			fmt.Fprintf(os.Stderr, "Using config file: %s\n", viper.ConfigFileUsed())
		}
	}

	// Read environment variables that match
	viper.SetEnvPrefix("INTELLIGENCE")
	viper.AutomaticEnv()
}

// loadConfig builds the effective configuration and applies the logging
// settings before any command work starts.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	logCfg := cfg.Log
	if verbose {
		logCfg = logger.DebugConfig()
	}
	log, err := logger.NewLogger(logCfg)
	if err != nil {
		return nil, err
	}
	logger.SetGlobalLogger(log)

	return cfg, nil
}

// openStore opens the configured transaction store. An empty database
// path yields a process-local in-memory store.
func openStore(cfg *config.Config) (store.Store, error) {
	if cfg.DatabasePath == "" {
		return store.NewMemoryStore(), nil
	}
	return store.NewSQLiteStore(cfg.DatabasePath)
}

// SetVersionInfo sets the version information for the CLI
func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
	rootCmd.Version = getVersionString()
}

func getVersionString() string {
	if version == "dev" {
		return fmt.Sprintf("%s (commit %s, built %s)", version, commit, date)
	}
	return version
}
