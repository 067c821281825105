package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/fibivi/pkg/config"
	"github.com/wonny/fibivi/pkg/logger"
)

var (
	// Global flags
	configFile string
	env        string
	verbose    bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "fibivi",
	Short: "FiBiVi - Fitbit sleep data visualizer",
	Long: `FiBiVi Unified CLI

Visualize a Fitbit sleep_score.csv export as a bar chart, in the terminal
or through the HTTP API, with optional random colors from the palette
service.

Usage:
  go run ./cmd/fibivi [command]

Examples:
  go run ./cmd/fibivi chart sleep_score.csv
  go run ./cmd/fibivi chart sleep_score.csv --interactive --follow
  go run ./cmd/fibivi palette serve
  go run ./cmd/fibivi serve
  go run ./cmd/fibivi upload sleep_score.csv`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// loadConfig applies the global flags on top of the environment
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if configFile != "" {
		cfg, err = config.LoadFile(configFile)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if env != "" {
		cfg.Env = env
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("--env: %w", err)
		}
	}
	if verbose {
		cfg.LogLevel = "debug"
	}
	return cfg, nil
}

// newLogger builds the command logger
func newLogger(cfg *config.Config) *logger.Logger {
	return logger.New(cfg)
}
