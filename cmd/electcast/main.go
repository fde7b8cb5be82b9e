// Package main provides the electcast command-line tool: single-seat election
// forecasts from historical results plus a fresh survey.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rewired-gh/electcast/internal/config"
	"github.com/rewired-gh/electcast/internal/logger"
	"github.com/rewired-gh/electcast/internal/service"
	"github.com/rewired-gh/electcast/internal/source"
	"github.com/rewired-gh/electcast/internal/storage"
)

// Build information - set via ldflags
var (
	Version = "dev"
)

var (
	configFile string
	dataPath   string
	cfg        *config.Config
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to configuration file (defaults plus ELECTCAST_* environment when empty)")
	rootCmd.PersistentFlags().StringVarP(&dataPath, "data", "d", "", "Dataset path or http(s) URL (overrides dataset.location)")

	rootCmd.AddCommand(forecastCmd, rankCmd, mapCmd, botCmd)
}

var rootCmd = &cobra.Command{
	Use:           "electcast",
	Short:         "Bayesian win probabilities for single-seat races",
	Long:          `Combine historical constituency results with a new survey and estimate each candidate's chance of winning.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := loadConfig(); err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig() error {
	loaded, err := config.Load(configFile)
	if err != nil {
		return err
	}
	if dataPath != "" {
		loaded.Dataset.Location = dataPath
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging := loaded.GetLoggingConfig()
	logger.Init(logging.Level, logging.Format)
	if configFile != "" {
		logger.Debug("Configuration loaded from %s", configFile)
	}
	cfg = loaded
	return nil
}

// newForecaster builds the service and loads the configured dataset into it.
func newForecaster(ctx context.Context) (*service.Forecaster, error) {
	if cfg.Dataset.Location == "" {
		return nil, fmt.Errorf("no dataset: pass --data or set dataset.location")
	}

	store := storage.New(cfg.Dataset.MaxRecords)
	forecaster, err := service.New(store, cfg)
	if err != nil {
		return nil, err
	}

	client := source.NewClient(source.ClientConfig{
		Timeout:      cfg.Dataset.Timeout,
		MaxRetries:   cfg.Dataset.MaxRetries,
		RetryWaitMin: cfg.Dataset.RetryWaitMin,
		RetryWaitMax: cfg.Dataset.RetryWaitMax,
		MaxBytes:     cfg.Dataset.MaxBytes,
		MaxRecords:   cfg.Dataset.MaxRecords,
	})
	if err := forecaster.Load(ctx, client, cfg.Dataset.Location); err != nil {
		return nil, err
	}
	return forecaster, nil
}
