package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/comparador/backend/config"
	"github.com/comparador/backend/internal/app"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:           "comparador",
	Short:         "comparador compares supermarket prices from the command line.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log provider activity to stderr.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withServices loads configuration, runs fn with the search services and
// releases them afterwards.
func withServices(fn func(*app.Services) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	cfg.Log.Format = "text"
	if verbose {
		cfg.Log.Level = "debug"
	} else {
		cfg.Log.Level = "warn"
	}
	logger := app.NewLogger(cfg, os.Stderr)

	services, err := app.NewServices(cfg, logger, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err := services.Close(); err != nil {
			logger.Warn("failed to close market providers", "error", err)
		}
	}()

	return fn(services)
}
