package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"

	"ai-fitness-coach/internal/app"
	"ai-fitness-coach/internal/config"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	verbose   bool
	cacheFile string
	mode      string

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "coach",
	Short: "AI coach that generates and checks workout and nutrition plans",
	Long: `coach asks a language model for a workout or nutrition plan, extracts the
JSON from its answer, repairs and normalizes it, validates it against the
coaching rules and retries once with a correction request when needed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		logger, err = newLogger(verbose || debugFromEnv())
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging, including model output samples")
	rootCmd.PersistentFlags().StringVar(&cacheFile, "cache-file", "", "Record model responses to this file and replay them on later runs")
	rootCmd.PersistentFlags().StringVar(&mode, "mode", "", "Validation mode: soft or hard (overrides VALIDATION_MODE)")

	rootCmd.AddCommand(generateCmd, processCmd, serveCmd, metricsCleanupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		cfg := zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		return cfg.Build()
	}
	cfg := zap.NewProductionConfig()
	return cfg.Build()
}

func debugFromEnv() bool {
	v, _ := strconv.ParseBool(os.Getenv("PIPELINE_DEBUG"))
	return v
}

// newApp loads the configuration, applies the global flags and wires the
// application.
func newApp(ctx context.Context) (*app.App, *config.Config, error) {
	cfg, err := config.NewFromEnv()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if mode != "" {
		cfg.ValidationMode = mode
	}
	if verbose {
		cfg.Debug = true
	}

	a, err := app.New(ctx, cfg, logger, app.Options{CacheFile: cacheFile})
	if err != nil {
		return nil, nil, err
	}
	return a, cfg, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
