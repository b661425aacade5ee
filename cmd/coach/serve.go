package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the plan API over HTTP",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

var metricsCleanupDays int

var metricsCleanupCmd = &cobra.Command{
	Use:   "metrics-cleanup",
	Short: "Remove old execution metrics",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		affected, err := a.CleanupMetrics(metricsCleanupDays)
		if err != nil {
			return fmt.Errorf("cleanup failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Successfully removed %d old metric records.\n", affected)
		return nil
	},
}

func init() {
	metricsCleanupCmd.Flags().IntVar(&metricsCleanupDays, "days", 30, "Keep records for the last N days")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, cfg, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           a.Server().Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("plan API listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
