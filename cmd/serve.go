// File: cmd/serve.go
package cmd

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

	"github.com/reasonos/websurfer/internal/api"
	"github.com/reasonos/websurfer/internal/browser"
	"github.com/reasonos/websurfer/internal/extract"
	"github.com/reasonos/websurfer/internal/mission"
	"github.com/reasonos/websurfer/internal/observability"
	"github.com/reasonos/websurfer/internal/oracle"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the mission engine HTTP API",
	Long: `Starts the HTTP API that accepts mission objectives, steps sessions
through their decide-execute loop, and tears them down. Each session owns a
dedicated browser process.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe() error {
	logger := observability.GetLogger()

	oracleSvc, err := oracle.NewFromConfig(cfg.Oracle, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize oracle: %w", err)
	}

	// The factory context outlives any single request; browsers die when
	// their session is destroyed, not when the creating request ends.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	newBrowser := func(launchCtx context.Context) (mission.Browser, error) {
		return browser.New(ctx, cfg.Browser, logger)
	}

	registry := mission.NewRegistry(newBrowser, oracleSvc, extract.New(logger), cfg.Session, logger)
	defer registry.Close()

	server := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: api.NewServer(registry, logger).Router(),
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP API listening", zap.String("addr", cfg.Server.ListenAddr))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 15 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Graceful shutdown incomplete", zap.Error(err))
	}
	return nil
}
