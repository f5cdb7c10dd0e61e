// File: cmd/surf.go
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/reasonos/websurfer/api/schemas"
	"github.com/reasonos/websurfer/internal/browser"
	"github.com/reasonos/websurfer/internal/extract"
	"github.com/reasonos/websurfer/internal/mission"
	"github.com/reasonos/websurfer/internal/observability"
	"github.com/reasonos/websurfer/internal/oracle"
)

var surfMaxSteps int

var surfCmd = &cobra.Command{
	Use:   "surf <objective>",
	Short: "Run a single mission to completion from the command line",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSurf(args[0])
	},
}

func init() {
	surfCmd.Flags().IntVar(&surfMaxSteps, "max-steps", 30, "abort the mission after this many steps")
	rootCmd.AddCommand(surfCmd)
}

func runSurf(objective string) error {
	logger := observability.GetLogger()

	oracleSvc, err := oracle.NewFromConfig(cfg.Oracle, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize oracle: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	newBrowser := func(launchCtx context.Context) (mission.Browser, error) {
		return browser.New(ctx, cfg.Browser, logger)
	}

	registry := mission.NewRegistry(newBrowser, oracleSvc, extract.New(logger), cfg.Session, logger)
	defer registry.Close()

	session, err := registry.Create(ctx, objective)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}

	var res schemas.StepResult
	for step := 1; step <= surfMaxSteps; step++ {
		res, err = session.Step(ctx)
		if err != nil {
			return fmt.Errorf("step %d failed: %w", step, err)
		}
		if len(res.Log) > 0 {
			fmt.Fprintln(os.Stdout, res.Log[len(res.Log)-1].Render())
		}
		if res.Status.Terminal() {
			break
		}
	}

	switch res.Status {
	case schemas.StatusCompleted:
		fmt.Fprintf(os.Stdout, "\nMission completed at %s\n\n%s\n", res.FinalURL, res.ExtractedContent)
	case schemas.StatusFailed:
		logger.Error("Mission failed", zap.String("session_id", session.ID))
		return fmt.Errorf("mission failed; see the step log above")
	default:
		return fmt.Errorf("mission did not finish within %d steps", surfMaxSteps)
	}
	return nil
}
