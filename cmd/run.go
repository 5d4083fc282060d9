package cmd

import (
	"context"
	"fmt"
	"os"

	"transcode-worker/application/worker"
	"transcode-worker/infrastructure/config"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process at most one queued notification and exit",
	Long: `Receive at most one message without waiting. When a message arrives it is
processed and then deleted from the queue whatever the outcome. An empty
queue is not an error.

Example:
  QUEUE_NAME=uploads transcode-worker run`,
	RunE: runRun,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := GetConfig()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer logger.Sync()

	deps, cleanup, err := buildDependencies(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	return RunOnceWithDependencies(cmd.Context(), deps, cfg, os.Stdout)
}

// RunOnceWithDependencies runs the single-shot mode with injected dependencies (for testing)
func RunOnceWithDependencies(ctx context.Context, deps *Dependencies, cfg *config.Config, output OutputWriter) error {
	if err := verifyTranscoder(ctx, deps.Transcoder); err != nil {
		return err
	}

	report, err := newWorker(deps, cfg, nil).RunOnce(ctx)
	if report != nil {
		printReport(output, report)
	}
	return err
}

func printReport(output OutputWriter, report *worker.Report) {
	if report.Received == 0 {
		fmt.Fprintln(output, "No messages in queue")
		return
	}
	fmt.Fprintf(output, "Received %d, succeeded %d, skipped %d, failed %d\n",
		report.Received, report.Succeeded, report.Skipped, report.Failed)
}
