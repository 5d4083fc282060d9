package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"transcode-worker/infrastructure/config"
	"transcode-worker/infrastructure/metrics"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Poll the queue continuously",
	Long: `Sleep for the poll interval, long-poll for a batch of messages and process
them one at a time, deleting each message after processing. Runs until
interrupted (SIGINT or SIGTERM).

With worker.stop_on_error the loop ends at the first failed message;
otherwise failures are logged and the loop continues. When metrics.listen is
set, Prometheus metrics are served on /metrics.

Example:
  transcode-worker watch --config config/config.yaml`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
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

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, cleanup, err := buildDependencies(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	return RunWatchWithDependencies(ctx, deps, cfg, nil)
}

// RunWatchWithDependencies runs the polling loop with injected dependencies (for testing).
// A nil sleep waits for the configured poll interval.
func RunWatchWithDependencies(ctx context.Context, deps *Dependencies, cfg *config.Config, sleep func(context.Context, time.Duration) error) error {
	if err := verifyTranscoder(ctx, deps.Transcoder); err != nil {
		return err
	}

	if cfg.Metrics.Listen == "" {
		return newWorker(deps, cfg, sleep).Run(ctx)
	}

	m := metrics.New()
	if deps.Recorder == nil {
		deps.Recorder = m
	}

	g, gctx := errgroup.WithContext(ctx)
	serveCtx, stopServing := context.WithCancel(gctx)
	g.Go(func() error {
		return m.Serve(serveCtx, cfg.Metrics.Listen, deps.Logger)
	})
	g.Go(func() error {
		defer stopServing()
		err := newWorker(deps, cfg, sleep).Run(gctx)
		if err != nil {
			deps.Logger.Error("worker stopped with error", zap.Error(err))
		}
		return err
	})
	return g.Wait()
}
