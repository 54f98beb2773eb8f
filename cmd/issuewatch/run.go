package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/fentz26/issuewatch/internal/audit"
	"github.com/fentz26/issuewatch/internal/checkpoint"
	"github.com/fentz26/issuewatch/internal/config"
	"github.com/fentz26/issuewatch/internal/connectors/jira"
	"github.com/fentz26/issuewatch/internal/control"
	"github.com/fentz26/issuewatch/internal/controlplane"
	"github.com/fentz26/issuewatch/internal/format"
	"github.com/fentz26/issuewatch/internal/scheduler"
)

var (
	runInterval string
	dryRun      bool
	statusAddr  string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Poll for new issues until stopped",
	Long: `Starts the poller. New issues are checked for once per interval and a
message is sent for each. Type "bye" (or send SIGINT/SIGTERM) to stop; a
check already in progress is allowed to finish first.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&runInterval, "interval", "", "Override the polling interval (e.g. 60 or 2m)")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log messages instead of sending them")
	runCmd.Flags().StringVar(&statusAddr, "status-listen", "", "Serve /health and /status on this address")

	checkCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log messages instead of sending them")
}

// applyRunFlags applies flag overrides on top of file and environment values.
func applyRunFlags(cfg *config.Config) error {
	if runInterval != "" {
		d, err := config.ParseInterval(runInterval)
		if err != nil || d <= 0 {
			return fmt.Errorf("%w: --interval %q", config.ErrInvalid, runInterval)
		}
		cfg.Query.Interval = d
	}
	if statusAddr != "" {
		cfg.Status.Listen = statusAddr
	}
	return nil
}

// openChecker opens the tracker session and sink and assembles a Checker.
// The returned func closes the tracker session.
func openChecker(ctx context.Context, a *app) (*scheduler.Checker, func(), error) {
	formatter, err := format.New(a.cfg.Chat.Template)
	if err != nil {
		return nil, nil, err
	}

	sink, err := a.openSink(ctx, dryRun)
	if err != nil {
		return nil, nil, err
	}

	tracker, err := jira.Open(ctx, a.cfg.Jira())
	if err != nil {
		return nil, nil, err
	}
	a.logger.Info("tracker session opened", "url", a.cfg.Tracker.URL, "sink", sink.Name())

	closeTracker := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := tracker.Close(ctx); err != nil {
			a.logger.Warn("tracker logout failed", "error", err)
		}
	}

	checker := scheduler.NewChecker(tracker, sink, a.checkpoints, formatter, a.cfg.Scheduler())
	checker.SetLogger(a.logger)
	return checker, closeTracker, nil
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config %s: %w", configPath, err)
	}
	if err := applyRunFlags(cfg); err != nil {
		return err
	}

	a, err := newAppFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	initial, err := a.readCheckpoint(ctx)
	if err != nil {
		return err
	}

	checker, closeTracker, err := openChecker(ctx, a)
	if err != nil {
		return err
	}
	defer closeTracker()

	stop := scheduler.NewStopSignal()
	journal := audit.NewJournal(audit.DefaultSize)
	worker := scheduler.NewWorker(checker, initial, cfg.Scheduler(), stop)
	worker.SetLogger(a.logger)
	worker.SetJournal(journal)

	var server *controlplane.Server
	if cfg.Status.Listen != "" {
		service := controlplane.NewService(worker, a.backend, version)
		service.SetHistory(journal)
		server = controlplane.NewServer(service, cfg.Status.Listen)
		server.SetLogger(a.logger)
	}

	// Set up signal handling for graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case sig := <-sigCh:
			a.logger.Info("received signal, stopping", "signal", sig.String())
			stop.Set()
		case <-stop.Done():
		}
	}()

	var g errgroup.Group
	workerDone := make(chan struct{})
	g.Go(func() error {
		defer close(workerDone)
		return worker.Run()
	})
	if server != nil {
		g.Go(func() error {
			if err := server.Start(); err != nil {
				stop.Set()
				return fmt.Errorf("status server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-workerDone
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		})
	}

	// The prompt blocks on stdin; a signal can stop the worker without it
	// returning, so it is not joined.
	go func() {
		err := control.Prompt(cmd.InOrStdin(), cmd.OutOrStdout(), stop)
		switch {
		case errors.Is(err, control.ErrNoInput):
			a.logger.Info("interactive control unavailable, stop with SIGINT or SIGTERM")
		case err != nil:
			a.logger.Warn("control input failed, stop with SIGINT or SIGTERM", "error", err)
		}
	}()

	<-stop.Done()
	a.logger.Info("stop requested, waiting for the current check to finish")

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("shutdown complete", "checkpoint", checkpoint.Format(worker.Checkpoint()))
	return nil
}
