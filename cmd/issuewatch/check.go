package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/fentz26/issuewatch/internal/checkpoint"
	"github.com/fentz26/issuewatch/internal/models"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a single check and exit",
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	prev, err := a.readCheckpoint(ctx)
	if err != nil {
		return err
	}

	checker, closeTracker, err := openChecker(ctx, a)
	if err != nil {
		return err
	}
	defer closeTracker()

	next, result := checker.RunCycle(ctx, prev)
	return reportCycle(cmd.OutOrStdout(), next, result)
}

// reportCycle prints a one-shot cycle summary. Any cycle error, including a
// failed checkpoint write after a complete batch, is returned.
func reportCycle(out io.Writer, next time.Time, result models.CycleResult) error {
	fmt.Fprintf(out, "Found %d new issue(s), sent %d, failed %d\n", result.Found, result.Sent, result.Failed)
	fmt.Fprintf(out, "Checkpoint: %s\n", checkpoint.Format(next))
	return result.Err
}
