package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fentz26/issuewatch/internal/checkpoint"
	"github.com/fentz26/issuewatch/internal/models"
)

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Inspect or reset the stored checkpoint",
}

var checkpointShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored checkpoint",
	RunE:  runCheckpointShow,
}

var checkpointSetCmd = &cobra.Command{
	Use:   `set "YYYY-MM-DD HH:MM"`,
	Short: "Overwrite the stored checkpoint",
	Long: `Overwrites the stored checkpoint. This is the way to recover from a
corrupt checkpoint, which is never repaired automatically.`,
	Args: cobra.ExactArgs(1),
	RunE: runCheckpointSet,
}

func init() {
	checkpointCmd.AddCommand(checkpointShowCmd, checkpointSetCmd)
}

func runCheckpointShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	t, stored, err := a.peekCheckpoint(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !stored {
		fmt.Fprintf(out, "No checkpoint stored (backend: %s). The first check will start from %s.\n",
			a.cfg.Checkpoint.Backend, checkpoint.Format(t))
		return nil
	}
	fmt.Fprintf(out, "%s (backend: %s)\n", checkpoint.Format(t), a.cfg.Checkpoint.Backend)
	return nil
}

func runCheckpointSet(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	t, err := checkpoint.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid checkpoint %q: expected %s", args[0], models.CheckpointLayout)
	}

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.checkpoints.Write(ctx, t); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Checkpoint set to %s\n", checkpoint.Format(t))
	return nil
}
