package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fentz26/issuewatch/internal/config"
	"github.com/fentz26/issuewatch/internal/controlplane"
)

var statusServer string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the status of a running poller",
	Long:  `Queries the status server of a running "issuewatch run" (status.listen or --status-listen).`,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusServer, "addr", "", "Status server address (defaults to status.listen from the config)")
}

func runStatus(cmd *cobra.Command, args []string) error {
	addr := statusServer
	if addr == "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config %s: %w", configPath, err)
		}
		addr = cfg.Status.Listen
	}
	if addr == "" {
		return fmt.Errorf("%w: pass --addr or set status.listen", controlplane.ErrNoListenAddr)
	}

	health, err := CheckHealth(addr)
	if health == nil {
		return err
	}
	status, statusErr := fetchStatus(addr)
	if statusErr != nil {
		return statusErr
	}

	printStatus(cmd.OutOrStdout(), health, status)
	return err
}

func printStatus(out io.Writer, health *controlplane.HealthResponse, status *controlplane.StatusResponse) {
	fmt.Fprintf(out, "Version:     %s\n", health.Version)
	fmt.Fprintf(out, "Worker:      %s\n", status.State)
	fmt.Fprintf(out, "Backend:     %s\n", health.Backend)
	fmt.Fprintf(out, "Checkpoint:  %s\n", status.Checkpoint)
	fmt.Fprintf(out, "Cycles:      %d (%d failed)\n", status.Cycles, status.FailedCycles)
	fmt.Fprintf(out, "Messages:    %d sent, %d failed\n", status.Sent, status.FailedSends)
	if status.LastError != "" {
		fmt.Fprintf(out, "Last error:  %s\n", status.LastError)
	}

	if len(status.Recent) == 0 {
		return
	}
	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tSINCE\tFOUND\tSENT\tFAILED\tOUTCOME")
	for _, e := range status.Recent {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%s\n", e.StartedAt, e.Checkpoint, e.Found, e.Sent, e.Failed, e.Outcome)
	}
	w.Flush()
}
