package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fentz26/issuewatch/internal/connectors/jira"
)

var jqlCmd = &cobra.Command{
	Use:   "jql",
	Short: "Print the query the next check would run",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		a, err := newApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		since, _, err := a.peekCheckpoint(ctx)
		if err != nil {
			return err
		}
		q := a.cfg.Query
		fmt.Fprintln(cmd.OutOrStdout(), jira.BuildJQL(q.Project, q.IssueTypes, since))
		return nil
	},
}
