// Package execsink delivers notifications by piping them into a local command.
package execsink

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/fentz26/issuewatch/internal/connectors"
	"github.com/fentz26/issuewatch/internal/models"
)

// ExecSink runs a fixed command once per message with the text on stdin.
// The issue key is exported as ISSUEWATCH_ISSUE_KEY.
type ExecSink struct {
	command string
	args    []string
	workDir string
}

// New creates a new ExecSink. command must not be empty.
func New(command string, args []string, workDir string) (*ExecSink, error) {
	if strings.TrimSpace(command) == "" {
		return nil, fmt.Errorf("exec sink: command required")
	}
	return &ExecSink{command: command, args: args, workDir: workDir}, nil
}

// Name returns the sink identifier.
func (e *ExecSink) Name() string {
	return "exec"
}

// Send runs the command. A non-zero exit is a delivery failure.
func (e *ExecSink) Send(ctx context.Context, msg models.Notification) error {
	execCmd := exec.CommandContext(ctx, e.command, e.args...)
	if e.workDir != "" {
		execCmd.Dir = e.workDir
	}
	execCmd.Env = append(execCmd.Environ(), "ISSUEWATCH_ISSUE_KEY="+msg.IssueKey)
	execCmd.Stdin = strings.NewReader(msg.Text)

	var stderr bytes.Buffer
	execCmd.Stderr = &stderr

	if err := execCmd.Run(); err != nil {
		if exitError, ok := err.(*exec.ExitError); ok {
			return fmt.Errorf("%w: %s exited %d: %s", connectors.ErrDeliveryFailed,
				e.command, exitError.ExitCode(), strings.TrimSpace(stderr.String()))
		}
		return fmt.Errorf("%w: exec %s: %v", connectors.ErrDeliveryFailed, e.command, err)
	}
	return nil
}
