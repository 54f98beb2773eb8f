// Package control implements the interactive stop command.
package control

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// StopCommand is the only input the prompt acts on.
const StopCommand = "bye"

// Stopper is raised once the operator asks to exit.
type Stopper interface {
	Set()
}

var promptStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))

// ErrNoInput is returned when input ends before StopCommand arrives. Stop is
// not raised, so a detached process keeps running until signalled.
var ErrNoInput = errors.New("control input closed")

// Prompt reads lines from in until StopCommand, then raises stop and
// returns. Every other line is ignored and the prompt is shown again.
func Prompt(in io.Reader, out io.Writer, stop Stopper) error {
	prompt := promptStyle.Render(fmt.Sprintf("Type %q to exit...", StopCommand)) + " "
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}
			return ErrNoInput
		}
		if strings.TrimSpace(scanner.Text()) == StopCommand {
			stop.Set()
			return nil
		}
	}
}
