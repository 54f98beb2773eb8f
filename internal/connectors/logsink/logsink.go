// Package logsink writes notifications to the structured log instead of
// delivering them. Used for dry runs.
package logsink

import (
	"context"
	"log/slog"

	"github.com/fentz26/issuewatch/internal/models"
)

// LogSink never fails.
type LogSink struct {
	logger *slog.Logger
}

// New creates a LogSink. A nil logger uses slog.Default().
func New(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

// Name returns the sink identifier.
func (l *LogSink) Name() string {
	return "log"
}

// Send logs the message at info level.
func (l *LogSink) Send(ctx context.Context, msg models.Notification) error {
	l.logger.InfoContext(ctx, "notification", "issue", msg.IssueKey, "text", msg.Text)
	return nil
}
