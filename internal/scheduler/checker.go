package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fentz26/issuewatch/internal/checkpoint"
	"github.com/fentz26/issuewatch/internal/connectors"
	"github.com/fentz26/issuewatch/internal/connectors/jira"
	"github.com/fentz26/issuewatch/internal/models"
)

// IssueSource lists issues created at or after since.
type IssueSource interface {
	ListNew(ctx context.Context, since time.Time, filter models.Filter) ([]models.RawIssue, error)
}

// CheckpointWriter persists the checkpoint.
type CheckpointWriter interface {
	Write(ctx context.Context, t time.Time) error
}

// MessageFormatter renders one issue.
type MessageFormatter interface {
	Format(issue models.Issue) (models.Notification, error)
}

// Checker runs single check cycles.
type Checker struct {
	source      IssueSource
	sink        connectors.Sink
	checkpoints CheckpointWriter
	formatter   MessageFormatter
	filter      models.Filter

	parse  func(models.RawIssue) (models.Issue, error)
	now    func() time.Time
	logger *slog.Logger
}

// NewChecker creates a new Checker.
func NewChecker(source IssueSource, sink connectors.Sink, checkpoints CheckpointWriter, formatter MessageFormatter, cfg *Config) *Checker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Checker{
		source:      source,
		sink:        sink,
		checkpoints: checkpoints,
		formatter:   formatter,
		filter:      cfg.Filter,
		parse:       jira.ParseIssue,
		now:         time.Now,
		logger:      slog.Default(),
	}
}

// SetLogger sets the logger used for cycle diagnostics.
func (c *Checker) SetLogger(logger *slog.Logger) {
	c.logger = logger
}

// SetClock overrides the clock that stamps the cycle start.
func (c *Checker) SetClock(now func() time.Time) {
	c.now = now
}

// Filter returns the issue filter.
func (c *Checker) Filter() models.Filter {
	return c.filter
}

// RunCycle performs one check against prev and returns the checkpoint the
// next cycle should use.
//
// The cycle start is captured before the query, so an issue created while
// the query is in flight is seen again next cycle rather than skipped.
// The checkpoint only advances when the query succeeded and every issue
// could be parsed; individual send failures do not hold it back.
func (c *Checker) RunCycle(ctx context.Context, prev time.Time) (time.Time, models.CycleResult) {
	result := models.CycleResult{
		ID:         uuid.New().String(),
		StartedAt:  c.now(),
		Checkpoint: prev,
	}
	log := c.logger.With("cycle_id", result.ID, "checkpoint", checkpoint.Format(prev))
	log.Info("checking for new issues")

	issues, err := c.source.ListNew(ctx, prev, c.filter)
	if err != nil {
		log.Error("query failed, checkpoint not advanced", "error", err)
		result.Err = err
		return prev, result
	}
	result.Found = len(issues)
	log.Debug("got new issues", "count", len(issues))

	for _, raw := range issues {
		issue, err := c.parse(raw)
		if err != nil {
			log.Error("malformed issue, aborting cycle", "error", err, "sent", result.Sent)
			result.Err = err
			return prev, result
		}

		msg, err := c.formatter.Format(issue)
		if err != nil {
			log.Error("cannot format issue, aborting cycle", "issue", issue.Key, "error", err)
			result.Err = err
			return prev, result
		}

		log.Debug("sending message", "issue", issue.Key, "sink", c.sink.Name())
		if err := c.sink.Send(ctx, msg); err != nil {
			result.Failed++
			log.Warn("notification not delivered", "issue", issue.Key, "error", err)
			continue
		}
		result.Sent++
	}

	result.Advanced = true
	if err := c.checkpoints.Write(ctx, result.StartedAt); err != nil {
		// Notifications already went out; keep the new boundary in memory
		// and let the next cycle persist it.
		log.Error("checkpoint write failed", "error", err)
		result.Err = err
	}

	log.Info("check complete",
		"found", result.Found,
		"sent", result.Sent,
		"failed", result.Failed,
		"next_checkpoint", checkpoint.Format(result.StartedAt),
	)
	return result.StartedAt, result
}
