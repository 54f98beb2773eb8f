package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fentz26/issuewatch/internal/audit"
	"github.com/fentz26/issuewatch/internal/checkpoint"
	"github.com/fentz26/issuewatch/internal/models"
)

// Worker repeatedly runs check cycles until its stop signal is raised.
//
// The stop signal is observed only before a cycle starts and during the
// pause between cycles. A cycle in progress always runs to completion,
// including its checkpoint write.
type Worker struct {
	checker  *Checker
	interval time.Duration
	stop     *StopSignal
	logger   *slog.Logger
	journal  *audit.Journal

	mu         sync.Mutex
	checkpoint time.Time
	stats      models.WorkerStats
}

// NewWorker creates a Worker that starts from initial.
func NewWorker(checker *Checker, initial time.Time, cfg *Config, stop *StopSignal) *Worker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Worker{
		checker:    checker,
		interval:   cfg.Interval,
		stop:       stop,
		logger:     slog.Default(),
		checkpoint: initial,
		stats: models.WorkerStats{
			State:      models.WorkerRunning,
			Checkpoint: initial,
		},
	}
}

// SetLogger sets the logger.
func (w *Worker) SetLogger(logger *slog.Logger) {
	w.logger = logger
}

// SetJournal records every cycle into j.
func (w *Worker) SetJournal(j *audit.Journal) {
	w.journal = j
}

// Run executes the loop and returns once the worker is stopped. It never
// returns an error; the signature fits errgroup.Group.Go.
func (w *Worker) Run() error {
	w.logger.Info("worker started", "interval", w.interval.String(), "checkpoint", checkpoint.Format(w.Checkpoint()))
	defer func() {
		w.mu.Lock()
		w.stats.State = models.WorkerStopped
		w.mu.Unlock()
		w.logger.Info("worker stopped", "checkpoint", checkpoint.Format(w.Checkpoint()))
	}()

	for {
		if w.stop.IsSet() {
			return nil
		}

		w.runCycle()

		timer := time.NewTimer(w.interval)
		select {
		case <-w.stop.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// runCycle runs one cycle on a context the stop signal cannot cancel.
func (w *Worker) runCycle() {
	next, result := w.checker.RunCycle(context.Background(), w.Checkpoint())
	if w.journal != nil {
		w.journal.Record(result, w.checker.Filter())
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.checkpoint = next
	w.stats.Checkpoint = next
	w.stats.Cycles++
	w.stats.Sent += result.Sent
	w.stats.FailedSends += result.Failed
	w.stats.LastCycleID = result.ID
	w.stats.LastCycleStart = result.StartedAt
	if result.Err != nil {
		w.stats.FailedCycles++
		w.stats.LastError = result.Err.Error()
	} else {
		w.stats.LastError = ""
	}
}

// Checkpoint returns the checkpoint the next cycle will query from.
func (w *Worker) Checkpoint() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.checkpoint
}

// Stats returns a snapshot of the worker's counters.
func (w *Worker) Stats() models.WorkerStats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}
