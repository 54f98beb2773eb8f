// Package controlplane provides the read-only status server for issuewatch.
package controlplane

import (
	"context"
	"fmt"
	"time"

	"github.com/fentz26/issuewatch/internal/audit"
	"github.com/fentz26/issuewatch/internal/checkpoint"
	"github.com/fentz26/issuewatch/internal/models"
)

// StatsProvider reports the worker's counters.
type StatsProvider interface {
	Stats() models.WorkerStats
}

// HistoryProvider lists recent cycles, newest first.
type HistoryProvider interface {
	Recent() []audit.Entry
}

// Pinger checks that a checkpoint backend is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	OK      bool   `json:"ok"`
	Backend string `json:"backend"`
	Worker  string `json:"worker"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// StatusResponse is the body of GET /status.
type StatusResponse struct {
	State          string        `json:"state"`
	Checkpoint     string        `json:"checkpoint"`
	Cycles         int           `json:"cycles"`
	FailedCycles   int           `json:"failed_cycles"`
	Sent           int           `json:"sent"`
	FailedSends    int           `json:"failed_sends"`
	LastCycleID    string        `json:"last_cycle_id,omitempty"`
	LastCycleStart string        `json:"last_cycle_start,omitempty"`
	LastError      string        `json:"last_error,omitempty"`
	Recent         []audit.Entry `json:"recent,omitempty"`
}

// Service assembles status reports from the worker and the checkpoint backend.
type Service struct {
	stats   StatsProvider
	backend Pinger
	history HistoryProvider
	version string
	now     func() time.Time
}

// NewService creates a new status service. backend may be nil when the
// checkpoint backend has nothing to ping.
func NewService(stats StatsProvider, backend Pinger, version string) *Service {
	return &Service{
		stats:   stats,
		backend: backend,
		version: version,
		now:     time.Now,
	}
}

// SetHistory includes recent cycles in status reports.
func (s *Service) SetHistory(h HistoryProvider) {
	s.history = h
}

// Health reports whether the worker is running and the backend reachable.
func (s *Service) Health(ctx context.Context) (HealthResponse, error) {
	resp := HealthResponse{
		OK:      true,
		Backend: "ok",
		Worker:  string(s.stats.Stats().State),
		Version: s.version,
		Time:    s.now().UTC().Format(time.RFC3339),
	}

	if s.backend != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.backend.Ping(pingCtx); err != nil {
			resp.OK = false
			resp.Backend = err.Error()
			return resp, fmt.Errorf("%w: %v", ErrBackendDown, err)
		}
	}
	return resp, nil
}

// Status returns a snapshot of the worker's counters.
func (s *Service) Status() StatusResponse {
	st := s.stats.Stats()
	resp := StatusResponse{
		State:        string(st.State),
		Checkpoint:   checkpoint.Format(st.Checkpoint),
		Cycles:       st.Cycles,
		FailedCycles: st.FailedCycles,
		Sent:         st.Sent,
		FailedSends:  st.FailedSends,
		LastCycleID:  st.LastCycleID,
		LastError:    st.LastError,
	}
	if !st.LastCycleStart.IsZero() {
		resp.LastCycleStart = checkpoint.Format(st.LastCycleStart)
	}
	if s.history != nil {
		resp.Recent = s.history.Recent()
	}
	return resp
}
