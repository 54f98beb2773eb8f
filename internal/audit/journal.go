// Package audit keeps a bounded in-memory record of recent check cycles.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/fentz26/issuewatch/internal/checkpoint"
	"github.com/fentz26/issuewatch/internal/models"
)

// DefaultSize is the number of cycles a Journal keeps by default.
const DefaultSize = 20

// Outcomes.
const (
	OutcomeAdvanced = "advanced"
	OutcomeHeld     = "held"
)

// Entry records one check cycle.
type Entry struct {
	CycleID    string `json:"cycle_id"`
	StartedAt  string `json:"started_at"`
	Checkpoint string `json:"checkpoint"`
	// QueryHash identifies the query inputs, so cycles that asked the same
	// question can be matched up.
	QueryHash string `json:"query_hash"`
	Found     int    `json:"found"`
	Sent      int    `json:"sent"`
	Failed    int    `json:"failed"`
	Outcome   string `json:"outcome"`
	Error     string `json:"error,omitempty"`
}

// Journal is a fixed-size ring of cycle entries. It is safe for concurrent use.
type Journal struct {
	mu      sync.Mutex
	entries []Entry
	next    int
	full    bool
}

// NewJournal creates a journal holding at most size entries.
func NewJournal(size int) *Journal {
	if size <= 0 {
		size = DefaultSize
	}
	return &Journal{entries: make([]Entry, size)}
}

// Record appends an entry for result, evicting the oldest when full.
func (j *Journal) Record(result models.CycleResult, filter models.Filter) Entry {
	e := Entry{
		CycleID:    result.ID,
		StartedAt:  checkpoint.Format(result.StartedAt),
		Checkpoint: checkpoint.Format(result.Checkpoint),
		QueryHash: hashInputs(struct {
			Filter models.Filter `json:"filter"`
			Since  string        `json:"since"`
		}{filter, checkpoint.Format(result.Checkpoint)}),
		Found:   result.Found,
		Sent:    result.Sent,
		Failed:  result.Failed,
		Outcome: OutcomeHeld,
	}
	if result.Advanced {
		e.Outcome = OutcomeAdvanced
	}
	if result.Err != nil {
		e.Error = result.Err.Error()
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries[j.next] = e
	j.next = (j.next + 1) % len(j.entries)
	if j.next == 0 {
		j.full = true
	}
	return e
}

// Recent returns the recorded entries, newest first.
func (j *Journal) Recent() []Entry {
	j.mu.Lock()
	defer j.mu.Unlock()

	n := j.next
	if j.full {
		n = len(j.entries)
	}
	out := make([]Entry, 0, n)
	for i := 1; i <= n; i++ {
		idx := (j.next - i + len(j.entries)) % len(j.entries)
		out = append(out, j.entries[idx])
	}
	return out
}

// hashInputs creates a SHA256 hash of the inputs.
func hashInputs(inputs any) string {
	data, err := json.Marshal(inputs)
	if err != nil {
		return "hash_error"
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}
