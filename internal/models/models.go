// Package models defines the core domain types for issuewatch.
package models

import (
	"encoding/json"
	"time"
)

// CheckpointLayout is the on-disk and query format of a checkpoint.
// Minute precision matches what the tracker's query language accepts.
const CheckpointLayout = "2006-01-02 15:04"

// DefaultLookback seeds the checkpoint on first run.
const DefaultLookback = 7 * 24 * time.Hour

// Filter holds the issue selection criteria. It is fixed at startup.
type Filter struct {
	Project    string   `json:"project"`
	IssueTypes []string `json:"issue_types"`
	MaxResults int      `json:"max_results"`
}

// RawIssue is an issue object exactly as returned by the tracker.
type RawIssue = json.RawMessage

// Issue holds the fields extracted from a RawIssue. All four are required.
type Issue struct {
	Key     string `json:"key"`
	Summary string `json:"summary"`
	Type    string `json:"type"`
	Status  string `json:"status"`
}

// Notification is the formatted message for a single issue.
type Notification struct {
	IssueKey string `json:"issue_key"`
	Text     string `json:"text"`
}

// CycleResult describes the outcome of one check cycle.
type CycleResult struct {
	ID         string    `json:"id"`
	StartedAt  time.Time `json:"started_at"`
	Checkpoint time.Time `json:"checkpoint"`
	Found      int       `json:"found"`
	Sent       int       `json:"sent"`
	Failed     int       `json:"failed"`
	Advanced   bool      `json:"advanced"`
	Err        error     `json:"-"`
}

// WorkerState is the state of the worker loop.
type WorkerState string

const (
	WorkerRunning WorkerState = "running"
	WorkerStopped WorkerState = "stopped"
)

// WorkerStats is a point-in-time snapshot of the worker loop.
type WorkerStats struct {
	State          WorkerState `json:"state"`
	Checkpoint     time.Time   `json:"checkpoint"`
	Cycles         int         `json:"cycles"`
	FailedCycles   int         `json:"failed_cycles"`
	Sent           int         `json:"sent"`
	FailedSends    int         `json:"failed_sends"`
	LastCycleID    string      `json:"last_cycle_id,omitempty"`
	LastCycleStart time.Time   `json:"last_cycle_start,omitempty"`
	LastError      string      `json:"last_error,omitempty"`
}
