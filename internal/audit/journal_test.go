package audit

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/fentz26/issuewatch/internal/models"
)

func result(i int, advanced bool) models.CycleResult {
	start := time.Date(2024, 3, 1, 9, i, 0, 0, time.Local)
	return models.CycleResult{
		ID:         fmt.Sprintf("cycle-%d", i),
		StartedAt:  start,
		Checkpoint: start.Add(-time.Minute),
		Found:      i,
		Sent:       i,
		Advanced:   advanced,
	}
}

func TestRecord_Outcome(t *testing.T) {
	j := NewJournal(4)
	filter := models.Filter{Project: "PRJ", IssueTypes: []string{"Bug"}, MaxResults: 50}

	held := result(1, false)
	held.Err = errors.New("query failed")
	e := j.Record(held, filter)
	if e.Outcome != OutcomeHeld || e.Error != "query failed" {
		t.Errorf("Unexpected entry: %+v", e)
	}

	e = j.Record(result(2, true), filter)
	if e.Outcome != OutcomeAdvanced || e.Error != "" {
		t.Errorf("Unexpected entry: %+v", e)
	}
	if e.StartedAt != "2024-03-01 09:02" || e.Checkpoint != "2024-03-01 09:01" {
		t.Errorf("Unexpected timestamps: %+v", e)
	}
}

func TestRecord_QueryHash(t *testing.T) {
	j := NewJournal(4)
	filter := models.Filter{Project: "PRJ", IssueTypes: []string{"Bug"}}

	a := j.Record(result(1, true), filter)
	b := j.Record(result(1, false), filter)
	if a.QueryHash != b.QueryHash {
		t.Error("Expected identical query inputs to hash the same")
	}

	filter.Project = "OPS"
	c := j.Record(result(1, true), filter)
	if c.QueryHash == a.QueryHash {
		t.Error("Expected a different project to change the hash")
	}
	if len(a.QueryHash) != 64 {
		t.Errorf("Expected hex sha256, got %q", a.QueryHash)
	}
}

func TestRecent_NewestFirstAndBounded(t *testing.T) {
	j := NewJournal(3)
	if got := j.Recent(); len(got) != 0 {
		t.Fatalf("Expected empty journal, got %d entries", len(got))
	}

	for i := 1; i <= 5; i++ {
		j.Record(result(i, true), models.Filter{})
	}

	got := j.Recent()
	if len(got) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(got))
	}
	for i, want := range []string{"cycle-5", "cycle-4", "cycle-3"} {
		if got[i].CycleID != want {
			t.Errorf("Entry %d: expected %s, got %s", i, want, got[i].CycleID)
		}
	}
}

func TestNewJournal_DefaultSize(t *testing.T) {
	j := NewJournal(0)
	for i := 0; i < DefaultSize+5; i++ {
		j.Record(result(i%60, true), models.Filter{})
	}
	if got := len(j.Recent()); got != DefaultSize {
		t.Errorf("Expected %d entries, got %d", DefaultSize, got)
	}
}
