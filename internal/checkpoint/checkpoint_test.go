package checkpoint

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fentz26/issuewatch/internal/checkpoint/filekv"
	"github.com/fentz26/issuewatch/internal/store"
)

// memKV is an in-memory KV for tests.
type memKV struct {
	values map[string]string
	getErr error
}

func newMemKV() *memKV {
	return &memKV{values: make(map[string]string)}
}

func (m *memKV) Get(_ context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *memKV) Set(_ context.Context, key, value string) error {
	m.values[key] = value
	return nil
}

func TestReadDefaultPersists(t *testing.T) {
	kv := newMemKV()
	now := time.Date(2024, 5, 10, 12, 34, 56, 0, time.Local)
	s := New(kv, WithClock(func() time.Time { return now }))

	got, err := s.Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	want := time.Date(2024, 5, 3, 12, 34, 0, 0, time.Local)
	if !got.Equal(want) {
		t.Errorf("Expected default %v, got %v", want, got)
	}
	if kv.values[Key] != "2024-05-03 12:34" {
		t.Errorf("Expected default to be persisted, got %q", kv.values[Key])
	}
}

func TestReadDefaultFileCreated(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_check.txt")
	kv, err := filekv.New(path)
	if err != nil {
		t.Fatalf("filekv.New failed: %v", err)
	}

	got, err := New(kv).Read(context.Background())
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	expected := time.Now().Add(-7 * 24 * time.Hour)
	if diff := expected.Sub(got); diff < 0 || diff > time.Minute+5*time.Second {
		t.Errorf("Default checkpoint %v is not within a minute of %v", got, expected)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Checkpoint file was not created: %v", err)
	}
	if string(data) != Format(got) {
		t.Errorf("File holds %q, expected %q", string(data), Format(got))
	}
}

func TestRoundTripTruncatesToMinute(t *testing.T) {
	backends := map[string]KV{
		"memory": newMemKV(),
		"file":   newFileKV(t),
		"sqlite": newSQLiteKV(t),
	}

	written := time.Date(2024, 1, 15, 9, 41, 27, 123456789, time.Local)
	for name, kv := range backends {
		t.Run(name, func(t *testing.T) {
			s := New(kv)
			ctx := context.Background()
			if err := s.Write(ctx, written); err != nil {
				t.Fatalf("Write failed: %v", err)
			}
			got, err := s.Read(ctx)
			if err != nil {
				t.Fatalf("Read failed: %v", err)
			}
			if want := written.Truncate(time.Minute); !got.Equal(want) {
				t.Errorf("Expected %v, got %v", want, got)
			}
		})
	}
}

func TestReadCorrupt(t *testing.T) {
	kv := newMemKV()
	kv.values[Key] = "not a timestamp"

	_, err := New(kv).Read(context.Background())
	if !errors.Is(err, ErrCorruptCheckpoint) {
		t.Fatalf("Expected ErrCorruptCheckpoint, got %v", err)
	}
	if kv.values[Key] != "not a timestamp" {
		t.Error("Corrupt value must not be overwritten")
	}
}

func TestReadBackendError(t *testing.T) {
	kv := newMemKV()
	kv.getErr = errors.New("disk on fire")

	_, err := New(kv).Read(context.Background())
	if err == nil {
		t.Fatal("Expected error")
	}
	if errors.Is(err, ErrCorruptCheckpoint) {
		t.Error("Backend errors are not corruption")
	}
}

func TestParseTrimsWhitespace(t *testing.T) {
	got, err := Parse("2024-01-01 00:00\n")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if want := time.Date(2024, 1, 1, 0, 0, 0, 0, time.Local); !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func newFileKV(t *testing.T) KV {
	t.Helper()
	kv, err := filekv.New(filepath.Join(t.TempDir(), "last_check.txt"))
	if err != nil {
		t.Fatalf("filekv.New failed: %v", err)
	}
	return kv
}

func newSQLiteKV(t *testing.T) KV {
	t.Helper()
	s, err := store.New(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("store.New failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}
