package filekv

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestGetMissingFile(t *testing.T) {
	kv, err := New(filepath.Join(t.TempDir(), "last_check.txt"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	_, ok, err := kv.Get(context.Background(), "last_check")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if ok {
		t.Error("Expected no value for missing file")
	}
}

func TestSetReplacesWholeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "state", "last_check.txt")
	kv, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	ctx := context.Background()

	if err := kv.Set(ctx, "last_check", "2024-01-01 00:00 with a longer tail"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := kv.Set(ctx, "last_check", "2024-01-02 00:00"); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "2024-01-02 00:00" {
		t.Errorf("Expected file to be overwritten in full, got %q", string(data))
	}

	// No temp files should be left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("Expected only the checkpoint file, found %v", names)
	}
}

func TestGetTrimsNewline(t *testing.T) {
	path := filepath.Join(t.TempDir(), "last_check.txt")
	if err := os.WriteFile(path, []byte("2024-01-01 00:00\n"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	kv, err := New(path)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	value, ok, err := kv.Get(context.Background(), "last_check")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if value != "2024-01-01 00:00" {
		t.Errorf("Expected trimmed value, got %q", value)
	}
}
