package logsink

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/fentz26/issuewatch/internal/models"
)

func TestSend_LogsMessage(t *testing.T) {
	var buf bytes.Buffer
	sink := New(slog.New(slog.NewTextHandler(&buf, nil)))

	err := sink.Send(context.Background(), models.Notification{IssueKey: "PRJ-1", Text: "[PRJ-1] Login broken"})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "PRJ-1") || !strings.Contains(out, "Login broken") {
		t.Errorf("Expected issue key and text in log output, got %q", out)
	}
	if sink.Name() != "log" {
		t.Errorf("Expected name 'log', got %q", sink.Name())
	}
}
