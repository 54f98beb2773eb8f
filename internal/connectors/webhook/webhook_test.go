package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fentz26/issuewatch/internal/connectors"
	"github.com/fentz26/issuewatch/internal/models"
)

func TestSend_PostsText(t *testing.T) {
	var got payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("Expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Expected JSON content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("Failed to decode body: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := New(srv.URL, 0)
	if err := sink.Send(context.Background(), models.Notification{IssueKey: "PRJ-1", Text: "hello"}); err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if got.Text != "hello" {
		t.Errorf("Expected text 'hello', got %q", got.Text)
	}
}

func TestSend_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	err := New(srv.URL, 0).Send(context.Background(), models.Notification{Text: "x"})
	if !errors.Is(err, connectors.ErrDeliveryFailed) {
		t.Fatalf("Expected ErrDeliveryFailed, got %v", err)
	}
}

func TestSend_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	err := New(url, 0).Send(context.Background(), models.Notification{Text: "x"})
	if !errors.Is(err, connectors.ErrDeliveryFailed) {
		t.Fatalf("Expected ErrDeliveryFailed, got %v", err)
	}
}
