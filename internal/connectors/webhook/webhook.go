// Package webhook delivers notifications to an incoming-webhook URL.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fentz26/issuewatch/internal/connectors"
	"github.com/fentz26/issuewatch/internal/models"
)

// Webhook posts {"text": ...} to a URL, the payload shape Slack, Mattermost
// and Teams incoming webhooks all accept.
type Webhook struct {
	url    string
	client *http.Client
}

// New creates a Webhook sink.
func New(url string, timeout time.Duration) *Webhook {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Name returns the sink identifier.
func (w *Webhook) Name() string {
	return "webhook"
}

type payload struct {
	Text string `json:"text"`
}

// Send posts one message. Any 2xx response counts as delivered.
func (w *Webhook) Send(ctx context.Context, msg models.Notification) error {
	body, err := json.Marshal(payload{Text: msg.Text})
	if err != nil {
		return fmt.Errorf("%w: encode payload: %v", connectors.ErrDeliveryFailed, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: create request: %v", connectors.ErrDeliveryFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", connectors.ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("%w: webhook status %d: %s", connectors.ErrDeliveryFailed, resp.StatusCode, string(respBody))
	}
	return nil
}
