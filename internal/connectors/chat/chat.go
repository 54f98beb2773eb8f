// Package chat is a client for a session-based chat service: log in, join a
// channel from an invite link, post messages to it.
package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fentz26/issuewatch/internal/connectors"
	"github.com/fentz26/issuewatch/internal/models"
)

// ErrAuthFailed indicates the chat login was rejected or unreachable.
var ErrAuthFailed = errors.New("chat login failed")

// Credentials identify the chat account used to post notifications.
type Credentials struct {
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
}

// Session is an authenticated chat session.
type Session struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// Channel is a joined chat channel. It implements connectors.Sink.
type Channel struct {
	session     *Session
	ID          string
	ChannelName string
}

var _ connectors.Sink = (*Channel)(nil)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

type joinRequest struct {
	Invite string `json:"invite"`
}

type joinResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type messageRequest struct {
	Text string `json:"text"`
}

// Login authenticates and returns a Session.
func Login(ctx context.Context, creds Credentials) (*Session, error) {
	timeout := creds.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	s := &Session{
		baseURL:    strings.TrimRight(creds.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}

	var resp loginResponse
	status, err := s.do(ctx, http.MethodPost, "/v1/login", loginRequest{
		Username: creds.Username,
		Password: creds.Password,
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	if status != http.StatusOK || resp.Token == "" {
		return nil, fmt.Errorf("%w: status %d", ErrAuthFailed, status)
	}
	s.token = resp.Token
	return s, nil
}

// OpenChannel joins the channel behind an invite link.
func (s *Session) OpenChannel(ctx context.Context, invite string) (*Channel, error) {
	var resp joinResponse
	status, err := s.do(ctx, http.MethodPost, "/v1/channels/join", joinRequest{Invite: invite}, &resp)
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if status != http.StatusOK || resp.ID == "" {
		return nil, fmt.Errorf("open channel: status %d", status)
	}
	return &Channel{session: s, ID: resp.ID, ChannelName: resp.Name}, nil
}

// Name returns the sink identifier.
func (c *Channel) Name() string {
	return "chat"
}

// Send posts one message to the channel.
func (c *Channel) Send(ctx context.Context, msg models.Notification) error {
	path := "/v1/channels/" + url.PathEscape(c.ID) + "/messages"
	status, err := c.session.do(ctx, http.MethodPost, path, messageRequest{Text: msg.Text}, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", connectors.ErrDeliveryFailed, err)
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("%w: chat status %d", connectors.ErrDeliveryFailed, status)
	}
	return nil
}

// do sends a JSON request and decodes a JSON response into out when out is
// non-nil and the status is 2xx.
func (s *Session) do(ctx context.Context, method, path string, in, out any) (int, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return 0, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode < 200 || resp.StatusCode >= 300 {
		io.Copy(io.Discard, resp.Body)
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
