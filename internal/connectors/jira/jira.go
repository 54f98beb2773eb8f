// Package jira is a thin client for the Jira REST API: cookie session
// login/logout and JQL search.
package jira

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/fentz26/issuewatch/internal/checkpoint"
	"github.com/fentz26/issuewatch/internal/models"
)

const (
	loginPath  = "/rest/auth/1/session"
	searchPath = "/rest/api/2/search"
)

// Sentinel errors for tracker operations.
var (
	ErrAuthFailed     = errors.New("tracker login failed")
	ErrQueryFailed    = errors.New("tracker query failed")
	ErrMalformedIssue = errors.New("malformed issue")
)

// Config holds connection settings for the tracker.
type Config struct {
	BaseURL  string
	Username string
	Password string
	// CACert is an optional PEM bundle trusted in addition to the system pool.
	CACert string
	// Timeout bounds each HTTP request.
	Timeout time.Duration
	// RequestsPerSecond throttles outbound requests. Zero disables throttling.
	RequestsPerSecond float64
}

// Session is an authenticated tracker session.
type Session struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Open logs into the tracker and returns a cookie-backed Session.
func Open(ctx context.Context, cfg Config) (*Session, error) {
	httpClient, err := newHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	s := &Session{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: httpClient,
		limiter:    limiter,
	}

	body, err := json.Marshal(credentials{Username: cfg.Username, Password: cfg.Password})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	resp, err := s.do(ctx, http.MethodPost, s.baseURL+loginPath, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAuthFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d: %s", ErrAuthFailed, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	return s, nil
}

func newHTTPClient(cfg Config) (*http.Client, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	client := &http.Client{Jar: jar, Timeout: timeout}

	if cfg.CACert != "" {
		pem, err := os.ReadFile(cfg.CACert)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", cfg.CACert)
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.TLSClientConfig = &tls.Config{RootCAs: pool}
		client.Transport = transport
	}
	return client, nil
}

// Close ends the tracker session.
func (s *Session) Close(ctx context.Context) error {
	resp, err := s.do(ctx, http.MethodDelete, s.baseURL+loginPath, nil)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("close session: status %d", resp.StatusCode)
	}
	return nil
}

type searchResponse struct {
	Issues []json.RawMessage `json:"issues"`
}

// ListNew returns issues matching filter created at or after since, in the
// order the tracker returns them.
func (s *Session) ListNew(ctx context.Context, since time.Time, filter models.Filter) ([]models.RawIssue, error) {
	params := url.Values{}
	params.Set("jql", BuildJQL(filter.Project, filter.IssueTypes, since))
	params.Set("maxResults", strconv.Itoa(filter.MaxResults))
	params.Set("fields", "summary,issuetype,status")

	resp, err := s.do(ctx, http.MethodGet, s.baseURL+searchPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d: %s", ErrQueryFailed, resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var result searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrQueryFailed, err)
	}
	// An empty result is "issues": []; a body without the field is not a result.
	if result.Issues == nil {
		return nil, fmt.Errorf("%w: response has no issues field", ErrQueryFailed)
	}

	issues := make([]models.RawIssue, 0, len(result.Issues))
	for _, raw := range result.Issues {
		issues = append(issues, models.RawIssue(raw))
	}
	return issues, nil
}

func (s *Session) do(ctx context.Context, method, target string, body []byte) (*http.Response, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	return resp, nil
}

// BuildJQL builds the search query:
//
//	Project = "P" AND type IN ("A", "B") AND created >= "2006-01-02 15:04"
func BuildJQL(project string, issueTypes []string, since time.Time) string {
	quoted := make([]string, len(issueTypes))
	for i, t := range issueTypes {
		quoted[i] = quote(t)
	}
	return fmt.Sprintf("Project = %s AND type IN (%s) AND created >= %s",
		quote(project), strings.Join(quoted, ", "), quote(checkpoint.Format(since)))
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	return `"` + s + `"`
}
