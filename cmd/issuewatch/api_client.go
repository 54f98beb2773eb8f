package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fentz26/issuewatch/internal/controlplane"
)

// DefaultClientTimeout is the default timeout for status requests.
const DefaultClientTimeout = 10 * time.Second

// apiClient is the shared HTTP client with timeout.
var apiClient = &http.Client{
	Timeout: DefaultClientTimeout,
}

// baseURL turns a listen address such as ":7466" into a URL.
func baseURL(addr string) string {
	if strings.HasPrefix(addr, "http://") || strings.HasPrefix(addr, "https://") {
		return strings.TrimRight(addr, "/")
	}
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr
}

// apiGet performs a GET request against the status server.
func apiGet(addr, path string) ([]byte, error) {
	resp, err := apiClient.Get(baseURL(addr) + path)
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("status server error (%d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return body, nil
}

// CheckHealth checks whether the running poller is healthy. Unlike apiGet,
// it returns the parsed HealthResponse even on non-200 responses, so callers
// can show the payload alongside the error.
func CheckHealth(addr string) (*controlplane.HealthResponse, error) {
	resp, err := apiClient.Get(baseURL(addr) + "/health")
	if err != nil {
		return nil, fmt.Errorf("status request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var health controlplane.HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		return nil, fmt.Errorf("failed to parse health response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return &health, fmt.Errorf("health check failed (status %d): %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return &health, nil
}

// fetchStatus returns the worker status.
func fetchStatus(addr string) (*controlplane.StatusResponse, error) {
	body, err := apiGet(addr, "/status")
	if err != nil {
		return nil, err
	}
	var status controlplane.StatusResponse
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("failed to parse status response: %w", err)
	}
	return &status, nil
}
