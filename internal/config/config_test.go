package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const sampleYAML = `
tracker:
  url: https://jira.example.com
  username: bot
  password: secret
  requests_per_second: 2
query:
  project: PRJ
  issue_types: [Bug, Incident]
  max_results: 20
  interval: 90s
chat:
  kind: webhook
  webhook_url: http://hooks.example.com/x
checkpoint:
  backend: sqlite
  db_path: /tmp/issuewatch.db
log:
  level: debug
  format: json
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad_File(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Tracker.URL != "https://jira.example.com" {
		t.Errorf("Expected tracker url from file, got %q", cfg.Tracker.URL)
	}
	if cfg.Query.Interval != 90*time.Second {
		t.Errorf("Expected interval 90s, got %v", cfg.Query.Interval)
	}
	if len(cfg.Query.IssueTypes) != 2 || cfg.Query.IssueTypes[1] != "Incident" {
		t.Errorf("Unexpected issue types: %v", cfg.Query.IssueTypes)
	}
	if cfg.Checkpoint.Backend != BackendSQLite {
		t.Errorf("Expected sqlite backend, got %q", cfg.Checkpoint.Backend)
	}
	// Unset fields keep their defaults.
	if cfg.Tracker.Timeout != 30*time.Second {
		t.Errorf("Expected default tracker timeout, got %v", cfg.Tracker.Timeout)
	}

	sched := cfg.Scheduler()
	if sched.Filter.Project != "PRJ" || sched.Filter.MaxResults != 20 || sched.Interval != 90*time.Second {
		t.Errorf("Unexpected scheduler config: %+v", sched)
	}
	if j := cfg.Jira(); j.RequestsPerSecond != 2 || j.Username != "bot" {
		t.Errorf("Unexpected jira config: %+v", j)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	t.Setenv("ISSUEWATCH_PROJECT", "OPS")
	t.Setenv("ISSUEWATCH_ISSUE_TYPES", "Task, Bug ,")
	t.Setenv("ISSUEWATCH_INTERVAL", "15")
	t.Setenv("ISSUEWATCH_TRACKER_PASSWORD", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Query.Project != "OPS" {
		t.Errorf("Expected env project, got %q", cfg.Query.Project)
	}
	if len(cfg.Query.IssueTypes) != 2 || cfg.Query.IssueTypes[0] != "Task" || cfg.Query.IssueTypes[1] != "Bug" {
		t.Errorf("Unexpected issue types: %q", cfg.Query.IssueTypes)
	}
	if cfg.Query.Interval != 15*time.Second {
		t.Errorf("Expected 15s interval, got %v", cfg.Query.Interval)
	}
	if cfg.Tracker.Password != "from-env" {
		t.Errorf("Expected env password, got %q", cfg.Tracker.Password)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("ISSUEWATCH_TRACKER_URL", "https://jira.example.com")
	t.Setenv("ISSUEWATCH_PROJECT", "PRJ")
	t.Setenv("ISSUEWATCH_CHAT_KIND", "log")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Query.Interval != 60*time.Second {
		t.Errorf("Expected default interval, got %v", cfg.Query.Interval)
	}
	if cfg.Checkpoint.Backend != BackendFile {
		t.Errorf("Expected file backend, got %q", cfg.Checkpoint.Backend)
	}
}

func TestLoad_IntervalSeconds(t *testing.T) {
	body := strings.Replace(sampleYAML, "interval: 90s", "interval: 60", 1)
	cfg, err := Load(writeConfig(t, body))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Query.Interval != time.Minute {
		t.Errorf("Expected 60s interval, got %v", cfg.Query.Interval)
	}
	if cfg.Query.Project != "PRJ" || cfg.Query.MaxResults != 20 {
		t.Errorf("Other query fields lost: %+v", cfg.Query)
	}
}

func TestLoad_QueryKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
tracker:
  url: https://jira.example.com
query:
  project: PRJ
chat:
  kind: log
`))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	def := DefaultConfig().Query
	if cfg.Query.Interval != def.Interval || cfg.Query.MaxResults != def.MaxResults || len(cfg.Query.IssueTypes) != len(def.IssueTypes) {
		t.Errorf("Expected query defaults to survive, got %+v", cfg.Query)
	}
}

func TestLoad_BadFileInterval(t *testing.T) {
	body := strings.Replace(sampleYAML, "interval: 90s", "interval: soon", 1)
	if _, err := Load(writeConfig(t, body)); !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid, got %v", err)
	}
}

func TestLoad_BadEnvInterval(t *testing.T) {
	t.Setenv("ISSUEWATCH_INTERVAL", "soon")
	_, err := Load(writeConfig(t, sampleYAML))
	if !errors.Is(err, ErrInvalid) {
		t.Errorf("Expected ErrInvalid, got %v", err)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	if _, err := Load(writeConfig(t, "tracker: [unterminated")); err == nil {
		t.Error("Expected parse error")
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := DefaultConfig()
		cfg.Tracker.URL = "https://jira.example.com"
		cfg.Query.Project = "PRJ"
		cfg.Chat.Kind = SinkLog
		return cfg
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("Expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing project", func(c *Config) { c.Query.Project = "" }},
		{"missing tracker", func(c *Config) { c.Tracker.URL = "" }},
		{"no issue types", func(c *Config) { c.Query.IssueTypes = nil }},
		{"zero interval", func(c *Config) { c.Query.Interval = 0 }},
		{"unknown sink", func(c *Config) { c.Chat.Kind = "pager" }},
		{"chat without invite", func(c *Config) { c.Chat.Kind = SinkChat; c.Chat.URL = "http://chat" }},
		{"exec without command", func(c *Config) { c.Chat.Kind = SinkExec }},
		{"unknown backend", func(c *Config) { c.Checkpoint.Backend = "s3" }},
		{"redis without addr", func(c *Config) { c.Checkpoint.Backend = BackendRedis; c.Redis.Addr = "" }},
		{"bad level", func(c *Config) { c.Log.Level = "loud" }},
		{"bad format", func(c *Config) { c.Log.Format = "xml" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("Expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestParseInterval(t *testing.T) {
	for in, want := range map[string]time.Duration{
		"60":    time.Minute,
		" 5 ":   5 * time.Second,
		"2m":    2 * time.Minute,
		"1m30s": 90 * time.Second,
	} {
		got, err := ParseInterval(in)
		if err != nil {
			t.Errorf("ParseInterval(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseInterval(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := LogConfig{Level: "warn", Format: "json"}.NewLogger(&buf)
	if err != nil {
		t.Fatalf("Failed to build logger: %v", err)
	}

	logger.Info("hidden")
	logger.Warn("shown", "cycle_id", "abc")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("Expected a single JSON line, got %q: %v", buf.String(), err)
	}
	if entry["msg"] != "shown" || entry["cycle_id"] != "abc" {
		t.Errorf("Unexpected entry: %v", entry)
	}
}
