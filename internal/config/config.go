// Package config loads the issuewatch configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/fentz26/issuewatch/internal/connectors/chat"
	"github.com/fentz26/issuewatch/internal/connectors/jira"
	"github.com/fentz26/issuewatch/internal/models"
	"github.com/fentz26/issuewatch/internal/scheduler"
)

// ErrInvalid is returned when the configuration fails validation.
var ErrInvalid = errors.New("invalid configuration")

// Sink kinds.
const (
	SinkChat    = "chat"
	SinkWebhook = "webhook"
	SinkRedis   = "redis"
	SinkLog     = "log"
	SinkExec    = "exec"
)

// Checkpoint backends.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ISSUEWATCH_"

// Config holds the issuewatch configuration.
type Config struct {
	Tracker    TrackerConfig    `yaml:"tracker"`
	Query      QueryConfig      `yaml:"query"`
	Chat       ChatConfig       `yaml:"chat"`
	Checkpoint CheckpointConfig `yaml:"checkpoint"`
	Redis      RedisConfig      `yaml:"redis"`
	Status     StatusConfig     `yaml:"status"`
	Log        LogConfig        `yaml:"log"`
}

// TrackerConfig describes the issue tracker connection.
type TrackerConfig struct {
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// CACert is an optional PEM bundle for trackers behind a private CA.
	CACert            string        `yaml:"ca_cert"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
}

// QueryConfig selects the issues to notify about.
type QueryConfig struct {
	Project    string        `yaml:"project"`
	IssueTypes []string      `yaml:"issue_types"`
	MaxResults int           `yaml:"max_results"`
	Interval   time.Duration `yaml:"interval"`
}

// UnmarshalYAML decodes interval with ParseInterval, so "interval: 60" means
// sixty seconds like the environment override and the --interval flag.
func (q *QueryConfig) UnmarshalYAML(value *yaml.Node) error {
	raw := struct {
		Project    string    `yaml:"project"`
		IssueTypes []string  `yaml:"issue_types"`
		MaxResults int       `yaml:"max_results"`
		Interval   yaml.Node `yaml:"interval"`
	}{
		Project:    q.Project,
		IssueTypes: q.IssueTypes,
		MaxResults: q.MaxResults,
	}
	if err := value.Decode(&raw); err != nil {
		return err
	}

	q.Project = raw.Project
	q.IssueTypes = raw.IssueTypes
	q.MaxResults = raw.MaxResults
	if raw.Interval.Kind == 0 {
		return nil
	}
	if raw.Interval.Kind != yaml.ScalarNode {
		return fmt.Errorf("%w: query.interval must be a number of seconds or a duration", ErrInvalid)
	}
	d, err := ParseInterval(raw.Interval.Value)
	if err != nil {
		return fmt.Errorf("%w: query.interval: %v", ErrInvalid, err)
	}
	q.Interval = d
	return nil
}

// ChatConfig describes where notifications go.
type ChatConfig struct {
	// Kind is one of chat, webhook, redis, log, exec.
	Kind     string `yaml:"kind"`
	URL      string `yaml:"url"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	// Invite identifies the channel to join.
	Invite     string `yaml:"invite"`
	WebhookURL string `yaml:"webhook_url"`
	// Template overrides the default message layout.
	Template string `yaml:"template"`
	// RedisKey is the list notifications are pushed onto.
	RedisKey string `yaml:"redis_key"`
	// Command receives each message on stdin. The first element is the binary.
	Command []string      `yaml:"command"`
	Timeout time.Duration `yaml:"timeout"`
}

// CheckpointConfig selects the checkpoint backend.
type CheckpointConfig struct {
	Backend string `yaml:"backend"`
	Path    string `yaml:"path"`
	DBPath  string `yaml:"db_path"`
}

// RedisConfig is shared by the redis checkpoint backend and the redis sink.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// StatusConfig controls the optional status server.
type StatusConfig struct {
	// Listen is the address to serve on. Empty disables the server.
	Listen string `yaml:"listen"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Dir returns the default state directory, ~/.issuewatch.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".issuewatch"
	}
	return filepath.Join(home, ".issuewatch")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	sched := scheduler.DefaultConfig()
	dir := Dir()
	return &Config{
		Tracker: TrackerConfig{
			Timeout:           30 * time.Second,
			RequestsPerSecond: 2,
		},
		Query: QueryConfig{
			IssueTypes: sched.Filter.IssueTypes,
			MaxResults: sched.Filter.MaxResults,
			Interval:   sched.Interval,
		},
		Chat: ChatConfig{
			Kind:     SinkChat,
			RedisKey: "issuewatch:notifications",
			Timeout:  30 * time.Second,
		},
		Checkpoint: CheckpointConfig{
			Backend: BackendFile,
			Path:    filepath.Join(dir, "last_check.txt"),
			DBPath:  filepath.Join(dir, "issuewatch.db"),
		},
		Redis: RedisConfig{
			Addr:   "localhost:6379",
			Prefix: "issuewatch",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load reads the config file at path, applies environment overrides and
// validates the result. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := cfg.applyEnv(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) error {
	str := func(name string, dst *string) {
		if v := getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}

	str("TRACKER_URL", &c.Tracker.URL)
	str("TRACKER_USERNAME", &c.Tracker.Username)
	str("TRACKER_PASSWORD", &c.Tracker.Password)
	str("TRACKER_CA_CERT", &c.Tracker.CACert)
	str("PROJECT", &c.Query.Project)
	str("CHAT_KIND", &c.Chat.Kind)
	str("CHAT_URL", &c.Chat.URL)
	str("CHAT_USERNAME", &c.Chat.Username)
	str("CHAT_PASSWORD", &c.Chat.Password)
	str("CHAT_INVITE", &c.Chat.Invite)
	str("WEBHOOK_URL", &c.Chat.WebhookURL)
	str("CHECKPOINT_BACKEND", &c.Checkpoint.Backend)
	str("CHECKPOINT_PATH", &c.Checkpoint.Path)
	str("DB_PATH", &c.Checkpoint.DBPath)
	str("REDIS_ADDR", &c.Redis.Addr)
	str("REDIS_PASSWORD", &c.Redis.Password)
	str("STATUS_LISTEN", &c.Status.Listen)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	if v := getenv(EnvPrefix + "ISSUE_TYPES"); v != "" {
		c.Query.IssueTypes = splitList(v)
	}
	if v := getenv(EnvPrefix + "MAX_RESULTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %sMAX_RESULTS: %v", ErrInvalid, EnvPrefix, err)
		}
		c.Query.MaxResults = n
	}
	if v := getenv(EnvPrefix + "INTERVAL"); v != "" {
		d, err := ParseInterval(v)
		if err != nil {
			return fmt.Errorf("%w: %sINTERVAL: %v", ErrInvalid, EnvPrefix, err)
		}
		c.Query.Interval = d
	}
	return nil
}

// ParseInterval accepts a Go duration ("90s", "2m") or a bare number of seconds.
func ParseInterval(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Tracker.URL == "" {
		return fmt.Errorf("%w: tracker.url is required", ErrInvalid)
	}
	if c.Query.Project == "" {
		return fmt.Errorf("%w: query.project is required", ErrInvalid)
	}
	if len(c.Query.IssueTypes) == 0 {
		return fmt.Errorf("%w: query.issue_types must not be empty", ErrInvalid)
	}
	if c.Query.MaxResults <= 0 {
		return fmt.Errorf("%w: query.max_results must be positive", ErrInvalid)
	}
	if c.Query.Interval <= 0 {
		return fmt.Errorf("%w: query.interval must be positive", ErrInvalid)
	}

	switch c.Chat.Kind {
	case SinkChat:
		if c.Chat.URL == "" || c.Chat.Invite == "" {
			return fmt.Errorf("%w: chat.url and chat.invite are required for kind %q", ErrInvalid, SinkChat)
		}
	case SinkWebhook:
		if c.Chat.WebhookURL == "" {
			return fmt.Errorf("%w: chat.webhook_url is required for kind %q", ErrInvalid, SinkWebhook)
		}
	case SinkRedis:
		if c.Chat.RedisKey == "" {
			return fmt.Errorf("%w: chat.redis_key is required for kind %q", ErrInvalid, SinkRedis)
		}
	case SinkExec:
		if len(c.Chat.Command) == 0 {
			return fmt.Errorf("%w: chat.command is required for kind %q", ErrInvalid, SinkExec)
		}
	case SinkLog:
	default:
		return fmt.Errorf("%w: unknown chat.kind %q", ErrInvalid, c.Chat.Kind)
	}

	switch c.Checkpoint.Backend {
	case BackendFile:
		if c.Checkpoint.Path == "" {
			return fmt.Errorf("%w: checkpoint.path is required", ErrInvalid)
		}
	case BackendSQLite:
		if c.Checkpoint.DBPath == "" {
			return fmt.Errorf("%w: checkpoint.db_path is required", ErrInvalid)
		}
	case BackendRedis:
	default:
		return fmt.Errorf("%w: unknown checkpoint.backend %q", ErrInvalid, c.Checkpoint.Backend)
	}

	if (c.Checkpoint.Backend == BackendRedis || c.Chat.Kind == SinkRedis) && c.Redis.Addr == "" {
		return fmt.Errorf("%w: redis.addr is required", ErrInvalid)
	}

	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: unknown log.format %q", ErrInvalid, c.Log.Format)
	}
	return nil
}

// Scheduler returns the scheduler configuration.
func (c *Config) Scheduler() *scheduler.Config {
	return &scheduler.Config{
		Interval: c.Query.Interval,
		Filter: models.Filter{
			Project:    c.Query.Project,
			IssueTypes: c.Query.IssueTypes,
			MaxResults: c.Query.MaxResults,
		},
	}
}

// Jira returns the tracker client configuration.
func (c *Config) Jira() jira.Config {
	return jira.Config{
		BaseURL:           c.Tracker.URL,
		Username:          c.Tracker.Username,
		Password:          c.Tracker.Password,
		CACert:            c.Tracker.CACert,
		Timeout:           c.Tracker.Timeout,
		RequestsPerSecond: c.Tracker.RequestsPerSecond,
	}
}

// ChatCredentials returns the chat login parameters.
func (c *Config) ChatCredentials() chat.Credentials {
	return chat.Credentials{
		BaseURL:  c.Chat.URL,
		Username: c.Chat.Username,
		Password: c.Chat.Password,
		Timeout:  c.Chat.Timeout,
	}
}
