// Package scheduler runs the polling loop: one check cycle per interval
// until the stop signal is raised.
package scheduler

import (
	"time"

	"github.com/fentz26/issuewatch/internal/models"
)

// Config defines the scheduler configuration.
type Config struct {
	// Interval is the pause between the end of one cycle and the start of the next.
	Interval time.Duration `yaml:"interval"`
	// Filter selects the issues to notify about.
	Filter models.Filter `yaml:"filter"`
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() *Config {
	return &Config{
		Interval: 60 * time.Second,
		Filter: models.Filter{
			IssueTypes: []string{"Bug"},
			MaxResults: 50,
		},
	}
}
