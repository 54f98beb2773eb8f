// Package checkpoint persists the boundary of already-processed issues.
//
// The checkpoint is a single timestamp stored under one key of a KV backend,
// so the file, sqlite and redis backends are interchangeable.
package checkpoint

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fentz26/issuewatch/internal/models"
)

// Key is the single key the checkpoint is stored under.
const Key = "last_check"

// ErrCorruptCheckpoint indicates the stored value cannot be parsed.
// It is never repaired automatically.
var ErrCorruptCheckpoint = errors.New("corrupt checkpoint")

// KV is a minimal key-value backend.
type KV interface {
	// Get returns the value for key. ok is false when no value is stored.
	Get(ctx context.Context, key string) (value string, ok bool, err error)

	// Set overwrites the value for key. A crash during Set must leave
	// either the old or the new value.
	Set(ctx context.Context, key, value string) error
}

// Store reads and writes the checkpoint.
type Store struct {
	kv       KV
	now      func() time.Time
	lookback time.Duration
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used to compute the default checkpoint.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLookback overrides the default lookback window.
func WithLookback(d time.Duration) Option {
	return func(s *Store) { s.lookback = d }
}

// New creates a Store on top of kv.
func New(kv KV, opts ...Option) *Store {
	s := &Store{
		kv:       kv,
		now:      time.Now,
		lookback: models.DefaultLookback,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Read returns the stored checkpoint. When nothing is stored yet, the
// default (now minus the lookback window) is persisted and returned.
func (s *Store) Read(ctx context.Context) (time.Time, error) {
	raw, ok, err := s.kv.Get(ctx, Key)
	if err != nil {
		return time.Time{}, fmt.Errorf("read checkpoint: %w", err)
	}
	if !ok {
		def := s.now().Add(-s.lookback).Truncate(time.Minute)
		if err := s.Write(ctx, def); err != nil {
			return time.Time{}, err
		}
		return def, nil
	}
	return Parse(raw)
}

// Write persists t with minute precision.
func (s *Store) Write(ctx context.Context, t time.Time) error {
	if err := s.kv.Set(ctx, Key, Format(t)); err != nil {
		return fmt.Errorf("write checkpoint: %w", err)
	}
	return nil
}

// Format renders t in the checkpoint layout.
func Format(t time.Time) string {
	return t.Format(models.CheckpointLayout)
}

// Parse parses a stored checkpoint value in local time.
func Parse(raw string) (time.Time, error) {
	t, err := time.ParseInLocation(models.CheckpointLayout, strings.TrimSpace(raw), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrCorruptCheckpoint, raw)
	}
	return t, nil
}
