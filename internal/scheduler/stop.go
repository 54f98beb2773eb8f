package scheduler

import "sync"

// StopSignal is a write-once shutdown event shared by the control surface
// and the worker. Once set it stays set.
type StopSignal struct {
	once sync.Once
	ch   chan struct{}
}

// NewStopSignal creates an unset StopSignal.
func NewStopSignal() *StopSignal {
	return &StopSignal{ch: make(chan struct{})}
}

// Set raises the signal. Calling it more than once is harmless.
func (s *StopSignal) Set() {
	s.once.Do(func() { close(s.ch) })
}

// Done is closed when the signal is set.
func (s *StopSignal) Done() <-chan struct{} {
	return s.ch
}

// IsSet reports whether the signal has been raised.
func (s *StopSignal) IsSet() bool {
	select {
	case <-s.ch:
		return true
	default:
		return false
	}
}
