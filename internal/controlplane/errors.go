package controlplane

import "errors"

// Sentinel errors for status server operations.
var (
	ErrNoListenAddr = errors.New("status server listen address is empty")
	ErrBackendDown  = errors.New("checkpoint backend unreachable")
)
