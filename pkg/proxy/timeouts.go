package proxy

import "time"

// TimeoutConfig carries the layered timeout regime for upstream calls.
type TimeoutConfig struct {
	// FirstByte is the maximum time between issuing a streaming request
	// and receiving response headers.
	FirstByte time.Duration

	// Idle is the maximum time between consecutive chunks of a streaming
	// response.
	Idle time.Duration

	// NonStream is the total deadline for buffered requests, covering the
	// upstream call and the full body read.
	NonStream time.Duration
}

// DefaultTimeouts returns the timeout regime used when the settings store
// is unreadable.
func DefaultTimeouts() TimeoutConfig {
	return TimeoutConfig{
		FirstByte: 30 * time.Second,
		Idle:      60 * time.Second,
		NonStream: 120 * time.Second,
	}
}

// TimeoutsFromSeconds builds a TimeoutConfig from the three stored values.
// Non-positive values fall back to their defaults.
func TimeoutsFromSeconds(firstByte, idle, nonStream int64) TimeoutConfig {
	cfg := DefaultTimeouts()

	if firstByte > 0 {
		cfg.FirstByte = time.Duration(firstByte) * time.Second
	}
	if idle > 0 {
		cfg.Idle = time.Duration(idle) * time.Second
	}
	if nonStream > 0 {
		cfg.NonStream = time.Duration(nonStream) * time.Second
	}

	return cfg
}
