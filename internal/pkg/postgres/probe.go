package postgres

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// ProbeState is the readiness probe's lifecycle state.
type ProbeState int32

const (
	StatePending ProbeState = iota
	StateConnected
	StateFailed
)

func (s ProbeState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Probe attempts to establish a store connection at startup, retrying a
// bounded number of times with a fixed delay between attempts. Exhausting
// the attempts is terminal: the owning process must not begin serving.
type Probe struct {
	maxAttempts int
	delay       time.Duration
	state       atomic.Int32

	// sleep waits for the retry delay or context cancellation; replaced in
	// tests.
	sleep func(ctx context.Context, d time.Duration) bool
}

// NewProbe creates a probe in the Pending state. Non-positive arguments
// select the defaults (5 attempts, 5 second delay).
func NewProbe(maxAttempts int, delay time.Duration) *Probe {
	if maxAttempts <= 0 {
		maxAttempts = 5
	}
	if delay <= 0 {
		delay = 5 * time.Second
	}
	return &Probe{
		maxAttempts: maxAttempts,
		delay:       delay,
		sleep:       sleep,
	}
}

// State returns the probe's current state.
func (p *Probe) State() ProbeState {
	return ProbeState(p.state.Load())
}

// Run calls dial until it succeeds or the attempt budget is spent. The
// first success transitions to Connected and returns nil; exhaustion
// transitions to Failed and returns the last dial error.
func (p *Probe) Run(ctx context.Context, dial func(context.Context) error) error {
	var lastErr error

	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		err := dial(ctx)
		if err == nil {
			p.state.Store(int32(StateConnected))
			slog.Info("store connection established", "attempts", attempt)
			return nil
		}

		lastErr = err
		slog.Warn("store connection attempt failed",
			"attempt", attempt,
			"max_attempts", p.maxAttempts,
			"delay", p.delay,
			"error", err,
		)

		if attempt < p.maxAttempts {
			if !p.sleep(ctx, p.delay) {
				p.state.Store(int32(StateFailed))
				return fmt.Errorf("connection cancelled: %w", ctx.Err())
			}
		}
	}

	p.state.Store(int32(StateFailed))
	return fmt.Errorf("connect to store after %d attempts: %w", p.maxAttempts, lastErr)
}

// sleep waits for duration or context cancellation. Returns false if cancelled.
func sleep(ctx context.Context, d time.Duration) bool {
	select {
	case <-time.After(d):
		return true
	case <-ctx.Done():
		return false
	}
}
