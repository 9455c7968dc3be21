package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProbe(maxAttempts int) (*Probe, *[]time.Duration) {
	p := NewProbe(maxAttempts, 5*time.Second)
	slept := &[]time.Duration{}
	p.sleep = func(ctx context.Context, d time.Duration) bool {
		*slept = append(*slept, d)
		return true
	}
	return p, slept
}

func TestProbeInitialState(t *testing.T) {
	p := NewProbe(0, 0)
	assert.Equal(t, StatePending, p.State())
}

func TestProbeSucceedsAfterTransientFailures(t *testing.T) {
	p, slept := newTestProbe(5)

	attempts := 0
	err := p.Run(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts <= 2 {
			return errors.New("connection refused")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, StateConnected, p.State())
	assert.Equal(t, 3, attempts)
	// One fixed-length delay after each of the two failures.
	assert.Equal(t, []time.Duration{5 * time.Second, 5 * time.Second}, *slept)
}

func TestProbeExhaustsAttempts(t *testing.T) {
	p, slept := newTestProbe(5)

	dialErr := errors.New("no route to host")
	attempts := 0
	err := p.Run(context.Background(), func(ctx context.Context) error {
		attempts++
		return dialErr
	})

	require.Error(t, err)
	require.ErrorIs(t, err, dialErr, "the last dial error must be reported")
	assert.Equal(t, StateFailed, p.State())
	assert.Equal(t, 5, attempts, "exactly maxAttempts dials, no more")
	// No delay after the final failed attempt.
	assert.Len(t, *slept, 4)
}

func TestProbeFirstAttemptImmediate(t *testing.T) {
	p, slept := newTestProbe(5)

	err := p.Run(context.Background(), func(ctx context.Context) error {
		return nil
	})

	require.NoError(t, err)
	assert.Empty(t, *slept, "a first-attempt success must not sleep")
}

func TestProbeCancelledDuringDelay(t *testing.T) {
	p := NewProbe(5, 5*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	p.sleep = func(ctx context.Context, d time.Duration) bool {
		cancel()
		return false
	}

	attempts := 0
	err := p.Run(ctx, func(ctx context.Context) error {
		attempts++
		return errors.New("connection refused")
	})

	require.Error(t, err)
	assert.Equal(t, StateFailed, p.State())
	assert.Equal(t, 1, attempts)
}

func TestProbeStateString(t *testing.T) {
	assert.Equal(t, "pending", StatePending.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "failed", StateFailed.String())
}
