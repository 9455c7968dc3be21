package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOperationTimerSuccess(t *testing.T) {
	reg := NewRegistry(nil)
	timer, err := NewOperationTimer(reg, "attendance", nil)
	require.NoError(t, err)

	called := false
	err = timer.Time(context.Background(), "create", "attendance", func(ctx context.Context) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)

	mf := findFamily(t, reg, DBOperationDuration.Name)
	require.NotNil(t, mf)
	require.Len(t, mf.GetMetric(), 1)
	assert.Equal(t, uint64(1), mf.GetMetric()[0].GetHistogram().GetSampleCount())

	// A successful operation counts no errors.
	errs := findFamily(t, reg, ErrorsTotal.Name)
	if errs != nil {
		assert.Empty(t, errs.GetMetric())
	}
}

func TestOperationTimerErrorTransparency(t *testing.T) {
	reg := NewRegistry(nil)
	timer, err := NewOperationTimer(reg, "attendance", nil)
	require.NoError(t, err)

	boom := errors.New("connection reset")
	ctx := WithEndpoint(context.Background(), "/attendance")

	got := timer.Time(ctx, "list", "attendance", func(ctx context.Context) error {
		return boom
	})
	assert.Same(t, boom, got, "the wrapped error must pass through unchanged")

	// The failed run is still timed.
	mf := findFamily(t, reg, DBOperationDuration.Name)
	require.NotNil(t, mf)
	assert.Equal(t, uint64(1), mf.GetMetric()[0].GetHistogram().GetSampleCount())

	errs := findFamily(t, reg, ErrorsTotal.Name)
	require.NotNil(t, errs)
	require.Len(t, errs.GetMetric(), 1)
	series := errs.GetMetric()[0]
	assert.Equal(t, 1.0, series.GetCounter().GetValue())

	labels := map[string]string{}
	for _, l := range series.GetLabel() {
		labels[l.GetName()] = l.GetValue()
	}
	assert.Equal(t, "/attendance", labels["endpoint"])
	assert.Equal(t, "database_error", labels["error_type"])
	assert.Equal(t, "attendance", labels["service"])
}

func TestOperationTimerUnknownEndpoint(t *testing.T) {
	reg := NewRegistry(nil)
	timer, err := NewOperationTimer(reg, "attendance", nil)
	require.NoError(t, err)

	// No endpoint in the context: the error still counts, under the
	// sentinel label.
	got := timer.Time(context.Background(), "delete", "attendance", func(ctx context.Context) error {
		return errors.New("timeout")
	})
	require.Error(t, got)

	errs := findFamily(t, reg, ErrorsTotal.Name)
	require.NotNil(t, errs)
	require.Len(t, errs.GetMetric(), 1)
	assert.Equal(t, EndpointUnknown, errs.GetMetric()[0].GetLabel()[0].GetValue())
}
