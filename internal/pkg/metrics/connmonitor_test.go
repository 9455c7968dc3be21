package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, reg *Registry, name string) float64 {
	t.Helper()
	mf := findFamily(t, reg, name)
	require.NotNil(t, mf)
	require.Len(t, mf.GetMetric(), 1)
	return mf.GetMetric()[0].GetGauge().GetValue()
}

func TestConnMonitorCounts(t *testing.T) {
	reg := NewRegistry(nil)
	mon, err := NewConnMonitor(reg, nil)
	require.NoError(t, err)

	mon.ConnectionOpened()
	mon.ConnectionOpened()
	mon.ConnectionClosed()

	assert.Equal(t, int64(1), mon.Active())
	assert.Equal(t, 1.0, gaugeValue(t, reg, DBConnectionsCurrent.Name))
}

func TestConnMonitorClampsAtZero(t *testing.T) {
	reg := NewRegistry(nil)
	mon, err := NewConnMonitor(reg, nil)
	require.NoError(t, err)

	mon.ConnectionOpened()
	mon.ConnectionOpened()
	mon.ConnectionClosed()
	mon.ConnectionClosed()
	mon.ConnectionClosed()

	assert.Equal(t, int64(0), mon.Active(), "excess closes must clamp at zero, never go negative")
	assert.Equal(t, 0.0, gaugeValue(t, reg, DBConnectionsCurrent.Name))

	// Count keeps working after a clamp.
	mon.ConnectionOpened()
	assert.Equal(t, int64(1), mon.Active())
}

func TestConnMonitorConcurrent(t *testing.T) {
	reg := NewRegistry(nil)
	mon, err := NewConnMonitor(reg, nil)
	require.NoError(t, err)

	const pairs = 200
	var wg sync.WaitGroup
	for i := 0; i < pairs; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			mon.ConnectionOpened()
		}()
		go func() {
			defer wg.Done()
			mon.ConnectionClosed()
		}()
	}
	wg.Wait()

	assert.GreaterOrEqual(t, mon.Active(), int64(0))
}
