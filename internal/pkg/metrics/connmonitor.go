package metrics

import (
	"log/slog"
	"sync/atomic"
)

// ConnMonitor gauges the number of active record-store connections from
// connection lifecycle events. It is advisory telemetry only and takes no
// part in pool admission decisions.
type ConnMonitor struct {
	reg    *Registry
	logger *slog.Logger
	active atomic.Int64
}

// NewConnMonitor registers the connection gauge and returns a monitor ready
// to receive lifecycle events.
func NewConnMonitor(reg *Registry, logger *slog.Logger) (*ConnMonitor, error) {
	if err := reg.Register(DBConnectionsCurrent); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ConnMonitor{reg: reg, logger: logger}, nil
}

// ConnectionOpened records a newly-opened connection. Lifecycle callbacks
// may fire on arbitrary I/O goroutines; the count is atomic.
func (m *ConnMonitor) ConnectionOpened() {
	m.publish(m.active.Add(1))
}

// ConnectionClosed records a closed connection. The count is clamped at
// zero: excess close events are logged, never reflected as a negative gauge.
func (m *ConnMonitor) ConnectionClosed() {
	for {
		current := m.active.Load()
		if current <= 0 {
			m.logger.Warn("connection close without matching open, clamping count at zero")
			m.publish(0)
			return
		}
		if m.active.CompareAndSwap(current, current-1) {
			m.publish(current - 1)
			return
		}
	}
}

// Active returns the current connection count.
func (m *ConnMonitor) Active() int64 {
	return m.active.Load()
}

func (m *ConnMonitor) publish(count int64) {
	if err := m.reg.Set(DBConnectionsCurrent.Name, float64(count)); err != nil {
		m.logger.Warn("dropping connection gauge update", "error", err)
	}
}
