package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// OperationTimer times individual record-store operations. It is
// transparent to control flow: callers see the wrapped function's exact
// success or failure, only metrics differ.
type OperationTimer struct {
	reg     *Registry
	service string
	logger  *slog.Logger
}

// NewOperationTimer registers the operation latency distribution and the
// shared error counter.
func NewOperationTimer(reg *Registry, service string, logger *slog.Logger) (*OperationTimer, error) {
	for _, d := range []Decl{DBOperationDuration, ErrorsTotal} {
		if err := reg.Register(d); err != nil {
			return nil, fmt.Errorf("register %s: %w", d.Name, err)
		}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OperationTimer{reg: reg, service: service, logger: logger}, nil
}

// Time runs fn and records its elapsed time into the (operation, table)
// latency distribution on every exit path. On failure it additionally
// counts a database_error for the calling endpoint and returns the original
// error unchanged.
func (t *OperationTimer) Time(ctx context.Context, operation, table string, fn func(context.Context) error) (err error) {
	start := time.Now()
	defer func() {
		elapsed := time.Since(start).Seconds()
		if obsErr := t.reg.Observe(DBOperationDuration.Name, elapsed, operation, table); obsErr != nil {
			t.logger.Warn("dropping operation latency observation", "operation", operation, "error", obsErr)
		}
		if err != nil {
			endpoint := EndpointFromContext(ctx)
			if incErr := t.reg.Inc(ErrorsTotal.Name, 1, endpoint, "database_error", t.service); incErr != nil {
				t.logger.Warn("dropping operation error count", "operation", operation, "error", incErr)
			}
		}
	}()

	err = fn(ctx)
	return err
}
