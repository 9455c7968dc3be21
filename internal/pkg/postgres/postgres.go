// Package postgres provides PostgreSQL connection establishment with
// readiness probing, connection lifecycle notification, and schema
// migrations.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnListener is notified of connection lifecycle events. Callbacks may
// fire on arbitrary I/O goroutines and must not block.
type ConnListener interface {
	ConnectionOpened()
	ConnectionClosed()
}

// Config contains PostgreSQL connection configuration.
type Config struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnectAttempts int
	ConnectDelay    time.Duration
}

// Connect establishes a connection pool, probing the store with a bounded
// number of fixed-delay attempts. If listener is non-nil it receives an
// event for every physical connection the pool opens or closes.
func Connect(ctx context.Context, cfg Config, listener ConnListener) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	if listener != nil {
		poolConfig.AfterConnect = func(_ context.Context, _ *pgx.Conn) error {
			listener.ConnectionOpened()
			return nil
		}
		poolConfig.BeforeClose = func(_ *pgx.Conn) {
			listener.ConnectionClosed()
		}
	}

	probe := NewProbe(cfg.ConnectAttempts, cfg.ConnectDelay)

	var pool *pgxpool.Pool
	err = probe.Run(ctx, func(ctx context.Context) error {
		p, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return err
		}
		if err := p.Ping(ctx); err != nil {
			p.Close()
			return err
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, err
	}

	return pool, nil
}
