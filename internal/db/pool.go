// Package db wraps the connection pool collaborator. The dispatcher's
// only obligations toward it are acquire-once-per-request and
// release-on-every-exit-path; everything else (sizing, timeouts, retry)
// belongs to the pool itself.
package db

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gantry-web/gantry/internal/query"
)

// ErrConnectionUnavailable is returned when a connection cannot be
// acquired. It is server-class and transient; the dispatcher surfaces
// it and does not retry.
var ErrConnectionUnavailable = errors.New("database connection unavailable")

// Conn is one acquired connection. It must never be shared across
// requests and must be released exactly once.
type Conn interface {
	query.Querier
	Release()
}

// Pool is the acquire side of the collaborator
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
}

// PgxPool adapts *pgxpool.Pool to the Pool interface
type PgxPool struct {
	pool *pgxpool.Pool
}

// NewPgxPool connects a pgx pool from a connection string
func NewPgxPool(ctx context.Context, url string, maxConns int32) (*PgxPool, error) {
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("invalid database URL: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PgxPool{pool: pool}, nil
}

// WrapPgxPool adapts an already-constructed pgx pool
func WrapPgxPool(pool *pgxpool.Pool) *PgxPool {
	return &PgxPool{pool: pool}
}

// Acquire checks out one connection. Failures are classified as
// ErrConnectionUnavailable so the dispatcher can map them to a
// server-class response.
func (p *PgxPool) Acquire(ctx context.Context) (Conn, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrConnectionUnavailable, err)
	}
	return &pgxConn{conn: conn, querier: query.NewPgxQuerier(conn)}, nil
}

// Close shuts the underlying pool down
func (p *PgxPool) Close() {
	p.pool.Close()
}

type pgxConn struct {
	conn    *pgxpool.Conn
	querier query.Querier
}

func (c *pgxConn) Query(ctx context.Context, sql string, args ...any) (query.Rows, error) {
	return c.querier.Query(ctx, sql, args...)
}

func (c *pgxConn) Release() {
	c.conn.Release()
}

// CountingPool decorates a Pool with an acquisition counter. Useful for
// instrumentation and for asserting that short-circuited requests never
// touch the pool.
type CountingPool struct {
	inner    Pool
	acquires atomic.Int64
}

// NewCountingPool wraps a pool with a counter
func NewCountingPool(inner Pool) *CountingPool {
	return &CountingPool{inner: inner}
}

// Acquire delegates to the wrapped pool, counting every attempt
func (p *CountingPool) Acquire(ctx context.Context) (Conn, error) {
	p.acquires.Add(1)
	return p.inner.Acquire(ctx)
}

// Acquires returns the number of acquisition attempts so far
func (p *CountingPool) Acquires() int64 {
	return p.acquires.Load()
}
