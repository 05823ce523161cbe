package query

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
)

// Rows is the minimal forward-only view of a query result this package
// consumes. jackc/pgx rows satisfy it directly; database/sql rows are
// adapted by StdQuerier.
type Rows interface {
	Next() bool
	Values() ([]any, error)
	Err() error
	Close()
}

// Querier is the database collaborator boundary: something that can run
// one SQL statement with encoded positional parameters. Connections,
// pools and transactions all satisfy it through the adapters below; the
// compiler never speaks the wire protocol itself.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (Rows, error)
}

// PgxConn is the subset of pgx connection behavior the adapter needs.
// *pgx.Conn, pgxpool.Conn, pgxpool.Pool and pgx.Tx all satisfy it.
type PgxConn interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type pgxQuerier struct {
	conn PgxConn
}

// NewPgxQuerier adapts a pgx connection, pool or transaction
func NewPgxQuerier(conn PgxConn) Querier {
	return &pgxQuerier{conn: conn}
}

func (q *pgxQuerier) Query(ctx context.Context, sqlText string, args ...any) (Rows, error) {
	rows, err := q.conn.Query(ctx, sqlText, args...)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return rows, nil
}

// StdConn is the subset of database/sql behavior the adapter needs.
// *sql.DB, *sql.Conn and *sql.Tx all satisfy it.
type StdConn interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type stdQuerier struct {
	conn StdConn
}

// NewStdQuerier adapts a database/sql handle
func NewStdQuerier(conn StdConn) Querier {
	return &stdQuerier{conn: conn}
}

func (q *stdQuerier) Query(ctx context.Context, sqlText string, args ...any) (Rows, error) {
	rows, err := q.conn.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, ConvertDBError(err)
	}
	return &stdRows{rows: rows}, nil
}

// stdRows adapts *sql.Rows to the Rows interface by scanning every
// column into an untyped holder, the way a generic result walk must.
type stdRows struct {
	rows *sql.Rows
	err  error
}

func (r *stdRows) Next() bool {
	return r.rows.Next()
}

func (r *stdRows) Values() ([]any, error) {
	cols, err := r.rows.Columns()
	if err != nil {
		return nil, err
	}

	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}

	if err := r.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	return values, nil
}

func (r *stdRows) Err() error {
	if r.err != nil {
		return r.err
	}
	return r.rows.Err()
}

func (r *stdRows) Close() {
	r.err = r.rows.Close()
}
