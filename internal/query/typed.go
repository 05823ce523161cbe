package query

import (
	"context"
)

// Typed binds a compiled query to a scan function, producing the fully
// typed query function: arguments are the declared parameters, results
// are T values. The scan function runs once per record and sees values
// already decoded through the catalog.
type Typed[T any] struct {
	compiled *Compiled
	scan     func(Record) (T, error)
}

// Bind attaches a scan function to a compiled query
func Bind[T any](c *Compiled, scan func(Record) (T, error)) *Typed[T] {
	return &Typed[T]{compiled: c, scan: scan}
}

// Compiled returns the underlying compiled query
func (t *Typed[T]) Compiled() *Compiled {
	return t.compiled
}

// One runs a cardinality-one query and scans the single record
func (t *Typed[T]) One(ctx context.Context, q Querier, args ...any) (T, error) {
	var zero T

	rec, err := t.compiled.One(ctx, q, args...)
	if err != nil {
		return zero, err
	}
	return t.scan(rec)
}

// Optional runs a cardinality-optional-one query; nil means zero rows
func (t *Typed[T]) Optional(ctx context.Context, q Querier, args ...any) (*T, error) {
	rec, err := t.compiled.Optional(ctx, q, args...)
	if err != nil || rec == nil {
		return nil, err
	}

	v, err := t.scan(*rec)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// All runs a cardinality-many query and materializes every value
func (t *Typed[T]) All(ctx context.Context, q Querier, args ...any) ([]T, error) {
	cur, err := t.Iter(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	var out []T
	for cur.Next() {
		out = append(out, cur.Value())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Iter runs a cardinality-many query as a typed single-pass cursor
func (t *Typed[T]) Iter(ctx context.Context, q Querier, args ...any) (*Iter[T], error) {
	cur, err := t.compiled.Cursor(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	return &Iter[T]{cursor: cur, scan: t.scan}, nil
}

// Exec runs a cardinality-none statement
func (t *Typed[T]) Exec(ctx context.Context, q Querier, args ...any) error {
	return t.compiled.Exec(ctx, q, args...)
}

// Iter is the typed view over a Cursor. Like the cursor it wraps, it is
// single-pass and not restartable.
type Iter[T any] struct {
	cursor *Cursor
	scan   func(Record) (T, error)

	current T
	err     error
}

// Next advances to the next value
func (it *Iter[T]) Next() bool {
	if it.err != nil {
		return false
	}
	if !it.cursor.Next() {
		return false
	}

	v, err := it.scan(it.cursor.Record())
	if err != nil {
		it.err = err
		it.cursor.Close()
		return false
	}
	it.current = v
	return true
}

// Value returns the value produced by the last successful Next
func (it *Iter[T]) Value() T {
	return it.current
}

// Err returns the first error encountered while iterating
func (it *Iter[T]) Err() error {
	if it.err != nil {
		return it.err
	}
	return it.cursor.Err()
}

// Close releases the underlying cursor
func (it *Iter[T]) Close() {
	it.cursor.Close()
}
