package query

import (
	"fmt"
)

// Cursor is the lazy result of a cardinality-many query: a finite,
// forward-only, single-pass sequence of records. It is not restartable;
// advancing a cursor that has already been fully consumed is a
// programming error and panics rather than silently re-querying.
type Cursor struct {
	compiled *Compiled
	rows     Rows

	current  Record
	err      error
	consumed bool
	closed   bool
}

func newCursor(c *Compiled, rows Rows) *Cursor {
	return &Cursor{compiled: c, rows: rows}
}

// Next advances to the next record, returning false when the sequence
// is exhausted or an error occurred. Check Err after Next returns false.
func (cur *Cursor) Next() bool {
	if cur.consumed {
		panic(fmt.Sprintf("query %q: cursor already consumed; a many-cardinality result is single-pass", cur.compiled.Name()))
	}
	if cur.err != nil {
		return false
	}

	if !cur.rows.Next() {
		cur.finish()
		return false
	}

	raw, err := cur.rows.Values()
	if err != nil {
		cur.err = fmt.Errorf("query %q: %w", cur.compiled.Name(), ConvertDBError(err))
		cur.finish()
		return false
	}

	rec, err := cur.compiled.decodeRow(raw)
	if err != nil {
		cur.err = err
		cur.finish()
		return false
	}

	cur.current = rec
	return true
}

// Record returns the record produced by the last successful Next
func (cur *Cursor) Record() Record {
	return cur.current
}

// Err returns the first error encountered while iterating
func (cur *Cursor) Err() error {
	if cur.err != nil {
		return cur.err
	}
	if cur.rows != nil {
		return cur.rows.Err()
	}
	return nil
}

// Close releases the underlying rows. Safe to call more than once;
// always call it when abandoning a cursor early.
func (cur *Cursor) Close() {
	if !cur.closed {
		cur.closed = true
		cur.rows.Close()
	}
}

// finish marks the cursor consumed and releases the rows
func (cur *Cursor) finish() {
	cur.consumed = true
	cur.Close()
}
