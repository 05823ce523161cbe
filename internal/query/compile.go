package query

import (
	"context"
	"fmt"

	"github.com/gantry-web/gantry/internal/catalog"
)

// Compiled is the callable produced from a Spec. Arguments are encoded
// through the catalog in declaration order, results are decoded
// positionally into Records, and execution is delegated to an injected
// Querier. A Compiled value holds no mutable state and is safe for
// concurrent use.
type Compiled struct {
	spec    Spec
	params  []catalog.HostType
	columns []catalog.HostType
	names   []string
}

// Compile validates the spec against every build-time invariant and
// resolves all declared types through the catalog. Any failure is a
// *BuildError carrying the spec's name; compilation performs no I/O.
func Compile(spec Spec, cat *catalog.Catalog) (*Compiled, error) {
	if err := spec.validate(); err != nil {
		return nil, err
	}

	c := &Compiled{
		spec:    spec,
		params:  make([]catalog.HostType, len(spec.Params)),
		columns: make([]catalog.HostType, len(spec.Columns)),
		names:   make([]string, len(spec.Columns)),
	}

	for i, p := range spec.Params {
		host, err := cat.Resolve(p.Type)
		if err != nil {
			return nil, buildErr(spec.Name, fmt.Errorf("parameter %q: %w", p.Name, err))
		}
		c.params[i] = host
	}

	for i, col := range spec.Columns {
		host, err := cat.Resolve(col.Type)
		if err != nil {
			return nil, buildErr(spec.Name, fmt.Errorf("column %q: %w", col.Name, err))
		}
		c.columns[i] = host
		c.names[i] = col.Name
	}

	return c, nil
}

// Name returns the spec's unique name
func (c *Compiled) Name() string {
	return c.spec.Name
}

// Cardinality returns the declared cardinality
func (c *Compiled) Cardinality() Cardinality {
	return c.spec.Cardinality
}

// Record is one decoded result row. Values are stored in declared
// column order and are already host representations.
type Record struct {
	names  []string
	values []any
}

// Len returns the number of columns
func (r Record) Len() int {
	return len(r.values)
}

// Get returns the value at the declared column position
func (r Record) Get(i int) any {
	return r.values[i]
}

// Value returns the value of the named column
func (r Record) Value(name string) (any, bool) {
	for i, n := range r.names {
		if n == name {
			return r.values[i], true
		}
	}
	return nil, false
}

// ColumnValue returns the named column's value as T. It is the typed
// accessor scan functions are built from.
func ColumnValue[T any](r Record, name string) (T, error) {
	var zero T

	v, ok := r.Value(name)
	if !ok {
		return zero, fmt.Errorf("no column %q in record", name)
	}
	if v == nil {
		return zero, nil
	}

	typed, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("column %q holds %T, not %T", name, v, zero)
	}
	return typed, nil
}

// encodeArgs converts host-typed arguments into driver parameters in
// declaration order.
func (c *Compiled) encodeArgs(args []any) ([]any, error) {
	if len(args) != len(c.params) {
		return nil, fmt.Errorf("query %q: %w: got %d, want %d",
			c.spec.Name, ErrArgumentCount, len(args), len(c.params))
	}

	encoded := make([]any, len(args))
	for i, arg := range args {
		v, err := c.params[i].Encode(arg)
		if err != nil {
			return nil, fmt.Errorf("query %q: parameter %q: %w", c.spec.Name, c.spec.Params[i].Name, err)
		}
		encoded[i] = v
	}
	return encoded, nil
}

// decodeRow decodes one row of raw driver values against the declared
// columns, positionally. A column-count mismatch is ErrSchemaMismatch.
func (c *Compiled) decodeRow(raw []any) (Record, error) {
	if len(raw) != len(c.columns) {
		return Record{}, fmt.Errorf("query %q: %w: declared %d columns, result has %d",
			c.spec.Name, ErrSchemaMismatch, len(c.columns), len(raw))
	}

	values := make([]any, len(raw))
	for i, v := range raw {
		decoded, err := c.columns[i].Decode(v)
		if err != nil {
			return Record{}, fmt.Errorf("query %q: column %q: %w", c.spec.Name, c.names[i], err)
		}
		values[i] = decoded
	}
	return Record{names: c.names, values: values}, nil
}

func (c *Compiled) run(ctx context.Context, q Querier, args []any) (Rows, error) {
	encoded, err := c.encodeArgs(args)
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, c.spec.SQL, encoded...)
	if err != nil {
		return nil, fmt.Errorf("query %q: %w", c.spec.Name, err)
	}
	return rows, nil
}

func (c *Compiled) requireCardinality(method string, allowed ...Cardinality) error {
	for _, a := range allowed {
		if c.spec.Cardinality == a {
			return nil
		}
	}
	return fmt.Errorf("query %q: %w: %s called on cardinality %s",
		c.spec.Name, ErrWrongCardinality, method, c.spec.Cardinality)
}

// Exec runs a cardinality-none statement
func (c *Compiled) Exec(ctx context.Context, q Querier, args ...any) error {
	if err := c.requireCardinality("Exec", None); err != nil {
		return err
	}

	rows, err := c.run(ctx, q, args)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		// Statements declared none may still return rows (e.g. RETURNING
		// added later); drain without decoding.
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("query %q: %w", c.spec.Name, ConvertDBError(err))
	}
	return nil
}

// One runs a cardinality-one query. Zero rows is ErrNotFound, more than
// one is ErrTooMany.
func (c *Compiled) One(ctx context.Context, q Querier, args ...any) (Record, error) {
	if err := c.requireCardinality("One", One); err != nil {
		return Record{}, err
	}

	rec, found, err := c.readOne(ctx, q, args)
	if err != nil {
		return Record{}, err
	}
	if !found {
		return Record{}, fmt.Errorf("query %q: %w", c.spec.Name, ErrNotFound)
	}
	return rec, nil
}

// Optional runs a cardinality-optional-one query. Zero rows yields
// (nil, nil); more than one is ErrTooMany.
func (c *Compiled) Optional(ctx context.Context, q Querier, args ...any) (*Record, error) {
	if err := c.requireCardinality("Optional", OptionalOne); err != nil {
		return nil, err
	}

	rec, found, err := c.readOne(ctx, q, args)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &rec, nil
}

// readOne consumes at most two rows to distinguish zero, one and many
func (c *Compiled) readOne(ctx context.Context, q Querier, args []any) (Record, bool, error) {
	rows, err := c.run(ctx, q, args)
	if err != nil {
		return Record{}, false, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return Record{}, false, fmt.Errorf("query %q: %w", c.spec.Name, ConvertDBError(err))
		}
		return Record{}, false, nil
	}

	raw, err := rows.Values()
	if err != nil {
		return Record{}, false, fmt.Errorf("query %q: %w", c.spec.Name, ConvertDBError(err))
	}
	rec, err := c.decodeRow(raw)
	if err != nil {
		return Record{}, false, err
	}

	if rows.Next() {
		return Record{}, false, fmt.Errorf("query %q: %w", c.spec.Name, ErrTooMany)
	}
	if err := rows.Err(); err != nil {
		return Record{}, false, fmt.Errorf("query %q: %w", c.spec.Name, ConvertDBError(err))
	}
	return rec, true, nil
}

// Cursor runs a cardinality-many query and returns the lazy,
// single-pass cursor over its records.
func (c *Compiled) Cursor(ctx context.Context, q Querier, args ...any) (*Cursor, error) {
	if err := c.requireCardinality("Cursor", Many); err != nil {
		return nil, err
	}

	rows, err := c.run(ctx, q, args)
	if err != nil {
		return nil, err
	}
	return newCursor(c, rows), nil
}

// All runs a cardinality-many query and materializes every record. Use
// Cursor when the result should stream.
func (c *Compiled) All(ctx context.Context, q Querier, args ...any) ([]Record, error) {
	cur, err := c.Cursor(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	var out []Record
	for cur.Next() {
		out = append(out, cur.Record())
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
