package query

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// Build-time errors. Any of these halts startup; they never surface
// during request handling.
var (
	// ErrEmptySQL is returned when a spec declares no SQL text
	ErrEmptySQL = errors.New("empty SQL text")

	// ErrParameterCountMismatch is returned when the number of $n
	// placeholders in the SQL text does not match the declared parameters
	ErrParameterCountMismatch = errors.New("placeholder count does not match parameter count")

	// ErrDuplicateParameterName is returned when two parameters share a name
	ErrDuplicateParameterName = errors.New("duplicate parameter name")

	// ErrColumnCardinality is returned when result columns are declared
	// for cardinality none, or missing for any other cardinality
	ErrColumnCardinality = errors.New("result columns inconsistent with cardinality")
)

// Execution-time errors.
var (
	// ErrNotFound is returned by One when the query produces zero rows
	ErrNotFound = errors.New("no rows returned")

	// ErrTooMany is returned by One and Optional when the query produces
	// more than one row
	ErrTooMany = errors.New("more than one row returned")

	// ErrSchemaMismatch is returned when the declared result columns no
	// longer match the live query result. It is surfaced, never retried.
	ErrSchemaMismatch = errors.New("declared columns do not match query result")

	// ErrArgumentCount is returned when a compiled query is invoked with
	// the wrong number of arguments
	ErrArgumentCount = errors.New("wrong argument count")

	// ErrWrongCardinality is returned when an execution method is called
	// on a query compiled with a different cardinality
	ErrWrongCardinality = errors.New("method does not match query cardinality")
)

// Database constraint errors, classified from the driver.
var (
	// ErrUniqueViolation is returned when a unique constraint is violated
	ErrUniqueViolation = errors.New("unique constraint violation")

	// ErrForeignKeyViolation is returned when a foreign key constraint is violated
	ErrForeignKeyViolation = errors.New("foreign key constraint violation")

	// ErrCheckViolation is returned when a check constraint is violated
	ErrCheckViolation = errors.New("check constraint violation")

	// ErrNotNullViolation is returned when a NOT NULL constraint is violated
	ErrNotNullViolation = errors.New("not null constraint violation")

	// ErrUndefinedColumn is returned when the query references a column
	// that does not exist
	ErrUndefinedColumn = errors.New("column does not exist")
)

// BuildError wraps a build-time validation failure with the identity of
// the offending query spec.
type BuildError struct {
	Query string
	Err   error
}

// Error implements the error interface
func (e *BuildError) Error() string {
	return fmt.Sprintf("query %q: %s", e.Query, e.Err)
}

// Unwrap exposes the underlying sentinel for errors.Is checks
func (e *BuildError) Unwrap() error {
	return e.Err
}

func buildErr(name string, err error) *BuildError {
	return &BuildError{Query: name, Err: err}
}

// ConvertDBError classifies driver-level errors into the package's
// sentinel errors so callers can branch with errors.Is.
func ConvertDBError(err error) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("%w: %s", ErrUniqueViolation, pgErr.Detail)
		case "23503": // foreign_key_violation
			return fmt.Errorf("%w: %s", ErrForeignKeyViolation, pgErr.Detail)
		case "23514": // check_violation
			return fmt.Errorf("%w: %s", ErrCheckViolation, pgErr.Detail)
		case "23502": // not_null_violation
			return fmt.Errorf("%w: column %s", ErrNotNullViolation, pgErr.ColumnName)
		case "42703": // undefined_column
			return fmt.Errorf("%w: %s", ErrUndefinedColumn, pgErr.Message)
		}
	}

	return err
}

// IsNotFound returns true if the error is ErrNotFound
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsSchemaMismatch returns true if the error is ErrSchemaMismatch
func IsSchemaMismatch(err error) bool {
	return errors.Is(err, ErrSchemaMismatch)
}
