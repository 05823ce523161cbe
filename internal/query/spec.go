package query

import (
	"fmt"

	"github.com/gantry-web/gantry/internal/catalog"
)

// Cardinality declares how many rows a query produces.
type Cardinality int

const (
	// None declares a statement with no result rows
	None Cardinality = iota
	// One declares exactly one row; zero rows is NotFound, more is TooMany
	One
	// OptionalOne declares zero or one row; more than one is TooMany
	OptionalOne
	// Many declares any number of rows, consumed as a single-pass cursor
	Many
)

// String returns the declared spelling of the cardinality
func (c Cardinality) String() string {
	switch c {
	case None:
		return "none"
	case One:
		return "one"
	case OptionalOne:
		return "optional-one"
	case Many:
		return "many"
	default:
		return "unknown"
	}
}

// ParamDecl declares one named, typed query parameter. Parameters bind
// positionally to the $n placeholders in the SQL text.
type ParamDecl struct {
	Name string
	Type catalog.Type
}

// ColumnDecl declares one result column. Columns decode positionally
// against the driver's returned columns, not by name.
type ColumnDecl struct {
	Name string
	Type catalog.Type
}

// Param builds a ParamDecl from a declared type spelling. It panics on
// an unknown spelling; Compile re-validates every declaration, so specs
// built through Param fail at build time either way.
func Param(name, declaredType string) ParamDecl {
	return ParamDecl{Name: name, Type: catalog.MustParseType(declaredType)}
}

// Column builds a ColumnDecl from a declared type spelling
func Column(name, declaredType string) ColumnDecl {
	return ColumnDecl{Name: name, Type: catalog.MustParseType(declaredType)}
}

// Spec is the declarative description of a named SQL query: its text,
// its ordered parameters, its ordered result columns and its
// cardinality. A spec is defined once at build time, compiled into a
// callable, and never mutated afterward.
type Spec struct {
	Name        string
	SQL         string
	Params      []ParamDecl
	Columns     []ColumnDecl
	Cardinality Cardinality
}

// countPlaceholders scans the SQL text for $n positional placeholders
// and returns the highest index referenced. Repeated references to the
// same placeholder are fine; text inside single-quoted literals is
// ignored.
func countPlaceholders(sqlText string) int {
	max := 0
	inLiteral := false

	for i := 0; i < len(sqlText); i++ {
		c := sqlText[i]
		if c == '\'' {
			inLiteral = !inLiteral
			continue
		}
		if inLiteral || c != '$' {
			continue
		}

		n := 0
		j := i + 1
		for j < len(sqlText) && sqlText[j] >= '0' && sqlText[j] <= '9' {
			n = n*10 + int(sqlText[j]-'0')
			j++
		}
		if j > i+1 && n > max {
			max = n
		}
		i = j - 1
	}

	return max
}

// validate checks every build-time invariant of the spec
func (s Spec) validate() error {
	if s.SQL == "" {
		return buildErr(s.Name, ErrEmptySQL)
	}

	seen := make(map[string]bool, len(s.Params))
	for _, p := range s.Params {
		if seen[p.Name] {
			return buildErr(s.Name, fmt.Errorf("%w: %q", ErrDuplicateParameterName, p.Name))
		}
		seen[p.Name] = true
	}

	if got := countPlaceholders(s.SQL); got != len(s.Params) {
		return buildErr(s.Name, fmt.Errorf("%w: SQL references $1..$%d, %d parameters declared",
			ErrParameterCountMismatch, got, len(s.Params)))
	}

	if s.Cardinality == None && len(s.Columns) > 0 {
		return buildErr(s.Name, fmt.Errorf("%w: cardinality none declares %d columns",
			ErrColumnCardinality, len(s.Columns)))
	}
	if s.Cardinality != None && len(s.Columns) == 0 {
		return buildErr(s.Name, fmt.Errorf("%w: cardinality %s declares no columns",
			ErrColumnCardinality, s.Cardinality))
	}

	return nil
}
