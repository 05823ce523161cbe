package catalog

import (
	"fmt"
	"strings"
)

// Kind identifies a declared base type or a composition wrapper.
type Kind int

const (
	// KindInt is a 32-bit signed integer
	KindInt Kind = iota
	// KindBigInt is a 64-bit signed integer
	KindBigInt
	// KindSmallInt is a 16-bit signed integer
	KindSmallInt
	// KindDecimal is an arbitrary-precision decimal, carried as its text payload
	KindDecimal
	// KindText is a variable-length string
	KindText
	// KindBool is a boolean
	KindBool
	// KindTimestamp is a timestamp without time zone
	KindTimestamp
	// KindTimestampTZ is a timestamp with time zone
	KindTimestampTZ
	// KindUUID is a universally unique identifier
	KindUUID
	// KindNullable wraps another type and admits NULL
	KindNullable
	// KindSequence wraps another type as an ordered collection
	KindSequence
)

// String returns the declared spelling of the kind
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindBigInt:
		return "bigint"
	case KindSmallInt:
		return "smallint"
	case KindDecimal:
		return "decimal"
	case KindText:
		return "text"
	case KindBool:
		return "bool"
	case KindTimestamp:
		return "timestamp"
	case KindTimestampTZ:
		return "timestamptz"
	case KindUUID:
		return "uuid"
	case KindNullable:
		return "nullable"
	case KindSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// Type is the declared, SQL-facing type of a query parameter or result
// column. Base types are leaves; nullable<T> and sequence<T> compose.
type Type struct {
	Kind Kind
	Elem *Type // set only for nullable and sequence
}

// String renders the type in its declared spelling, e.g. "nullable<int>"
func (t Type) String() string {
	if t.Elem != nil {
		return fmt.Sprintf("%s<%s>", t.Kind, t.Elem)
	}
	return t.Kind.String()
}

// baseKinds maps declared spellings to their kinds
var baseKinds = map[string]Kind{
	"int":         KindInt,
	"bigint":      KindBigInt,
	"smallint":    KindSmallInt,
	"decimal":     KindDecimal,
	"text":        KindText,
	"bool":        KindBool,
	"timestamp":   KindTimestamp,
	"timestamptz": KindTimestampTZ,
	"uuid":        KindUUID,
}

// ParseType parses a declared type spelling into a Type. Compositions
// nest arbitrarily, e.g. "sequence<nullable<int>>".
func ParseType(s string) (Type, error) {
	s = strings.TrimSpace(s)

	if inner, ok := unwrap(s, "nullable"); ok {
		elem, err := ParseType(inner)
		if err != nil {
			return Type{}, err
		}
		if elem.Kind == KindNullable {
			return Type{}, fmt.Errorf("%w: %q (nullable cannot wrap nullable)", ErrUnknownType, s)
		}
		return Type{Kind: KindNullable, Elem: &elem}, nil
	}

	if inner, ok := unwrap(s, "sequence"); ok {
		elem, err := ParseType(inner)
		if err != nil {
			return Type{}, err
		}
		return Type{Kind: KindSequence, Elem: &elem}, nil
	}

	if kind, ok := baseKinds[s]; ok {
		return Type{Kind: kind}, nil
	}

	return Type{}, fmt.Errorf("%w: %q", ErrUnknownType, s)
}

// MustParseType parses a declared type spelling and panics on failure.
// Intended for static declarations that are covered by tests.
func MustParseType(s string) Type {
	t, err := ParseType(s)
	if err != nil {
		panic(err)
	}
	return t
}

// unwrap strips "wrapper<...>" and returns the inner spelling
func unwrap(s, wrapper string) (string, bool) {
	if strings.HasPrefix(s, wrapper+"<") && strings.HasSuffix(s, ">") {
		return s[len(wrapper)+1 : len(s)-1], true
	}
	return "", false
}
