package catalog

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// ErrUnknownType is returned when a declared type does not resolve.
// It is a build-time error: specs referencing unresolvable types must
// fail before the process starts serving.
var ErrUnknownType = errors.New("unknown declared type")

// HostType is the resolved Go-side representation of a declared type.
// It knows how to decode a raw driver column value into the host
// representation and how to encode a host value into a query parameter.
type HostType struct {
	Declared Type
	// GoName is the Go spelling of the host representation, for diagnostics
	GoName string

	decode func(raw any) (any, error)
	encode func(v any) (any, error)
}

// Decode converts a raw driver value into the host representation
func (h HostType) Decode(raw any) (any, error) {
	return h.decode(raw)
}

// Encode converts a host value into a driver-level query parameter
func (h HostType) Encode(v any) (any, error) {
	return h.encode(v)
}

// Catalog resolves declared types to host types. The recognized set is
// fixed; resolution failures are build errors, never runtime errors.
type Catalog struct {
	bases map[Kind]baseCodec
}

// baseCodec holds the conversion recipes for one base type. fromSlice
// recognizes the typed slices drivers commonly produce for array
// columns of this base type.
type baseCodec struct {
	goName    string
	decode    func(raw any) (any, error)
	encode    func(v any) (any, error)
	fromSlice func(raw any) ([]any, bool)
}

// Default returns a catalog covering the full recognized type set
func Default() *Catalog {
	return &Catalog{bases: map[Kind]baseCodec{
		KindInt:         intCodec(),
		KindBigInt:      bigIntCodec(),
		KindSmallInt:    smallIntCodec(),
		KindDecimal:     decimalCodec(),
		KindText:        textCodec(),
		KindBool:        boolCodec(),
		KindTimestamp:   timeCodec("timestamp"),
		KindTimestampTZ: timeCodec("timestamptz"),
		KindUUID:        uuidCodec(),
	}}
}

// Resolve maps a declared type to its host representation. Unknown
// kinds fail with ErrUnknownType.
func (c *Catalog) Resolve(t Type) (HostType, error) {
	switch t.Kind {
	case KindNullable:
		elem, err := c.Resolve(*t.Elem)
		if err != nil {
			return HostType{}, err
		}
		return HostType{
			Declared: t,
			GoName:   "*" + elem.GoName,
			decode: func(raw any) (any, error) {
				if raw == nil {
					return nil, nil
				}
				return elem.decode(raw)
			},
			encode: func(v any) (any, error) {
				if v == nil {
					return nil, nil
				}
				return elem.encode(v)
			},
		}, nil

	case KindSequence:
		elem, err := c.Resolve(*t.Elem)
		if err != nil {
			return HostType{}, err
		}
		var fromSlice func(any) ([]any, bool)
		if base, ok := c.bases[t.Elem.Kind]; ok {
			fromSlice = base.fromSlice
		}
		return HostType{
			Declared: t,
			GoName:   "[]" + elem.GoName,
			decode: func(raw any) (any, error) {
				items, ok := raw.([]any)
				if !ok && fromSlice != nil {
					items, ok = fromSlice(raw)
				}
				if !ok {
					return nil, decodeError(raw, t)
				}
				out := make([]any, len(items))
				for i, item := range items {
					v, err := elem.decode(item)
					if err != nil {
						return nil, fmt.Errorf("element %d: %w", i, err)
					}
					out[i] = v
				}
				return out, nil
			},
			encode: func(v any) (any, error) {
				items, ok := v.([]any)
				if !ok && fromSlice != nil {
					items, ok = fromSlice(v)
				}
				if !ok {
					return nil, encodeError(v, t)
				}
				out := make([]any, len(items))
				for i, item := range items {
					ev, err := elem.encode(item)
					if err != nil {
						return nil, fmt.Errorf("element %d: %w", i, err)
					}
					out[i] = ev
				}
				return out, nil
			},
		}, nil

	default:
		base, ok := c.bases[t.Kind]
		if !ok {
			return HostType{}, fmt.Errorf("%w: %q", ErrUnknownType, t)
		}
		return HostType{Declared: t, GoName: base.goName, decode: base.decode, encode: base.encode}, nil
	}
}

func decodeError(raw any, t Type) error {
	return fmt.Errorf("cannot decode %T as %s", raw, t)
}

func encodeError(v any, t Type) error {
	return fmt.Errorf("cannot encode %T as %s", v, t)
}

func intCodec() baseCodec {
	t := Type{Kind: KindInt}
	conv := func(v any) (any, error) {
		switch n := v.(type) {
		case int32:
			return n, nil
		case int64:
			if n < math.MinInt32 || n > math.MaxInt32 {
				return nil, fmt.Errorf("value %d overflows int", n)
			}
			return int32(n), nil
		case int:
			if n < math.MinInt32 || n > math.MaxInt32 {
				return nil, fmt.Errorf("value %d overflows int", n)
			}
			return int32(n), nil
		case int16:
			return int32(n), nil
		default:
			return nil, decodeError(v, t)
		}
	}
	return baseCodec{
		goName: "int32",
		decode: conv,
		encode: conv,
		fromSlice: func(raw any) ([]any, bool) {
			switch s := raw.(type) {
			case []int32:
				return anySlice(s), true
			case []int64:
				return anySlice(s), true
			case []int:
				return anySlice(s), true
			}
			return nil, false
		},
	}
}

func bigIntCodec() baseCodec {
	t := Type{Kind: KindBigInt}
	conv := func(v any) (any, error) {
		switch n := v.(type) {
		case int64:
			return n, nil
		case int32:
			return int64(n), nil
		case int:
			return int64(n), nil
		case int16:
			return int64(n), nil
		default:
			return nil, decodeError(v, t)
		}
	}
	return baseCodec{
		goName: "int64",
		decode: conv,
		encode: conv,
		fromSlice: func(raw any) ([]any, bool) {
			switch s := raw.(type) {
			case []int64:
				return anySlice(s), true
			case []int:
				return anySlice(s), true
			}
			return nil, false
		},
	}
}

func smallIntCodec() baseCodec {
	t := Type{Kind: KindSmallInt}
	conv := func(v any) (any, error) {
		switch n := v.(type) {
		case int16:
			return n, nil
		case int32:
			if n < math.MinInt16 || n > math.MaxInt16 {
				return nil, fmt.Errorf("value %d overflows smallint", n)
			}
			return int16(n), nil
		case int64:
			if n < math.MinInt16 || n > math.MaxInt16 {
				return nil, fmt.Errorf("value %d overflows smallint", n)
			}
			return int16(n), nil
		case int:
			if n < math.MinInt16 || n > math.MaxInt16 {
				return nil, fmt.Errorf("value %d overflows smallint", n)
			}
			return int16(n), nil
		default:
			return nil, decodeError(v, t)
		}
	}
	return baseCodec{
		goName: "int16",
		decode: conv,
		encode: conv,
		fromSlice: func(raw any) ([]any, bool) {
			if s, ok := raw.([]int16); ok {
				return anySlice(s), true
			}
			return nil, false
		},
	}
}

// decimalCodec carries decimals as their text payload. Go has no native
// arbitrary-precision decimal, so the payload stays opaque end to end.
func decimalCodec() baseCodec {
	t := Type{Kind: KindDecimal}
	return baseCodec{
		goName: "string",
		decode: func(raw any) (any, error) {
			switch v := raw.(type) {
			case string:
				return v, nil
			case []byte:
				return string(v), nil
			case driver.Valuer:
				dv, err := v.Value()
				if err != nil {
					return nil, err
				}
				return decimalFromDriver(dv, t)
			default:
				return nil, decodeError(raw, t)
			}
		},
		encode: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, encodeError(v, t)
			}
			return s, nil
		},
		fromSlice: func(raw any) ([]any, bool) {
			if s, ok := raw.([]string); ok {
				return anySlice(s), true
			}
			return nil, false
		},
	}
}

func decimalFromDriver(dv driver.Value, t Type) (any, error) {
	switch v := dv.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return nil, decodeError(dv, t)
	}
}

func textCodec() baseCodec {
	t := Type{Kind: KindText}
	return baseCodec{
		goName: "string",
		decode: func(raw any) (any, error) {
			switch v := raw.(type) {
			case string:
				return v, nil
			case []byte:
				return string(v), nil
			default:
				return nil, decodeError(raw, t)
			}
		},
		encode: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, encodeError(v, t)
			}
			return s, nil
		},
		fromSlice: func(raw any) ([]any, bool) {
			if s, ok := raw.([]string); ok {
				return anySlice(s), true
			}
			return nil, false
		},
	}
}

func boolCodec() baseCodec {
	t := Type{Kind: KindBool}
	conv := func(v any) (any, error) {
		b, ok := v.(bool)
		if !ok {
			return nil, decodeError(v, t)
		}
		return b, nil
	}
	return baseCodec{
		goName: "bool",
		decode: conv,
		encode: conv,
		fromSlice: func(raw any) ([]any, bool) {
			if s, ok := raw.([]bool); ok {
				return anySlice(s), true
			}
			return nil, false
		},
	}
}

func timeCodec(name string) baseCodec {
	t, _ := ParseType(name)
	conv := func(v any) (any, error) {
		ts, ok := v.(time.Time)
		if !ok {
			return nil, decodeError(v, t)
		}
		return ts, nil
	}
	return baseCodec{
		goName: "time.Time",
		decode: conv,
		encode: conv,
		fromSlice: func(raw any) ([]any, bool) {
			if s, ok := raw.([]time.Time); ok {
				return anySlice(s), true
			}
			return nil, false
		},
	}
}

func uuidCodec() baseCodec {
	t := Type{Kind: KindUUID}
	conv := func(v any) (any, error) {
		switch id := v.(type) {
		case uuid.UUID:
			return id, nil
		case [16]byte:
			return uuid.UUID(id), nil
		case string:
			parsed, err := uuid.Parse(id)
			if err != nil {
				return nil, fmt.Errorf("invalid uuid %q: %w", id, err)
			}
			return parsed, nil
		case []byte:
			parsed, err := uuid.FromBytes(id)
			if err != nil {
				return nil, fmt.Errorf("invalid uuid bytes: %w", err)
			}
			return parsed, nil
		default:
			return nil, decodeError(v, t)
		}
	}
	return baseCodec{
		goName: "uuid.UUID",
		decode: conv,
		encode: conv,
		fromSlice: func(raw any) ([]any, bool) {
			switch s := raw.(type) {
			case []uuid.UUID:
				return anySlice(s), true
			case [][16]byte:
				return anySlice(s), true
			case []string:
				return anySlice(s), true
			}
			return nil, false
		},
	}
}

func anySlice[T any](s []T) []any {
	out := make([]any, len(s))
	for i, v := range s {
		out[i] = v
	}
	return out
}
