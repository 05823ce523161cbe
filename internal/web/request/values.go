package request

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/gantry-web/gantry/internal/catalog"
)

// ParseValue converts the raw text of a path segment or query-string
// field into the host representation of the declared type. Nullable
// unwraps to its element; an empty raw value for a nullable type is
// nil. Sequences are not extractable from URLs.
func ParseValue(t catalog.Type, raw string) (any, error) {
	switch t.Kind {
	case catalog.KindNullable:
		if raw == "" {
			return nil, nil
		}
		return ParseValue(*t.Elem, raw)
	case catalog.KindSequence:
		return nil, fmt.Errorf("cannot extract %s from a URL value", t)
	case catalog.KindInt:
		n, err := strconv.ParseInt(raw, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", raw)
		}
		return int32(n), nil
	case catalog.KindBigInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", raw)
		}
		return n, nil
	case catalog.KindSmallInt:
		n, err := strconv.ParseInt(raw, 10, 16)
		if err != nil {
			return nil, fmt.Errorf("invalid integer %q", raw)
		}
		return int16(n), nil
	case catalog.KindDecimal:
		if _, err := strconv.ParseFloat(raw, 64); err != nil {
			return nil, fmt.Errorf("invalid decimal %q", raw)
		}
		return raw, nil
	case catalog.KindText:
		return raw, nil
	case catalog.KindBool:
		v, err := strconv.ParseBool(strings.ToLower(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid boolean %q", raw)
		}
		return v, nil
	case catalog.KindUUID:
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid UUID %q", raw)
		}
		return id, nil
	case catalog.KindTimestamp, catalog.KindTimestampTZ:
		ts, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return nil, fmt.Errorf("invalid timestamp %q", raw)
		}
		return ts, nil
	default:
		return nil, fmt.Errorf("cannot extract %s from a URL value", t)
	}
}
