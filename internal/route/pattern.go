package route

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPattern is returned for patterns that cannot be parsed
var ErrInvalidPattern = errors.New("invalid route pattern")

// segment is one element of a parsed pattern. A parameter segment has
// a non-empty param name and matches any single path segment.
type segment struct {
	literal string
	param   string
}

// parsePattern splits a pattern into segments. Patterns must begin
// with a slash; parameter segments are spelled {name}.
func parsePattern(pattern string) ([]segment, error) {
	if !strings.HasPrefix(pattern, "/") {
		return nil, fmt.Errorf("%w: %q must start with '/'", ErrInvalidPattern, pattern)
	}

	raw := strings.Split(strings.Trim(pattern, "/"), "/")
	if pattern == "/" {
		return []segment{}, nil
	}

	segs := make([]segment, 0, len(raw))
	seen := make(map[string]bool)
	for _, s := range raw {
		if s == "" {
			return nil, fmt.Errorf("%w: %q has an empty segment", ErrInvalidPattern, pattern)
		}
		if strings.HasPrefix(s, "{") || strings.HasSuffix(s, "}") {
			name := strings.TrimSuffix(strings.TrimPrefix(s, "{"), "}")
			if !strings.HasPrefix(s, "{") || !strings.HasSuffix(s, "}") || name == "" {
				return nil, fmt.Errorf("%w: malformed parameter segment %q", ErrInvalidPattern, s)
			}
			if seen[name] {
				return nil, fmt.Errorf("%w: parameter %q appears twice", ErrInvalidPattern, name)
			}
			seen[name] = true
			segs = append(segs, segment{param: name})
			continue
		}
		segs = append(segs, segment{literal: s})
	}
	return segs, nil
}

// splitPath splits a request path into segments
func splitPath(path string) []string {
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return []string{}
	}
	return strings.Split(trimmed, "/")
}

// match reports whether the segments accept the given path segments
func match(segs []segment, pathSegs []string) bool {
	if len(segs) != len(pathSegs) {
		return false
	}
	for i, seg := range segs {
		if seg.param != "" {
			continue
		}
		if seg.literal != pathSegs[i] {
			return false
		}
	}
	return true
}

// moreSpecific reports whether a beats b for the same path. At the
// first position where they differ, a literal segment wins over a
// parameter segment.
func moreSpecific(a, b []segment) bool {
	for i := range a {
		if i >= len(b) {
			return false
		}
		aLit := a[i].param == ""
		bLit := b[i].param == ""
		if aLit != bLit {
			return aLit
		}
	}
	return false
}
