package route

import (
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
)

// ErrDuplicateRoute is returned when two entries declare the same
// method and pattern
var ErrDuplicateRoute = errors.New("duplicate route")

// Entry is one declared route: its method, pattern and the handler
// produced by the resolver.
type Entry struct {
	Method  string
	Pattern string
	Handler http.Handler
}

type compiledRoute struct {
	method  string
	pattern string
	segs    []segment
	handler http.Handler
}

// Table is the immutable route table. It is built once at startup and
// never mutated afterwards; lookups and dispatch are safe for
// unsynchronized concurrent use.
type Table struct {
	mux    *chi.Mux
	routes []*compiledRoute
}

// Build compiles the entries into a table. Duplicate method+pattern
// pairs and unparsable patterns fail the build; a broken route is
// never silently dropped.
func Build(entries []Entry) (*Table, error) {
	mux := chi.NewRouter()
	routes := make([]*compiledRoute, 0, len(entries))
	seen := make(map[string]bool, len(entries))

	for _, e := range entries {
		if e.Handler == nil {
			return nil, fmt.Errorf("route %s %s: nil handler", e.Method, e.Pattern)
		}

		segs, err := parsePattern(e.Pattern)
		if err != nil {
			return nil, fmt.Errorf("route %s %s: %w", e.Method, e.Pattern, err)
		}

		key := e.Method + " " + e.Pattern
		if seen[key] {
			return nil, fmt.Errorf("%w: %s %s", ErrDuplicateRoute, e.Method, e.Pattern)
		}
		seen[key] = true

		mux.Method(e.Method, e.Pattern, e.Handler)
		routes = append(routes, &compiledRoute{
			method:  e.Method,
			pattern: e.Pattern,
			segs:    segs,
			handler: e.Handler,
		})
	}

	// static segments outrank parameters, so lookup takes the first match
	sort.SliceStable(routes, func(i, j int) bool {
		return moreSpecific(routes[i].segs, routes[j].segs)
	})

	return &Table{mux: mux, routes: routes}, nil
}

// Len returns the number of routes in the table
func (t *Table) Len() int {
	return len(t.routes)
}

// Lookup finds the route serving the given method and concrete path.
// Identical inputs always yield the identical route; when a static
// pattern and a parameter pattern both match, the static one wins.
func (t *Table) Lookup(method, path string) (Entry, bool) {
	pathSegs := splitPath(path)
	for _, r := range t.routes {
		if r.method != method {
			continue
		}
		if match(r.segs, pathSegs) {
			return Entry{Method: r.method, Pattern: r.pattern, Handler: r.handler}, true
		}
	}
	return Entry{}, false
}

// Routes returns the table's entries sorted by pattern then method,
// for startup logging and introspection.
func (t *Table) Routes() []Entry {
	out := make([]Entry, len(t.routes))
	for i, r := range t.routes {
		out[i] = Entry{Method: r.method, Pattern: r.pattern, Handler: r.handler}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// ServeHTTP dispatches the request to its route, or renders the
// router's own 404/405 for paths no route serves.
func (t *Table) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	t.mux.ServeHTTP(w, req)
}

// NotFound installs a custom handler for unmatched paths
func (t *Table) NotFound(h http.HandlerFunc) {
	t.mux.NotFound(h)
}

// MethodNotAllowed installs a custom handler for matched paths with an
// unsupported method
func (t *Table) MethodNotAllowed(h http.HandlerFunc) {
	t.mux.MethodNotAllowed(h)
}
