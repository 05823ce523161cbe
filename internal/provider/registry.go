// Package provider holds the build-time mapping from resource kinds to
// construction recipes. Route and middleware declarations populate it;
// the handler resolver consumes it while building dispatch plans. It is
// never consulted once the process starts serving requests.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/gantry-web/gantry/internal/query"
)

var (
	// ErrNoProvider is returned when a handler parameter's kind has no
	// registered recipe. The route referencing it fails to build.
	ErrNoProvider = errors.New("no provider registered for kind")

	// ErrAmbiguousProvider is returned when two recipes are registered
	// for the identical kind
	ErrAmbiguousProvider = errors.New("provider already registered for kind")
)

// Source discriminates the closed set of resource origins a handler
// parameter can be satisfied from.
type Source int

const (
	// SourceConnection is the per-request database connection
	SourceConnection Source = iota
	// SourcePath is a named path segment
	SourcePath
	// SourceQuery is a named query-string field
	SourceQuery
	// SourceBody is the decoded request body
	SourceBody
	// SourceMiddleware is the output of a declared middleware
	SourceMiddleware
	// SourceCustom is an application-defined recipe, e.g. a value loaded
	// through a compiled query
	SourceCustom
)

// String returns the source's declared spelling
func (s Source) String() string {
	switch s {
	case SourceConnection:
		return "connection"
	case SourcePath:
		return "path"
	case SourceQuery:
		return "query"
	case SourceBody:
		return "body"
	case SourceMiddleware:
		return "middleware"
	case SourceCustom:
		return "custom"
	default:
		return "unknown"
	}
}

// Kind identifies a providable resource: its source, a discriminant
// name (path/query parameter name, middleware name) and a type
// identity. Kinds are comparable and serve as registry keys.
type Kind struct {
	Source Source
	Name   string
	Type   string
}

// String renders the kind for diagnostics
func (k Kind) String() string {
	switch {
	case k.Name == "" && k.Type == "":
		return k.Source.String()
	case k.Name == "":
		return fmt.Sprintf("%s[%s]", k.Source, k.Type)
	default:
		return fmt.Sprintf("%s %q [%s]", k.Source, k.Name, k.Type)
	}
}

// Scope is the per-request view a recipe builds from. The resolver owns
// the implementation; recipes never see the raw transport request.
type Scope interface {
	// Context returns the request context
	Context() context.Context

	// PathParam returns the raw value of a named path segment
	PathParam(name string) (string, bool)

	// QueryParam returns the raw value of a named query-string field
	QueryParam(name string) (string, bool)

	// Body returns the request body bytes
	Body() ([]byte, error)

	// Querier returns the request's database connection, acquiring it
	// from the pool on first use. Every caller within one request sees
	// the same connection.
	Querier() (query.Querier, error)

	// MiddlewareOutput returns the cached output of a named middleware
	// that already ran for this request
	MiddlewareOutput(name string) (any, bool)

	// Resolved returns a handler parameter resolved earlier in the
	// construction plan, by its declared name
	Resolved(name string) (any, bool)
}

// Recipe is a registered construction rule: given the request scope,
// produce the parameter's value or fail.
type Recipe struct {
	Kind  Kind
	Build func(s Scope) (any, error)
}

// Registry owns all provider entries. Registration happens during the
// build phase; after that the registry is read-only.
type Registry struct {
	entries map[Kind]Recipe
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{entries: make(map[Kind]Recipe)}
}

// Register adds a recipe for a kind. Registering the identical kind
// twice is a build error: the provider would be ambiguous.
func (r *Registry) Register(recipe Recipe) error {
	if _, exists := r.entries[recipe.Kind]; exists {
		return fmt.Errorf("%w: %s", ErrAmbiguousProvider, recipe.Kind)
	}
	r.entries[recipe.Kind] = recipe
	return nil
}

// Lookup returns the recipe for a kind. Used exclusively at build time;
// dispatch plans hold the recipes directly.
func (r *Registry) Lookup(kind Kind) (Recipe, error) {
	recipe, ok := r.entries[kind]
	if !ok {
		return Recipe{}, fmt.Errorf("%w: %s", ErrNoProvider, kind)
	}
	return recipe, nil
}

// Len returns the number of registered entries
func (r *Registry) Len() int {
	return len(r.entries)
}
