package resolve

import (
	"context"
	"fmt"
	"strings"

	"github.com/gantry-web/gantry/internal/db"
	"github.com/gantry-web/gantry/internal/provider"
)

// HandlerFunc is a route's handler. It receives the fully resolved
// parameter set; by the time it runs, extraction and the middleware
// chain have already succeeded.
type HandlerFunc func(ctx context.Context, args *Args) (any, error)

// ParamSpec declares one handler parameter: its name and the provider
// kind that produces it.
type ParamSpec struct {
	Name string
	Kind provider.Kind
}

// RouteSpec declares a route: method, pattern, the middleware chain by
// name, the handler's parameters and the handler itself.
type RouteSpec struct {
	Method     string
	Pattern    string
	Middleware []string
	Params     []ParamSpec
	Handler    HandlerFunc
}

// Resolver turns route specs into executable dispatches. All lookups
// happen at build time; a spec that references an unknown provider kind
// or middleware fails here, before the server ever accepts a request.
type Resolver struct {
	registry   *provider.Registry
	middleware map[string]Middleware
	pool       db.Pool
}

// NewResolver creates a resolver over the given provider registry and
// connection pool.
func NewResolver(registry *provider.Registry, pool db.Pool) *Resolver {
	return &Resolver{
		registry:   registry,
		middleware: make(map[string]Middleware),
		pool:       pool,
	}
}

// RegisterMiddleware declares a middleware under its name. Middleware
// that produce an output also register a middleware-output provider
// kind for that output type.
func (r *Resolver) RegisterMiddleware(mw Middleware) error {
	if mw.Name == "" {
		return fmt.Errorf("middleware has no name")
	}
	if mw.Fn == nil {
		return fmt.Errorf("middleware %q has no function", mw.Name)
	}
	if _, exists := r.middleware[mw.Name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateMiddleware, mw.Name)
	}

	if mw.Output != "" {
		if err := r.registry.Register(MiddlewareOutputRecipe(mw)); err != nil {
			return fmt.Errorf("middleware %q output: %w", mw.Name, err)
		}
	}

	r.middleware[mw.Name] = mw
	return nil
}

// Resolve builds a dispatch from a route spec. Every parameter kind
// must have a registered recipe, every referenced middleware must be
// declared, and every path-bound parameter must name a segment of the
// pattern.
func (r *Resolver) Resolve(spec RouteSpec) (*Dispatch, error) {
	if spec.Handler == nil {
		return nil, routeErr(spec, ErrNilHandler)
	}

	chain := make([]Middleware, 0, len(spec.Middleware))
	for _, name := range spec.Middleware {
		mw, ok := r.middleware[name]
		if !ok {
			return nil, routeErr(spec, fmt.Errorf("%w: %q", ErrUnknownMiddleware, name))
		}
		chain = append(chain, mw)
	}

	var pre, post []step
	names := make(map[string]bool, len(spec.Params))
	order := make([]string, 0, len(spec.Params))

	for _, p := range spec.Params {
		if names[p.Name] {
			return nil, routeErr(spec, fmt.Errorf("duplicate parameter %q", p.Name))
		}
		names[p.Name] = true
		order = append(order, p.Name)

		recipe, err := r.registry.Lookup(p.Kind)
		if err != nil {
			return nil, routeErr(spec, fmt.Errorf("parameter %q: %w", p.Name, err))
		}

		if p.Kind.Source == provider.SourcePath && !patternHasParam(spec.Pattern, p.Kind.Name) {
			return nil, routeErr(spec, fmt.Errorf("%w: %q", ErrPathParamNotInPattern, p.Kind.Name))
		}

		st := step{name: p.Name, build: recipe.Build}
		if isExtraction(p.Kind.Source) {
			pre = append(pre, st)
		} else {
			post = append(post, st)
		}
	}

	return &Dispatch{
		method:  spec.Method,
		pattern: spec.Pattern,
		pre:     pre,
		chain:   chain,
		post:    post,
		order:   order,
		handler: spec.Handler,
		pool:    r.pool,
	}, nil
}

// isExtraction reports whether a source reads only the request itself.
// Extraction steps run before the middleware chain; everything else
// runs after it.
func isExtraction(src provider.Source) bool {
	switch src {
	case provider.SourcePath, provider.SourceQuery, provider.SourceBody:
		return true
	}
	return false
}

// patternHasParam reports whether the pattern contains a {name} segment
func patternHasParam(pattern, name string) bool {
	for _, seg := range strings.Split(pattern, "/") {
		if strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}") {
			if strings.TrimSuffix(strings.TrimPrefix(seg, "{"), "}") == name {
				return true
			}
		}
	}
	return false
}
