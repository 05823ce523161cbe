// Package app assembles an application at startup: declared queries,
// middleware, providers and routes are compiled and validated as a
// build phase, producing an immutable route table. Any declaration
// error fails the build with every diagnostic collected; a broken
// route never reaches the serving phase.
package app

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/gantry-web/gantry/internal/catalog"
	"github.com/gantry-web/gantry/internal/db"
	"github.com/gantry-web/gantry/internal/provider"
	"github.com/gantry-web/gantry/internal/query"
	"github.com/gantry-web/gantry/internal/resolve"
	"github.com/gantry-web/gantry/internal/route"
	"github.com/gantry-web/gantry/internal/web/response"
)

// App collects declarations during the build phase
type App struct {
	cat      *catalog.Catalog
	registry *provider.Registry
	resolver *resolve.Resolver
	logger   *zap.Logger

	queries map[string]*query.Compiled
	routes  []resolve.RouteSpec
	postfix func(*response.Response) *response.Response

	errs []error
}

// Option configures an App
type Option func(*App)

// WithLogger sets the build logger
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) { a.logger = logger }
}

// WithCatalog replaces the default type catalog
func WithCatalog(cat *catalog.Catalog) Option {
	return func(a *App) { a.cat = cat }
}

// New creates an app over the given connection pool. The database
// connection provider is registered out of the box.
func New(pool db.Pool, opts ...Option) *App {
	a := &App{
		cat:      catalog.Default(),
		registry: provider.NewRegistry(),
		logger:   zap.NewNop(),
		queries:  make(map[string]*query.Compiled),
	}
	for _, opt := range opts {
		opt(a)
	}

	a.resolver = resolve.NewResolver(a.registry, pool)
	if err := a.registry.Register(resolve.ConnectionRecipe()); err != nil {
		a.errs = append(a.errs, err)
	}
	return a
}

// Catalog returns the app's type catalog
func (a *App) Catalog() *catalog.Catalog {
	return a.cat
}

// DefineQuery compiles a query declaration. The compiled query is
// returned for binding; compilation failures are collected and
// surfaced by Build. A query that failed to compile returns nil.
func (a *App) DefineQuery(spec query.Spec) *query.Compiled {
	if _, exists := a.queries[spec.Name]; exists {
		a.errs = append(a.errs, fmt.Errorf("query %q declared twice", spec.Name))
		return nil
	}

	compiled, err := query.Compile(spec, a.cat)
	if err != nil {
		a.errs = append(a.errs, err)
		return nil
	}
	a.queries[spec.Name] = compiled
	return compiled
}

// DefineMiddleware declares a middleware
func (a *App) DefineMiddleware(mw resolve.Middleware) {
	if err := a.resolver.RegisterMiddleware(mw); err != nil {
		a.errs = append(a.errs, err)
	}
}

// Provide registers a provider recipe
func (a *App) Provide(recipe provider.Recipe) {
	if err := a.registry.Register(recipe); err != nil {
		a.errs = append(a.errs, err)
	}
}

// ProvidePathParam registers a typed path parameter provider
func (a *App) ProvidePathParam(name, declaredType string) {
	recipe, err := resolve.PathParamRecipe(name, declaredType, a.cat)
	if err != nil {
		a.errs = append(a.errs, fmt.Errorf("path parameter %q: %w", name, err))
		return
	}
	a.Provide(recipe)
}

// ProvideQueryParam registers a typed query-string parameter provider
func (a *App) ProvideQueryParam(name, declaredType string) {
	recipe, err := resolve.QueryParamRecipe(name, declaredType, a.cat)
	if err != nil {
		a.errs = append(a.errs, fmt.Errorf("query parameter %q: %w", name, err))
		return
	}
	a.Provide(recipe)
}

// Route declares a route
func (a *App) Route(spec resolve.RouteSpec) {
	a.routes = append(a.routes, spec)
}

// WithPostfix installs a hook applied to every response, success and
// failure alike, before it is written.
func (a *App) WithPostfix(fn func(*response.Response) *response.Response) {
	a.postfix = fn
}

// Build resolves every declared route and compiles the route table.
// All collected diagnostics are reported together; a partial table is
// never produced.
func (a *App) Build() (*route.Table, error) {
	errs := make([]error, len(a.errs))
	copy(errs, a.errs)

	entries := make([]route.Entry, 0, len(a.routes))
	for _, spec := range a.routes {
		dispatch, err := a.resolver.Resolve(spec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if a.postfix != nil {
			dispatch.WithPostfix(a.postfix)
		}
		entries = append(entries, route.Entry{
			Method:  spec.Method,
			Pattern: spec.Pattern,
			Handler: dispatch,
		})
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("build failed: %w", errors.Join(errs...))
	}

	table, err := route.Build(entries)
	if err != nil {
		return nil, fmt.Errorf("build failed: %w", err)
	}

	for _, e := range table.Routes() {
		a.logger.Info("route registered",
			zap.String("method", e.Method),
			zap.String("pattern", e.Pattern),
		)
	}
	return table, nil
}
