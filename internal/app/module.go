package app

import (
	"strings"

	"github.com/gantry-web/gantry/internal/resolve"
)

// Module groups routes under a shared path prefix and middleware
// chain. Module middleware runs before the route's own.
type Module struct {
	app        *App
	prefix     string
	middleware []string
}

// Module creates a route group with the given prefix and middleware
func (a *App) Module(prefix string, middleware ...string) *Module {
	return &Module{
		app:        a,
		prefix:     strings.TrimSuffix(prefix, "/"),
		middleware: middleware,
	}
}

// Route declares a route within the module. The module's prefix is
// prepended to the pattern and its middleware to the chain.
func (m *Module) Route(spec resolve.RouteSpec) {
	pattern := m.prefix + spec.Pattern
	if pattern == "" {
		pattern = "/"
	}
	spec.Pattern = pattern

	chain := make([]string, 0, len(m.middleware)+len(spec.Middleware))
	chain = append(chain, m.middleware...)
	chain = append(chain, spec.Middleware...)
	spec.Middleware = chain

	m.app.Route(spec)
}
