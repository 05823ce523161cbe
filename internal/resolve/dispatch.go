package resolve

import (
	"fmt"
	"net/http"

	"github.com/gantry-web/gantry/internal/db"
	"github.com/gantry-web/gantry/internal/provider"
	"github.com/gantry-web/gantry/internal/web/response"
)

// step is one entry in a dispatch's construction plan: the handler
// parameter it fills and the recipe that builds it.
type step struct {
	name  string
	build func(provider.Scope) (any, error)
}

// Dispatch is a fully resolved route, ready to serve requests. It is
// immutable after Resolve and safe for concurrent use; all per-request
// state lives in the scope.
type Dispatch struct {
	method  string
	pattern string

	pre   []step
	chain []Middleware
	post  []step
	order []string

	handler HandlerFunc
	pool    db.Pool
	postfix func(*response.Response) *response.Response
}

// Method returns the dispatch's HTTP method
func (d *Dispatch) Method() string {
	return d.method
}

// Pattern returns the dispatch's path pattern
func (d *Dispatch) Pattern() string {
	return d.pattern
}

// WithPostfix installs a hook applied to every response this dispatch
// produces, success and failure alike, just before it is written.
func (d *Dispatch) WithPostfix(fn func(*response.Response) *response.Response) *Dispatch {
	d.postfix = fn
	return d
}

// ServeHTTP runs the request through the dispatch machine: extraction,
// middleware chain, remaining construction steps, handler, response
// conversion. The scope's connection is released on every exit path.
func (d *Dispatch) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	scope := newScope(req, d.pool)
	defer scope.release()

	resp := d.run(scope)
	if d.postfix != nil {
		if fixed := d.postfix(resp); fixed != nil {
			resp = fixed
		}
	}

	resp.Write(w)
	if scope.state != StateFailed {
		scope.state = StateSent
	}
}

func (d *Dispatch) run(scope *Scope) (resp *response.Response) {
	defer func() {
		if r := recover(); r != nil {
			scope.state = StateFailed
			resp = convertError(fmt.Errorf("handler panicked: %v", r))
		}
	}()

	fail := func(err error) *response.Response {
		scope.state = StateFailed
		return convertError(err)
	}

	scope.state = StateExtracting
	for _, st := range d.pre {
		v, err := st.build(scope)
		if err != nil {
			return fail(err)
		}
		scope.resolved[st.name] = v
	}

	for _, mw := range d.chain {
		out, err := mw.Fn(scope)
		if err != nil {
			return fail(err)
		}
		if mw.Output != "" {
			scope.outputs[mw.Name] = out
		}
	}
	if scope.state < StateMiddlewareRun {
		scope.state = StateMiddlewareRun
	}

	for _, st := range d.post {
		v, err := st.build(scope)
		if err != nil {
			return fail(err)
		}
		scope.resolved[st.name] = v
	}

	scope.state = StateHandlerInvoked
	args := &Args{names: d.order, values: make([]any, len(d.order))}
	for i, name := range d.order {
		args.values[i] = scope.resolved[name]
	}

	result, err := d.handler(scope.Context(), args)
	if err != nil {
		return fail(err)
	}

	resp = convertResult(result)
	scope.state = StateResponseConverted
	return resp
}

// convertResult maps a handler's return value to a response. A handler
// may return a *response.Response directly, nil for 204, or any value
// to be rendered as a 200 JSON body.
func convertResult(result any) *response.Response {
	switch v := result.(type) {
	case *response.Response:
		return v
	case nil:
		return response.NoContent()
	default:
		return response.OK(v)
	}
}
