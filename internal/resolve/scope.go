package resolve

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gantry-web/gantry/internal/db"
	"github.com/gantry-web/gantry/internal/query"
)

// State tracks a request's progress through the dispatch machine.
// Transitions are strictly forward; Failed may be entered from any
// state before HandlerInvoked.
type State int

const (
	// StateReceived is the initial state of every request
	StateReceived State = iota
	// StateExtracting runs the extraction-based recipes
	StateExtracting
	// StateConnectionAcquired is entered when the pool connection is
	// first needed; requests that never touch the database skip it
	StateConnectionAcquired
	// StateMiddlewareRun is entered after the middleware chain completed
	StateMiddlewareRun
	// StateHandlerInvoked is entered when the handler starts; from here
	// the handler's own result determines the terminal conversion
	StateHandlerInvoked
	// StateResponseConverted is entered once the result became a response
	StateResponseConverted
	// StateSent is the terminal success state
	StateSent
	// StateFailed is the terminal failure state
	StateFailed
)

// String returns the state's name
func (s State) String() string {
	switch s {
	case StateReceived:
		return "received"
	case StateExtracting:
		return "extracting"
	case StateConnectionAcquired:
		return "connection-acquired"
	case StateMiddlewareRun:
		return "middleware-run"
	case StateHandlerInvoked:
		return "handler-invoked"
	case StateResponseConverted:
		return "response-converted"
	case StateSent:
		return "sent"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Scope is the request-scoped context every recipe builds from. It is
// created fresh per incoming request, never shared across requests, and
// discarded after the response is produced.
type Scope struct {
	req  *http.Request
	pool db.Pool

	conn     db.Conn
	body     []byte
	bodyRead bool

	outputs  map[string]any
	resolved map[string]any

	state State
}

func newScope(req *http.Request, pool db.Pool) *Scope {
	return &Scope{
		req:      req,
		pool:     pool,
		outputs:  make(map[string]any),
		resolved: make(map[string]any),
		state:    StateReceived,
	}
}

// Context returns the request context
func (s *Scope) Context() context.Context {
	return s.req.Context()
}

// State returns the request's current dispatch state
func (s *Scope) State() State {
	return s.state
}

// PathParam returns the raw value of a named path segment
func (s *Scope) PathParam(name string) (string, bool) {
	v := chi.URLParam(s.req, name)
	return v, v != ""
}

// Header returns the value of a named request header
func (s *Scope) Header(name string) (string, bool) {
	v := s.req.Header.Get(name)
	return v, v != ""
}

// RemoteAddr returns the request's remote address
func (s *Scope) RemoteAddr() string {
	return s.req.RemoteAddr
}

// QueryParam returns the raw value of a named query-string field
func (s *Scope) QueryParam(name string) (string, bool) {
	values := s.req.URL.Query()
	if !values.Has(name) {
		return "", false
	}
	return values.Get(name), true
}

// Body reads and caches the request body. Reading happens at most once
// per request.
func (s *Scope) Body() ([]byte, error) {
	if s.bodyRead {
		return s.body, nil
	}
	if s.req.Body == nil {
		s.bodyRead = true
		return nil, nil
	}

	body, err := io.ReadAll(s.req.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	s.body = body
	s.bodyRead = true
	return body, nil
}

// Querier returns the request's database connection, acquiring it from
// the pool on first use. All consumers within one request share the one
// connection; it is never shared across requests.
func (s *Scope) Querier() (query.Querier, error) {
	if s.conn != nil {
		return s.conn, nil
	}

	conn, err := s.pool.Acquire(s.req.Context())
	if err != nil {
		return nil, err
	}
	s.conn = conn
	if s.state < StateConnectionAcquired {
		s.state = StateConnectionAcquired
	}
	return s.conn, nil
}

// MiddlewareOutput returns the cached output of a middleware that
// already ran for this request
func (s *Scope) MiddlewareOutput(name string) (any, bool) {
	v, ok := s.outputs[name]
	return v, ok
}

// Resolved returns a handler parameter resolved earlier in the
// construction plan
func (s *Scope) Resolved(name string) (any, bool) {
	v, ok := s.resolved[name]
	return v, ok
}

// release returns the acquired connection to the pool. It runs on every
// exit path, including panics, and releases at most once.
func (s *Scope) release() {
	if s.conn != nil {
		s.conn.Release()
		s.conn = nil
	}
}
