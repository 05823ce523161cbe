package resolve

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gantry-web/gantry/internal/db"
	"github.com/gantry-web/gantry/internal/query"
	"github.com/gantry-web/gantry/internal/web/response"
)

// Build-time errors. A route that trips any of these fails to build and
// halts startup; it is never silently dropped or partially wired.
var (
	// ErrUnknownMiddleware is returned when a route references a
	// middleware identity that was never declared
	ErrUnknownMiddleware = errors.New("unknown middleware")

	// ErrDuplicateMiddleware is returned when two middleware are
	// declared under the same name
	ErrDuplicateMiddleware = errors.New("middleware already declared")

	// ErrPathParamNotInPattern is returned when a handler declares a
	// path-bound parameter whose name does not appear in the pattern
	ErrPathParamNotInPattern = errors.New("path parameter not present in route pattern")

	// ErrNilHandler is returned when a route declares no handler function
	ErrNilHandler = errors.New("route has no handler")
)

// RouteBuildError wraps a build-time failure with the identity of the
// offending route spec.
type RouteBuildError struct {
	Method  string
	Pattern string
	Err     error
}

// Error implements the error interface
func (e *RouteBuildError) Error() string {
	return fmt.Sprintf("route %s %s: %s", e.Method, e.Pattern, e.Err)
}

// Unwrap exposes the underlying sentinel for errors.Is checks
func (e *RouteBuildError) Unwrap() error {
	return e.Err
}

func routeErr(spec RouteSpec, err error) *RouteBuildError {
	return &RouteBuildError{Method: spec.Method, Pattern: spec.Pattern, Err: err}
}

// ExtractionError marks a malformed path, query or body value. It is
// client-class: the request was never dispatchable as declared.
type ExtractionError struct {
	Param string
	Err   error
}

// Error implements the error interface
func (e *ExtractionError) Error() string {
	return fmt.Sprintf("parameter %q: %s", e.Param, e.Err)
}

// Unwrap exposes the cause
func (e *ExtractionError) Unwrap() error {
	return e.Err
}

// convertError maps a request-time failure to its response shape. Every
// error path produces an observable response; nothing is swallowed.
func convertError(err error) *response.Response {
	var rejection *Rejection
	if errors.As(err, &rejection) {
		return rejection.Response()
	}

	var httpErr *response.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Response()
	}

	var extraction *ExtractionError
	if errors.As(err, &extraction) {
		return response.NewHTTPError(http.StatusBadRequest, extraction.Error()).
			WithCode("extraction_failed").Response()
	}

	if errors.Is(err, query.ErrNotFound) {
		return response.NewHTTPError(http.StatusNotFound, "not found").Response()
	}

	if errors.Is(err, db.ErrConnectionUnavailable) {
		return response.NewHTTPError(http.StatusServiceUnavailable, "database connection unavailable").
			WithCode("connection_unavailable").Response()
	}

	if errors.Is(err, query.ErrSchemaMismatch) {
		return response.NewHTTPError(http.StatusInternalServerError, err.Error()).
			WithCode("schema_mismatch").Response()
	}

	return response.NewHTTPError(http.StatusInternalServerError, err.Error()).Response()
}
