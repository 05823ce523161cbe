package resolve

import (
	"fmt"

	"github.com/gantry-web/gantry/internal/web/response"
)

// Middleware is a declared middleware: a named function that runs once
// per request before the handler, in declaration order, and either
// produces a typed output, produces nothing, or rejects the request.
type Middleware struct {
	// Name is the middleware's identity, referenced by route specs
	Name string

	// Output is the type identity of the produced value, registered as
	// a middleware-output provider kind. Empty for middleware that
	// produce nothing.
	Output string

	// Fn runs against the request scope. Returning a *Rejection (or any
	// error) short-circuits the request; otherwise the returned value is
	// cached as the middleware's output.
	Fn func(s *Scope) (any, error)
}

// Rejection is a middleware's authoritative refusal of a request. It
// carries the middleware's own response payload and short-circuits the
// chain immediately; no later middleware, no connection acquisition for
// its own sake, and no handler runs.
type Rejection struct {
	StatusCode int
	Message    string
	Code       string
}

// Error implements the error interface
func (r *Rejection) Error() string {
	return fmt.Sprintf("request rejected: %s", r.Message)
}

// Response converts the rejection into its declared response payload
func (r *Rejection) Response() *response.Response {
	code := r.Code
	if code == "" {
		code = "rejected"
	}
	return response.JSON(r.StatusCode, &response.ErrorBody{
		Error:   "error",
		Message: r.Message,
		Code:    code,
	})
}

// Reject builds a rejection with the given status and message
func Reject(statusCode int, message string) *Rejection {
	return &Rejection{StatusCode: statusCode, Message: message}
}

// WithCode sets the rejection's error code
func (r *Rejection) WithCode(code string) *Rejection {
	r.Code = code
	return r
}
