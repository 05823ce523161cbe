package response

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the stable error shape every failed request produces
type ErrorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// HTTPError is an error carrying its HTTP status and error code
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

// Error implements the error interface
func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates an HTTP error with a code derived from the status
func NewHTTPError(statusCode int, message string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       errorCodeFromStatus(statusCode),
	}
}

// WithCode overrides the derived error code
func (e *HTTPError) WithCode(code string) *HTTPError {
	e.Code = code
	return e
}

// Response converts the error into a renderable response
func (e *HTTPError) Response() *Response {
	return JSON(e.StatusCode, &ErrorBody{
		Error:   "error",
		Message: e.Message,
		Code:    e.Code,
	})
}

// RenderError renders a standard error response
func RenderError(w http.ResponseWriter, statusCode int, err error) {
	body := &ErrorBody{
		Error:   "error",
		Message: err.Error(),
		Code:    errorCodeFromStatus(statusCode),
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// Common HTTP errors
var (
	ErrBadRequest         = NewHTTPError(http.StatusBadRequest, "Bad request")
	ErrUnauthorized       = NewHTTPError(http.StatusUnauthorized, "Unauthorized")
	ErrForbidden          = NewHTTPError(http.StatusForbidden, "Forbidden")
	ErrNotFound           = NewHTTPError(http.StatusNotFound, "Not found")
	ErrInternalServer     = NewHTTPError(http.StatusInternalServerError, "Internal server error")
	ErrServiceUnavailable = NewHTTPError(http.StatusServiceUnavailable, "Service unavailable")
)

// errorCodeFromStatus maps HTTP status codes to error codes
func errorCodeFromStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "bad_request"
	case http.StatusUnauthorized:
		return "unauthorized"
	case http.StatusForbidden:
		return "forbidden"
	case http.StatusNotFound:
		return "not_found"
	case http.StatusMethodNotAllowed:
		return "method_not_allowed"
	case http.StatusConflict:
		return "conflict"
	case http.StatusUnprocessableEntity:
		return "unprocessable_entity"
	case http.StatusTooManyRequests:
		return "too_many_requests"
	case http.StatusInternalServerError:
		return "internal_error"
	case http.StatusServiceUnavailable:
		return "service_unavailable"
	default:
		return "error"
	}
}
