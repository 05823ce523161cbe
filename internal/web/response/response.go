package response

import (
	"encoding/json"
	"net/http"
)

// Response is the converted result of a handler invocation: a status, a
// body value and optional headers. It is the terminal shape the
// dispatcher hands back to the transport.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       any
}

// JSON builds a response whose body will be JSON-encoded
func JSON(statusCode int, body any) *Response {
	return &Response{StatusCode: statusCode, Body: body}
}

// OK builds a 200 response
func OK(body any) *Response {
	return JSON(http.StatusOK, body)
}

// Created builds a 201 response
func Created(body any) *Response {
	return JSON(http.StatusCreated, body)
}

// NoContent builds a 204 response with no body
func NoContent() *Response {
	return &Response{StatusCode: http.StatusNoContent}
}

// WithHeader sets a response header
func (r *Response) WithHeader(key, value string) *Response {
	if r.Headers == nil {
		r.Headers = make(http.Header)
	}
	r.Headers.Set(key, value)
	return r
}

// Write renders the response onto the transport
func (r *Response) Write(w http.ResponseWriter) {
	for key, values := range r.Headers {
		for _, v := range values {
			w.Header().Add(key, v)
		}
	}

	if r.Body == nil {
		w.WriteHeader(r.StatusCode)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(r.StatusCode)
	_ = json.NewEncoder(w).Encode(r.Body)
}
