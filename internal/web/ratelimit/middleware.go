package ratelimit

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/gantry-web/gantry/internal/resolve"
)

// KeyFunc derives the rate limit key for a request
type KeyFunc func(s *resolve.Scope) string

// ByRemoteAddr keys requests by their remote address
func ByRemoteAddr(s *resolve.Scope) string {
	return s.RemoteAddr()
}

// Middleware builds a rate limiting middleware over the given limiter.
// Requests over budget are rejected with 429 before the handler or any
// database work runs. A limiter backend failure fails open: the request
// is allowed through and the failure is logged.
func Middleware(limiter Limiter, key KeyFunc, logger *zap.Logger) resolve.Middleware {
	if key == nil {
		key = ByRemoteAddr
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return resolve.Middleware{
		Name: "rate_limit",
		Fn: func(s *resolve.Scope) (any, error) {
			k := key(s)
			info, err := limiter.Allow(s.Context(), k)
			if err != nil {
				logger.Warn("rate limiter unavailable, allowing request",
					zap.String("key", k),
					zap.Error(err),
				)
				return nil, nil
			}
			if !info.Allowed {
				return nil, resolve.Reject(http.StatusTooManyRequests, "rate limit exceeded").
					WithCode("too_many_requests")
			}
			return nil, nil
		},
	}
}
