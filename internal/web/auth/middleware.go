package auth

import (
	"net/http"
	"strings"

	"github.com/gantry-web/gantry/internal/resolve"
)

// ClaimsOutput is the provider type identity of the claims a validated
// request carries. Handlers declare a middleware-output parameter of
// this type to receive them.
const ClaimsOutput = "auth.Claims"

// Middleware builds the authentication middleware. It validates the
// bearer token and publishes the typed claims as its output; requests
// without a valid token are rejected before any handler work happens.
func Middleware(service *Service) resolve.Middleware {
	return resolve.Middleware{
		Name:   "auth",
		Output: ClaimsOutput,
		Fn: func(s *resolve.Scope) (any, error) {
			header, ok := s.Header("Authorization")
			if !ok {
				return nil, resolve.Reject(http.StatusUnauthorized, "missing authorization header").
					WithCode("unauthorized")
			}

			token, found := strings.CutPrefix(header, "Bearer ")
			if !found {
				return nil, resolve.Reject(http.StatusUnauthorized, "authorization header must be a bearer token").
					WithCode("unauthorized")
			}

			claims, err := service.ValidateToken(token)
			if err != nil {
				return nil, resolve.Reject(http.StatusUnauthorized, "invalid or expired token").
					WithCode("unauthorized")
			}
			return claims, nil
		},
	}
}

// RequireRole builds a middleware that rejects requests whose claims
// lack the given role. It must run after the authentication middleware.
func RequireRole(role string) resolve.Middleware {
	return resolve.Middleware{
		Name: "require_role_" + role,
		Fn: func(s *resolve.Scope) (any, error) {
			v, ok := s.MiddlewareOutput("auth")
			if !ok {
				return nil, resolve.Reject(http.StatusUnauthorized, "authentication required").
					WithCode("unauthorized")
			}

			claims, ok := v.(*Claims)
			if !ok || !claims.HasRole(role) {
				return nil, resolve.Reject(http.StatusForbidden, "insufficient permissions").
					WithCode("forbidden")
			}
			return nil, nil
		},
	}
}
