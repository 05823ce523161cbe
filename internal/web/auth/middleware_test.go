package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gantry-web/gantry/internal/provider"
	"github.com/gantry-web/gantry/internal/resolve"
)

func newAuthedRoute(t *testing.T, service *Service, middleware ...resolve.Middleware) http.Handler {
	t.Helper()

	resolver := resolve.NewResolver(provider.NewRegistry(), nil)
	require.NoError(t, resolver.RegisterMiddleware(Middleware(service)))
	for _, mw := range middleware {
		require.NoError(t, resolver.RegisterMiddleware(mw))
	}

	names := []string{"auth"}
	for _, mw := range middleware {
		names = append(names, mw.Name)
	}

	d, err := resolver.Resolve(resolve.RouteSpec{
		Method:     http.MethodGet,
		Pattern:    "/me",
		Middleware: names,
		Params: []resolve.ParamSpec{
			{Name: "claims", Kind: provider.Kind{Source: provider.SourceMiddleware, Type: ClaimsOutput}},
		},
		Handler: func(ctx context.Context, args *resolve.Args) (any, error) {
			claims, err := resolve.Arg[*Claims](args, "claims")
			if err != nil {
				return nil, err
			}
			return map[string]string{"user_id": claims.UserID}, nil
		},
	})
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Method(d.Method(), d.Pattern(), d)
	return r
}

func TestMiddlewarePublishesClaims(t *testing.T) {
	service := NewService("test-secret", time.Hour)
	handler := newAuthedRoute(t, service)

	token, err := service.GenerateToken("u-7", "ann@example.com", nil)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user_id":"u-7"}`, rec.Body.String())
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	handler := newAuthedRoute(t, NewService("test-secret", time.Hour))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareRejectsMalformedHeader(t *testing.T) {
	handler := newAuthedRoute(t, NewService("test-secret", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
	service := NewService("test-secret", time.Hour)
	handler := newAuthedRoute(t, service, RequireRole("admin"))

	viewer, err := service.GenerateToken("u-1", "v@example.com", []string{"viewer"})
	require.NoError(t, err)
	admin, err := service.GenerateToken("u-2", "a@example.com", []string{"admin"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+viewer)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+admin)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
