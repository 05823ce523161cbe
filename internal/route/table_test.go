package route

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedHandler(name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Handler", name)
		w.WriteHeader(http.StatusOK)
	})
}

func TestParsePattern(t *testing.T) {
	tests := []struct {
		pattern string
		wantErr bool
	}{
		{"/users", false},
		{"/users/{id}", false},
		{"/teams/{team}/users/{id}", false},
		{"/", false},
		{"users", true},
		{"/users//posts", true},
		{"/users/{id", true},
		{"/users/id}", true},
		{"/users/{}", true},
		{"/a/{x}/b/{x}", true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			_, err := parsePattern(tt.pattern)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidPattern)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestBuildRejectsDuplicates(t *testing.T) {
	_, err := Build([]Entry{
		{Method: http.MethodGet, Pattern: "/users/{id}", Handler: namedHandler("a")},
		{Method: http.MethodGet, Pattern: "/users/{id}", Handler: namedHandler("b")},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateRoute)
}

func TestBuildAllowsSamePatternDifferentMethods(t *testing.T) {
	table, err := Build([]Entry{
		{Method: http.MethodGet, Pattern: "/users", Handler: namedHandler("list")},
		{Method: http.MethodPost, Pattern: "/users", Handler: namedHandler("create")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, table.Len())
}

func TestLookupIsIdempotent(t *testing.T) {
	table, err := Build([]Entry{
		{Method: http.MethodGet, Pattern: "/users/{id}", Handler: namedHandler("show")},
		{Method: http.MethodGet, Pattern: "/users", Handler: namedHandler("list")},
	})
	require.NoError(t, err)

	first, ok := table.Lookup(http.MethodGet, "/users/7")
	require.True(t, ok)
	assert.Equal(t, "/users/{id}", first.Pattern)

	for i := 0; i < 10; i++ {
		again, ok := table.Lookup(http.MethodGet, "/users/7")
		require.True(t, ok)
		assert.Equal(t, first.Pattern, again.Pattern)
	}
}

func TestLookupStaticBeatsParameter(t *testing.T) {
	table, err := Build([]Entry{
		{Method: http.MethodGet, Pattern: "/users/{id}", Handler: namedHandler("show")},
		{Method: http.MethodGet, Pattern: "/users/me", Handler: namedHandler("me")},
	})
	require.NoError(t, err)

	e, ok := table.Lookup(http.MethodGet, "/users/me")
	require.True(t, ok)
	assert.Equal(t, "/users/me", e.Pattern)

	e, ok = table.Lookup(http.MethodGet, "/users/7")
	require.True(t, ok)
	assert.Equal(t, "/users/{id}", e.Pattern)
}

func TestLookupMisses(t *testing.T) {
	table, err := Build([]Entry{
		{Method: http.MethodGet, Pattern: "/users", Handler: namedHandler("list")},
	})
	require.NoError(t, err)

	_, ok := table.Lookup(http.MethodGet, "/posts")
	assert.False(t, ok)

	_, ok = table.Lookup(http.MethodDelete, "/users")
	assert.False(t, ok)

	_, ok = table.Lookup(http.MethodGet, "/users/extra")
	assert.False(t, ok)
}

func TestServeHTTPDispatches(t *testing.T) {
	table, err := Build([]Entry{
		{Method: http.MethodGet, Pattern: "/users/{id}", Handler: namedHandler("show")},
		{Method: http.MethodGet, Pattern: "/users/me", Handler: namedHandler("me")},
	})
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	table.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/me", nil))
	assert.Equal(t, "me", rec.Header().Get("X-Handler"))

	rec = httptest.NewRecorder()
	table.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/42", nil))
	assert.Equal(t, "show", rec.Header().Get("X-Handler"))

	rec = httptest.NewRecorder()
	table.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRoutesSorted(t *testing.T) {
	table, err := Build([]Entry{
		{Method: http.MethodPost, Pattern: "/users", Handler: namedHandler("create")},
		{Method: http.MethodGet, Pattern: "/status", Handler: namedHandler("status")},
		{Method: http.MethodGet, Pattern: "/users", Handler: namedHandler("list")},
	})
	require.NoError(t, err)

	routes := table.Routes()
	require.Len(t, routes, 3)
	assert.Equal(t, "/status", routes[0].Pattern)
	assert.Equal(t, "/users", routes[1].Pattern)
	assert.Equal(t, http.MethodGet, routes[1].Method)
	assert.Equal(t, http.MethodPost, routes[2].Method)
}
