package app

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gantry-web/gantry/internal/db"
	"github.com/gantry-web/gantry/internal/provider"
	"github.com/gantry-web/gantry/internal/query"
	"github.com/gantry-web/gantry/internal/resolve"
	"github.com/gantry-web/gantry/internal/web/response"
)

type stubConn struct {
	query.Querier
}

func (stubConn) Release() {}

type stubPool struct {
	q query.Querier
}

func (p *stubPool) Acquire(ctx context.Context) (db.Conn, error) {
	return stubConn{p.q}, nil
}

func newMockPool(t *testing.T) (db.Pool, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	return &stubPool{q: query.NewStdQuerier(sqlDB)}, mock
}

type user struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

func TestBuildAndServe(t *testing.T) {
	pool, mock := newMockPool(t)
	a := New(pool)

	compiled := a.DefineQuery(query.Spec{
		Name:        "get_user",
		SQL:         "SELECT id, name FROM users WHERE id = $1",
		Params:      []query.ParamDecl{query.Param("id", "int")},
		Columns:     []query.ColumnDecl{query.Column("id", "int"), query.Column("name", "text")},
		Cardinality: query.One,
	})
	require.NotNil(t, compiled)

	getUser := query.Bind(compiled, func(r query.Record) (user, error) {
		id, err := query.ColumnValue[int32](r, "id")
		if err != nil {
			return user{}, err
		}
		name, err := query.ColumnValue[string](r, "name")
		if err != nil {
			return user{}, err
		}
		return user{ID: id, Name: name}, nil
	})

	a.ProvidePathParam("id", "int")
	a.Provide(resolve.QueryOneRecipe("User", getUser, "id"))

	a.Route(resolve.RouteSpec{
		Method:  http.MethodGet,
		Pattern: "/users/{id}",
		Params: []resolve.ParamSpec{
			{Name: "id", Kind: provider.Kind{Source: provider.SourcePath, Name: "id", Type: "int"}},
			{Name: "user", Kind: provider.Kind{Source: provider.SourceCustom, Type: "User"}},
		},
		Handler: func(ctx context.Context, args *resolve.Args) (any, error) {
			return resolve.Arg[user](args, "user")
		},
	})

	table, err := a.Build()
	require.NoError(t, err)
	require.Equal(t, 1, table.Len())

	mock.ExpectQuery("SELECT id, name FROM users WHERE id = $1").
		WithArgs(7).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(int32(7), "Ann"))

	rec := httptest.NewRecorder()
	table.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/7", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var got user
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, user{ID: 7, Name: "Ann"}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBuildCollectsAllDiagnostics(t *testing.T) {
	pool, _ := newMockPool(t)
	a := New(pool)

	// two independent declaration errors
	a.DefineQuery(query.Spec{Name: "empty", SQL: "", Cardinality: query.One})
	a.ProvidePathParam("id", "not_a_type")

	// and a route referencing an unknown middleware
	a.Route(resolve.RouteSpec{
		Method:     http.MethodGet,
		Pattern:    "/x",
		Middleware: []string{"ghost"},
		Handler: func(ctx context.Context, args *resolve.Args) (any, error) {
			return nil, nil
		},
	})

	_, err := a.Build()
	require.Error(t, err)
	assert.ErrorIs(t, err, query.ErrEmptySQL)
	assert.ErrorIs(t, err, resolve.ErrUnknownMiddleware)
	assert.Contains(t, err.Error(), "not_a_type")
}

func TestDuplicateQueryName(t *testing.T) {
	pool, _ := newMockPool(t)
	a := New(pool)

	spec := query.Spec{
		Name:        "ping",
		SQL:         "SELECT 1",
		Columns:     []query.ColumnDecl{query.Column("one", "int")},
		Cardinality: query.One,
	}
	require.NotNil(t, a.DefineQuery(spec))
	assert.Nil(t, a.DefineQuery(spec))

	_, err := a.Build()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declared twice")
}

func TestModulePrefixAndMiddleware(t *testing.T) {
	pool, _ := newMockPool(t)
	a := New(pool)

	var order []string
	a.DefineMiddleware(resolve.Middleware{
		Name: "module_mw",
		Fn: func(s *resolve.Scope) (any, error) {
			order = append(order, "module")
			return nil, nil
		},
	})
	a.DefineMiddleware(resolve.Middleware{
		Name: "route_mw",
		Fn: func(s *resolve.Scope) (any, error) {
			order = append(order, "route")
			return nil, nil
		},
	})

	api := a.Module("/api/v1", "module_mw")
	api.Route(resolve.RouteSpec{
		Method:     http.MethodGet,
		Pattern:    "/status",
		Middleware: []string{"route_mw"},
		Handler: func(ctx context.Context, args *resolve.Args) (any, error) {
			return map[string]string{"status": "ok"}, nil
		},
	})

	table, err := a.Build()
	require.NoError(t, err)

	_, ok := table.Lookup(http.MethodGet, "/api/v1/status")
	require.True(t, ok)

	rec := httptest.NewRecorder()
	table.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"module", "route"}, order)
}

func TestPostfixAppliedToEveryRoute(t *testing.T) {
	pool, _ := newMockPool(t)
	a := New(pool)

	a.WithPostfix(func(resp *response.Response) *response.Response {
		return resp.WithHeader("X-Content-Type-Options", "nosniff")
	})

	a.Route(resolve.RouteSpec{
		Method:  http.MethodGet,
		Pattern: "/ok",
		Handler: func(ctx context.Context, args *resolve.Args) (any, error) {
			return map[string]bool{"ok": true}, nil
		},
	})
	a.Route(resolve.RouteSpec{
		Method:  http.MethodGet,
		Pattern: "/fail",
		Handler: func(ctx context.Context, args *resolve.Args) (any, error) {
			return nil, assert.AnError
		},
	})

	table, err := a.Build()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	table.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))

	rec = httptest.NewRecorder()
	table.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
}

func TestBuildRejectsDuplicateRoutes(t *testing.T) {
	pool, _ := newMockPool(t)
	a := New(pool)

	handler := func(ctx context.Context, args *resolve.Args) (any, error) { return nil, nil }
	a.Route(resolve.RouteSpec{Method: http.MethodGet, Pattern: "/x", Handler: handler})
	a.Route(resolve.RouteSpec{Method: http.MethodGet, Pattern: "/x", Handler: handler})

	_, err := a.Build()
	require.Error(t, err)
}
