// Package demo is the reference application: a small users API built
// entirely from declared queries, providers and routes. It doubles as
// the integration surface the CLI serves.
package demo

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/gantry-web/gantry/internal/app"
	"github.com/gantry-web/gantry/internal/db"
	"github.com/gantry-web/gantry/internal/provider"
	"github.com/gantry-web/gantry/internal/query"
	"github.com/gantry-web/gantry/internal/resolve"
	"github.com/gantry-web/gantry/internal/route"
	"github.com/gantry-web/gantry/internal/web/auth"
	"github.com/gantry-web/gantry/internal/web/ratelimit"
	"github.com/gantry-web/gantry/internal/web/response"
)

// User is the API's user representation
type User struct {
	ID        int32     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type credentials struct {
	User
	PasswordHash string
}

// NewUserInput is the POST /users request body
type NewUserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginInput is the POST /login request body
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Options configures the demo application
type Options struct {
	Auth    *auth.Service
	Limiter ratelimit.Limiter
	Logger  *zap.Logger
}

func scanUser(r query.Record) (User, error) {
	id, err := query.ColumnValue[int32](r, "id")
	if err != nil {
		return User{}, err
	}
	name, err := query.ColumnValue[string](r, "name")
	if err != nil {
		return User{}, err
	}
	email, err := query.ColumnValue[string](r, "email")
	if err != nil {
		return User{}, err
	}
	createdAt, err := query.ColumnValue[time.Time](r, "created_at")
	if err != nil {
		return User{}, err
	}
	return User{ID: id, Name: name, Email: email, CreatedAt: createdAt}, nil
}

func scanCredentials(r query.Record) (credentials, error) {
	u, err := scanUser(r)
	if err != nil {
		return credentials{}, err
	}
	hash, err := query.ColumnValue[string](r, "password_hash")
	if err != nil {
		return credentials{}, err
	}
	return credentials{User: u, PasswordHash: hash}, nil
}

// Build assembles the demo application into a route table
func Build(pool db.Pool, opts Options) (*route.Table, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	a := app.New(pool, app.WithLogger(logger))

	getUser := query.Bind(a.DefineQuery(query.Spec{
		Name: "get_user",
		SQL:  "SELECT id, name, email, created_at FROM users WHERE id = $1",
		Params: []query.ParamDecl{
			query.Param("id", "int"),
		},
		Columns: []query.ColumnDecl{
			query.Column("id", "int"),
			query.Column("name", "text"),
			query.Column("email", "text"),
			query.Column("created_at", "timestamptz"),
		},
		Cardinality: query.One,
	}), scanUser)

	listUsers := query.Bind(a.DefineQuery(query.Spec{
		Name: "list_users",
		SQL:  "SELECT id, name, email, created_at FROM users ORDER BY id",
		Columns: []query.ColumnDecl{
			query.Column("id", "int"),
			query.Column("name", "text"),
			query.Column("email", "text"),
			query.Column("created_at", "timestamptz"),
		},
		Cardinality: query.Many,
	}), scanUser)

	insertUser := query.Bind(a.DefineQuery(query.Spec{
		Name: "insert_user",
		SQL:  "INSERT INTO users (name, email, password_hash) VALUES ($1, $2, $3) RETURNING id, name, email, created_at",
		Params: []query.ParamDecl{
			query.Param("name", "text"),
			query.Param("email", "text"),
			query.Param("password_hash", "text"),
		},
		Columns: []query.ColumnDecl{
			query.Column("id", "int"),
			query.Column("name", "text"),
			query.Column("email", "text"),
			query.Column("created_at", "timestamptz"),
		},
		Cardinality: query.One,
	}), scanUser)

	getByEmail := query.Bind(a.DefineQuery(query.Spec{
		Name: "get_user_by_email",
		SQL:  "SELECT id, name, email, created_at, password_hash FROM users WHERE email = $1",
		Params: []query.ParamDecl{
			query.Param("email", "text"),
		},
		Columns: []query.ColumnDecl{
			query.Column("id", "int"),
			query.Column("name", "text"),
			query.Column("email", "text"),
			query.Column("created_at", "timestamptz"),
			query.Column("password_hash", "text"),
		},
		Cardinality: query.OptionalOne,
	}), scanCredentials)

	a.ProvidePathParam("id", "int")
	a.Provide(resolve.QueryOneRecipe("demo.User", getUser, "id"))
	a.Provide(resolve.BodyRecipe[NewUserInput]("demo.NewUserInput"))
	a.Provide(resolve.BodyRecipe[LoginInput]("demo.LoginInput"))

	if opts.Auth != nil {
		a.DefineMiddleware(auth.Middleware(opts.Auth))
	}
	if opts.Limiter != nil {
		a.DefineMiddleware(ratelimit.Middleware(opts.Limiter, nil, logger))
	}

	a.WithPostfix(func(resp *response.Response) *response.Response {
		return resp.WithHeader("X-Content-Type-Options", "nosniff")
	})

	a.Route(resolve.RouteSpec{
		Method:  http.MethodGet,
		Pattern: "/status",
		Handler: func(ctx context.Context, args *resolve.Args) (any, error) {
			return map[string]string{"status": "ok"}, nil
		},
	})

	if opts.Auth != nil {
		a.Route(resolve.RouteSpec{
			Method:  http.MethodPost,
			Pattern: "/login",
			Params: []resolve.ParamSpec{
				{Name: "input", Kind: provider.Kind{Source: provider.SourceBody, Type: "demo.LoginInput"}},
				{Name: "conn", Kind: provider.Kind{Source: provider.SourceConnection}},
			},
			Handler: func(ctx context.Context, args *resolve.Args) (any, error) {
				input, err := resolve.Arg[LoginInput](args, "input")
				if err != nil {
					return nil, err
				}
				conn, err := resolve.Arg[query.Querier](args, "conn")
				if err != nil {
					return nil, err
				}

				creds, err := getByEmail.Optional(ctx, conn, input.Email)
				if err != nil {
					return nil, err
				}
				if creds == nil || !auth.CheckPassword(input.Password, creds.PasswordHash) {
					return nil, response.NewHTTPError(http.StatusUnauthorized, "invalid email or password").
						WithCode("invalid_credentials")
				}

				token, err := opts.Auth.GenerateToken(
					strconv.FormatInt(int64(creds.ID), 10), creds.Email, []string{"user"})
				if err != nil {
					return nil, err
				}
				return map[string]string{"token": token}, nil
			},
		})
	}

	var moduleMiddleware []string
	if opts.Limiter != nil {
		moduleMiddleware = append(moduleMiddleware, "rate_limit")
	}
	if opts.Auth != nil {
		moduleMiddleware = append(moduleMiddleware, "auth")
	}
	api := a.Module("/api/v1", moduleMiddleware...)

	api.Route(resolve.RouteSpec{
		Method:  http.MethodGet,
		Pattern: "/users/{id}",
		Params: []resolve.ParamSpec{
			{Name: "id", Kind: provider.Kind{Source: provider.SourcePath, Name: "id", Type: "int"}},
			{Name: "user", Kind: provider.Kind{Source: provider.SourceCustom, Type: "demo.User"}},
		},
		Handler: func(ctx context.Context, args *resolve.Args) (any, error) {
			return resolve.Arg[User](args, "user")
		},
	})

	api.Route(resolve.RouteSpec{
		Method:  http.MethodGet,
		Pattern: "/users",
		Params: []resolve.ParamSpec{
			{Name: "conn", Kind: provider.Kind{Source: provider.SourceConnection}},
		},
		Handler: func(ctx context.Context, args *resolve.Args) (any, error) {
			conn, err := resolve.Arg[query.Querier](args, "conn")
			if err != nil {
				return nil, err
			}
			return listUsers.All(ctx, conn)
		},
	})

	api.Route(resolve.RouteSpec{
		Method:  http.MethodPost,
		Pattern: "/users",
		Params: []resolve.ParamSpec{
			{Name: "input", Kind: provider.Kind{Source: provider.SourceBody, Type: "demo.NewUserInput"}},
			{Name: "conn", Kind: provider.Kind{Source: provider.SourceConnection}},
		},
		Handler: func(ctx context.Context, args *resolve.Args) (any, error) {
			input, err := resolve.Arg[NewUserInput](args, "input")
			if err != nil {
				return nil, err
			}
			if input.Name == "" || input.Email == "" || input.Password == "" {
				return nil, response.NewHTTPError(http.StatusUnprocessableEntity, "name, email and password are required").
					WithCode("validation_failed")
			}
			conn, err := resolve.Arg[query.Querier](args, "conn")
			if err != nil {
				return nil, err
			}

			hash, err := auth.HashPassword(input.Password)
			if errors.Is(err, auth.ErrPasswordTooLong) {
				return nil, response.NewHTTPError(http.StatusUnprocessableEntity, "password exceeds 72 bytes").
					WithCode("validation_failed")
			}
			if err != nil {
				return nil, err
			}
			created, err := insertUser.One(ctx, conn, input.Name, input.Email, hash)
			if err != nil {
				return nil, err
			}
			return response.Created(created), nil
		},
	})

	return a.Build()
}
