package resolve

import (
	"encoding/json"
	"fmt"

	"github.com/gantry-web/gantry/internal/catalog"
	"github.com/gantry-web/gantry/internal/provider"
	"github.com/gantry-web/gantry/internal/query"
	"github.com/gantry-web/gantry/internal/web/request"
)

// ConnectionRecipe provides the per-request database connection. The
// scope guarantees acquire-once semantics, so a handler requesting both
// a connection and a query result over that connection sees one
// connection.
func ConnectionRecipe() provider.Recipe {
	return provider.Recipe{
		Kind: provider.Kind{Source: provider.SourceConnection},
		Build: func(s provider.Scope) (any, error) {
			return s.Querier()
		},
	}
}

// PathParamRecipe provides a typed value extracted from a named path
// segment. The declared type must resolve at build time.
func PathParamRecipe(name, declaredType string, cat *catalog.Catalog) (provider.Recipe, error) {
	t, err := catalog.ParseType(declaredType)
	if err != nil {
		return provider.Recipe{}, err
	}
	if _, err := cat.Resolve(t); err != nil {
		return provider.Recipe{}, err
	}

	return provider.Recipe{
		Kind: provider.Kind{Source: provider.SourcePath, Name: name, Type: t.String()},
		Build: func(s provider.Scope) (any, error) {
			raw, ok := s.PathParam(name)
			if !ok {
				return nil, &ExtractionError{Param: name, Err: fmt.Errorf("missing path parameter")}
			}

			v, err := request.ParseValue(t, raw)
			if err != nil {
				return nil, &ExtractionError{Param: name, Err: err}
			}
			return v, nil
		},
	}, nil
}

// QueryParamRecipe provides a typed value extracted from a named
// query-string field. A nullable declared type makes the field
// optional; otherwise absence is an extraction failure.
func QueryParamRecipe(name, declaredType string, cat *catalog.Catalog) (provider.Recipe, error) {
	t, err := catalog.ParseType(declaredType)
	if err != nil {
		return provider.Recipe{}, err
	}
	if _, err := cat.Resolve(t); err != nil {
		return provider.Recipe{}, err
	}

	return provider.Recipe{
		Kind: provider.Kind{Source: provider.SourceQuery, Name: name, Type: t.String()},
		Build: func(s provider.Scope) (any, error) {
			raw, ok := s.QueryParam(name)
			if !ok {
				if t.Kind == catalog.KindNullable {
					return nil, nil
				}
				return nil, &ExtractionError{Param: name, Err: fmt.Errorf("missing query parameter")}
			}

			v, err := request.ParseValue(t, raw)
			if err != nil {
				return nil, &ExtractionError{Param: name, Err: err}
			}
			return v, nil
		},
	}, nil
}

// BodyRecipe provides the request body decoded from JSON into T. The
// kind's type identity is the caller-declared type name.
func BodyRecipe[T any](typeName string) provider.Recipe {
	return provider.Recipe{
		Kind: provider.Kind{Source: provider.SourceBody, Type: typeName},
		Build: func(s provider.Scope) (any, error) {
			body, err := s.Body()
			if err != nil {
				return nil, &ExtractionError{Param: "body", Err: err}
			}
			if len(body) == 0 {
				return nil, &ExtractionError{Param: "body", Err: fmt.Errorf("empty request body")}
			}

			var v T
			if err := json.Unmarshal(body, &v); err != nil {
				return nil, &ExtractionError{Param: "body", Err: fmt.Errorf("invalid JSON: %w", err)}
			}
			return v, nil
		},
	}
}

// MiddlewareOutputRecipe provides the cached output of a declared
// middleware. The dispatcher runs the chain before any middleware-output
// recipe builds, so a miss here is a wiring defect, not a request error.
func MiddlewareOutputRecipe(mw Middleware) provider.Recipe {
	return provider.Recipe{
		Kind: provider.Kind{Source: provider.SourceMiddleware, Type: mw.Output},
		Build: func(s provider.Scope) (any, error) {
			v, ok := s.MiddlewareOutput(mw.Name)
			if !ok {
				return nil, fmt.Errorf("middleware %q did not run before its output was needed", mw.Name)
			}
			return v, nil
		},
	}
}

// QueryOneRecipe provides a value loaded through a compiled
// cardinality-one query over the request's shared connection. Arguments
// are handler parameters resolved earlier in the construction plan,
// referenced by name.
func QueryOneRecipe[T any](typeName string, typed *query.Typed[T], argNames ...string) provider.Recipe {
	return provider.Recipe{
		Kind: provider.Kind{Source: provider.SourceCustom, Type: typeName},
		Build: func(s provider.Scope) (any, error) {
			args := make([]any, len(argNames))
			for i, name := range argNames {
				v, ok := s.Resolved(name)
				if !ok {
					return nil, fmt.Errorf("query provider %q: argument %q not resolved", typeName, name)
				}
				args[i] = v
			}

			q, err := s.Querier()
			if err != nil {
				return nil, err
			}
			return typed.One(s.Context(), q, args...)
		},
	}
}
