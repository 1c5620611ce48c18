// Package graph serves the board schema. generated.go and model/ are
// produced by gqlgen from schema.graphqls; resolvers only translate
// between the generated types and service.Env.
package graph

//go:generate go run github.com/99designs/gqlgen generate

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"

	"github.com/99designs/gqlgen/graphql"
	"github.com/threed-dev/threed/backend/internal/pubsub"
	"github.com/threed-dev/threed/backend/internal/service"
	"github.com/threed-dev/threed/shared/domain"
	internal_errors "github.com/threed-dev/threed/shared/errors"
	"github.com/vektah/gqlparser/v2/gqlerror"
)

// EnvFactory builds the request-scoped environment for a viewer.
type EnvFactory interface {
	Env(viewer domain.Viewer) service.Env
}

// Resolver is the gqlgen root. It holds nothing per request; the
// operation's service.Env travels in the context.
type Resolver struct {
	envs EnvFactory
}

func NewSchema(envs EnvFactory) graphql.ExecutableSchema {
	return NewExecutableSchema(Config{Resolvers: &Resolver{envs: envs}})
}

type envKey struct{}

// WithEnv binds env to every resolver of the operation running under ctx.
func WithEnv(ctx context.Context, env service.Env) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

// env falls back to an anonymous environment when the transport did not
// bind one.
func (r *Resolver) env(ctx context.Context) service.Env {
	if env, ok := ctx.Value(envKey{}).(service.Env); ok {
		return env
	}
	return r.envs.Env(domain.Anonymous())
}

var errInternal = errors.New("internal system error")

// ErrorPresenter keeps domain messages and codes and hides everything that
// did not originate in the domain or in GraphQL validation.
func ErrorPresenter(log *slog.Logger) graphql.ErrorPresenterFunc {
	return func(ctx context.Context, err error) *gqlerror.Error {
		presented := graphql.DefaultErrorPresenter(ctx, err)

		var domainErr *internal_errors.ErrorWithStatusCode
		if errors.As(err, &domainErr) {
			return &gqlerror.Error{
				Message:    domainErr.Message,
				Path:       presented.Path,
				Locations:  presented.Locations,
				Extensions: map[string]any{"code": domainErr.Code},
			}
		}

		var gqlErr *gqlerror.Error
		if errors.As(err, &gqlErr) && gqlErr.Err == nil {
			return presented
		}

		log.ErrorContext(ctx, "field resolution failed", "error", err, "path", presented.Path.String())
		return &gqlerror.Error{
			Message:    "Internal server error",
			Path:       presented.Path,
			Locations:  presented.Locations,
			Extensions: map[string]any{"code": internal_errors.CodeInternal},
		}
	}
}

// Recover turns a resolver panic into a field error.
func Recover(log *slog.Logger) graphql.RecoverFunc {
	return func(ctx context.Context, p any) error {
		log.ErrorContext(ctx, "resolver panicked", "panic", p, "stack", string(debug.Stack()))
		return errInternal
	}
}

// relay narrows a bus subscription to the element type of one stream. The
// channel closes when the subscription ends or ctx is done.
func relay[T any](ctx context.Context, sub *pubsub.Subscription) <-chan *T {
	out := make(chan *T, 1)
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case payload, ok := <-sub.C():
				if !ok {
					return
				}
				v, ok := payload.(T)
				if !ok {
					continue
				}
				select {
				case out <- &v:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out
}

func optional[T any](v T) *T {
	return &v
}
