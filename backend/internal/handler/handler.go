package handler

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/99designs/gqlgen/graphql"
	gqlhandler "github.com/99designs/gqlgen/graphql/handler"
	"github.com/99designs/gqlgen/graphql/handler/extension"
	"github.com/99designs/gqlgen/graphql/handler/lru"
	"github.com/99designs/gqlgen/graphql/handler/transport"
	"github.com/gorilla/websocket"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/formatter"

	"github.com/threed-dev/threed/backend/internal/graph"
	"github.com/threed-dev/threed/shared/domain"
	"github.com/threed-dev/threed/shared/logger"
	"github.com/threed-dev/threed/shared/middleware"
)

const (
	keepAlive       = 15 * time.Second
	queryCacheSize  = 1000
	apqCacheSize    = 100
	complexityLimit = 300
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Handler struct {
	server         *gqlhandler.Server
	envs           graph.EnvFactory
	health         HealthChecker
	sdl            []byte
	requestTimeout time.Duration
	log            *slog.Logger
}

// New creates the transport handler for an executable schema. checkOrigin
// guards websocket upgrades; nil accepts any origin.
func New(schema graphql.ExecutableSchema, envs graph.EnvFactory, health HealthChecker, requestTimeout time.Duration, checkOrigin func(r *http.Request) bool) *Handler {
	if checkOrigin == nil {
		checkOrigin = func(*http.Request) bool { return true }
	}
	h := &Handler{
		envs:           envs,
		health:         health,
		requestTimeout: requestTimeout,
		log:            logger.Component("handler"),
	}

	srv := gqlhandler.New(schema)
	srv.AddTransport(transport.Websocket{
		KeepAlivePingInterval: keepAlive,
		Upgrader:              websocket.Upgrader{CheckOrigin: checkOrigin},
		InitFunc:              anonymousSession,
	})
	srv.AddTransport(transport.GET{})
	srv.AddTransport(transport.POST{})

	srv.SetQueryCache(lru.New[*ast.QueryDocument](queryCacheSize))
	srv.Use(extension.Introspection{})
	srv.Use(extension.AutomaticPersistedQuery{Cache: lru.New[string](apqCacheSize)})
	srv.Use(extension.FixedComplexityLimit(complexityLimit))

	srv.SetErrorPresenter(graph.ErrorPresenter(h.log))
	srv.SetRecoverFunc(graph.Recover(h.log))
	srv.AroundOperations(h.bindEnv)
	srv.AroundResponses(h.logErrors)
	h.server = srv

	var sdl bytes.Buffer
	formatter.NewFormatter(&sdl).FormatSchema(schema.Schema())
	h.sdl = sdl.Bytes()
	return h
}

type websocketKey struct{}

// anonymousSession marks the operations of a websocket connection.
// Subscriptions carry no identity, whatever the upgrade request had.
func anonymousSession(ctx context.Context, _ transport.InitPayload) (context.Context, *transport.InitPayload, error) {
	ctx = context.WithValue(ctx, websocketKey{}, true)
	return middleware.WithViewer(ctx, domain.Anonymous()), nil, nil
}

func overWebsocket(ctx context.Context) bool {
	ok, _ := ctx.Value(websocketKey{}).(bool)
	return ok
}

// bindEnv gives every operation one environment built for its viewer.
func (h *Handler) bindEnv(ctx context.Context, next graphql.OperationHandler) graphql.ResponseHandler {
	oc := graphql.GetOperationContext(ctx)
	if oc.Operation != nil && oc.Operation.Operation == ast.Subscription && !overWebsocket(ctx) {
		return graphql.OneShot(graphql.ErrorResponse(ctx, "subscriptions are served over websocket"))
	}
	env := h.envs.Env(middleware.ViewerFromContext(ctx))
	return next(graph.WithEnv(ctx, env))
}

func (h *Handler) logErrors(ctx context.Context, next graphql.ResponseHandler) *graphql.Response {
	resp := next(ctx)
	if resp != nil && len(resp.Errors) > 0 {
		oc := graphql.GetOperationContext(ctx)
		h.log.Debug("operation finished with errors", "operation", oc.OperationName, "errors", len(resp.Errors))
	}
	return resp
}
