package router

import (
	"net/http"

	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/threed-dev/threed/backend/internal/setup"
	mw "github.com/threed-dev/threed/shared/middleware"
	"github.com/threed-dev/threed/shared/middleware/metrics"
)

// New creates the chi router with all routes.
// The rate limiter is shared by every request to /graphql from one IP.
func New(deps *setup.Dependencies) chi.Router {
	r := chi.NewRouter()
	httpCfg := deps.Config.Public.Http

	r.Use(chimw.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(mw.SecurityHeaders(httpCfg.HTTPS))

	origins := httpCfg.CorsAllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	h := deps.Handler

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/graphql/schema", h.Schema)
	if httpCfg.Playground {
		r.Get("/playground", playground.Handler("threed", "/graphql"))
	}

	r.Group(func(r chi.Router) {
		if deps.Limiter != nil {
			r.Use(mw.RateLimit(deps.Limiter, mw.GetIP))
		}
		r.Use(deps.AuthMiddleware.OptionalAuth())
		r.Get("/graphql", h.GraphQL)
		r.Post("/graphql", h.GraphQL)
	})

	return r
}
