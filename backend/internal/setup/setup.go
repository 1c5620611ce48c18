package setup

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"slices"
	"time"

	"github.com/threed-dev/threed/backend/internal/graph"
	"github.com/threed-dev/threed/backend/internal/handler"
	"github.com/threed-dev/threed/backend/internal/markdown"
	"github.com/threed-dev/threed/backend/internal/pubsub"
	"github.com/threed-dev/threed/backend/internal/service"
	"github.com/threed-dev/threed/backend/internal/storage"
	"github.com/threed-dev/threed/shared/config"
	"github.com/threed-dev/threed/shared/crypto"
	"github.com/threed-dev/threed/shared/jwt"
	"github.com/threed-dev/threed/shared/logger"
	"github.com/threed-dev/threed/shared/middleware"
	"github.com/threed-dev/threed/shared/middleware/ratelimiter"
)

// Dependencies struct to hold all initialized dependencies.
type Dependencies struct {
	Config         *config.Config
	Storage        *storage.Storage
	Bus            service.EventBus
	Service        *service.Service
	Handler        *handler.Handler
	AuthMiddleware *middleware.Auth
	Limiter        *ratelimiter.Limiter

	closers []func() error
}

// SetupDependencies initializes all dependencies required for the application.
// Background workers started here stop when ctx is cancelled.
func SetupDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, error) {
	log := logger.Component("setup")
	deps := &Dependencies{Config: cfg}

	dsn := cfg.Public.Storage.SqlitePath
	if cfg.Public.Storage.Driver == "postgres" {
		dsn = cfg.PgConnString()
	}
	store, err := storage.Open(ctx, cfg.Public.Storage.Driver, dsn)
	if err != nil {
		return nil, err
	}
	deps.Storage = store
	deps.closers = append(deps.closers, store.Cleanup)

	local := pubsub.NewBus(cfg.Public.Events.Buffer)
	switch cfg.Public.Events.Backend {
	case "postgres":
		if cfg.Public.Storage.Driver != "postgres" {
			deps.Close()
			return nil, errors.New("events.backend postgres needs storage.driver postgres")
		}
		bridge, err := pubsub.NewPostgres(cfg.PgConnString(), cfg.Public.Events.Channel, local, service.NewEventCodec(store))
		if err != nil {
			deps.Close()
			return nil, err
		}
		go bridge.Run(ctx)
		deps.Bus = bridge
		deps.closers = append(deps.closers, bridge.Close)
	default:
		deps.Bus = local
	}

	creds, err := crypto.NewBcrypt(cfg.Public.Auth.BcryptCost)
	if err != nil {
		deps.Close()
		return nil, err
	}
	tokens := jwt.New(cfg.JwtKey(), cfg.TokenTTL())

	pagination := service.Pagination{
		DefaultLimit: cfg.Public.Pagination.DefaultLimit,
		MaxLimit:     cfg.Public.Pagination.MaxLimit,
	}
	deps.Service = service.New(store, creds, tokens, deps.Bus, markdown.New(), pagination)
	deps.AuthMiddleware = middleware.NewAuth(tokens)

	schema := graph.NewSchema(deps.Service)
	deps.Handler = handler.New(schema, deps.Service, store, cfg.Public.Http.RequestTimeout, originChecker(cfg.Public.Http.CorsAllowedOrigins))

	if rl := cfg.Public.RateLimit; rl.RPS > 0 {
		deps.Limiter = ratelimiter.New(rl.RPS, rl.Burst, 10*time.Minute)
		deps.closers = append(deps.closers, func() error { deps.Limiter.Stop(); return nil })
	}

	log.Info("dependencies ready",
		"storage", cfg.Public.Storage.Driver,
		"events", cfg.Public.Events.Backend,
		"rate_limit_rps", cfg.Public.RateLimit.RPS,
	)
	return deps, nil
}

// Close releases resources in reverse order of acquisition.
func (d *Dependencies) Close() {
	log := logger.Component("setup")
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i](); err != nil {
			log.Error("failed to release dependency", "error", err)
		}
	}
	d.closers = nil
}

// originChecker mirrors the CORS origin list for websocket upgrades. An
// empty list or "*" accepts every origin; requests without Origin are
// not from browsers and pass.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 || slices.Contains(allowed, "*") {
		return nil
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil || u.Host == "" {
			return false
		}
		return slices.Contains(allowed, origin)
	}
}
