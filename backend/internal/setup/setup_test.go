package setup

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threed-dev/threed/backend/internal/pubsub"
	"github.com/threed-dev/threed/shared/config"
)

func sqliteConfig() *config.Config {
	return &config.Config{Public: config.Public{
		Http:       config.Http{Addr: ":0", RequestTimeout: time.Second},
		Storage:    config.Storage{Driver: "sqlite", SqlitePath: ":memory:"},
		Events:     config.Events{Backend: "memory", Buffer: 4},
		Auth:       config.Auth{BcryptCost: 4},
		Pagination: config.Pagination{DefaultLimit: 10, MaxLimit: 100},
	}}
}

func TestSetupDependencies(t *testing.T) {
	t.Run("sqlite with memory bus", func(t *testing.T) {
		deps, err := SetupDependencies(context.Background(), sqliteConfig())
		require.NoError(t, err)
		defer deps.Close()

		assert.NotNil(t, deps.Handler)
		assert.NotNil(t, deps.AuthMiddleware)
		assert.IsType(t, &pubsub.Bus{}, deps.Bus)
		assert.Nil(t, deps.Limiter, "rps 0 disables rate limiting")
		assert.NoError(t, deps.Storage.Ping(context.Background()))
	})

	t.Run("rate limiter is created when rps is set", func(t *testing.T) {
		cfg := sqliteConfig()
		cfg.Public.RateLimit = config.RateLimit{RPS: 1, Burst: 1}
		deps, err := SetupDependencies(context.Background(), cfg)
		require.NoError(t, err)
		defer deps.Close()
		require.NotNil(t, deps.Limiter)
	})

	t.Run("postgres events need postgres storage", func(t *testing.T) {
		cfg := sqliteConfig()
		cfg.Public.Events = config.Events{Backend: "postgres", Buffer: 4, Channel: "c"}
		_, err := SetupDependencies(context.Background(), cfg)
		assert.Error(t, err)
	})

	t.Run("unknown storage driver", func(t *testing.T) {
		cfg := sqliteConfig()
		cfg.Public.Storage.Driver = "mysql"
		_, err := SetupDependencies(context.Background(), cfg)
		assert.Error(t, err)
	})
}

func TestOriginChecker(t *testing.T) {
	assert.Nil(t, originChecker(nil))
	assert.Nil(t, originChecker([]string{"*"}))

	check := originChecker([]string{"http://board.test"})
	require.NotNil(t, check)

	tests := []struct {
		origin string
		want   bool
	}{
		{origin: "", want: true},
		{origin: "http://board.test", want: true},
		{origin: "http://evil.test", want: false},
		{origin: "::not a url", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.origin, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/graphql", nil)
			if tt.origin != "" {
				r.Header.Set("Origin", tt.origin)
			}
			assert.Equal(t, tt.want, check(r))
		})
	}
}
