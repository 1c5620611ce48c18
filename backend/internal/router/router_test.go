package router

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threed-dev/threed/backend/internal/pubsub"
	"github.com/threed-dev/threed/backend/internal/service"
	"github.com/threed-dev/threed/backend/internal/setup"
	"github.com/threed-dev/threed/shared/config"
	"github.com/threed-dev/threed/shared/domain"
)

func testConfig(rps, burst float64) *config.Config {
	return &config.Config{Public: config.Public{
		Http: config.Http{
			Addr:               ":0",
			RequestTimeout:     5 * time.Second,
			CorsAllowedOrigins: []string{"http://board.test"},
		},
		Storage:    config.Storage{Driver: "sqlite", SqlitePath: ":memory:"},
		Events:     config.Events{Backend: "memory", Buffer: 8},
		Auth:       config.Auth{BcryptCost: 4},
		Pagination: config.Pagination{DefaultLimit: 10, MaxLimit: 100},
		RateLimit:  config.RateLimit{RPS: rps, Burst: burst},
	}}
}

func newServer(t *testing.T, cfg *config.Config) (*httptest.Server, *setup.Dependencies) {
	t.Helper()
	deps, err := setup.SetupDependencies(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(deps.Close)

	srv := httptest.NewServer(New(deps))
	t.Cleanup(srv.Close)
	return srv, deps
}

func do(t *testing.T, req *http.Request) (*http.Response, string) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestRoutes(t *testing.T) {
	srv, _ := newServer(t, testConfig(100, 100))

	t.Run("health", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
		resp, body := do(t, req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"status":"ok"}`, body)
		assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"))
		assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"))
	})

	t.Run("graphql", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/graphql", strings.NewReader(`{"query":"{ threads(sortBy: LATEST) { id } me { id } }"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, body := do(t, req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.JSONEq(t, `{"data":{"threads":[],"me":null}}`, body)
	})

	t.Run("schema", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/graphql/schema", nil)
		resp, body := do(t, req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, "type Query")
	})

	t.Run("cors preflight", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodOptions, srv.URL+"/graphql", nil)
		req.Header.Set("Origin", "http://board.test")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		req.Header.Set("Access-Control-Request-Headers", "Authorization")
		resp, _ := do(t, req)
		assert.Equal(t, "http://board.test", resp.Header.Get("Access-Control-Allow-Origin"))
	})

	t.Run("put on graphql", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodPut, srv.URL+"/graphql", strings.NewReader("{}"))
		resp, _ := do(t, req)
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})

	t.Run("playground is off by default", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/playground", nil)
		resp, _ := do(t, req)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("metrics", func(t *testing.T) {
		req, _ := http.NewRequest(http.MethodGet, srv.URL+"/metrics", nil)
		resp, body := do(t, req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, body, `threed_http_requests_total{method="GET",path="/health",status="200"}`)
	})
}

func TestGraphQLIsRateLimitedPerIP(t *testing.T) {
	srv, _ := newServer(t, testConfig(0.001, 2))

	post := func() int {
		req, _ := http.NewRequest(http.MethodPost, srv.URL+"/graphql", strings.NewReader(`{"query":"{ me { id } }"}`))
		req.Header.Set("Content-Type", "application/json")
		resp, _ := do(t, req)
		return resp.StatusCode
	}
	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusOK, post())
	assert.Equal(t, http.StatusTooManyRequests, post())

	// other routes are not limited
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	resp, _ := do(t, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPlayground(t *testing.T) {
	cfg := testConfig(100, 100)
	cfg.Public.Http.Playground = true
	srv, _ := newServer(t, cfg)

	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/playground", nil)
	resp, body := do(t, req)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, "threed")
	assert.Contains(t, body, "/graphql")
}

// The upgrade passes every middleware of the chain, so each one has to
// leave the connection hijackable.
func TestSubscriptionThroughRouter(t *testing.T) {
	srv, deps := newServer(t, testConfig(100, 100))
	bus, ok := deps.Bus.(*pubsub.Bus)
	require.True(t, ok)

	dialer := websocket.Dialer{Subprotocols: []string{"graphql-transport-ws"}}
	header := http.Header{"Origin": {"http://board.test"}}
	conn, resp, err := dialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/graphql", header)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	assert.Equal(t, "graphql-transport-ws", resp.Header.Get("Sec-WebSocket-Protocol"))

	read := func() map[string]any {
		t.Helper()
		for {
			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			var msg map[string]any
			require.NoError(t, conn.ReadJSON(&msg))
			if msg["type"] != "ping" && msg["type"] != "pong" {
				return msg
			}
		}
	}

	require.NoError(t, conn.WriteJSON(map[string]any{"type": "connection_init"}))
	assert.Equal(t, "connection_ack", read()["type"])

	require.NoError(t, conn.WriteJSON(map[string]any{
		"id":      "1",
		"type":    "subscribe",
		"payload": map[string]any{"query": "subscription { newThread { title } }"},
	}))
	require.Eventually(t, func() bool { return bus.Subscribers(service.TopicNewThread) == 1 }, time.Second, 5*time.Millisecond)

	ctx := context.Background()
	alice, err := deps.Service.Env(domain.Anonymous()).Signup(ctx, domain.Credentials{Username: "alice", Password: "secret"})
	require.NoError(t, err)
	env := deps.Service.Env(domain.Authenticated(domain.Identity{Id: alice.User.Id, Username: "alice"}))
	_, err = env.CreateThread(ctx, domain.ThreadInput{Title: "via router"})
	require.NoError(t, err)

	msg := read()
	assert.Equal(t, "next", msg["type"])
	assert.Equal(t, "1", msg["id"])
	assert.Equal(t, map[string]any{"data": map[string]any{"newThread": map[string]any{"title": "via router"}}}, msg["payload"])

	t.Run("foreign origin is refused", func(t *testing.T) {
		_, resp, err := dialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/graphql", http.Header{"Origin": {"http://evil.test"}})
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})
}
