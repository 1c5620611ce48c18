package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/threed-dev/threed/shared/domain"
	jwt_internal "github.com/threed-dev/threed/shared/jwt"
	"github.com/threed-dev/threed/shared/middleware/ratelimiter"
)

func TestOptionalAuth(t *testing.T) {
	jwtService := jwt_internal.New("test_secret", time.Hour)
	user := domain.User{Id: "u-1", Username: "alice"}
	token, err := jwtService.NewToken(user)
	require.NoError(t, err)

	tests := []struct {
		name       string
		header     string
		expectedId string
	}{
		{name: "Valid token", header: "Bearer " + token, expectedId: "u-1"},
		{name: "No token", header: ""},
		{name: "Invalid token", header: "Bearer invalid_token"},
		{name: "Wrong scheme", header: "Token " + token},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got domain.Viewer
			handler := NewAuth(jwtService).OptionalAuth()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ViewerFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			assert.Equal(t, http.StatusOK, rr.Code)
			identity, ok := got.Identity()
			if tt.expectedId == "" {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tt.expectedId, identity.Id)
		})
	}
}

func TestViewerFromContext_Default(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, ViewerFromContext(req.Context()).IsAnonymous())
}

func TestRateLimit(t *testing.T) {
	rl := ratelimiter.New(0.001, 2, time.Hour)
	defer rl.Stop()

	handler := RateLimit(rl, GetIP)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/graphql", nil)
		req.RemoteAddr = remote
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		return rr.Code
	}

	assert.Equal(t, http.StatusOK, do("10.0.0.1:5000"))
	assert.Equal(t, http.StatusOK, do("10.0.0.1:5001"))
	assert.Equal(t, http.StatusTooManyRequests, do("10.0.0.1:5002"))
	assert.Equal(t, http.StatusOK, do("10.0.0.2:5000"))
	assert.Equal(t, http.StatusInternalServerError, do("not-an-ip"))
}

func TestGetIP(t *testing.T) {
	tests := []struct {
		remote  string
		want    string
		wantErr bool
	}{
		{remote: "192.168.1.1:8080", want: "192.168.1.1"},
		{remote: "[::1]:8080", want: "::1"},
		{remote: "192.168.1.1", want: "192.168.1.1"},
		{remote: "garbage", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			req.Header.Set("X-Forwarded-For", "1.2.3.4")
			got, err := GetIP(req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	for _, https := range []bool{false, true} {
		handler := SecurityHeaders(https)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

		assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
		assert.Equal(t, "DENY", rr.Header().Get("X-Frame-Options"))
		assert.Equal(t, https, rr.Header().Get("Strict-Transport-Security") != "")
	}
}
