package middleware

import (
	"context"
	"net/http"

	"github.com/threed-dev/threed/shared/domain"
)

// ViewerSource turns an Authorization header into a viewer.
type ViewerSource interface {
	FromHeader(authorization string) domain.Viewer
}

type key int

const viewerKey key = 0

type Auth struct {
	tokens ViewerSource
}

func NewAuth(tokens ViewerSource) *Auth {
	return &Auth{tokens: tokens}
}

// OptionalAuth attaches the caller's viewer to the request context.
// A missing or bad token yields the anonymous viewer, never a rejection:
// authorization is decided per operation further down.
func (a *Auth) OptionalAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			viewer := a.tokens.FromHeader(r.Header.Get("Authorization"))
			next.ServeHTTP(w, r.WithContext(WithViewer(r.Context(), viewer)))
		})
	}
}

func WithViewer(ctx context.Context, viewer domain.Viewer) context.Context {
	return context.WithValue(ctx, viewerKey, viewer)
}

// ViewerFromContext returns the anonymous viewer if none was attached.
func ViewerFromContext(ctx context.Context) domain.Viewer {
	viewer, ok := ctx.Value(viewerKey).(domain.Viewer)
	if !ok {
		return domain.Anonymous()
	}
	return viewer
}
