package handler

import (
	"context"
	"net/http"

	"github.com/gorilla/websocket"
)

// GraphQL serves POST and GET operations and the websocket subscription
// transports. Only request-style operations are bounded by the timeout.
func (h *Handler) GraphQL(w http.ResponseWriter, r *http.Request) {
	if h.requestTimeout > 0 && !websocket.IsWebSocketUpgrade(r) {
		ctx, cancel := context.WithTimeout(r.Context(), h.requestTimeout)
		defer cancel()
		r = r.WithContext(ctx)
	}
	h.server.ServeHTTP(w, r)
}

// Schema serves the SDL document.
func (h *Handler) Schema(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(h.sdl)
}
