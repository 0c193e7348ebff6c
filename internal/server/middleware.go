package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/desertthunder/spottyg/internal/tasks"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Cookie names shared with the chat page.
const (
	AccessTokenCookie  = "spotify_access_token"
	RefreshTokenCookie = "spotify_refresh_token"
	stateCookie        = "spotify_auth_state"
)

// credentials moves the caller's Spotify token into the request context.
//
// The cookie wins over an Authorization bearer header.
func credentials(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if c, err := r.Cookie(AccessTokenCookie); err == nil {
			token = c.Value
		}
		if token == "" {
			if auth := r.Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
				token = strings.TrimPrefix(auth, "Bearer ")
			}
		}

		if token != "" {
			r = r.WithContext(tasks.WithCredential(r.Context(), token))
		}
		next.ServeHTTP(w, r)
	})
}

// requestLogger logs each request and records it in the metrics collector under its route pattern.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()

		next.ServeHTTP(ww, r)

		elapsed := time.Since(start)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		s.metrics.ObserveRequest(r.Method, route, status, elapsed)

		s.logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration", elapsed,
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
