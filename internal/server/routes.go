package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/desertthunder/spottyg/internal/web"
)

// Handler builds the router for every route the server serves.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(credentials)

	r.Method(http.MethodGet, "/", web.Handler())
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/auth/spotify", s.login)
		r.Get("/auth/callback", s.callback)
		r.Post("/auth/logout", s.logout)
		r.Get("/me", s.me)

		r.Get("/search", s.search)
		r.Post("/playlist/create", s.createPlaylist)
		r.Post("/playlist/build", s.build)
		r.Get("/playlists", s.listPlaylists)

		r.Post("/history", s.history)
		r.Post("/gpt", s.gpt)
		r.Post("/chat", s.chat)
		r.Get("/events", s.events)
	})

	return r
}
