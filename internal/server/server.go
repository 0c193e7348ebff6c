package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/spottyg/internal/metrics"
	"github.com/desertthunder/spottyg/internal/models"
	"github.com/desertthunder/spottyg/internal/shared"
	"github.com/desertthunder/spottyg/internal/sse"
	"github.com/desertthunder/spottyg/internal/tasks"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Authenticator runs the OAuth authorization code flow. Satisfied by services.SpotifyAuth.
type Authenticator interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
}

// UserStore persists signed-in accounts. Satisfied by repositories.UserRepository.
type UserStore interface {
	Upsert(spotifyID, displayName, email string) (*models.User, error)
	GetBySpotifyID(spotifyID string) (*models.User, error)
}

// PlaylistStore reads and annotates playlist history. Satisfied by repositories.PlaylistRepository.
type PlaylistStore interface {
	ListByUser(spotifyUserID string, limit int) ([]*models.GeneratedPlaylist, error)
	SetAnnotation(runID, annotation string) error
}

// Server serves the SpottyG HTTP API.
type Server struct {
	engine       *tasks.PlaylistEngine
	auth         Authenticator
	users        UserStore
	playlists    PlaylistStore
	broker       *sse.Broker
	metrics      *metrics.Collector
	logger       *log.Logger
	config       shared.ServerConfig
	autoAnnotate bool

	annotations sync.WaitGroup
}

// Option configures a [Server].
type Option func(*Server)

// WithAuth enables the Spotify login routes.
func WithAuth(a Authenticator) Option {
	return func(s *Server) { s.auth = a }
}

// WithUsers stores accounts on login and serves them from /api/me.
func WithUsers(u UserStore) Option {
	return func(s *Server) { s.users = u }
}

// WithPlaylists serves playlist history and stores annotations.
func WithPlaylists(p PlaylistStore) Option {
	return func(s *Server) { s.playlists = p }
}

// WithBroker delivers asynchronous events over SSE.
func WithBroker(b *sse.Broker) Option {
	return func(s *Server) { s.broker = b }
}

// WithMetrics records request metrics and serves /metrics.
func WithMetrics(m *metrics.Collector) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the server's logger.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithConfig sets the listen address and cookie policy.
func WithConfig(c shared.ServerConfig) Option {
	return func(s *Server) { s.config = c }
}

// WithAutoAnnotate annotates every built playlist in the background.
func WithAutoAnnotate(enabled bool) Option {
	return func(s *Server) { s.autoAnnotate = enabled }
}

// New creates a [Server] around engine.
func New(engine *tasks.PlaylistEngine, opts ...Option) *Server {
	s := &Server{engine: engine}
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = shared.NewLogger(nil)
	}
	if s.config.Port == 0 {
		s.config = shared.DefaultConfig().Server
	}
	return s
}

// Wait blocks until background annotations have finished.
func (s *Server) Wait() {
	s.annotations.Wait()
}

// ListenAndServe serves until ctx is cancelled or the process receives SIGINT or SIGTERM, then shuts down
// gracefully and waits for pending annotations.
func (s *Server) ListenAndServe(ctx context.Context) error {
	httpServer := &http.Server{
		Addr:              s.config.Addr(),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		s.logger.Info("starting HTTP server", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			s.logger.Info("received shutdown signal", "signal", sig.String())
		case <-gCtx.Done():
			s.logger.Info("context cancelled, initiating shutdown")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if s.broker != nil {
			s.broker.Close()
		}
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("HTTP server shutdown error", "err", err)
		}
		s.Wait()
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	s.logger.Info("server stopped")
	return nil
}
