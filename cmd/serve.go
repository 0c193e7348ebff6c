package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/spottyg/internal/repositories"
	"github.com/desertthunder/spottyg/internal/server"
	"github.com/desertthunder/spottyg/internal/services"
	"github.com/desertthunder/spottyg/internal/sse"
	"github.com/desertthunder/spottyg/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Serve runs the web chat and JSON API until interrupted.
//
// Each request carries its own Spotify token, so the engine reads credentials from the request context
// rather than from the config file.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	cfg := r.config.Server
	if host := cmd.String("host"); host != "" {
		cfg.Host = host
	}
	if port := cmd.Int("port"); port > 0 {
		cfg.Port = int(port)
	}

	db, err := r.openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	users := repositories.NewUserRepository(db)
	playlists := repositories.NewPlaylistRepository(db)
	collector := r.newMetrics()

	engine, err := r.newEngine(
		tasks.WithCredentials(tasks.ContextCredentials),
		tasks.WithHistory(playlists),
		tasks.WithMetrics(collector),
	)
	if err != nil {
		return err
	}

	broker := sse.NewBroker(sse.WithClientGauge(collector.SetSSEClients))

	opts := []server.Option{
		server.WithConfig(cfg),
		server.WithLogger(r.logger),
		server.WithUsers(users),
		server.WithPlaylists(playlists),
		server.WithBroker(broker),
		server.WithMetrics(collector),
		server.WithAutoAnnotate(r.config.Pipeline.AutoAnnotate && !cmd.Bool("no-annotate")),
	}

	auth, err := services.NewSpotifyAuth(r.config.Credentials.Spotify)
	if err != nil {
		r.logger.Warn("Spotify login disabled", "error", err)
	} else {
		opts = append(opts, server.WithAuth(auth))
	}

	r.logger.Info("serving", "addr", cfg.Addr(), "url", cfg.BaseURL)
	if err := server.New(engine, opts...).ListenAndServe(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
