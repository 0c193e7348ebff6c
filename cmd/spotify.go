package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/desertthunder/spottyg/internal/server"
	"github.com/desertthunder/spottyg/internal/services"
	"github.com/desertthunder/spottyg/internal/shared"
	"github.com/go-chi/chi/v5"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
)

const oauthTimeout = 2 * time.Minute

// SpotifyAuth performs OAuth2 authentication flow for Spotify.
//
// Starts a local HTTP server on the configured redirect URI, opens browser for user authorization, and stores
// the exchanged tokens in the config file for the terminal front-ends.
func (r *Runner) SpotifyAuth(ctx context.Context, cmd *cli.Command) error {
	auth, err := services.NewSpotifyAuth(r.config.Credentials.Spotify)
	if err != nil {
		return fmt.Errorf("%w: Spotify client_id, client_secret and redirect_uri must be set in %s", err, r.configPath)
	}

	token, err := r.doOAuth(ctx, auth)
	if err != nil {
		return err
	}

	r.config.Credentials.Spotify.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		r.config.Credentials.Spotify.RefreshToken = token.RefreshToken
	}

	if err := shared.SaveConfig(r.configPath, r.config); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n\n", r.configPath)
	if !token.Expiry.IsZero() {
		r.writePlain("The access token expires at %s; run this command again after that.\n", token.Expiry.Local().Format(time.Kitchen))
	}
	r.writePlain("You can now use: spottyg build \"sad indie rock\"\n")

	return nil
}

// SpotifyMe shows the account behind the stored token.
func (r *Runner) SpotifyMe(ctx context.Context, cmd *cli.Command) error {
	token, ok := r.credential().Credential(ctx)
	if !ok {
		return fmt.Errorf("%w: run 'spottyg spotify auth' first", shared.ErrCredentialMissing)
	}

	profile, err := r.catalog.Profile(ctx, token)
	if err != nil {
		return r.spotifyError(err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(profile, true)
	}

	r.writePlain("Signed in as %s\n", profile.DisplayName)
	r.writePlain("  ID: %s\n", profile.ID)
	if profile.Email != "" {
		r.writePlain("  Email: %s\n", profile.Email)
	}
	if profile.URL != "" {
		r.writePlain("  Profile: %s\n", profile.URL)
	}
	return nil
}

// SpotifySearch prints catalog matches for a query.
func (r *Runner) SpotifySearch(ctx context.Context, cmd *cli.Command) error {
	query := strings.TrimSpace(cmd.StringArg("query"))
	if query == "" {
		return fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	limit := cmd.Int("limit")
	if limit < 1 || limit > 50 {
		return fmt.Errorf("%w: --limit must be between 1 and 50", shared.ErrInvalidFlag)
	}

	token, ok := r.credential().Credential(ctx)
	if !ok {
		return fmt.Errorf("%w: run 'spottyg spotify auth' first", shared.ErrCredentialMissing)
	}

	tracks, err := r.catalog.SearchTracks(ctx, token, query, int(limit))
	if err != nil {
		return r.spotifyError(err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, true)
	}

	if len(tracks) == 0 {
		r.writePlain("No tracks found for %q\n", query)
		return nil
	}
	for i, t := range tracks {
		r.writePlain("%d. %s - %s\n", i+1, t.Name, strings.Join(t.Artists, ", "))
		r.writePlain("   ID: %s\n", t.ID)
	}
	return nil
}

// spotifyError adds the sign-in hint to authentication failures.
func (r *Runner) spotifyError(err error) error {
	if errors.Is(err, shared.ErrTokenExpired) || errors.Is(err, shared.ErrCredentialMissing) {
		return fmt.Errorf("%w: run 'spottyg spotify auth' to sign in again", err)
	}
	return err
}

// doOAuth executes the OAuth2 authorization flow with a local HTTP server
func (r *Runner) doOAuth(ctx context.Context, auth *services.SpotifyAuth) (*oauth2.Token, error) {
	redirect, err := url.Parse(auth.RedirectURL())
	if err != nil || redirect.Host == "" {
		return nil, fmt.Errorf("%w: redirect_uri %q", shared.ErrInvalidConfig, auth.RedirectURL())
	}

	state := shared.GenerateID()
	oauthHandler := server.NewOAuthHandler(auth, state)

	router := chi.NewRouter()
	router.Get(redirect.Path, oauthHandler.ServeHTTP)

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", redirect.Host, err)
	}
	httpServer := &http.Server{Handler: router, ReadHeaderTimeout: 10 * time.Second}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Infof("starting OAuth callback server at %v", redirect.Host)
		if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrors <- err
		}
	}()

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()

	authURL := auth.AuthURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(ctx, authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(oauthTimeout)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-oauthHandler.Result():
	case err := <-serverErrors:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return nil, fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	if result.Error() != nil {
		return nil, fmt.Errorf("authorization failed: %w", result.Error())
	}

	if result.Token == nil {
		return nil, fmt.Errorf("%w: no token received", shared.ErrAuthFailed)
	}

	return result.Token, nil
}
