// Spotify Web API implementation of [Catalog]
package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/spottyg/internal/models"
	"github.com/desertthunder/spottyg/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

// SpotifyScopes are requested at login; playlist creation needs the modify scopes and the profile needs
// the user-read scopes.
var SpotifyScopes = []string{
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopeUserReadEmail,
	spotifyauth.ScopeUserReadPrivate,
}

// SpotifyAuth drives the OAuth2 authorization code flow against the Spotify accounts service.
type SpotifyAuth struct {
	config *oauth2.Config
}

// AuthOption configures a [SpotifyAuth].
type AuthOption func(*oauth2.Config)

// WithAuthEndpoint replaces the Spotify accounts endpoints, for tests.
func WithAuthEndpoint(ep oauth2.Endpoint) AuthOption {
	return func(c *oauth2.Config) { c.Endpoint = ep }
}

// NewSpotifyAuth creates a [SpotifyAuth] from the configured application credentials.
func NewSpotifyAuth(cfg shared.SpotifyConfig, opts ...AuthOption) (*SpotifyAuth, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("%w: missing spotify client_id", shared.ErrMissingCredentials)
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing spotify client_secret", shared.ErrMissingCredentials)
	}
	if cfg.RedirectURI == "" {
		return nil, fmt.Errorf("%w: missing spotify redirect_uri", shared.ErrMissingCredentials)
	}

	config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURI,
		Scopes:       SpotifyScopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyauth.AuthURL,
			TokenURL: spotifyauth.TokenURL,
		},
	}
	for _, opt := range opts {
		opt(config)
	}
	return &SpotifyAuth{config: config}, nil
}

// AuthURL returns the consent page URL. The dialog is always shown so users can switch accounts.
func (a *SpotifyAuth) AuthURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.SetAuthURLParam("show_dialog", "true"))
}

// RedirectURL returns the configured callback URL.
func (a *SpotifyAuth) RedirectURL() string {
	return a.config.RedirectURL
}

// Exchange trades an authorization code for a token.
func (a *SpotifyAuth) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	if code == "" {
		return nil, fmt.Errorf("%w: authorization code", shared.ErrMissingArgument)
	}

	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrAuthFailed, err)
	}
	return token, nil
}

// SpotifyCatalog implements [Catalog] with the Spotify Web API.
type SpotifyCatalog struct {
	baseURL string
	base    http.RoundTripper
}

// CatalogOption configures a [SpotifyCatalog].
type CatalogOption func(*SpotifyCatalog)

// WithCatalogBaseURL points the catalog at an alternative API root, for tests.
func WithCatalogBaseURL(u string) CatalogOption {
	return func(c *SpotifyCatalog) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		c.baseURL = u
	}
}

// WithCatalogTransport sets the transport underneath the bearer token.
func WithCatalogTransport(rt http.RoundTripper) CatalogOption {
	return func(c *SpotifyCatalog) { c.base = rt }
}

// NewSpotifyCatalog creates a [SpotifyCatalog].
func NewSpotifyCatalog(opts ...CatalogOption) *SpotifyCatalog {
	c := &SpotifyCatalog{base: http.DefaultTransport}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// client builds a Spotify client that authenticates every request with credential.
func (c *SpotifyCatalog) client(credential string) *spotify.Client {
	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: credential, TokenType: "Bearer"}),
			Base:   c.base,
		},
	}

	var opts []spotify.ClientOption
	if c.baseURL != "" {
		opts = append(opts, spotify.WithBaseURL(c.baseURL))
	}
	return spotify.New(httpClient, opts...)
}

// SearchTracks implements [Catalog].
func (c *SpotifyCatalog) SearchTracks(ctx context.Context, credential, query string, limit int) ([]CatalogTrack, error) {
	if limit <= 0 || limit > 50 {
		limit = 50
	}

	results, err := c.client(credential).Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(limit))
	if err != nil {
		return nil, classifySpotifyError(ctx, "search", err)
	}
	if results.Tracks == nil {
		return nil, nil
	}

	tracks := make([]CatalogTrack, 0, len(results.Tracks.Tracks))
	for _, item := range results.Tracks.Tracks {
		artists := make([]string, len(item.Artists))
		for i, a := range item.Artists {
			artists[i] = a.Name
		}
		tracks = append(tracks, CatalogTrack{
			ID:      string(item.ID),
			Name:    item.Name,
			Artists: artists,
			Album:   item.Album.Name,
			URI:     string(item.URI),
			URL:     externalURL(item.ExternalURLs, "track", string(item.ID)),
		})
	}
	return tracks, nil
}

// Profile implements [Catalog].
func (c *SpotifyCatalog) Profile(ctx context.Context, credential string) (*Profile, error) {
	user, err := c.client(credential).CurrentUser(ctx)
	if err != nil {
		return nil, classifySpotifyError(ctx, "profile", err)
	}

	return &Profile{
		ID:          user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		URL:         externalURL(user.ExternalURLs, "user", user.ID),
	}, nil
}

// CreatePlaylist implements [Catalog].
func (c *SpotifyCatalog) CreatePlaylist(ctx context.Context, credential, ownerID, name, description string) (*models.Playlist, error) {
	p, err := c.client(credential).CreatePlaylistForUser(ctx, ownerID, name, description, false, false)
	if err != nil {
		return nil, classifySpotifyError(ctx, "create playlist", err)
	}

	return &models.Playlist{
		ID:   string(p.ID),
		Name: p.Name,
		URL:  externalURL(p.ExternalURLs, "playlist", string(p.ID)),
	}, nil
}

// AddTracks implements [Catalog]. Spotify accepts at most 100 items per request, so longer lists are
// sent in order across several requests.
func (c *SpotifyCatalog) AddTracks(ctx context.Context, credential, playlistID string, ids []string) error {
	client := c.client(credential)
	for start := 0; start < len(ids); start += 100 {
		end := min(start+100, len(ids))

		batch := make([]spotify.ID, 0, end-start)
		for _, id := range ids[start:end] {
			batch = append(batch, spotify.ID(id))
		}

		if _, err := client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), batch...); err != nil {
			return classifySpotifyError(ctx, "add tracks", err)
		}
	}
	return nil
}

func externalURL(urls map[string]string, kind, id string) string {
	if u := urls["spotify"]; u != "" {
		return u
	}
	if id == "" {
		return ""
	}
	return fmt.Sprintf("https://open.spotify.com/%s/%s", kind, id)
}

// classifySpotifyError maps a client error onto the shared sentinels.
func classifySpotifyError(ctx context.Context, op string, err error) error {
	var apiErr spotify.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Status {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: spotify %s: %s", shared.ErrTokenExpired, op, apiErr.Message)
		case http.StatusNotFound:
			return fmt.Errorf("%w: spotify %s: %w: %s", shared.ErrServiceUnavailable, op, shared.ErrPlaylistNotFound, apiErr.Message)
		default:
			return fmt.Errorf("%w: spotify %s: status %d: %s", shared.ErrServiceUnavailable, op, apiErr.Status, apiErr.Message)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return fmt.Errorf("%w: spotify %s: %w: %v", shared.ErrServiceUnavailable, op, shared.ErrTimeout, err)
	}
	return fmt.Errorf("%w: spotify %s: %v", shared.ErrServiceUnavailable, op, err)
}
