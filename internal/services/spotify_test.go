package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/spottyg/internal/shared"
	"golang.org/x/oauth2"
)

// fakeSpotify is an httptest stand-in for the Spotify Web API.
type fakeSpotify struct {
	mu       sync.Mutex
	auths    []string
	queries  []string
	created  map[string]any
	added    [][]string
	failWith int
}

func (f *fakeSpotify) handler(t *testing.T) http.Handler {
	t.Helper()
	mux := http.NewServeMux()

	fail := func(w http.ResponseWriter) bool {
		if f.failWith == 0 {
			return false
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(f.failWith)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"status": f.failWith, "message": http.StatusText(f.failWith)}})
		return true
	}

	record := func(r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.auths = append(f.auths, r.Header.Get("Authorization"))
	}

	mux.HandleFunc("GET /v1/search", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if fail(w) {
			return
		}
		f.mu.Lock()
		f.queries = append(f.queries, r.URL.Query().Get("q"))
		f.mu.Unlock()

		items := []any{}
		if !strings.Contains(r.URL.Query().Get("q"), "Nothing") {
			items = append(items, map[string]any{
				"id":            "track1",
				"name":          "Skinny Love",
				"uri":           "spotify:track:track1",
				"artists":       []any{map[string]any{"name": "Bon Iver"}},
				"album":         map[string]any{"name": "For Emma, Forever Ago"},
				"external_urls": map[string]string{"spotify": "https://open.spotify.com/track/track1"},
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"tracks": map[string]any{"items": items, "total": len(items)}})
	})

	mux.HandleFunc("GET /v1/me", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if fail(w) {
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "user1", "display_name": "Listener", "email": "listener@example.com"})
	})

	mux.HandleFunc("POST /v1/users/{id}/playlists", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if fail(w) {
			return
		}
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		body["owner"] = r.PathValue("id")
		f.mu.Lock()
		f.created = body
		f.mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":            "pl1",
			"name":          body["name"],
			"external_urls": map[string]string{"spotify": "https://open.spotify.com/playlist/pl1"},
		})
	})

	mux.HandleFunc("POST /v1/playlists/{id}/tracks", func(w http.ResponseWriter, r *http.Request) {
		record(r)
		if fail(w) {
			return
		}
		var body struct {
			URIs []string `json:"uris"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.added = append(f.added, body.URIs)
		f.mu.Unlock()

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{"snapshot_id": "snap"})
	})

	return mux
}

func newTestCatalog(t *testing.T, fake *fakeSpotify) *SpotifyCatalog {
	t.Helper()
	srv := httptest.NewServer(fake.handler(t))
	t.Cleanup(srv.Close)
	return NewSpotifyCatalog(WithCatalogBaseURL(srv.URL + "/v1"))
}

func TestSpotifyCatalog(t *testing.T) {
	ctx := context.Background()

	t.Run("SearchTracks", func(t *testing.T) {
		fake := &fakeSpotify{}
		catalog := newTestCatalog(t, fake)

		tracks, err := catalog.SearchTracks(ctx, "user-token", "Skinny Love Bon Iver", 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(tracks) != 1 {
			t.Fatalf("expected 1 track, got %d", len(tracks))
		}

		got := tracks[0]
		if got.ID != "track1" || got.Name != "Skinny Love" || got.Artists[0] != "Bon Iver" {
			t.Errorf("unexpected track %+v", got)
		}

		if got.URL != "https://open.spotify.com/track/track1" {
			t.Errorf("expected external url, got %s", got.URL)
		}

		if fake.auths[0] != "Bearer user-token" {
			t.Errorf("expected bearer credential, got %q", fake.auths[0])
		}

		if fake.queries[0] != "Skinny Love Bon Iver" {
			t.Errorf("expected query to be passed through, got %q", fake.queries[0])
		}
	})

	t.Run("SearchTracks no results", func(t *testing.T) {
		catalog := newTestCatalog(t, &fakeSpotify{})

		tracks, err := catalog.SearchTracks(ctx, "user-token", "Nothing Matches", 1)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 0 {
			t.Errorf("expected no tracks, got %d", len(tracks))
		}
	})

	t.Run("Profile", func(t *testing.T) {
		catalog := newTestCatalog(t, &fakeSpotify{})

		profile, err := catalog.Profile(ctx, "user-token")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if profile.ID != "user1" || profile.DisplayName != "Listener" {
			t.Errorf("unexpected profile %+v", profile)
		}

		if profile.URL != "https://open.spotify.com/user/user1" {
			t.Errorf("expected fallback profile url, got %s", profile.URL)
		}
	})

	t.Run("CreatePlaylist is private", func(t *testing.T) {
		fake := &fakeSpotify{}
		catalog := newTestCatalog(t, fake)

		p, err := catalog.CreatePlaylist(ctx, "user-token", "user1", "SpottyG Playlist - rain", "Created by SpottyG")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if p.ID != "pl1" || p.URL != "https://open.spotify.com/playlist/pl1" {
			t.Errorf("unexpected playlist %+v", p)
		}

		if fake.created["public"] != false {
			t.Errorf("expected private playlist, got public=%v", fake.created["public"])
		}

		if fake.created["owner"] != "user1" {
			t.Errorf("expected playlist created for user1, got %v", fake.created["owner"])
		}
	})

	t.Run("AddTracks preserves order and batches", func(t *testing.T) {
		fake := &fakeSpotify{}
		catalog := newTestCatalog(t, fake)

		ids := make([]string, 150)
		for i := range ids {
			ids[i] = fmt.Sprintf("t%03d", i)
		}

		if err := catalog.AddTracks(ctx, "user-token", "pl1", ids); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		if len(fake.added) != 2 {
			t.Fatalf("expected 2 requests, got %d", len(fake.added))
		}

		if len(fake.added[0]) != 100 || len(fake.added[1]) != 50 {
			t.Errorf("unexpected batch sizes %d, %d", len(fake.added[0]), len(fake.added[1]))
		}

		if fake.added[0][0] != "spotify:track:"+ids[0] || fake.added[1][49] != "spotify:track:"+ids[149] {
			t.Errorf("unexpected ordering %v ... %v", fake.added[0][0], fake.added[1][49])
		}
	})

	t.Run("Unauthorized maps to ErrTokenExpired", func(t *testing.T) {
		catalog := newTestCatalog(t, &fakeSpotify{failWith: http.StatusUnauthorized})

		_, err := catalog.Profile(ctx, "stale")
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired, got %v", err)
		}

		_, err = catalog.SearchTracks(ctx, "stale", "anything", 1)
		if !errors.Is(err, shared.ErrTokenExpired) {
			t.Errorf("expected ErrTokenExpired from search, got %v", err)
		}
	})

	t.Run("Server errors map to ErrServiceUnavailable", func(t *testing.T) {
		catalog := newTestCatalog(t, &fakeSpotify{failWith: http.StatusBadGateway})

		_, err := catalog.CreatePlaylist(ctx, "token", "user1", "name", "")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
		if errors.Is(err, shared.ErrTokenExpired) {
			t.Error("server error should not look like an expired credential")
		}
	})

	t.Run("Transport errors map to ErrServiceUnavailable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		catalog := NewSpotifyCatalog(WithCatalogBaseURL(srv.URL + "/v1/"))

		_, err := catalog.Profile(ctx, "token")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})
}

func TestSpotifyAuth(t *testing.T) {
	cfg := shared.SpotifyConfig{
		ClientID:     "test_client_id",
		ClientSecret: "test_client_secret",
		RedirectURI:  "http://127.0.0.1:3000/api/auth/callback",
	}

	t.Run("NewSpotifyAuth", func(t *testing.T) {
		t.Run("With Valid Credentials", func(t *testing.T) {
			if _, err := NewSpotifyAuth(cfg); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("Missing Client ID", func(t *testing.T) {
			bad := cfg
			bad.ClientID = ""
			if _, err := NewSpotifyAuth(bad); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})

		t.Run("Missing Client Secret", func(t *testing.T) {
			bad := cfg
			bad.ClientSecret = ""
			if _, err := NewSpotifyAuth(bad); !errors.Is(err, shared.ErrMissingCredentials) {
				t.Errorf("expected ErrMissingCredentials, got %v", err)
			}
		})
	})

	t.Run("AuthURL", func(t *testing.T) {
		auth, err := NewSpotifyAuth(cfg)
		if err != nil {
			t.Fatalf("failed to create auth: %v", err)
		}

		u, err := url.Parse(auth.AuthURL("test_state"))
		if err != nil {
			t.Fatalf("invalid auth url: %v", err)
		}

		if u.Host != "accounts.spotify.com" {
			t.Errorf("expected spotify accounts host, got %s", u.Host)
		}

		q := u.Query()
		if q.Get("state") != "test_state" || q.Get("client_id") != "test_client_id" {
			t.Errorf("unexpected query %v", q)
		}

		if q.Get("show_dialog") != "true" {
			t.Error("expected show_dialog=true")
		}

		for _, scope := range []string{"playlist-modify-private", "playlist-modify-public", "user-read-email"} {
			if !strings.Contains(q.Get("scope"), scope) {
				t.Errorf("expected scope %s in %q", scope, q.Get("scope"))
			}
		}
	})

	t.Run("Exchange", func(t *testing.T) {
		tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			if r.Form.Get("code") != "good-code" {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "access",
				"refresh_token": "refresh",
				"token_type":    "Bearer",
				"expires_in":    3600,
			})
		}))
		defer tokenSrv.Close()

		auth, err := NewSpotifyAuth(cfg, WithAuthEndpoint(oauth2.Endpoint{
			AuthURL:  tokenSrv.URL + "/authorize",
			TokenURL: tokenSrv.URL + "/api/token",
		}))
		if err != nil {
			t.Fatalf("failed to create auth: %v", err)
		}

		t.Run("valid code", func(t *testing.T) {
			token, err := auth.Exchange(context.Background(), "good-code")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token.AccessToken != "access" || token.RefreshToken != "refresh" {
				t.Errorf("unexpected token %+v", token)
			}
		})

		t.Run("rejected code", func(t *testing.T) {
			if _, err := auth.Exchange(context.Background(), "bad-code"); !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
		})

		t.Run("missing code", func(t *testing.T) {
			if _, err := auth.Exchange(context.Background(), ""); !errors.Is(err, shared.ErrMissingArgument) {
				t.Errorf("expected ErrMissingArgument, got %v", err)
			}
		})
	})
}
