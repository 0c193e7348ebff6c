package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/desertthunder/spottyg/internal/models"
	"github.com/desertthunder/spottyg/internal/repositories"
	"github.com/desertthunder/spottyg/internal/services"
	"github.com/desertthunder/spottyg/internal/shared"
	"github.com/desertthunder/spottyg/internal/tasks"
	tu "github.com/desertthunder/spottyg/internal/testing"
)

type fixture struct {
	srv       *Server
	catalog   *tu.FakeCatalog
	completer *tu.FakeCompleter
	history   *repositories.PlaylistRepository
}

func testServer(t *testing.T, credential string) *fixture {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := shared.RunMigrations(db); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	skinny := models.TrackCandidate{Title: "Skinny Love", Artist: "Bon Iver"}
	f := &fixture{
		catalog: tu.NewFakeCatalog().WithTrack(skinny, "t1"),
		completer: &tu.FakeCompleter{ReplyFunc: func(req services.CompletionRequest) (string, error) {
			if strings.Contains(req.Messages[1].Content, "Suggest exactly") {
				return "Skinny Love - Bon Iver\nNonexistent Song - Nobody", nil
			}
			return "Recorded in a Wisconsin cabin.", nil
		}},
		history: repositories.NewPlaylistRepository(db),
	}

	creds := tasks.StaticCredential(credential)
	quiet := log.New(io.Discard)
	engine := tasks.NewPlaylistEngine(f.catalog, f.completer, tasks.DefaultOptions(),
		tasks.WithCredentials(creds),
		tasks.WithHistory(f.history),
		tasks.WithEngineLogger(quiet),
	)
	f.srv = New(engine, creds, f.history, quiet)
	return f
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	var result *mcp.CallToolResult
	var err error

	switch name {
	case "build_playlist":
		result, err = srv.buildPlaylist(ctx, req)
	case "annotate_playlist":
		result, err = srv.annotatePlaylist(ctx, req)
	case "search_tracks":
		result, err = srv.searchTracks(ctx, req)
	case "recent_playlists":
		result, err = srv.recentPlaylists(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

// listedTools asks the server for its tool list over JSON-RPC and returns the raw response.
func listedTools(t *testing.T, srv *Server) string {
	t.Helper()
	msg := srv.MCPServer().HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	out, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("failed to encode response: %v", err)
	}
	return string(out)
}

func TestTools(t *testing.T) {
	t.Run("registered", func(t *testing.T) {
		f := testServer(t, "token")
		listed := listedTools(t, f.srv)
		for _, name := range []string{"build_playlist", "annotate_playlist", "search_tracks", "recent_playlists"} {
			if !strings.Contains(listed, `"name":"`+name+`"`) {
				t.Errorf("expected tool %s to be registered, got %s", name, listed)
			}
		}
	})

	t.Run("history tool needs a store", func(t *testing.T) {
		f := testServer(t, "token")
		srv := New(f.srv.engine, f.srv.credentials, nil, nil)
		if strings.Contains(listedTools(t, srv), "recent_playlists") {
			t.Error("expected recent_playlists to be absent without history")
		}
	})
}

func TestBuildPlaylist(t *testing.T) {
	t.Run("creates playlist", func(t *testing.T) {
		f := testServer(t, "token")

		r := callTool(t, f.srv, "build_playlist", map[string]any{"prompt": "sad indie rock"})
		if r.IsError {
			t.Fatalf("unexpected error: %s", resultText(r))
		}

		var out struct {
			Playlist   models.Playlist `json:"playlist"`
			Tracks     []string        `json:"tracks"`
			Warnings   []string        `json:"warnings"`
			Annotation string          `json:"annotation"`
		}
		if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
			t.Fatalf("invalid JSON result: %v", err)
		}
		if out.Playlist.Name != "SpottyG Playlist - sad indie rock" || len(out.Tracks) != 1 || len(out.Warnings) != 1 {
			t.Errorf("unexpected result %+v", out)
		}
		if out.Annotation != "" {
			t.Errorf("expected no annotation, got %q", out.Annotation)
		}
	})

	t.Run("with annotation", func(t *testing.T) {
		f := testServer(t, "token")

		r := callTool(t, f.srv, "build_playlist", map[string]any{"prompt": "sad indie rock", "annotate": true})
		if !strings.Contains(resultText(r), "Recorded in a Wisconsin cabin.") {
			t.Errorf("expected annotation in result, got %s", resultText(r))
		}

		records, err := f.history.ListByUser("user1", 1)
		if err != nil || len(records) != 1 {
			t.Fatalf("expected stored playlist, got %v %v", records, err)
		}
		if records[0].Annotation() != "Recorded in a Wisconsin cabin." {
			t.Errorf("expected stored annotation, got %q", records[0].Annotation())
		}
	})

	t.Run("missing prompt", func(t *testing.T) {
		f := testServer(t, "token")
		if r := callTool(t, f.srv, "build_playlist", map[string]any{}); !r.IsError {
			t.Error("expected error for missing prompt")
		}
	})

	t.Run("missing credential", func(t *testing.T) {
		f := testServer(t, "")

		r := callTool(t, f.srv, "build_playlist", map[string]any{"prompt": "sad indie rock"})
		if !r.IsError || !strings.Contains(resultText(r), "spottyg spotify auth") {
			t.Errorf("expected sign-in error, got %s", resultText(r))
		}
		if f.catalog.CallCount() != 0 || f.completer.CallCount() != 0 {
			t.Error("expected no upstream calls")
		}
	})
}

func TestAnnotatePlaylist(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		f := testServer(t, "")

		r := callTool(t, f.srv, "annotate_playlist", map[string]any{
			"name":   "Rainy Day",
			"tracks": []any{"Skinny Love - Bon Iver"},
		})
		if r.IsError || resultText(r) != "Recorded in a Wisconsin cabin." {
			t.Errorf("unexpected result %q", resultText(r))
		}
	})

	t.Run("upstream failure", func(t *testing.T) {
		f := testServer(t, "")
		f.completer.ReplyFunc = func(services.CompletionRequest) (string, error) {
			return "", errors.New("boom")
		}

		r := callTool(t, f.srv, "annotate_playlist", map[string]any{"name": "x", "tracks": []any{"a - b"}})
		if !r.IsError {
			t.Error("expected error result")
		}
	})

	t.Run("missing tracks", func(t *testing.T) {
		f := testServer(t, "")
		if r := callTool(t, f.srv, "annotate_playlist", map[string]any{"name": "x"}); !r.IsError {
			t.Error("expected error for missing tracks")
		}
	})
}

func TestSearchTracks(t *testing.T) {
	t.Run("results", func(t *testing.T) {
		f := testServer(t, "token")

		query := models.TrackCandidate{Title: "Skinny Love", Artist: "Bon Iver"}.Query()
		r := callTool(t, f.srv, "search_tracks", map[string]any{"query": query})
		if r.IsError || !strings.Contains(resultText(r), `"t1"`) {
			t.Errorf("unexpected result %s", resultText(r))
		}
	})

	t.Run("bad limit", func(t *testing.T) {
		f := testServer(t, "token")
		if r := callTool(t, f.srv, "search_tracks", map[string]any{"query": "x", "limit": 500}); !r.IsError {
			t.Error("expected error for limit")
		}
	})

	t.Run("expired token", func(t *testing.T) {
		f := testServer(t, "token")
		f.catalog.SearchErrs["x"] = shared.ErrTokenExpired

		r := callTool(t, f.srv, "search_tracks", map[string]any{"query": "x"})
		if !r.IsError || !strings.Contains(resultText(r), "sign in") {
			t.Errorf("expected sign-in error, got %s", resultText(r))
		}
	})
}

func TestRecentPlaylists(t *testing.T) {
	f := testServer(t, "token")
	callTool(t, f.srv, "build_playlist", map[string]any{"prompt": "first"})
	callTool(t, f.srv, "build_playlist", map[string]any{"prompt": "second"})

	r := callTool(t, f.srv, "recent_playlists", map[string]any{"limit": 1})
	if r.IsError {
		t.Fatalf("unexpected error: %s", resultText(r))
	}

	var entries []historyEntry
	if err := json.Unmarshal([]byte(resultText(r)), &entries); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(entries) != 1 || entries[0].Prompt != "second" {
		t.Errorf("expected newest playlist only, got %+v", entries)
	}
}
