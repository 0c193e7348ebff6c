// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes SpottyG playlist tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/desertthunder/spottyg/internal/formatter"
	"github.com/desertthunder/spottyg/internal/models"
	"github.com/desertthunder/spottyg/internal/shared"
	"github.com/desertthunder/spottyg/internal/tasks"
)

// History is the playlist store the history tools read from and annotate into.
type History interface {
	ListByUser(spotifyUserID string, limit int) ([]*models.GeneratedPlaylist, error)
	SetAnnotation(runID, annotation string) error
}

// Server wraps the MCP server with SpottyG tools.
type Server struct {
	mcp         *server.MCPServer
	engine      *tasks.PlaylistEngine
	credentials tasks.CredentialAccessor
	history     History
	logger      *log.Logger
}

// New creates a new MCP server with all SpottyG tools registered.
// credentials supplies the Spotify token for catalog calls; history may be nil.
func New(engine *tasks.PlaylistEngine, credentials tasks.CredentialAccessor, history History, logger *log.Logger) *Server {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	s := &Server{engine: engine, credentials: credentials, history: history, logger: logger}

	s.mcp = server.NewMCPServer(
		"SpottyG",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("build_playlist",
		mcp.WithDescription("Create a Spotify playlist of ten songs matching a theme, mood or occasion. "+
			"Returns the playlist link, the tracks added in order and any warnings about songs that could not be found."),
		mcp.WithString("prompt", mcp.Required(), mcp.Description("What the playlist should sound like (e.g. sad indie rock)")),
		mcp.WithBoolean("annotate", mcp.Description("Also write a short history of the playlist's songs")),
	), s.buildPlaylist)

	s.mcp.AddTool(mcp.NewTool("annotate_playlist",
		mcp.WithDescription("Write a short music-history commentary about a list of songs."),
		mcp.WithString("name", mcp.Required(), mcp.Description("Playlist name")),
		mcp.WithArray("tracks", mcp.Required(),
			mcp.Description(`Songs as "Title - Artist" labels`),
			mcp.Items(map[string]any{"type": "string"}),
		),
	), s.annotatePlaylist)

	s.mcp.AddTool(mcp.NewTool("search_tracks",
		mcp.WithDescription("Search the Spotify catalog for tracks."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Search query, e.g. track:Skinny Love artist:Bon Iver")),
		mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 5)")),
	), s.searchTracks)

	if history != nil {
		s.mcp.AddTool(mcp.NewTool("recent_playlists",
			mcp.WithDescription("List playlists SpottyG generated for the signed-in account, newest first."),
			mcp.WithNumber("limit", mcp.Description("Maximum number of playlists (default 10)")),
		), s.recentPlaylists)
	}

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) credential(ctx context.Context) (string, error) {
	token, ok := s.credentials.Credential(ctx)
	if !ok {
		return "", shared.ErrCredentialMissing
	}
	return token, nil
}

func toolError(err error) *mcp.CallToolResult {
	msg := err.Error()
	if tasks.IsAuthError(err) {
		msg += " (run `spottyg spotify auth` to sign in)"
	}
	return mcp.NewToolResultError(msg)
}

func (s *Server) buildPlaylist(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prompt, err := req.RequireString("prompt")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	result, err := s.engine.Run(ctx, prompt, nil)
	if err != nil {
		return toolError(err), nil
	}

	var annotation string
	if req.GetBool("annotate", false) {
		annotation = s.engine.AnnotateRun(ctx, result)
		if s.history != nil {
			if err := s.history.SetAnnotation(result.RunID, annotation); err != nil {
				s.logger.Warn("failed to store annotation", "run_id", result.RunID, "err", err)
			}
		}
	}

	out, err := formatter.ToJSON(formatter.NewReport(result, annotation))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) annotatePlaylist(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	name, err := req.RequireString("name")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	tracks, err := req.RequireStringSlice("tracks")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	text, err := s.engine.GenerateAnnotation(ctx, name, tracks)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("annotation failed: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) searchTracks(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	limit := req.GetInt("limit", 5)
	if limit < 1 || limit > 50 {
		return mcp.NewToolResultError("limit must be between 1 and 50"), nil
	}

	token, err := s.credential(ctx)
	if err != nil {
		return toolError(err), nil
	}

	tracks, err := s.engine.Catalog().SearchTracks(ctx, token, query, limit)
	if err != nil {
		return toolError(err), nil
	}
	out, _ := json.MarshalIndent(tracks, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

type historyEntry struct {
	RunID      string `json:"runId"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	Prompt     string `json:"prompt"`
	TrackCount int    `json:"trackCount"`
	Annotation string `json:"annotation,omitempty"`
	CreatedAt  string `json:"createdAt"`
}

func (s *Server) recentPlaylists(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := req.GetInt("limit", 10)
	if limit < 1 {
		return mcp.NewToolResultError("limit must be positive"), nil
	}

	token, err := s.credential(ctx)
	if err != nil {
		return toolError(err), nil
	}
	profile, err := s.engine.Catalog().Profile(ctx, token)
	if err != nil {
		return toolError(err), nil
	}

	records, err := s.history.ListByUser(profile.ID, limit)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	entries := make([]historyEntry, 0, len(records))
	for _, p := range records {
		entries = append(entries, historyEntry{
			RunID:      p.RunID(),
			Name:       p.Name(),
			URL:        p.URL(),
			Prompt:     p.Prompt(),
			TrackCount: p.TrackCount(),
			Annotation: p.Annotation(),
			CreatedAt:  p.CreatedAt().Format("2006-01-02 15:04"),
		})
	}
	out, _ := json.MarshalIndent(entries, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}
