// package services defines the capabilities the playlist pipeline depends on and implements them for
// HTTP APIs
//
// Spotify (catalog), OpenAI (completions)
package services

import (
	"context"

	"github.com/desertthunder/spottyg/internal/models"
)

// Catalog is the music streaming service the pipeline searches and writes playlists to.
//
// Every call carries the end user's bearer credential; implementations hold no per-user state.
type Catalog interface {
	// SearchTracks runs a free-text track search and returns at most limit results, best match first.
	SearchTracks(ctx context.Context, credential, query string, limit int) ([]CatalogTrack, error)

	// Profile returns the account that owns credential.
	Profile(ctx context.Context, credential string) (*Profile, error)

	// CreatePlaylist creates a private playlist owned by ownerID.
	CreatePlaylist(ctx context.Context, credential, ownerID, name, description string) (*models.Playlist, error)

	// AddTracks appends ids, in order, to the playlist.
	AddTracks(ctx context.Context, credential, playlistID string, ids []string) error
}

// Completer is a chat-style text generation API.
type Completer interface {
	// Complete returns the full text of a single completion.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Stream returns the completion incrementally.
	Stream(ctx context.Context, req CompletionRequest) (TokenStream, error)
}

// TokenStream yields completion fragments until Recv returns [io.EOF].
type TokenStream interface {
	Recv() (string, error)
	Close() error
}

// CatalogTrack is a track returned by a catalog search.
type CatalogTrack struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Artists []string `json:"artists"`
	Album   string   `json:"album"`
	URI     string   `json:"uri"`
	URL     string   `json:"url"`
}

// Profile is the catalog account behind a credential.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
	URL         string `json:"url"`
}

// Chat roles accepted in [Message.Role].
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest describes a completion. Zero Temperature and MaxTokens fall back to the completer's
// configured defaults.
type CompletionRequest struct {
	Messages    []Message
	Temperature float32
	MaxTokens   int
}
