package models

import (
	"fmt"
	"strings"
)

// GeneratedPlaylist records a playlist created by the generation pipeline.
type GeneratedPlaylist struct {
	record
	runID             string
	spotifyUserID     string
	spotifyPlaylistID string
	name              string
	prompt            string
	url               string
	trackCount        int
	annotation        string
}

// NewGeneratedPlaylist creates a [GeneratedPlaylist] for the playlist handle returned by the catalog.
func NewGeneratedPlaylist(sequence int, runID, spotifyUserID, prompt string, p Playlist, trackCount int) *GeneratedPlaylist {
	return &GeneratedPlaylist{
		record:            newRecord(sequence),
		runID:             runID,
		spotifyUserID:     spotifyUserID,
		spotifyPlaylistID: p.ID,
		name:              p.Name,
		prompt:            prompt,
		url:               p.URL,
		trackCount:        trackCount,
	}
}

func (g *GeneratedPlaylist) RunID() string             { return g.runID }
func (g *GeneratedPlaylist) SpotifyUserID() string     { return g.spotifyUserID }
func (g *GeneratedPlaylist) SpotifyPlaylistID() string { return g.spotifyPlaylistID }
func (g *GeneratedPlaylist) Name() string              { return g.name }
func (g *GeneratedPlaylist) Prompt() string            { return g.prompt }
func (g *GeneratedPlaylist) URL() string               { return g.url }
func (g *GeneratedPlaylist) TrackCount() int           { return g.trackCount }
func (g *GeneratedPlaylist) Annotation() string        { return g.annotation }

func (g *GeneratedPlaylist) SetAnnotation(s string) { g.annotation = s }
func (g *GeneratedPlaylist) SetTrackCount(n int)    { g.trackCount = n }

// Playlist returns the catalog handle for the record.
func (g *GeneratedPlaylist) Playlist() Playlist {
	return Playlist{ID: g.spotifyPlaylistID, Name: g.name, URL: g.url}
}

// Validate checks that the record can be persisted.
func (g *GeneratedPlaylist) Validate() error {
	if g.id == "" {
		return fmt.Errorf("playlist id is required")
	}
	if strings.TrimSpace(g.spotifyUserID) == "" {
		return fmt.Errorf("spotify user id is required")
	}
	if strings.TrimSpace(g.spotifyPlaylistID) == "" {
		return fmt.Errorf("spotify playlist id is required")
	}
	if strings.TrimSpace(g.name) == "" {
		return fmt.Errorf("playlist name is required")
	}
	if g.trackCount < 0 {
		return fmt.Errorf("track count cannot be negative")
	}
	return nil
}
