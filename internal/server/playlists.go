package server

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/desertthunder/spottyg/internal/services"
	"github.com/desertthunder/spottyg/internal/sse"
	"github.com/desertthunder/spottyg/internal/tasks"
)

// Event types published on /api/events.
const (
	EventPlaylistCreated = "playlist.created"
	EventAnnotationReady = "annotation.ready"
)

const searchLimit = 10

func (s *Server) search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		s.writeJSON(w, http.StatusBadRequest, errorBody("Missing search query (q)"))
		return
	}

	credential, ok := tasks.ContextCredentials.Credential(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, errorBody("Not authenticated with Spotify"))
		return
	}

	tracks, err := s.engine.Catalog().SearchTracks(r.Context(), credential, query, searchLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if tracks == nil {
		tracks = []services.CatalogTrack{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks})
}

type createRequest struct {
	Name string `json:"name"`
}

func (c createRequest) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Name, validation.Required, validation.Length(1, 100)),
	)
}

// createPlaylist creates an empty playlist with the given name.
func (s *Server) createPlaylist(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := req.Validate(); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	credential, ok := tasks.ContextCredentials.Credential(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, errorBody("Not authenticated with Spotify"))
		return
	}

	m, err := s.engine.Materialize(r.Context(), credential, req.Name, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, m.Playlist)
}

type buildRequest struct {
	Prompt string `json:"prompt"`
}

type buildResponse struct {
	PlaylistURL       string   `json:"playlistUrl"`
	PlaylistID        string   `json:"playlistId"`
	PlaylistName      string   `json:"playlistName"`
	Tracks            []string `json:"tracks"`
	Warnings          []string `json:"warnings,omitempty"`
	RunID             string   `json:"runId"`
	AnnotationPending bool     `json:"annotationPending"`
}

type annotationEvent struct {
	RunID      string `json:"runId"`
	PlaylistID string `json:"playlistId"`
	Annotation string `json:"annotation"`
}

// build runs the generation pipeline for a prompt and answers once the playlist exists.
func (s *Server) build(w http.ResponseWriter, r *http.Request) {
	var req buildRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.engine.Run(r.Context(), req.Prompt, nil)
	if err != nil {
		if statusFor(err) == http.StatusBadRequest {
			s.writeJSON(w, http.StatusBadRequest, errorBody("Missing prompt"))
			return
		}
		s.writeError(w, err)
		return
	}

	resp := buildResponse{
		PlaylistURL:  result.Playlist.URL,
		PlaylistID:   result.Playlist.ID,
		PlaylistName: result.Playlist.Name,
		Tracks:       result.Tracks,
		Warnings:     result.Warnings,
		RunID:        result.RunID,
	}

	if s.broker != nil {
		s.broker.Publish(sse.Event{Type: EventPlaylistCreated, Topic: result.OwnerID, Data: resp})
		if s.autoAnnotate {
			resp.AnnotationPending = true
			s.annotateInBackground(context.WithoutCancel(r.Context()), result)
		}
	}

	s.writeJSON(w, http.StatusOK, resp)
}

// annotateInBackground writes the annotation for a finished run, stores it and publishes it to the owner.
// The annotation timeout bounds the work; ctx must not be tied to the request.
func (s *Server) annotateInBackground(ctx context.Context, result *tasks.RunResult) {
	s.annotations.Add(1)
	go func() {
		defer s.annotations.Done()

		text := s.engine.AnnotateRun(ctx, result)
		if s.playlists != nil {
			if err := s.playlists.SetAnnotation(result.RunID, text); err != nil {
				s.logger.Warn("failed to store annotation", "run_id", result.RunID, "err", err)
			}
		}

		s.broker.Publish(sse.Event{
			Type:  EventAnnotationReady,
			Topic: result.OwnerID,
			Data:  annotationEvent{RunID: result.RunID, PlaylistID: result.Playlist.ID, Annotation: text},
		})
	}()
}

type playlistSummary struct {
	ID         string    `json:"id"`
	RunID      string    `json:"runId"`
	Name       string    `json:"name"`
	URL        string    `json:"url"`
	Prompt     string    `json:"prompt"`
	TrackCount int       `json:"trackCount"`
	Annotation string    `json:"annotation,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// listPlaylists returns the caller's generated playlists, newest first.
func (s *Server) listPlaylists(w http.ResponseWriter, r *http.Request) {
	credential, ok := tasks.ContextCredentials.Credential(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, errorBody("Not authenticated with Spotify"))
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.writeJSON(w, http.StatusBadRequest, errorBody("limit must be a positive integer"))
			return
		}
		limit = n
	}

	summaries := []playlistSummary{}
	if s.playlists == nil {
		s.writeJSON(w, http.StatusOK, map[string]any{"playlists": summaries})
		return
	}

	profile, err := s.engine.Catalog().Profile(r.Context(), credential)
	if err != nil {
		s.writeError(w, err)
		return
	}

	records, err := s.playlists.ListByUser(profile.ID, limit)
	if err != nil {
		s.logger.Error("listing playlists failed", "err", err)
		s.writeJSON(w, http.StatusInternalServerError, errorBody("Failed to list playlists"))
		return
	}

	for _, p := range records {
		summaries = append(summaries, playlistSummary{
			ID:         p.SpotifyPlaylistID(),
			RunID:      p.RunID(),
			Name:       p.Name(),
			URL:        p.URL(),
			Prompt:     p.Prompt(),
			TrackCount: p.TrackCount(),
			Annotation: p.Annotation(),
			CreatedAt:  p.CreatedAt(),
		})
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"playlists": summaries})
}
