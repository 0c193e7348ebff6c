package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/desertthunder/spottyg/internal/services"
	"github.com/desertthunder/spottyg/internal/sse"
	"github.com/desertthunder/spottyg/internal/tasks"
)

const gptFallbackReply = "Sorry, something went wrong."

type historyRequest struct {
	PlaylistName string   `json:"playlistName"`
	Tracks       []string `json:"tracks"`
}

func (h historyRequest) Validate() error {
	return validation.ValidateStruct(&h,
		validation.Field(&h.PlaylistName, validation.Required),
		validation.Field(&h.Tracks, validation.NotNil),
	)
}

// history writes an annotation on request. Unlike the background annotation it reports failures.
func (s *Server) history(w http.ResponseWriter, r *http.Request) {
	var req historyRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	text, err := s.engine.GenerateAnnotation(r.Context(), req.PlaylistName, req.Tracks)
	if err != nil {
		s.logger.Warn("annotation failed", "playlist", req.PlaylistName, "err", err)
		status := annotationStatus(err)
		msg := "OpenAI failed to respond properly"
		switch status {
		case http.StatusGatewayTimeout:
			msg = "Annotation timed out"
		case http.StatusBadRequest:
			msg = err.Error()
		}
		s.writeJSON(w, status, errorBody(msg))
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"history": text})
}

type chatRequest struct {
	Messages []services.Message `json:"messages"`
}

func (c chatRequest) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Messages, validation.Required, validation.Each(validation.By(validMessage))),
	)
}

func validMessage(v any) error {
	m, _ := v.(services.Message)
	return validation.ValidateStruct(&m,
		validation.Field(&m.Role, validation.Required, validation.In(services.RoleSystem, services.RoleUser, services.RoleAssistant)),
	)
}

func (s *Server) decodeChat(w http.ResponseWriter, r *http.Request) (chatRequest, bool) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return req, false
	}
	if err := req.Validate(); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return req, false
	}
	return req, true
}

// gpt answers a conversation in one piece.
func (s *Server) gpt(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChat(w, r)
	if !ok {
		return
	}

	reply, err := s.engine.Completer().Complete(r.Context(), services.CompletionRequest{Messages: req.Messages})
	if err != nil {
		s.logger.Error("chat completion failed", "err", err)
		s.writeJSON(w, http.StatusInternalServerError, map[string]string{"reply": gptFallbackReply})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"reply": reply})
}

// chat streams the assistant's reply as SSE frames of {"content": "..."}, ending with a "done" event.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeChat(w, r)
	if !ok {
		return
	}

	if _, ok := tasks.ContextCredentials.Credential(r.Context()); !ok {
		s.writeJSON(w, http.StatusUnauthorized, errorBody("Unauthorized - no access token found"))
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeJSON(w, http.StatusInternalServerError, errorBody("streaming unsupported"))
		return
	}

	stream, err := s.engine.Completer().Stream(r.Context(), services.CompletionRequest{Messages: req.Messages})
	if err != nil {
		s.logger.Error("chat stream failed", "err", err)
		s.writeJSON(w, http.StatusInternalServerError, errorBody("Failed to stream OpenAI response"))
		return
	}
	defer stream.Close()

	sse.SetHeaders(w)
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	write := func(event string, data any) bool {
		frame, err := sse.Format(event, data)
		if err != nil {
			return false
		}
		if _, err := w.Write(frame); err != nil {
			return false
		}
		flusher.Flush()
		return true
	}

	for {
		token, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			write("done", map[string]string{})
			return
		}
		if err != nil {
			s.logger.Warn("chat stream interrupted", "err", err)
			write("error", errorBody(strings.TrimSpace(err.Error())))
			return
		}
		if token == "" {
			continue
		}
		if !write("", map[string]string{"content": token}) {
			return
		}
	}
}

// events streams the caller's asynchronous updates.
func (s *Server) events(w http.ResponseWriter, r *http.Request) {
	if s.broker == nil {
		s.writeJSON(w, http.StatusNotFound, errorBody("events are not enabled"))
		return
	}

	credential, ok := tasks.ContextCredentials.Credential(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, errorBody("Not authenticated with Spotify"))
		return
	}

	profile, err := s.engine.Catalog().Profile(r.Context(), credential)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.broker.Handler(func(*http.Request) string { return profile.ID }).ServeHTTP(w, r)
}
