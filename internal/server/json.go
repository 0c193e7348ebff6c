package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/desertthunder/spottyg/internal/shared"
	"github.com/desertthunder/spottyg/internal/tasks"
)

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("json encode failed", "err", err)
	}
}

type errResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

func errorBody(msg string) errResponse {
	return errResponse{Error: msg}
}

// decodeJSON reads a JSON request body into v. Failures wrap [shared.ErrInvalidInput].
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20)).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

// statusFor maps an error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidInput), errors.Is(err, shared.ErrMissingArgument):
		return http.StatusBadRequest
	case tasks.IsAuthError(err):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// annotationStatus maps an annotation failure to its HTTP status.
func annotationStatus(err error) int {
	switch {
	case errors.Is(err, shared.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// writeError writes err with its mapped status and the pipeline stage it failed in, if any.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeErrorStatus(w, statusFor(err), err)
}

func (s *Server) writeErrorStatus(w http.ResponseWriter, status int, err error) {
	body := errorBody(errorMessage(err))
	if stage, ok := tasks.StageOf(err); ok {
		body.Stage = string(stage)
	}
	s.writeJSON(w, status, body)
}

// errorMessage is the user-facing text for err.
func errorMessage(err error) string {
	switch {
	case errors.Is(err, shared.ErrCredentialMissing):
		return "Not authenticated with Spotify"
	case errors.Is(err, shared.ErrTokenExpired):
		return "Spotify session expired, please log in again"
	default:
		return err.Error()
	}
}
