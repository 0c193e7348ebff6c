package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/desertthunder/spottyg/internal/shared"
	"github.com/desertthunder/spottyg/internal/tasks"
)

const refreshTokenMaxAge = 30 * 24 * time.Hour

// stateCookiePath scopes the OAuth state cookie to the login and callback routes.
const stateCookiePath = "/api/auth"

func (s *Server) setCookie(w http.ResponseWriter, name, value string, maxAge time.Duration, httpOnly bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: httpOnly,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

// clearCookie expires a cookie. path must match the one it was set with.
func (s *Server) clearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{Name: name, Value: "", Path: path, MaxAge: -1})
}

// redirectHome sends the browser back to the chat page, optionally with an error code for the page to show.
func (s *Server) redirectHome(w http.ResponseWriter, r *http.Request, errCode string) {
	target := s.config.BaseURL + "/"
	if errCode != "" {
		target += "?error=" + errCode
	}
	http.Redirect(w, r, target, http.StatusTemporaryRedirect)
}

// login starts the authorization code flow. The state is kept in a short-lived cookie and checked in [Server.callback].
func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		s.writeJSON(w, http.StatusInternalServerError, errorBody("Server configuration error"))
		return
	}

	state := shared.GenerateID()
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     stateCookiePath,
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   s.config.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, s.auth.AuthURL(state), http.StatusTemporaryRedirect)
}

// callback completes the login: exchange the code, record the account, and hand the tokens to the browser.
func (s *Server) callback(w http.ResponseWriter, r *http.Request) {
	if s.auth == nil {
		s.writeJSON(w, http.StatusInternalServerError, errorBody("Server configuration error"))
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		s.logger.Warn("no authorization code received", "error", r.URL.Query().Get("error"))
		s.redirectHome(w, r, "no_code")
		return
	}

	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" || c.Value != r.URL.Query().Get("state") {
		s.logger.Warn("oauth state mismatch")
		s.redirectHome(w, r, "state_mismatch")
		return
	}
	s.clearCookie(w, stateCookie, stateCookiePath)

	token, err := s.auth.Exchange(r.Context(), code)
	if err != nil {
		s.logger.Error("token exchange failed", "err", err)
		s.writeJSON(w, http.StatusInternalServerError, errorBody("Failed to exchange code for tokens"))
		return
	}

	profile, err := s.engine.Catalog().Profile(r.Context(), token.AccessToken)
	if err != nil {
		s.logger.Error("profile fetch failed", "err", err)
		s.writeJSON(w, http.StatusInternalServerError, errorBody("Failed to get Spotify profile"))
		return
	}

	if s.users != nil {
		if _, err := s.users.Upsert(profile.ID, profile.DisplayName, profile.Email); err != nil {
			s.logger.Error("user upsert failed", "spotify_id", profile.ID, "err", err)
			s.writeJSON(w, http.StatusInternalServerError, errorBody("Authentication failed"))
			return
		}
	}

	maxAge := time.Hour
	if !token.Expiry.IsZero() {
		maxAge = time.Until(token.Expiry)
	}
	s.setCookie(w, AccessTokenCookie, token.AccessToken, maxAge, false)
	if token.RefreshToken != "" {
		s.setCookie(w, RefreshTokenCookie, token.RefreshToken, refreshTokenMaxAge, true)
	}

	s.logger.Info("login complete", "spotify_id", profile.ID)
	s.redirectHome(w, r, "")
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	s.clearCookie(w, AccessTokenCookie, "/")
	s.clearCookie(w, RefreshTokenCookie, "/")
	w.WriteHeader(http.StatusNoContent)
}

type meResponse struct {
	SpotifyID   string    `json:"spotifyId"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email,omitempty"`
	ProfileURL  string    `json:"profileUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// me returns the signed-in account. 404 means the token is valid but the account never completed a login here.
func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	credential, ok := tasks.ContextCredentials.Credential(r.Context())
	if !ok {
		s.writeJSON(w, http.StatusUnauthorized, errorBody("No access token found in cookies"))
		return
	}

	profile, err := s.engine.Catalog().Profile(r.Context(), credential)
	if err != nil {
		s.logger.Warn("profile fetch failed", "err", err)
		status := statusFor(err)
		msg := "Failed to get Spotify profile"
		if status == http.StatusUnauthorized {
			msg = errorMessage(err)
		}
		s.writeJSON(w, status, errorBody(msg))
		return
	}

	if s.users == nil {
		s.writeJSON(w, http.StatusNotFound, errorBody("User not found in database"))
		return
	}

	user, err := s.users.GetBySpotifyID(profile.ID)
	if errors.Is(err, shared.ErrUserNotFound) {
		s.writeJSON(w, http.StatusNotFound, errorBody("User not found in database"))
		return
	}
	if err != nil {
		s.logger.Error("user lookup failed", "spotify_id", profile.ID, "err", err)
		s.writeJSON(w, http.StatusInternalServerError, errorBody("Failed to fetch user data"))
		return
	}

	s.writeJSON(w, http.StatusOK, meResponse{
		SpotifyID:   user.SpotifyID(),
		DisplayName: user.DisplayName(),
		Email:       user.Email(),
		ProfileURL:  profile.URL,
		CreatedAt:   user.CreatedAt(),
		UpdatedAt:   user.UpdatedAt(),
	})
}
