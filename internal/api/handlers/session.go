package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/medical-calendar/backend/internal/api/middleware"
	"github.com/medical-calendar/backend/internal/session"
)

// LoginRequest carries dashboard credentials.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse returns the opened session and its token.
type LoginResponse struct {
	Token   string           `json:"token"`
	Session *session.Session `json:"session"`
}

// Login opens a session and sets the session cookie.
func Login(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			middleware.WriteError(w, http.StatusBadRequest, middleware.ErrBadRequest, "Invalid request body")
			return
		}

		s, token, err := sessions.Login(req.Email, req.Password)
		if err != nil {
			middleware.WriteServiceError(w, err)
			return
		}

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.SessionCookie,
			Value:    token,
			Path:     "/",
			Expires:  s.ExpiresAt,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		middleware.WriteJSON(w, http.StatusOK, LoginResponse{Token: token, Session: s})
	}
}

// Logout ends the current session and clears the cookie.
func Logout(sessions *session.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessions.Logout(sessionID(r))

		http.SetCookie(w, &http.Cookie{
			Name:     middleware.SessionCookie,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
		w.WriteHeader(http.StatusNoContent)
	}
}

// CurrentSession returns the session of the request.
func CurrentSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := session.FromContext(r.Context())
		if !ok {
			middleware.WriteServiceError(w, session.ErrUnauthenticated)
			return
		}
		middleware.WriteJSON(w, http.StatusOK, s)
	}
}
