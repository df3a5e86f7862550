package middleware

import (
	"net/http"
	"strings"

	"github.com/medical-calendar/backend/internal/session"
)

// SessionCookie is the cookie carrying the session token.
const SessionCookie = "medcal_session"

// Token extracts the session token from the Authorization header, the
// session cookie or the "token" query parameter, in that order.
func Token(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	return r.URL.Query().Get("token")
}

// RequireSession rejects requests without a valid session and carries the
// session in the request context otherwise.
func RequireSession(m *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, err := m.Authenticate(Token(r))
			if err != nil {
				WriteServiceError(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), s)))
		})
	}
}
