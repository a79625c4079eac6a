package http

import (
	"context"
	"net/http"

	"github.com/aretw0/lemon/pkg/gate"
	"github.com/aretw0/lemon/pkg/session"
	"github.com/google/uuid"
)

// CookieName identifies the visitor session.
const CookieName = "lemon_session"

type sessionCtxKey struct{}

// withSession resolves the session cookie, issuing a fresh one when it is
// missing, malformed or forged. The cookie has no expiry so it dies with the
// browser session.
func (s *Server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := ""
		if c, err := r.Cookie(CookieName); err == nil {
			if id, err = s.decodeSession(c.Value); err != nil {
				s.Logger.Debug("Rejected session cookie", "err", err)
			}
		}
		if id == "" {
			id = uuid.NewString()
			value, err := s.encodeSession(id)
			if err != nil {
				s.Logger.Error("Session cookie failed", "err", err)
				http.Error(w, "internal error", http.StatusInternalServerError)
				return
			}
			http.SetCookie(w, s.cookie(value, 0))
			s.Logger.Debug("Session started", "session_id", id)
		}

		sess, err := s.Manager.Open(id)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		ctx := gate.WithSessionID(r.Context(), id)
		ctx = context.WithValue(ctx, sessionCtxKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   s.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
}

func sessionFrom(r *http.Request) *session.Session {
	return r.Context().Value(sessionCtxKey{}).(*session.Session)
}
