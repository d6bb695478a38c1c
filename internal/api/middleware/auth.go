package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	apiContext "qrlink/internal/api/context"
	"qrlink/internal/pkg/errors"
	"qrlink/internal/platform/auth"
)

const adminKeyHeader = "X-Admin-Key"

type AdminMiddleware struct {
	sessions *auth.SessionService
	secure   bool
}

// NewAdminMiddleware guards admin routes. secure marks the session cookie Secure.
func NewAdminMiddleware(sessions *auth.SessionService, secure bool) *AdminMiddleware {
	return &AdminMiddleware{sessions: sessions, secure: secure}
}

// Page guards browser-facing admin pages. A valid key in the X-Admin-Key header or the
// key query parameter opens a session. On GET and HEAD the query form redirects to the same
// URL without the key; other methods continue in place since a redirect would turn them into a GET.
func (m *AdminMiddleware) Page(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get(adminKeyHeader); key != "" && m.sessions.CheckKey(key) {
			if !m.startSession(w) {
				errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Could not start session", nil)
				return
			}
			next(w, withAdmin(r))
			return
		}

		if key := r.URL.Query().Get("key"); key != "" && m.sessions.CheckKey(key) {
			if !m.startSession(w) {
				errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Could not start session", nil)
				return
			}
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next(w, withAdmin(r))
				return
			}
			u := *r.URL
			q := u.Query()
			q.Del("key")
			u.RawQuery = q.Encode()
			http.Redirect(w, r, u.RequestURI(), http.StatusFound)
			return
		}

		if m.hasSession(r) {
			next(w, withAdmin(r))
			return
		}

		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Unauthorized", nil)
	}
}

// API guards JSON admin endpoints. Only the header or an existing session is accepted.
func (m *AdminMiddleware) API(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if key := r.Header.Get(adminKeyHeader); key != "" && m.sessions.CheckKey(key) {
			next(w, withAdmin(r))
			return
		}
		if m.hasSession(r) {
			next(w, withAdmin(r))
			return
		}
		errors.WriteError(w, http.StatusUnauthorized, errors.ErrCodeUnauthorized, "Unauthorized", nil)
	}
}

func (m *AdminMiddleware) hasSession(r *http.Request) bool {
	cookie, err := r.Cookie(auth.SessionCookie)
	if err != nil || cookie.Value == "" {
		return false
	}
	_, err = m.sessions.ValidateToken(cookie.Value)
	return err == nil
}

func (m *AdminMiddleware) startSession(w http.ResponseWriter) bool {
	token, expires, err := m.sessions.GenerateSessionToken()
	if err != nil {
		log.Error().Err(err).Msg("failed to sign admin session")
		return false
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return true
}

func withAdmin(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), apiContext.Admin, true))
}

// IsAdmin reports whether the request passed an admin guard.
func IsAdmin(r *http.Request) bool {
	ok, _ := r.Context().Value(apiContext.Admin).(bool)
	return ok
}
