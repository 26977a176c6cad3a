package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/nomadnest/nomadnest/internal/logging"
	"github.com/nomadnest/nomadnest/internal/session"
	"github.com/nomadnest/nomadnest/internal/user"
	"github.com/nomadnest/nomadnest/internal/web"
)

type UserLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Middleware resolves the logged-in user from the session
type Middleware struct {
	users UserLookup
}

func NewMiddleware(users UserLookup) *Middleware {
	return &Middleware{users: users}
}

// LoadUser puts the session's user into the request context. A session
// pointing at a deleted user is logged out.
func (m *Middleware) LoadUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := session.FromContext(r.Context())
		rawID := sess.UserID()
		if rawID == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := uuid.Parse(rawID)
		if err != nil {
			sess.SetUserID("")
			next.ServeHTTP(w, r)
			return
		}

		u, err := m.users.GetByID(r.Context(), id)
		if err != nil {
			if errors.Is(err, user.ErrNotFound) {
				sess.SetUserID("")
			} else {
				logging.GetLoggerFromContext(r.Context()).Error("failed to load session user", "error", err)
			}
			next.ServeHTTP(w, r)
			return
		}

		ctx := session.WithUser(r.Context(), u)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth redirects anonymous requests to the login form. GET requests
// are remembered so login can send the user back.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if session.CurrentUser(r.Context()) != nil {
			next.ServeHTTP(w, r)
			return
		}

		sess := session.FromContext(r.Context())
		if r.Method == http.MethodGet {
			sess.SetReturnTo(r.URL.RequestURI())
		}
		sess.Flash(session.FlashError, "You must be logged in first!")
		web.Redirect(w, r, "/login")
	})
}
