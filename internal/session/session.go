package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/nomadnest/nomadnest/internal/logging"
	"github.com/nomadnest/nomadnest/internal/user"
)

const CookieName = "nomadnest.sid"

const (
	FlashSuccess = "success"
	FlashError   = "error"
)

type contextKey string

const (
	sessionContextKey contextKey = "session"
	userContextKey    contextKey = "current_user"
)

// Session is the per-request view of the stored session data.
type Session struct {
	id    string
	data  *Data
	dirty bool
}

func (s *Session) ID() string { return s.id }

func (s *Session) UserID() string { return s.data.UserID }

func (s *Session) SetUserID(id string) {
	s.data.UserID = id
	s.dirty = true
}

// SetReturnTo remembers where to send the user after logging in.
func (s *Session) SetReturnTo(url string) {
	s.data.ReturnTo = url
	s.dirty = true
}

// TakeReturnTo returns and clears the remembered URL.
func (s *Session) TakeReturnTo() string {
	url := s.data.ReturnTo
	if url != "" {
		s.data.ReturnTo = ""
		s.dirty = true
	}
	return url
}

// Flash queues a message shown on the next rendered page.
func (s *Session) Flash(kind, message string) {
	if s.data.Flashes == nil {
		s.data.Flashes = make(map[string][]string)
	}
	s.data.Flashes[kind] = append(s.data.Flashes[kind], message)
	s.dirty = true
}

// PopFlashes returns and clears the queued messages of one kind.
func (s *Session) PopFlashes(kind string) []string {
	msgs := s.data.Flashes[kind]
	if len(msgs) > 0 {
		delete(s.data.Flashes, kind)
		s.dirty = true
	}
	return msgs
}

// Manager loads sessions from the cookie, exposes them through the request
// context and persists changes after the handler returns.
type Manager struct {
	store  Store
	codec  *cookieCodec
	ttl    time.Duration
	secure bool
	logger *logging.Logger
	now    func() time.Time
}

func NewManager(store Store, secret string, ttl time.Duration, secure bool, logger *logging.Logger) (*Manager, error) {
	codec, err := newCookieCodec(secret, ttl)
	if err != nil {
		return nil, err
	}

	return &Manager{
		store:  store,
		codec:  codec,
		ttl:    ttl,
		secure: secure,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Middleware attaches the session to the request. The cookie is re-issued on
// every request, so the lifetime slides with activity.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := m.load(r)
		m.writeCookie(w, s.id)

		ctx := context.WithValue(r.Context(), sessionContextKey, s)
		next.ServeHTTP(w, r.WithContext(ctx))

		m.persist(context.WithoutCancel(ctx), s)
	})
}

// Renew moves the session data to a fresh id. Called on login and logout
// so a session id observed before authentication is never reused after it.
func (m *Manager) Renew(w http.ResponseWriter, r *http.Request) {
	s := FromContext(r.Context())

	if err := m.store.Delete(r.Context(), s.id); err != nil {
		m.logger.Warn("failed to delete old session", "error", err)
	}

	s.id = uuid.NewString()
	s.dirty = true
	m.writeCookie(w, s.id)
}

func (m *Manager) load(r *http.Request) *Session {
	cookie, err := r.Cookie(CookieName)
	if err != nil {
		return m.fresh()
	}

	id, err := m.codec.decode(cookie.Value)
	if err != nil {
		return m.fresh()
	}

	data, err := m.store.Get(r.Context(), id)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			logging.GetLoggerFromContext(r.Context()).Warn("failed to load session", "error", err)
		}
		return &Session{id: id, data: &Data{}}
	}

	return &Session{id: id, data: data}
}

func (m *Manager) fresh() *Session {
	return &Session{id: uuid.NewString(), data: &Data{}}
}

func (m *Manager) persist(ctx context.Context, s *Session) {
	var err error
	if s.dirty {
		err = m.store.Save(ctx, s.id, s.data, m.ttl)
	} else {
		err = m.store.Touch(ctx, s.id, m.ttl)
	}
	if err != nil {
		logging.GetLoggerFromContext(ctx).Warn("failed to persist session", "error", err)
	}
}

func (m *Manager) writeCookie(w http.ResponseWriter, id string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    m.codec.encode(id, m.now()),
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// FromContext returns the request session. Outside the middleware it
// returns a detached session whose changes are discarded.
func FromContext(ctx context.Context) *Session {
	if s, ok := ctx.Value(sessionContextKey).(*Session); ok {
		return s
	}
	return &Session{data: &Data{}}
}

// WithUser stores the authenticated user in the context.
func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, userContextKey, u)
}

// CurrentUser returns the authenticated user, or nil for anonymous requests.
func CurrentUser(ctx context.Context) *user.User {
	u, _ := ctx.Value(userContextKey).(*user.User)
	return u
}
