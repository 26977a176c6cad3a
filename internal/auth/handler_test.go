package auth

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nomadnest/nomadnest/internal/logging"
	"github.com/nomadnest/nomadnest/internal/session"
	"github.com/nomadnest/nomadnest/internal/web"
	"github.com/nomadnest/nomadnest/templates"
)

type fakeLimiter struct {
	ipExceeded bool
	cooldown   map[string]bool
}

func newFakeLimiter() *fakeLimiter {
	return &fakeLimiter{cooldown: make(map[string]bool)}
}

func (l *fakeLimiter) CheckIPRateLimit(context.Context, string, string) (bool, error) {
	return l.ipExceeded, nil
}

func (l *fakeLimiter) RecordIPRequest(context.Context, string, string) error { return nil }

func (l *fakeLimiter) CheckEmailCooldown(_ context.Context, email string) (bool, error) {
	return l.cooldown[email], nil
}

func (l *fakeLimiter) SetEmailCooldown(_ context.Context, email string) error {
	l.cooldown[email] = true
	return nil
}

// browser replays the session cookie between requests.
type browser struct {
	t       *testing.T
	handler http.Handler
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, f *fixture, limiter ResetLimiter) *browser {
	t.Helper()

	views, err := web.NewRenderer(templates.ViewsFS)
	require.NoError(t, err)
	sessions, err := session.NewManager(session.NewMemoryStore(), "test-secret", time.Hour, false, logging.NewLogger(false))
	require.NoError(t, err)

	h := NewHandler(f.svc, sessions, views, limiter)

	r := chi.NewRouter()
	r.Use(sessions.Middleware, NewMiddleware(f.store).LoadUser)
	r.Get("/login", h.LoginForm)
	r.Post("/login", h.Login)
	r.Get("/logout", h.Logout)
	r.Get("/forgot", h.ForgotForm)
	r.Post("/forgot", h.ForgotPassword)
	r.Get("/reset", h.ResetForm)
	r.Post("/reset", h.ResetPassword)
	r.With(RequireAuth).Get("/listings/new", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &browser{t: t, handler: r, cookies: make(map[string]*http.Cookie)}
}

func (b *browser) do(method, target string, form url.Values) *httptest.ResponseRecorder {
	b.t.Helper()

	var req *http.Request
	if form != nil {
		req = httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	for _, c := range b.cookies {
		req.AddCookie(c)
	}

	rec := httptest.NewRecorder()
	b.handler.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		b.cookies[c.Name] = c
	}
	return rec
}

// flashes renders a page and returns the queued success and error messages.
func (b *browser) flashes() (success, failure []string) {
	b.t.Helper()

	rec := b.do(http.MethodGet, "/forgot", nil)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(b.t, err)

	doc.Find(".flash-success").Each(func(_ int, s *goquery.Selection) {
		success = append(success, strings.TrimSpace(s.Text()))
	})
	doc.Find(".flash-error").Each(func(_ int, s *goquery.Selection) {
		failure = append(failure, strings.TrimSpace(s.Text()))
	})
	return success, failure
}

func TestForgotPasswordAnswersTheSameWay(t *testing.T) {
	tests := []struct {
		name     string
		email    string
		prepare  func(f *fixture, l *fakeLimiter)
		wantSent int
	}{
		{"known email", "amy@example.com", nil, 1},
		{"unknown email", "nobody@example.com", nil, 0},
		{"email on cooldown", "amy@example.com", func(_ *fixture, l *fakeLimiter) {
			l.cooldown["amy@example.com"] = true
		}, 0},
		{"store failure", "amy@example.com", func(f *fixture, _ *fakeLimiter) {
			f.store.getErr = errors.New("db down")
		}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			limiter := newFakeLimiter()
			if tt.prepare != nil {
				tt.prepare(f, limiter)
			}
			b := newBrowser(t, f, limiter)

			rec := b.do(http.MethodPost, "/forgot", url.Values{"email": {tt.email}})
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, "/reset", rec.Header().Get("Location"))

			f.store.getErr = nil
			success, failure := b.flashes()
			assert.Equal(t, []string{otpSentMessage}, success)
			assert.Empty(t, failure)
			assert.Len(t, f.sender.sent, tt.wantSent)
		})
	}
}

func TestForgotPasswordSetsCooldown(t *testing.T) {
	f := newFixture(t)
	b := newBrowser(t, f, newFakeLimiter())

	b.do(http.MethodPost, "/forgot", url.Values{"email": {"amy@example.com"}})
	b.do(http.MethodPost, "/forgot", url.Values{"email": {"amy@example.com"}})

	assert.Len(t, f.sender.sent, 1)
}

func TestForgotPasswordIPLimit(t *testing.T) {
	f := newFixture(t)
	limiter := newFakeLimiter()
	limiter.ipExceeded = true
	b := newBrowser(t, f, limiter)

	rec := b.do(http.MethodPost, "/forgot", url.Values{"email": {"amy@example.com"}})
	assert.Equal(t, "/forgot", rec.Header().Get("Location"))

	_, failure := b.flashes()
	assert.Equal(t, []string{"Too many requests, please try again later."}, failure)
	assert.Empty(t, f.sender.sent)
}

func TestResetPasswordOutcomes(t *testing.T) {
	valid := func() url.Values {
		return url.Values{
			"email":    {"amy@example.com"},
			"otp":      {"482913"},
			"password": {"new-pass"},
			"confirm":  {"new-pass"},
		}
	}

	tests := []struct {
		name     string
		prepare  func(f *fixture)
		edit     func(v url.Values)
		wantPath string
		wantMsg  string
	}{
		{
			name:     "missing field",
			edit:     func(v url.Values) { v.Del("otp") },
			wantPath: "/reset",
			wantMsg:  "All fields are required",
		},
		{
			name:     "confirmation differs",
			edit:     func(v url.Values) { v.Set("confirm", "other") },
			wantPath: "/reset",
			wantMsg:  "Passwords do not match",
		},
		{
			name:     "unknown email",
			edit:     func(v url.Values) { v.Set("email", "nobody@example.com") },
			wantPath: "/reset",
			wantMsg:  "Invalid or expired OTP",
		},
		{
			name:     "too many attempts",
			prepare:  func(f *fixture) { f.store.byID[f.user.ID].ResetOTPTries = MaxOTPTries },
			wantPath: "/forgot",
			wantMsg:  "Too many attempts. Request a new OTP.",
		},
		{
			name:     "expired",
			prepare:  func(f *fixture) { f.now = f.now.Add(OTPTTL + time.Second) },
			wantPath: "/forgot",
			wantMsg:  "OTP expired. Request a new one.",
		},
		{
			name:     "wrong code",
			edit:     func(v url.Values) { v.Set("otp", "000000") },
			wantPath: "/reset",
			wantMsg:  "Incorrect OTP",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "amy@example.com"))
			if tt.prepare != nil {
				tt.prepare(f)
			}
			b := newBrowser(t, f, newFakeLimiter())

			form := valid()
			if tt.edit != nil {
				tt.edit(form)
			}
			rec := b.do(http.MethodPost, "/reset", form)
			assert.Equal(t, http.StatusFound, rec.Code)
			assert.Equal(t, tt.wantPath, rec.Header().Get("Location"))

			success, failure := b.flashes()
			assert.Empty(t, success)
			assert.Equal(t, []string{tt.wantMsg}, failure)
			assert.True(t, f.stored(t).ResetInFlight(), "a failed reset keeps the code")
		})
	}
}

func TestResetPasswordSuccess(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.RequestPasswordReset(context.Background(), "amy@example.com"))
	b := newBrowser(t, f, newFakeLimiter())

	rec := b.do(http.MethodPost, "/reset", url.Values{
		"email":    {"amy@example.com"},
		"otp":      {"482913"},
		"password": {"new-pass"},
		"confirm":  {"new-pass"},
	})
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	success, _ := b.flashes()
	assert.Equal(t, []string{passwordUpdatedMsg}, success)
	assert.False(t, f.stored(t).ResetInFlight())

	rec = b.do(http.MethodPost, "/login", url.Values{"username": {"amy"}, "password": {"new-pass"}})
	assert.Equal(t, "/listings", rec.Header().Get("Location"))
}

func TestLoginReturnsToRememberedPage(t *testing.T) {
	f := newFixture(t)
	b := newBrowser(t, f, newFakeLimiter())

	rec := b.do(http.MethodGet, "/listings/new", nil)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	rec = b.do(http.MethodPost, "/login", url.Values{"username": {"amy"}, "password": {"old-pass"}})
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/listings/new", rec.Header().Get("Location"))

	rec = b.do(http.MethodGet, "/listings/new", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	// the remembered page is used once
	b.do(http.MethodGet, "/logout", nil)
	rec = b.do(http.MethodPost, "/login", url.Values{"username": {"amy"}, "password": {"old-pass"}})
	assert.Equal(t, "/listings", rec.Header().Get("Location"))
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	f := newFixture(t)
	b := newBrowser(t, f, newFakeLimiter())

	rec := b.do(http.MethodPost, "/login", url.Values{"username": {"amy"}, "password": {"nope"}})
	assert.Equal(t, "/login", rec.Header().Get("Location"))

	_, failure := b.flashes()
	assert.Equal(t, []string{"Password or username is incorrect"}, failure)

	rec = b.do(http.MethodGet, "/listings/new", nil)
	assert.Equal(t, http.StatusFound, rec.Code)
}
