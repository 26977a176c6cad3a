package auth

import (
	"context"
	"errors"
	"net/http"

	"github.com/nomadnest/nomadnest/internal/httputil"
	"github.com/nomadnest/nomadnest/internal/logging"
	"github.com/nomadnest/nomadnest/internal/session"
	"github.com/nomadnest/nomadnest/internal/user"
	"github.com/nomadnest/nomadnest/internal/web"
)

const (
	otpSentMessage     = "If the email exists, an OTP has been sent."
	passwordUpdatedMsg = "Password updated. Please log in."
	forgotPurpose      = "forgot"
)

// ResetLimiter throttles forgot password requests per IP and per email.
type ResetLimiter interface {
	CheckIPRateLimit(ctx context.Context, ip, purpose string) (bool, error)
	RecordIPRequest(ctx context.Context, ip, purpose string) error
	CheckEmailCooldown(ctx context.Context, email string) (bool, error)
	SetEmailCooldown(ctx context.Context, email string) error
}

// Handler contains HTTP handlers for the account pages
type Handler struct {
	service     *Service
	sessions    *session.Manager
	views       *web.Renderer
	rateLimiter ResetLimiter
}

func NewHandler(service *Service, sessions *session.Manager, views *web.Renderer, rateLimiter ResetLimiter) *Handler {
	return &Handler{
		service:     service,
		sessions:    sessions,
		views:       views,
		rateLimiter: rateLimiter,
	}
}

func (h *Handler) SignupForm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "users/signup", nil)
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	newUser, err := h.service.Signup(r.Context(), SignupInput{
		Username: r.PostFormValue("username"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
	})
	if err != nil {
		message, ok := signupMessage(err)
		if !ok {
			h.views.Error(w, r, err)
			return
		}
		logger.Warn("signup rejected", "error", err)
		web.Flash(r, session.FlashError, message)
		web.Redirect(w, r, "/signup")
		return
	}

	logger.Info("user registered", "user_id", newUser.ID)
	h.logIn(w, r, newUser)
	web.Flash(r, session.FlashSuccess, "Welcome to NomadNest!")
	web.Redirect(w, r, "/listings")
}

func signupMessage(err error) (string, bool) {
	switch {
	case errors.Is(err, user.ErrDuplicateUsername):
		return "A user with the given username is already registered", true
	case errors.Is(err, ErrUsernameRequired):
		return "No username was given", true
	case errors.Is(err, ErrPasswordRequired):
		return "No password was given", true
	case errors.Is(err, ErrInvalidEmailFormat):
		return "Please enter a valid email address", true
	}
	return "", false
}

func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "users/login", nil)
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	u, err := h.service.Authenticate(r.Context(), r.PostFormValue("username"), r.PostFormValue("password"))
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidCredentials):
			web.Flash(r, session.FlashError, "Password or username is incorrect")
		case errors.Is(err, ErrMissingCredentials):
			web.Flash(r, session.FlashError, "Missing credentials")
		default:
			h.views.Error(w, r, err)
			return
		}
		logger.Warn("login failed", "error", err)
		web.Redirect(w, r, "/login")
		return
	}

	h.logIn(w, r, u)

	redirectURL := session.FromContext(r.Context()).TakeReturnTo()
	if redirectURL == "" {
		redirectURL = "/listings"
	}

	logger.Info("user logged in", "user_id", u.ID)
	web.Flash(r, session.FlashSuccess, "Welcome back to NomadNest!")
	web.Redirect(w, r, redirectURL)
}

func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	sess := session.FromContext(r.Context())
	sess.SetUserID("")
	h.sessions.Renew(w, r)

	web.Flash(r, session.FlashSuccess, "You are logged out!")
	web.Redirect(w, r, "/listings")
}

func (h *Handler) logIn(w http.ResponseWriter, r *http.Request, u *user.User) {
	h.sessions.Renew(w, r)
	session.FromContext(r.Context()).SetUserID(u.ID.String())
}

func (h *Handler) ForgotForm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "users/forgot", nil)
}

// ForgotPassword issues a reset code. The response is the same whether or
// not the account exists, and whether or not the email is on cooldown.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())
	emailAddr := r.PostFormValue("email")

	ip := httputil.ClientIP(r)
	exceeded, err := h.rateLimiter.CheckIPRateLimit(r.Context(), ip, forgotPurpose)
	if err != nil {
		// Continue despite error to avoid blocking legitimate requests
		logger.Error("failed to check IP rate limit", "error", err)
	} else if exceeded {
		logger.Warn("IP rate limit exceeded", "ip", ip)
		web.Flash(r, session.FlashError, "Too many requests, please try again later.")
		web.Redirect(w, r, "/forgot")
		return
	}

	if err := h.rateLimiter.RecordIPRequest(r.Context(), ip, forgotPurpose); err != nil {
		logger.Error("failed to record IP request", "error", err)
	}

	onCooldown, err := h.rateLimiter.CheckEmailCooldown(r.Context(), emailAddr)
	if err != nil {
		logger.Error("failed to check email cooldown", "error", err)
	}

	if onCooldown {
		logger.Info("email on cooldown, skipping otp", "email", emailAddr)
	} else {
		if err := h.rateLimiter.SetEmailCooldown(r.Context(), emailAddr); err != nil {
			logger.Error("failed to set email cooldown", "error", err)
		}
		// The response stays the same so the failure cannot reveal the account.
		if err := h.service.RequestPasswordReset(r.Context(), emailAddr); err != nil {
			logger.Error("password reset request failed", "error", err)
		}
	}

	web.Flash(r, session.FlashSuccess, otpSentMessage)
	web.Redirect(w, r, "/reset")
}

func (h *Handler) ResetForm(w http.ResponseWriter, r *http.Request) {
	h.views.Render(w, r, http.StatusOK, "users/reset", nil)
}

func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	logger := logging.GetLoggerFromContext(r.Context())

	err := h.service.ResetWithOTP(r.Context(), ResetInput{
		Email:    r.PostFormValue("email"),
		OTP:      r.PostFormValue("otp"),
		Password: r.PostFormValue("password"),
		Confirm:  r.PostFormValue("confirm"),
	})
	if err != nil {
		outcome, ok := resetOutcomes[errorKey(err)]
		if !ok {
			h.views.Error(w, r, err)
			return
		}
		logger.Warn("password reset rejected", "error", err)
		web.Flash(r, session.FlashError, outcome.message)
		web.Redirect(w, r, outcome.redirect)
		return
	}

	logger.Info("password reset completed")
	web.Flash(r, session.FlashSuccess, passwordUpdatedMsg)
	web.Redirect(w, r, "/login")
}

type resetOutcome struct {
	message  string
	redirect string
}

var resetOutcomes = map[error]resetOutcome{
	ErrAllFieldsRequired: {"All fields are required", "/reset"},
	ErrPasswordMismatch:  {"Passwords do not match", "/reset"},
	ErrInvalidOTP:        {"Invalid or expired OTP", "/reset"},
	ErrTooManyAttempts:   {"Too many attempts. Request a new OTP.", "/forgot"},
	ErrOTPExpired:        {"OTP expired. Request a new one.", "/forgot"},
	ErrIncorrectOTP:      {"Incorrect OTP", "/reset"},
}

// errorKey returns the reset sentinel err wraps, or err itself.
func errorKey(err error) error {
	for sentinel := range resetOutcomes {
		if errors.Is(err, sentinel) {
			return sentinel
		}
	}
	return err
}
