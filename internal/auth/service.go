package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mcnijman/go-emailaddress"

	"github.com/nomadnest/nomadnest/internal/email"
	"github.com/nomadnest/nomadnest/internal/logging"
	"github.com/nomadnest/nomadnest/internal/user"
)

const (
	OTPTTL      = 10 * time.Minute
	MaxOTPTries = 5
)

var (
	ErrInvalidCredentials = errors.New("password or username is incorrect")
	ErrMissingCredentials = errors.New("missing credentials")
	ErrUsernameRequired   = errors.New("no username was given")
	ErrPasswordRequired   = errors.New("no password was given")
	ErrInvalidEmailFormat = errors.New("invalid email format")

	ErrAllFieldsRequired = errors.New("all fields are required")
	ErrPasswordMismatch  = errors.New("passwords do not match")
	ErrInvalidOTP        = errors.New("invalid or expired otp")
	ErrTooManyAttempts   = errors.New("too many attempts")
	ErrOTPExpired        = errors.New("otp expired")
	ErrIncorrectOTP      = errors.New("incorrect otp")
)

// UserStore is the slice of the user repository the auth flows need.
type UserStore interface {
	Create(ctx context.Context, email, username, passwordHash string) (*user.User, error)
	GetByEmail(ctx context.Context, email string) (*user.User, error)
	GetByUsername(ctx context.Context, username string) (*user.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*user.User, error)
	SetResetOTP(ctx context.Context, userID uuid.UUID, otpHash string, expires time.Time) error
	IncrementResetOTPTries(ctx context.Context, userID uuid.UUID, otpHash string) (int, error)
	CompletePasswordReset(ctx context.Context, userID uuid.UUID, otpHash, passwordHash string, maxTries int) error
}

// Service handles authentication business logic
type Service struct {
	users  UserStore
	sender email.Sender
	hasher *Hasher
	logger *logging.Logger
	now    func() time.Time
	newOTP func() (string, error)
}

func NewService(users UserStore, sender email.Sender, hasher *Hasher, logger *logging.Logger) *Service {
	return &Service{
		users:  users,
		sender: sender,
		hasher: hasher,
		logger: logger,
		now:    time.Now,
		newOTP: generateOTP,
	}
}

type SignupInput struct {
	Username string
	Email    string
	Password string
}

// Signup registers a new account. The caller logs the user in.
func (s *Service) Signup(ctx context.Context, in SignupInput) (*user.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, ErrUsernameRequired
	}
	if in.Password == "" {
		return nil, ErrPasswordRequired
	}

	addr, err := emailaddress.Parse(strings.TrimSpace(in.Email))
	if err != nil {
		return nil, ErrInvalidEmailFormat
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	newUser, err := s.users.Create(ctx, addr.String(), username, passwordHash)
	if err != nil {
		if errors.Is(err, user.ErrDuplicateUsername) {
			return nil, user.ErrDuplicateUsername
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return newUser, nil
}

// Authenticate checks a username and password pair
func (s *Service) Authenticate(ctx context.Context, username, password string) (*user.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}

	existingUser, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if !s.hasher.Verify(existingUser.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	return existingUser, nil
}

// RequestPasswordReset issues a one-time code for the account registered
// with emailAddr. An unknown address and a failed send are not errors, so
// callers can answer the same way in every case; only storage failures are
// returned.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	emailAddr = strings.TrimSpace(emailAddr)
	if emailAddr == "" {
		return nil
	}

	existingUser, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to get user: %w", err)
	}

	code, err := s.newOTP()
	if err != nil {
		return fmt.Errorf("failed to generate otp: %w", err)
	}

	otpHash, err := s.hasher.Hash(code)
	if err != nil {
		return fmt.Errorf("failed to hash otp: %w", err)
	}

	if err := s.users.SetResetOTP(ctx, existingUser.ID, otpHash, s.now().Add(OTPTTL)); err != nil {
		return fmt.Errorf("failed to store reset otp: %w", err)
	}

	// The code is stored either way; the user can ask again after a failed send.
	if err := s.sender.SendPasswordResetOTP(ctx, existingUser.Email, code); err != nil {
		s.logger.Warn("failed to send password reset otp", "email", existingUser.Email, "error", err)
	}

	return nil
}

type ResetInput struct {
	Email    string
	OTP      string
	Password string
	Confirm  string
}

// ResetWithOTP verifies the code and sets the new password. Only a wrong
// code counts against the attempt limit.
func (s *Service) ResetWithOTP(ctx context.Context, in ResetInput) error {
	emailAddr := strings.TrimSpace(in.Email)
	code := strings.TrimSpace(in.OTP)
	if emailAddr == "" || code == "" || in.Password == "" || in.Confirm == "" {
		return ErrAllFieldsRequired
	}
	if in.Password != in.Confirm {
		return ErrPasswordMismatch
	}

	existingUser, err := s.users.GetByEmail(ctx, emailAddr)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrInvalidOTP
		}
		return fmt.Errorf("failed to get user: %w", err)
	}
	if !existingUser.ResetInFlight() {
		return ErrInvalidOTP
	}
	if existingUser.ResetOTPTries >= MaxOTPTries {
		return ErrTooManyAttempts
	}
	if s.now().After(*existingUser.ResetOTPExpires) {
		return ErrOTPExpired
	}

	otpHash := *existingUser.ResetOTPHash
	if !s.hasher.Verify(otpHash, code) {
		if _, err := s.users.IncrementResetOTPTries(ctx, existingUser.ID, otpHash); err != nil && !errors.Is(err, user.ErrResetNotInFlight) {
			return fmt.Errorf("failed to record otp attempt: %w", err)
		}
		return ErrIncorrectOTP
	}

	passwordHash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	err = s.users.CompletePasswordReset(ctx, existingUser.ID, otpHash, passwordHash, MaxOTPTries)
	if err != nil {
		if errors.Is(err, user.ErrResetNotInFlight) {
			// Consumed, replaced or locked by a concurrent request.
			return ErrInvalidOTP
		}
		return fmt.Errorf("failed to update password: %w", err)
	}

	return nil
}
