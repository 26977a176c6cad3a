package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/nomadnest/nomadnest/internal/database"
)

var (
	ErrNotFound          = errors.New("user not found")
	ErrDuplicateUsername = errors.New("a user with the given username is already registered")
	// ErrResetNotInFlight is returned by the conditional OTP updates when the
	// stored OTP no longer matches the one the caller read.
	ErrResetNotInFlight = errors.New("password reset is not in flight")
)

// Repository handles user data persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Create inserts a new user into the database
func (r *Repository) Create(ctx context.Context, email, username, passwordHash string) (*User, error) {
	dbUser := &database.User{
		ID:           uuid.New(),
		Email:        email,
		Username:     username,
		PasswordHash: passwordHash,
	}

	_, err := r.db.NewInsert().
		Model(dbUser).
		Returning("*").
		Exec(ctx)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key value violates unique constraint") {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByEmail retrieves the first user registered with the email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("email = ?", email).
		OrderExpr("created_at ASC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByUsername retrieves a user by username
func (r *Repository) GetByUsername(ctx context.Context, username string) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("username = ?", username).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// GetByID retrieves a user by ID
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	dbUser := new(database.User)
	err := r.db.NewSelect().
		Model(dbUser).
		Where("id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return mapDBUserToModel(dbUser), nil
}

// SetResetOTP stores a freshly issued OTP hash and expiry and zeroes the
// attempt counter.
func (r *Repository) SetResetOTP(ctx context.Context, userID uuid.UUID, otpHash string, expires time.Time) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("reset_otp_hash = ?", otpHash).
		Set("reset_otp_expires = ?", expires).
		Set("reset_otp_tries = 0").
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to store reset otp: %w", err)
	}

	return requireRow(result, ErrNotFound)
}

// IncrementResetOTPTries bumps the attempt counter of the OTP identified by
// otpHash and returns the new count. The update is a single conditional
// statement, so two concurrent wrong guesses both count.
func (r *Repository) IncrementResetOTPTries(ctx context.Context, userID uuid.UUID, otpHash string) (int, error) {
	var tries int
	err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("reset_otp_tries = reset_otp_tries + 1").
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Where("reset_otp_hash = ?", otpHash).
		Returning("reset_otp_tries").
		Scan(ctx, &tries)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrResetNotInFlight
		}
		return 0, fmt.Errorf("failed to increment reset otp tries: %w", err)
	}

	return tries, nil
}

// CompletePasswordReset swaps in the new password hash and clears the OTP
// fields, but only while the OTP identified by otpHash is still in flight
// and below maxTries. A concurrent completion or a newer OTP makes it fail
// with ErrResetNotInFlight.
func (r *Repository) CompletePasswordReset(ctx context.Context, userID uuid.UUID, otpHash, passwordHash string, maxTries int) error {
	result, err := r.db.NewUpdate().
		Model((*database.User)(nil)).
		Set("password_hash = ?", passwordHash).
		Set("reset_otp_hash = NULL").
		Set("reset_otp_expires = NULL").
		Set("reset_otp_tries = 0").
		Set("updated_at = NOW()").
		Where("id = ?", userID).
		Where("reset_otp_hash = ?", otpHash).
		Where("reset_otp_tries < ?", maxTries).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to complete password reset: %w", err)
	}

	return requireRow(result, ErrResetNotInFlight)
}

func requireRow(result sql.Result, notFound error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return notFound
	}
	return nil
}

// mapDBUserToModel converts database model to domain model
func mapDBUserToModel(dbu *database.User) *User {
	return &User{
		ID:              dbu.ID,
		Email:           dbu.Email,
		Username:        dbu.Username,
		PasswordHash:    dbu.PasswordHash,
		ResetOTPHash:    dbu.ResetOTPHash,
		ResetOTPExpires: dbu.ResetOTPExpires,
		ResetOTPTries:   dbu.ResetOTPTries,
		CreatedAt:       dbu.CreatedAt,
		UpdatedAt:       dbu.UpdatedAt,
	}
}

// FromDB exposes the mapping for packages that load users through relations.
func FromDB(dbu *database.User) *User {
	if dbu == nil {
		return nil
	}
	return mapDBUserToModel(dbu)
}
