package user

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`

	// Password reset state. ResetOTPHash and ResetOTPExpires are set
	// together; both nil means no reset is in flight.
	ResetOTPHash    *string    `json:"-"`
	ResetOTPExpires *time.Time `json:"-"`
	ResetOTPTries   int        `json:"-"`
}

// ResetInFlight reports whether an OTP has been issued and not yet cleared.
func (u *User) ResetInFlight() bool {
	return u.ResetOTPHash != nil && u.ResetOTPExpires != nil
}
