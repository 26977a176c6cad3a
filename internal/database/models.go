package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

type User struct {
	bun.BaseModel `bun:"table:users,alias:u"`

	ID              uuid.UUID  `bun:"id,pk,type:uuid"`
	Email           string     `bun:"email,notnull"`
	Username        string     `bun:"username,notnull,unique"`
	PasswordHash    string     `bun:"password_hash,notnull"`
	ResetOTPHash    *string    `bun:"reset_otp_hash"`
	ResetOTPExpires *time.Time `bun:"reset_otp_expires"`
	ResetOTPTries   int        `bun:"reset_otp_tries,notnull,default:0"`
	CreatedAt       time.Time  `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt       time.Time  `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type Listing struct {
	bun.BaseModel `bun:"table:listings,alias:l"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	Title         string    `bun:"title,notnull"`
	Description   string    `bun:"description,notnull"`
	Location      string    `bun:"location,notnull"`
	Country       string    `bun:"country,notnull"`
	Price         float64   `bun:"price,notnull"`
	ImageURL      string    `bun:"image_url,notnull"`
	ImageFilename string    `bun:"image_filename,notnull"`
	Longitude     *float64  `bun:"longitude"`
	Latitude      *float64  `bun:"latitude"`
	OwnerID       uuid.UUID `bun:"owner_id,type:uuid,notnull"`
	Owner         *User     `bun:"rel:belongs-to,join:owner_id=id"`
	Reviews       []*Review `bun:"rel:has-many,join:id=listing_id"`
	CreatedAt     time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
	UpdatedAt     time.Time `bun:"updated_at,nullzero,notnull,default:current_timestamp"`
}

type Review struct {
	bun.BaseModel `bun:"table:reviews,alias:r"`

	ID        uuid.UUID `bun:"id,pk,type:uuid"`
	ListingID uuid.UUID `bun:"listing_id,type:uuid,notnull"`
	AuthorID  uuid.UUID `bun:"author_id,type:uuid,notnull"`
	Author    *User     `bun:"rel:belongs-to,join:author_id=id"`
	Rating    int       `bun:"rating,notnull"`
	Comment   string    `bun:"comment,notnull"`
	CreatedAt time.Time `bun:"created_at,nullzero,notnull,default:current_timestamp"`
}
