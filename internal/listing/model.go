package listing

import (
	"time"

	"github.com/google/uuid"

	"github.com/nomadnest/nomadnest/internal/user"
)

type Image struct {
	URL      string
	Filename string
}

type Point struct {
	Longitude float64
	Latitude  float64
}

type Listing struct {
	ID          uuid.UUID
	Title       string
	Description string
	Location    string
	Country     string
	Price       float64
	Image       Image
	Geometry    *Point
	OwnerID     uuid.UUID
	Owner       *user.User
	Reviews     []*Review
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ClassificationText is the text categories are derived from.
func (l *Listing) ClassificationText() string {
	return l.Title + " " + l.Description + " " + l.Location + " " + l.Country
}

func (l *Listing) Category() Category {
	return Classify(l.ClassificationText())
}

func (l *Listing) IsOwnedBy(u *user.User) bool {
	return u != nil && u.ID == l.OwnerID
}

type Review struct {
	ID        uuid.UUID
	ListingID uuid.UUID
	AuthorID  uuid.UUID
	Author    *user.User
	Rating    int
	Comment   string
	CreatedAt time.Time
}

func (r *Review) IsAuthoredBy(u *user.User) bool {
	return u != nil && u.ID == r.AuthorID
}

// ListingInput is the editable part of a listing as submitted by a form.
type ListingInput struct {
	Title       string   `form:"title" validate:"required"`
	Description string   `form:"description" validate:"required"`
	Location    string   `form:"location" validate:"required"`
	Country     string   `form:"country" validate:"required"`
	Price       *float64 `form:"price" validate:"required,finite,gte=0"`
}

type ReviewInput struct {
	Rating  int    `form:"rating" validate:"required,min=1,max=5"`
	Comment string `form:"comment" validate:"required"`
}

type Amenity struct {
	Icon  string
	Label string
}

// amenities is shown on every detail page until listings carry their own.
var amenities = []Amenity{
	{"fa-wifi", "Free WiFi"},
	{"fa-square-parking", "Parking"},
	{"fa-snowflake", "Air Conditioning"},
	{"fa-mug-saucer", "Breakfast Included"},
	{"fa-kitchen-set", "Kitchen"},
	{"fa-soap", "Washer"},
	{"fa-tv", "TV"},
	{"fa-dumbbell", "Gym"},
	{"fa-mountain", "Mountain View"},
	{"fa-leaf", "Nature View"},
}
