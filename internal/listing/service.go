package listing

import (
	"context"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	olc "github.com/google/open-location-code/go"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/nomadnest/nomadnest/internal/geocode"
	"github.com/nomadnest/nomadnest/internal/logging"
	"github.com/nomadnest/nomadnest/internal/storage"
	"github.com/nomadnest/nomadnest/internal/user"
)

const (
	similarLimit   = 6
	plusCodeDigits = 10
)

var (
	ErrNotFound       = errors.New("listing not found")
	ErrReviewNotFound = errors.New("review not found")
	ErrNotOwner       = errors.New("not the owner of this listing")
	ErrNotAuthor      = errors.New("not the author of this review")
	ErrImageRequired  = errors.New("an image is required")
	ErrInvalidInput   = errors.New("invalid input")
)

// ValidationError lists every field that failed validation.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// Store is the persistence the listing service needs.
type Store interface {
	SearchStore
	Count(ctx context.Context, f Filter) (int, error)
	List(ctx context.Context, f Filter, s Sort, offset, limit int) ([]*Listing, error)
	GetByID(ctx context.Context, id uuid.UUID) (*Listing, error)
	Similar(ctx context.Context, excludeID uuid.UUID, terms []string, limit int) ([]*Listing, error)
	Create(ctx context.Context, l *Listing) error
	Update(ctx context.Context, l *Listing) error
	Delete(ctx context.Context, id uuid.UUID) error
	CreateReview(ctx context.Context, r *Review) error
	GetReview(ctx context.Context, listingID, reviewID uuid.UUID) (*Review, error)
	DeleteReview(ctx context.Context, reviewID uuid.UUID) error
}

type Geocoder interface {
	Forward(ctx context.Context, query string) (geocode.Point, error)
}

// Service implements listing and review business logic
type Service struct {
	store    Store
	geocoder Geocoder
	images   storage.ImageStore
	validate *validator.Validate
}

func NewService(store Store, geocoder Geocoder, images storage.ImageStore) *Service {
	return &Service{
		store:    store,
		geocoder: geocoder,
		images:   images,
		validate: newValidator(),
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	// Registration only fails for an empty tag or a nil func.
	_ = v.RegisterValidation("finite", func(fl validator.FieldLevel) bool {
		f := fl.Field().Float()
		return !math.IsInf(f, 0) && !math.IsNaN(f)
	})
	return v
}

func (s *Service) check(in any) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate input: %w", err)
	}

	var combined error
	for _, fe := range fieldErrs {
		combined = multierr.Append(combined, fieldError(fe))
	}
	return &ValidationError{Err: combined}
}

func fieldError(fe validator.FieldError) error {
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%q is required", fe.Field())
	case "finite":
		return fmt.Errorf("%q must be a number", fe.Field())
	case "gte", "min":
		return fmt.Errorf("%q must be greater than or equal to %s", fe.Field(), fe.Param())
	case "max":
		return fmt.Errorf("%q must be less than or equal to %s", fe.Field(), fe.Param())
	}
	return fmt.Errorf("%q is invalid", fe.Field())
}

// Index returns one page of listings. The count and the page are fetched
// concurrently.
func (s *Service) Index(ctx context.Context, q IndexQuery) (*IndexPage, error) {
	f := q.Filter()

	var (
		total    int
		listings []*Listing
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.Count(gctx, f)
		total = n
		return err
	})
	g.Go(func() error {
		page, err := s.store.List(gctx, f, q.Sort, q.Offset(), q.Limit)
		listings = page
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load listings: %w", err)
	}

	return &IndexPage{
		Listings:   listings,
		Filters:    q.Filters,
		Pagination: newPagination(q.Page, q.Limit, total),
		Categories: Categories(),
	}, nil
}

// Detail is everything the listing page shows.
type Detail struct {
	Listing       *Listing
	Category      Category
	Similar       []*Listing
	Amenities     []Amenity
	AverageRating *float64

	// MapPoint is a fresh geocode of the location when one is available,
	// else the point stored at creation.
	MapPoint   *Point
	PlusCode   string
	CheckIn    string
	CheckOut   string
	Quote      *BookingQuote
	QuoteError string
}

// Show loads a listing for display. Similar listings and the geocode
// overlay are fetched concurrently; a failed geocode is ignored.
func (s *Service) Show(ctx context.Context, id uuid.UUID, checkIn, checkOut string) (*Detail, error) {
	l, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	d := &Detail{
		Listing:       l,
		Category:      l.Category(),
		Amenities:     amenities,
		AverageRating: averageRating(l.Reviews),
		MapPoint:      l.Geometry,
		CheckIn:       checkIn,
		CheckOut:      checkOut,
	}

	var overlay *Point
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		similar, err := s.store.Similar(gctx, l.ID, d.Category.Terms, similarLimit)
		d.Similar = similar
		return err
	})
	if s.geocoder != nil {
		g.Go(func() error {
			p, err := s.geocoder.Forward(gctx, l.Location)
			if err != nil {
				logging.GetLoggerFromContext(ctx).Debug("geocode overlay skipped", "listing_id", l.ID, "error", err)
				return nil
			}
			overlay = &Point{Longitude: p.Longitude, Latitude: p.Latitude}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load similar listings: %w", err)
	}

	if overlay != nil {
		d.MapPoint = overlay
	}
	if d.MapPoint != nil {
		d.PlusCode = olc.Encode(d.MapPoint.Latitude, d.MapPoint.Longitude, plusCodeDigits)
	}

	if checkIn != "" || checkOut != "" {
		quote, err := ParseQuote(l.Price, checkIn, checkOut)
		if err != nil {
			d.QuoteError = err.Error()
		} else {
			d.Quote = quote
		}
	}

	return d, nil
}

func averageRating(reviews []*Review) *float64 {
	if len(reviews) == 0 {
		return nil
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	avg := float64(sum) / float64(len(reviews))
	return &avg
}

// Create geocodes the location, stores the image and saves the listing.
// The stored image is removed again if the listing cannot be saved.
func (s *Service) Create(ctx context.Context, owner *user.User, in ListingInput, upload *storage.Upload) (*Listing, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	if upload == nil {
		return nil, ErrImageRequired
	}

	p, err := s.geocoder.Forward(ctx, in.Location)
	if err != nil {
		return nil, fmt.Errorf("geocode location: %w", err)
	}

	obj, err := s.images.Save(ctx, *upload)
	if err != nil {
		return nil, fmt.Errorf("store image: %w", err)
	}

	l := &Listing{
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Country:     in.Country,
		Price:       *in.Price,
		Image:       Image{URL: obj.URL, Filename: obj.Filename},
		Geometry:    &Point{Longitude: p.Longitude, Latitude: p.Latitude},
		OwnerID:     owner.ID,
		Owner:       owner,
	}
	if err := s.store.Create(ctx, l); err != nil {
		s.discardImage(ctx, obj.Filename)
		return nil, err
	}

	logging.GetLoggerFromContext(ctx).Info("listing created", "listing_id", l.ID, "owner_id", owner.ID)
	return l, nil
}

// EditForm returns the listing when actor owns it.
func (s *Service) EditForm(ctx context.Context, actor *user.User, id uuid.UUID) (*Listing, error) {
	return s.owned(ctx, actor, id)
}

// Update replaces the editable fields and, when upload is given, the image.
func (s *Service) Update(ctx context.Context, actor *user.User, id uuid.UUID, in ListingInput, upload *storage.Upload) (*Listing, error) {
	l, err := s.owned(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(in); err != nil {
		return nil, err
	}

	l.Title = in.Title
	l.Description = in.Description
	l.Location = in.Location
	l.Country = in.Country
	l.Price = *in.Price

	previous := l.Image
	if upload != nil {
		obj, err := s.images.Save(ctx, *upload)
		if err != nil {
			return nil, fmt.Errorf("store image: %w", err)
		}
		l.Image = Image{URL: obj.URL, Filename: obj.Filename}
	}

	if err := s.store.Update(ctx, l); err != nil {
		if upload != nil {
			s.discardImage(ctx, l.Image.Filename)
		}
		return nil, err
	}
	if upload != nil {
		s.discardImage(ctx, previous.Filename)
	}

	return l, nil
}

func (s *Service) Delete(ctx context.Context, actor *user.User, id uuid.UUID) error {
	l, err := s.owned(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, l.ID); err != nil {
		return err
	}
	s.discardImage(ctx, l.Image.Filename)

	logging.GetLoggerFromContext(ctx).Info("listing deleted", "listing_id", l.ID)
	return nil
}

func (s *Service) owned(ctx context.Context, actor *user.User, id uuid.UUID) (*Listing, error) {
	l, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !l.IsOwnedBy(actor) {
		return nil, ErrNotOwner
	}
	return l, nil
}

func (s *Service) AddReview(ctx context.Context, listingID uuid.UUID, author *user.User, in ReviewInput) (*Review, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}
	if _, err := s.store.GetByID(ctx, listingID); err != nil {
		return nil, err
	}

	r := &Review{
		ListingID: listingID,
		AuthorID:  author.ID,
		Author:    author,
		Rating:    in.Rating,
		Comment:   in.Comment,
		CreatedAt: time.Now(),
	}
	if err := s.store.CreateReview(ctx, r); err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteReview removes a review of listingID written by actor.
func (s *Service) DeleteReview(ctx context.Context, actor *user.User, listingID, reviewID uuid.UUID) error {
	r, err := s.store.GetReview(ctx, listingID, reviewID)
	if err != nil {
		return err
	}
	if !r.IsAuthoredBy(actor) {
		return ErrNotAuthor
	}
	return s.store.DeleteReview(ctx, r.ID)
}

func (s *Service) discardImage(ctx context.Context, filename string) {
	if filename == "" {
		return
	}
	if err := s.images.Delete(ctx, filename); err != nil {
		logging.GetLoggerFromContext(ctx).Warn("failed to remove image", "filename", filename, "error", err)
	}
}
