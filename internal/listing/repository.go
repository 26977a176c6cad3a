package listing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/nomadnest/nomadnest/internal/database"
	"github.com/nomadnest/nomadnest/internal/user"
)

const suggestionScanLimit = 200

var textColumns = []string{"l.title", "l.description", "l.location", "l.country"}

// Repository handles listing and review persistence
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// likePattern makes s a literal substring pattern for ILIKE.
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

// whereAnyText matches rows where any of columns contains any of terms.
func whereAnyText(q *bun.SelectQuery, columns []string, terms []string) *bun.SelectQuery {
	if len(terms) == 0 {
		return q
	}
	return q.WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
		for _, term := range terms {
			pattern := likePattern(term)
			for _, col := range columns {
				q = q.WhereOr("? ILIKE ?", bun.Ident(col), pattern)
			}
		}
		return q
	})
}

func applyFilter(q *bun.SelectQuery, f Filter) *bun.SelectQuery {
	if f.MinPrice != nil {
		q = q.Where("l.price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("l.price <= ?", *f.MaxPrice)
	}
	return whereAnyText(q, textColumns, f.Terms)
}

func applySort(q *bun.SelectQuery, s Sort) *bun.SelectQuery {
	switch s {
	case SortPriceAsc:
		q = q.OrderExpr("l.price ASC")
	case SortPriceDesc:
		q = q.OrderExpr("l.price DESC")
	case SortNewest:
		q = q.OrderExpr("l.created_at DESC")
	default:
		// insertion order
		q = q.OrderExpr("l.created_at ASC")
	}
	return q.OrderExpr("l.id ASC")
}

// Count returns how many listings match f.
func (r *Repository) Count(ctx context.Context, f Filter) (int, error) {
	n, err := applyFilter(r.db.NewSelect().Model((*database.Listing)(nil)), f).Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count listings: %w", err)
	}
	return n, nil
}

// List returns one page of listings matching f in the order s.
func (r *Repository) List(ctx context.Context, f Filter, s Sort, offset, limit int) ([]*Listing, error) {
	var rows []*database.Listing
	q := applyFilter(r.db.NewSelect().Model(&rows), f)
	err := applySort(q, s).
		Offset(offset).
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list listings: %w", err)
	}
	return mapDBListings(rows), nil
}

// GetByID loads a listing with its owner and its reviews with authors.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*Listing, error) {
	row := new(database.Listing)
	err := r.db.NewSelect().
		Model(row).
		Relation("Owner").
		Relation("Reviews", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.OrderExpr("r.created_at ASC")
		}).
		Relation("Reviews.Author").
		Where("l.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get listing: %w", err)
	}
	return mapDBListingToModel(row), nil
}

// Similar returns up to limit other listings matching any of terms, newest
// first. No terms means the newest other listings.
func (r *Repository) Similar(ctx context.Context, excludeID uuid.UUID, terms []string, limit int) ([]*Listing, error) {
	var rows []*database.Listing
	q := r.db.NewSelect().Model(&rows).Where("l.id <> ?", excludeID)
	err := whereAnyText(q, textColumns, terms).
		OrderExpr("l.created_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get similar listings: %w", err)
	}
	return mapDBListings(rows), nil
}

// SearchAny returns listings where any text column contains any of terms,
// newest first.
func (r *Repository) SearchAny(ctx context.Context, terms []string) ([]*Listing, error) {
	var rows []*database.Listing
	err := whereAnyText(r.db.NewSelect().Model(&rows), textColumns, terms).
		OrderExpr("l.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to search listings: %w", err)
	}
	return mapDBListings(rows), nil
}

// SuggestionRows returns the location, country and title of the newest
// listings whose location, country or title contains q.
func (r *Repository) SuggestionRows(ctx context.Context, q string) ([]SuggestionRow, error) {
	var rows []*database.Listing
	err := whereAnyText(
		r.db.NewSelect().Model(&rows).Column("location", "country", "title"),
		[]string{"l.location", "l.country", "l.title"},
		[]string{q},
	).
		OrderExpr("l.created_at DESC").
		Limit(suggestionScanLimit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load suggestions: %w", err)
	}

	out := make([]SuggestionRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, SuggestionRow{Location: row.Location, Country: row.Country, Title: row.Title})
	}
	return out, nil
}

// Create inserts l and fills in its id and timestamps.
func (r *Repository) Create(ctx context.Context, l *Listing) error {
	row := mapModelToDB(l)
	row.ID = uuid.New()

	if _, err := r.db.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
		return fmt.Errorf("failed to create listing: %w", err)
	}

	l.ID = row.ID
	l.CreatedAt = row.CreatedAt
	l.UpdatedAt = row.UpdatedAt
	return nil
}

// Update saves the editable fields and the image.
func (r *Repository) Update(ctx context.Context, l *Listing) error {
	result, err := r.db.NewUpdate().
		Model(mapModelToDB(l)).
		Column("title", "description", "location", "country", "price", "image_url", "image_filename").
		Set("updated_at = NOW()").
		WherePK().
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to update listing: %w", err)
	}
	return requireRow(result)
}

// Delete removes the listing; its reviews go with it.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Listing)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete listing: %w", err)
	}
	return requireRow(result)
}

// CreateReview inserts rv and fills in its id and creation time.
func (r *Repository) CreateReview(ctx context.Context, rv *Review) error {
	row := &database.Review{
		ID:        uuid.New(),
		ListingID: rv.ListingID,
		AuthorID:  rv.AuthorID,
		Rating:    rv.Rating,
		Comment:   rv.Comment,
	}
	if _, err := r.db.NewInsert().Model(row).Returning("*").Exec(ctx); err != nil {
		return fmt.Errorf("failed to create review: %w", err)
	}

	rv.ID = row.ID
	rv.CreatedAt = row.CreatedAt
	return nil
}

// GetReview loads a review of the given listing, or ErrReviewNotFound.
func (r *Repository) GetReview(ctx context.Context, listingID, reviewID uuid.UUID) (*Review, error) {
	row := new(database.Review)
	err := r.db.NewSelect().
		Model(row).
		Where("r.id = ?", reviewID).
		Where("r.listing_id = ?", listingID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReviewNotFound
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return mapDBReviewToModel(row), nil
}

// DeleteReview removes one review, or returns ErrReviewNotFound.
func (r *Repository) DeleteReview(ctx context.Context, reviewID uuid.UUID) error {
	result, err := r.db.NewDelete().
		Model((*database.Review)(nil)).
		Where("id = ?", reviewID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrReviewNotFound
	}
	return nil
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func mapDBListings(rows []*database.Listing) []*Listing {
	out := make([]*Listing, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapDBListingToModel(row))
	}
	return out
}

// mapDBListingToModel converts database model to domain model
func mapDBListingToModel(row *database.Listing) *Listing {
	l := &Listing{
		ID:          row.ID,
		Title:       row.Title,
		Description: row.Description,
		Location:    row.Location,
		Country:     row.Country,
		Price:       row.Price,
		Image:       Image{URL: row.ImageURL, Filename: row.ImageFilename},
		OwnerID:     row.OwnerID,
		Owner:       user.FromDB(row.Owner),
		CreatedAt:   row.CreatedAt,
		UpdatedAt:   row.UpdatedAt,
	}
	if row.Longitude != nil && row.Latitude != nil {
		l.Geometry = &Point{Longitude: *row.Longitude, Latitude: *row.Latitude}
	}
	for _, rv := range row.Reviews {
		l.Reviews = append(l.Reviews, mapDBReviewToModel(rv))
	}
	return l
}

func mapDBReviewToModel(row *database.Review) *Review {
	return &Review{
		ID:        row.ID,
		ListingID: row.ListingID,
		AuthorID:  row.AuthorID,
		Author:    user.FromDB(row.Author),
		Rating:    row.Rating,
		Comment:   row.Comment,
		CreatedAt: row.CreatedAt,
	}
}

func mapModelToDB(l *Listing) *database.Listing {
	row := &database.Listing{
		ID:            l.ID,
		Title:         l.Title,
		Description:   l.Description,
		Location:      l.Location,
		Country:       l.Country,
		Price:         l.Price,
		ImageURL:      l.Image.URL,
		ImageFilename: l.Image.Filename,
		OwnerID:       l.OwnerID,
	}
	if l.Geometry != nil {
		lng, lat := l.Geometry.Longitude, l.Geometry.Latitude
		row.Longitude = &lng
		row.Latitude = &lat
	}
	return row
}
