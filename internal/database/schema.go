package database

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// CreateSchema creates the tables when they do not exist yet.
// Reviews cascade with their listing; listings and reviews cascade with users.
func CreateSchema(ctx context.Context, db *bun.DB) error {
	if _, err := db.NewCreateTable().
		Model((*User)(nil)).
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}

	if _, err := db.NewCreateTable().
		Model((*Listing)(nil)).
		IfNotExists().
		ForeignKey(`("owner_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create listings table: %w", err)
	}

	if _, err := db.NewCreateTable().
		Model((*Review)(nil)).
		IfNotExists().
		ForeignKey(`("listing_id") REFERENCES "listings" ("id") ON DELETE CASCADE`).
		ForeignKey(`("author_id") REFERENCES "users" ("id") ON DELETE CASCADE`).
		Exec(ctx); err != nil {
		return fmt.Errorf("create reviews table: %w", err)
	}

	indexes := []struct {
		name, table, column string
	}{
		{"users_email_idx", "users", "email"},
		{"listings_created_at_idx", "listings", "created_at"},
		{"listings_price_idx", "listings", "price"},
		{"reviews_listing_id_idx", "reviews", "listing_id"},
	}
	for _, idx := range indexes {
		if _, err := db.NewCreateIndex().
			Table(idx.table).
			Index(idx.name).
			Column(idx.column).
			IfNotExists().
			Exec(ctx); err != nil {
			return fmt.Errorf("create index %s: %w", idx.name, err)
		}
	}

	return nil
}
