package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/nomadnest/nomadnest/internal/listing"
)

var ErrAlreadySeeded = errors.New("listings already exist")

type Store interface {
	Count(ctx context.Context, f listing.Filter) (int, error)
	Create(ctx context.Context, l *listing.Listing) error
}

// Run inserts samples owned by ownerID and returns how many were created.
// Without force it refuses to touch a database that already has listings.
func Run(ctx context.Context, store Store, ownerID uuid.UUID, samples []Sample, force bool) (int, error) {
	if !force {
		n, err := store.Count(ctx, listing.Filter{})
		if err != nil {
			return 0, fmt.Errorf("count listings: %w", err)
		}
		if n > 0 {
			return 0, ErrAlreadySeeded
		}
	}

	created := 0
	for _, s := range samples {
		l := s.listing()
		l.OwnerID = ownerID
		if err := store.Create(ctx, l); err != nil {
			return created, fmt.Errorf("create %q: %w", s.Title, err)
		}
		created++
	}
	return created, nil
}
