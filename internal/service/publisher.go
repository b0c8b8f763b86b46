package service

import (
	"context"
	"errors"
	"fmt"

	"maptimes/internal/domain"
)

// PublisherResolver maps publisher display names to stable ids, creating a
// publisher on first sight. Names are matched exactly.
type PublisherResolver struct {
	publishers PublisherStore
}

func NewPublisherResolver(publishers PublisherStore) *PublisherResolver {
	return &PublisherResolver{publishers: publishers}
}

// Resolve returns nil for an empty name. A concurrent insert of the same name
// is resolved by reading the winner's id.
func (r *PublisherResolver) Resolve(ctx context.Context, name string, countryID int64) (*int64, error) {
	if name == "" {
		return nil, nil
	}

	id, err := r.publishers.FindByName(ctx, name)
	if err == nil {
		return &id, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("find publisher %q: %w", name, err)
	}

	id, err = r.publishers.Create(ctx, name, countryID)
	if err == nil {
		return &id, nil
	}
	if !errors.Is(err, domain.ErrConflict) {
		return nil, fmt.Errorf("create publisher %q: %w", name, err)
	}

	id, err = r.publishers.FindByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("find publisher %q after conflict: %w", name, err)
	}
	return &id, nil
}
