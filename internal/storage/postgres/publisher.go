package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"maptimes/internal/domain"
)

type PublisherStore struct {
	db *sqlx.DB
}

func NewPublisherStore(db *sqlx.DB) *PublisherStore {
	return &PublisherStore{db: db}
}

func (s *PublisherStore) FindByName(ctx context.Context, name string) (int64, error) {
	var id int64
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &id,
		"SELECT id FROM publishers WHERE name = $1", name)
	if err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

// Create inserts a publisher without coordinates. A duplicate name yields
// domain.ErrConflict.
func (s *PublisherStore) Create(ctx context.Context, name string, countryID int64) (int64, error) {
	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx,
		"INSERT INTO publishers (name, country_id) VALUES ($1, $2) RETURNING id",
		name, countryID,
	).Scan(&id)
	if err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

// ListPending returns publishers missing a coordinate, newest first.
func (s *PublisherStore) ListPending(ctx context.Context) ([]domain.PendingPublisher, error) {
	query := `
		SELECT p.id, p.name, c.iso_code
		FROM publishers p
		JOIN countries c ON c.id = p.country_id
		WHERE p.latitude IS NULL OR p.longitude IS NULL
		ORDER BY p.id DESC`

	var pending []domain.PendingPublisher
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &pending, query); err != nil {
		return nil, fmt.Errorf("list pending publishers: %w", err)
	}
	return pending, nil
}

// UpdateLocation stores coordinates for a publisher that has none yet. It
// reports false when the row was already geocoded or does not exist.
func (s *PublisherStore) UpdateLocation(ctx context.Context, id int64, lat, lon float64, city *string) (bool, error) {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx, `
		UPDATE publishers SET latitude = $2, longitude = $3, city = $4
		WHERE id = $1 AND (latitude IS NULL OR longitude IS NULL)`,
		id, lat, lon, city,
	)
	if err != nil {
		return false, fmt.Errorf("update publisher %d: %w", id, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update publisher %d: %w", id, err)
	}
	return n > 0, nil
}
