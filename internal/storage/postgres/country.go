package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"maptimes/internal/domain"
)

type CountryStore struct {
	db *sqlx.DB
}

func NewCountryStore(db *sqlx.DB) *CountryStore {
	return &CountryStore{db: db}
}

func (s *CountryStore) List(ctx context.Context) ([]domain.Country, error) {
	var countries []domain.Country
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &countries,
		"SELECT id, country_name, iso_code FROM countries ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}
	return countries, nil
}

// Insert adds a country unless one with the same name or ISO code exists.
// It reports whether a row was written.
func (s *CountryStore) Insert(ctx context.Context, name, isoCode string) (bool, error) {
	res, err := GetExecutor(ctx, s.db).ExecContext(ctx,
		"INSERT INTO countries (country_name, iso_code) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		name, isoCode,
	)
	if err != nil {
		return false, fmt.Errorf("insert country %s: %w", isoCode, mapError(err))
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert country %s: %w", isoCode, err)
	}
	return n > 0, nil
}
