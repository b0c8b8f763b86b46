package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"maptimes/internal/domain"
	"maptimes/internal/ratelimit"
)

// GeocodeService backfills coordinates for publishers that have none.
type GeocodeService struct {
	publishers PublisherStore
	geocoder   Geocoder
	caller     *ratelimit.Caller
	txManager  TransactionManager
	logger     *slog.Logger
}

func NewGeocodeService(
	publishers PublisherStore,
	geocoder Geocoder,
	caller *ratelimit.Caller,
	txManager TransactionManager,
	logger *slog.Logger,
) *GeocodeService {
	return &GeocodeService{
		publishers: publishers,
		geocoder:   geocoder,
		caller:     caller,
		txManager:  txManager,
		logger:     logger.With("component", "geocode"),
	}
}

// Geocode looks up name within countryCode through the gated caller. A nil
// result means the provider had no match and is not retried.
func (s *GeocodeService) Geocode(ctx context.Context, name, countryCode string) (*domain.GeoResult, error) {
	return ratelimit.Do(ctx, s.caller, func(ctx context.Context) (*domain.GeoResult, error) {
		return s.geocoder.Search(ctx, name, countryCode)
	})
}

// Run geocodes every pending publisher independently. Failures are counted
// and logged; the publisher stays pending for the next run.
func (s *GeocodeService) Run(ctx context.Context) (*domain.GeocodeStats, error) {
	startTime := time.Now()
	stats := &domain.GeocodeStats{RunID: uuid.NewString()}
	logger := s.logger.With("run_id", stats.RunID)

	pending, err := s.publishers.ListPending(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pending publishers: %w", err)
	}

	stats.Pending = len(pending)
	logger.Info("starting geocoding", "pending", stats.Pending)

	for _, p := range pending {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(startTime)
			return stats, err
		}

		plog := logger.With("publisher_id", p.ID, "name", p.Name)

		result, err := s.Geocode(ctx, p.Name, p.ISOCode)
		switch {
		case errors.Is(err, ratelimit.ErrExhausted):
			stats.Exhausted++
			plog.Warn("could not geocode publisher", "error", err)
			continue
		case err != nil:
			if ctx.Err() != nil {
				stats.Duration = time.Since(startTime)
				return stats, ctx.Err()
			}
			stats.Failed++
			plog.Error("geocoding failed", "error", err)
			continue
		case result == nil:
			stats.NoMatch++
			plog.Info("no geocoding match")
			continue
		}

		updated, err := s.store(ctx, p.ID, result)
		if err != nil {
			stats.Failed++
			plog.Error("failed to store location", "error", err)
			continue
		}
		if !updated {
			plog.Debug("publisher already geocoded")
			continue
		}

		stats.Geocoded++
		plog.Info("publisher geocoded",
			"latitude", result.Latitude,
			"longitude", result.Longitude,
			"city", result.City,
		)
	}

	stats.Duration = time.Since(startTime)

	logger.Info("geocoding completed",
		"pending", stats.Pending,
		"geocoded", stats.Geocoded,
		"no_match", stats.NoMatch,
		"exhausted", stats.Exhausted,
		"failed", stats.Failed,
		"duration", stats.Duration,
	)

	return stats, nil
}

func (s *GeocodeService) store(ctx context.Context, id int64, result *domain.GeoResult) (bool, error) {
	var city *string
	if result.City != "" {
		city = &result.City
	}

	var updated bool
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		ok, err := s.publishers.UpdateLocation(txCtx, id, result.Latitude, result.Longitude, city)
		if err != nil {
			return err
		}
		updated = ok
		return nil
	})
	return updated, err
}
