package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"maptimes/internal/domain"
)

type CountryStore interface {
	List(ctx context.Context) ([]domain.Country, error)
}

type TopicStore interface {
	FindByName(ctx context.Context, name string) (*domain.Topic, error)
	Create(ctx context.Context, name, link string) (int64, error)
}

type FeedStore interface {
	Exists(ctx context.Context, topicID int64, queryParams string) (bool, error)
	Create(ctx context.Context, feed *domain.Feed) (int64, error)
	ListSources(ctx context.Context) ([]domain.FeedSource, error)
}

type PublisherStore interface {
	FindByName(ctx context.Context, name string) (int64, error)
	Create(ctx context.Context, name string, countryID int64) (int64, error)
	ListPending(ctx context.Context) ([]domain.PendingPublisher, error)
	UpdateLocation(ctx context.Context, id int64, lat, lon float64, city *string) (bool, error)
}

type ArticleStore interface {
	Exists(ctx context.Context, link string, feedID int64) (bool, error)
	InsertBatch(ctx context.Context, articles []domain.Article) ([]domain.Article, error)
}

type FeedFetcher interface {
	Fetch(ctx context.Context, url string) (*domain.ParsedFeed, error)
}

type Geocoder interface {
	Search(ctx context.Context, query, countryCode string) (*domain.GeoResult, error)
}

type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Notifier announces newly stored articles to downstream consumers.
type Notifier interface {
	Publish(ctx context.Context, article *domain.Article) error
	Close() error
}
