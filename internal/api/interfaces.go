package api

import (
	"context"

	"maptimes/internal/domain"
)

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

type QueryStore interface {
	ListArticles(ctx context.Context, filter domain.ArticleFilter, page domain.Page) ([]domain.ArticleView, int, error)
	GetArticle(ctx context.Context, id int64) (*domain.ArticleView, error)
	ListTopics(ctx context.Context) ([]domain.Topic, error)
	ListPublishers(ctx context.Context, country string) ([]domain.PublisherView, error)
	Autocomplete(ctx context.Context, q string) ([]string, error)
	SearchByPublisher(ctx context.Context, filter domain.ArticleFilter, page domain.Page) (*domain.SearchResult, error)
}
