package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"maptimes/internal/domain"
)

type FeedStore struct {
	db *sqlx.DB
}

func NewFeedStore(db *sqlx.DB) *FeedStore {
	return &FeedStore{db: db}
}

func (s *FeedStore) Exists(ctx context.Context, topicID int64, queryParams string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &exists,
		"SELECT EXISTS (SELECT 1 FROM feeds WHERE topic_id = $1 AND query_params = $2)",
		topicID, queryParams,
	)
	if err != nil {
		return false, fmt.Errorf("check feed: %w", err)
	}
	return exists, nil
}

// Create returns domain.ErrConflict when (topic_id, query_params) is taken.
func (s *FeedStore) Create(ctx context.Context, feed *domain.Feed) (int64, error) {
	query := `
		INSERT INTO feeds (title, language, last_build_date, country_id, topic_id, query_params)
		VALUES (:title, :language, :last_build_date, :country_id, :topic_id, :query_params)
		RETURNING id`

	exec := GetExecutor(ctx, s.db)
	query, args, err := exec.BindNamed(query, feed)
	if err != nil {
		return 0, fmt.Errorf("bind feed: %w", err)
	}

	var id int64
	if err := exec.QueryRowxContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, mapError(err)
	}
	return id, nil
}

// ListSources returns every feed with its topic template, newest topic
// first and countries in insertion order.
func (s *FeedStore) ListSources(ctx context.Context) ([]domain.FeedSource, error) {
	query := `
		SELECT f.id, f.title, f.language, f.last_build_date, f.country_id,
			f.topic_id, f.query_params, t.link AS topic_link
		FROM feeds f
		JOIN topics t ON t.id = f.topic_id
		ORDER BY f.topic_id DESC, f.country_id ASC`

	var sources []domain.FeedSource
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &sources, query); err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}
	return sources, nil
}
