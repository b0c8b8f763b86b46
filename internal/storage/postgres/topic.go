package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"maptimes/internal/domain"
)

type TopicStore struct {
	db *sqlx.DB
}

func NewTopicStore(db *sqlx.DB) *TopicStore {
	return &TopicStore{db: db}
}

func (s *TopicStore) FindByName(ctx context.Context, name string) (*domain.Topic, error) {
	var topic domain.Topic
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &topic,
		"SELECT id, topic_name, link FROM topics WHERE topic_name = $1", name)
	if err != nil {
		return nil, mapError(err)
	}
	return &topic, nil
}

// Create returns domain.ErrConflict when the name or template is taken.
func (s *TopicStore) Create(ctx context.Context, name, link string) (int64, error) {
	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx,
		"INSERT INTO topics (topic_name, link) VALUES ($1, $2) RETURNING id",
		name, link,
	).Scan(&id)
	if err != nil {
		return 0, mapError(err)
	}
	return id, nil
}
