package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"maptimes/internal/domain"
)

// insertChunk keeps a single INSERT well below the 65535 bind parameter
// limit of the Postgres protocol.
const insertChunk = 1000

type ArticleStore struct {
	db *sqlx.DB
}

func NewArticleStore(db *sqlx.DB) *ArticleStore {
	return &ArticleStore{db: db}
}

func (s *ArticleStore) Exists(ctx context.Context, link string, feedID int64) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &exists,
		"SELECT EXISTS (SELECT 1 FROM articles WHERE link = $1 AND feed_id = $2)",
		link, feedID,
	)
	if err != nil {
		return false, fmt.Errorf("check article: %w", err)
	}
	return exists, nil
}

// InsertBatch inserts articles, silently skipping links that are already
// stored, and returns the rows actually written with their ids. Callers wrap
// it in a transaction to get all-or-nothing semantics.
func (s *ArticleStore) InsertBatch(ctx context.Context, articles []domain.Article) ([]domain.Article, error) {
	if len(articles) == 0 {
		return nil, nil
	}

	exec := GetExecutor(ctx, s.db)
	inserted := make([]domain.Article, 0, len(articles))

	for start := 0; start < len(articles); start += insertChunk {
		end := min(start+insertChunk, len(articles))

		builder := sq.Insert("articles").
			Columns("title", "link", "pub_date", "publisher_id", "feed_id").
			Suffix("ON CONFLICT (link) DO NOTHING RETURNING id, title, link, pub_date, publisher_id, feed_id").
			PlaceholderFormat(sq.Dollar)

		for _, a := range articles[start:end] {
			builder = builder.Values(a.Title, a.Link, a.PubDate, a.PublisherID, a.FeedID)
		}

		query, args, err := builder.ToSql()
		if err != nil {
			return nil, fmt.Errorf("build insert: %w", err)
		}

		var rows []domain.Article
		if err := sqlx.SelectContext(ctx, exec, &rows, query, args...); err != nil {
			return nil, fmt.Errorf("insert articles: %w", mapError(err))
		}
		inserted = append(inserted, rows...)
	}

	return inserted, nil
}
