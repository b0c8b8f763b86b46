package postgres

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"maptimes/internal/domain"
)

const autocompleteLimit = 5

var articleViewColumns = []string{
	"a.id", "a.title", "a.link", "a.pub_date",
	"p.id AS publisher_id", "p.name AS publisher_name",
	"t.id AS topic_id", "t.topic_name",
	"p.latitude", "p.longitude", "p.city",
	"c.country_name", "c.iso_code",
}

var publisherViewColumns = []string{
	"p.id", "p.name", "p.latitude", "p.longitude", "p.city",
	"c.country_name", "c.iso_code",
}

// QueryStore serves the read side of the API.
type QueryStore struct {
	db *sqlx.DB
}

func NewQueryStore(db *sqlx.DB) *QueryStore {
	return &QueryStore{db: db}
}

func articlesFrom(columns ...string) sq.SelectBuilder {
	return sq.Select(columns...).
		From("articles a").
		Join("publishers p ON p.id = a.publisher_id").
		Join("feeds f ON f.id = a.feed_id").
		Join("topics t ON t.id = f.topic_id").
		Join("countries c ON c.id = p.country_id").
		PlaceholderFormat(sq.Dollar)
}

func applyFilter(b sq.SelectBuilder, f domain.ArticleFilter) sq.SelectBuilder {
	if f.Keywords != "" {
		b = b.Where(sq.ILike{"a.title": "%" + f.Keywords + "%"})
	}
	if len(f.TopicIDs) > 0 {
		b = b.Where(sq.Eq{"f.topic_id": f.TopicIDs})
	}
	if len(f.Publishers) > 0 {
		b = b.Where(sq.Eq{"a.publisher_id": f.Publishers})
	}
	if f.Country != "" {
		b = b.Where(sq.ILike{"c.iso_code": f.Country})
	}
	if !f.DateFrom.IsZero() {
		b = b.Where(sq.GtOrEq{"a.pub_date": f.DateFrom})
	}
	if !f.DateTo.IsZero() {
		b = b.Where(sq.LtOrEq{"a.pub_date": f.DateTo})
	}
	return b
}

func newestFirst(b sq.SelectBuilder) sq.SelectBuilder {
	return b.OrderBy("a.pub_date DESC NULLS LAST", "a.id DESC")
}

// ListArticles returns one page of matching articles and the total number
// of matches.
func (s *QueryStore) ListArticles(ctx context.Context, filter domain.ArticleFilter, page domain.Page) ([]domain.ArticleView, int, error) {
	exec := GetExecutor(ctx, s.db)

	countQuery, args, err := applyFilter(articlesFrom("COUNT(*)"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build count query: %w", err)
	}

	var total int
	if err := sqlx.GetContext(ctx, exec, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	query, args, err := newestFirst(applyFilter(articlesFrom(articleViewColumns...), filter)).
		Limit(uint64(page.Size)).
		Offset(uint64(page.Offset())).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build articles query: %w", err)
	}

	articles := []domain.ArticleView{}
	if err := sqlx.SelectContext(ctx, exec, &articles, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", err)
	}

	return articles, total, nil
}

func (s *QueryStore) GetArticle(ctx context.Context, id int64) (*domain.ArticleView, error) {
	query, args, err := articlesFrom(articleViewColumns...).Where(sq.Eq{"a.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build article query: %w", err)
	}

	var article domain.ArticleView
	if err := sqlx.GetContext(ctx, GetExecutor(ctx, s.db), &article, query, args...); err != nil {
		return nil, mapError(err)
	}
	return &article, nil
}

func (s *QueryStore) ListTopics(ctx context.Context) ([]domain.Topic, error) {
	topics := []domain.Topic{}
	err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &topics,
		"SELECT id, topic_name, link FROM topics ORDER BY topic_name ASC")
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return topics, nil
}

// ListPublishers returns all publishers ordered by name, optionally limited
// to one country ISO code.
func (s *QueryStore) ListPublishers(ctx context.Context, country string) ([]domain.PublisherView, error) {
	b := sq.Select(publisherViewColumns...).
		From("publishers p").
		Join("countries c ON c.id = p.country_id").
		OrderBy("p.name ASC").
		PlaceholderFormat(sq.Dollar)
	if country != "" {
		b = b.Where(sq.ILike{"c.iso_code": country})
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build publishers query: %w", err)
	}

	publishers := []domain.PublisherView{}
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &publishers, query, args...); err != nil {
		return nil, fmt.Errorf("list publishers: %w", err)
	}
	return publishers, nil
}

// Autocomplete returns up to five topic names followed by up to five
// publisher names containing q.
func (s *QueryStore) Autocomplete(ctx context.Context, q string) ([]string, error) {
	exec := GetExecutor(ctx, s.db)
	pattern := "%" + q + "%"

	var topics []string
	err := sqlx.SelectContext(ctx, exec, &topics,
		"SELECT topic_name FROM topics WHERE topic_name ILIKE $1 ORDER BY topic_name ASC LIMIT $2",
		pattern, autocompleteLimit)
	if err != nil {
		return nil, fmt.Errorf("autocomplete topics: %w", err)
	}

	var publishers []string
	err = sqlx.SelectContext(ctx, exec, &publishers,
		"SELECT name FROM publishers WHERE name ILIKE $1 ORDER BY name ASC LIMIT $2",
		pattern, autocompleteLimit)
	if err != nil {
		return nil, fmt.Errorf("autocomplete publishers: %w", err)
	}

	return append(append(make([]string, 0, len(topics)+len(publishers)), topics...), publishers...), nil
}

// SearchByPublisher groups all matching articles by publisher. Groups keep
// the order in which their newest article appears; the page applies to
// groups, not articles.
func (s *QueryStore) SearchByPublisher(ctx context.Context, filter domain.ArticleFilter, page domain.Page) (*domain.SearchResult, error) {
	query, args, err := newestFirst(applyFilter(articlesFrom(articleViewColumns...), filter)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build search query: %w", err)
	}

	var articles []domain.ArticleView
	if err := sqlx.SelectContext(ctx, GetExecutor(ctx, s.db), &articles, query, args...); err != nil {
		return nil, fmt.Errorf("search articles: %w", err)
	}

	groups := GroupByPublisher(articles)
	result := &domain.SearchResult{
		TotalPublishers: len(groups),
		TotalArticles:   len(articles),
		Groups:          []domain.PublisherGroup{},
	}

	start := page.Offset()
	if start < len(groups) {
		end := min(start+page.Size, len(groups))
		result.Groups = groups[start:end]
	}
	return result, nil
}

// GroupByPublisher groups articles by publisher id in first-seen order.
func GroupByPublisher(articles []domain.ArticleView) []domain.PublisherGroup {
	index := make(map[int64]int)
	var groups []domain.PublisherGroup

	for _, a := range articles {
		i, ok := index[a.PublisherID]
		if !ok {
			i = len(groups)
			index[a.PublisherID] = i
			groups = append(groups, domain.PublisherGroup{
				Publisher: domain.PublisherView{
					ID:          a.PublisherID,
					Name:        a.PublisherName,
					Latitude:    a.Latitude,
					Longitude:   a.Longitude,
					City:        a.City,
					CountryName: a.CountryName,
					ISOCode:     a.ISOCode,
				},
			})
		}
		groups[i].Articles = append(groups[i].Articles, a)
	}
	return groups
}
