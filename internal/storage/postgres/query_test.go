package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maptimes/internal/domain"
)

func TestApplyFilter_Empty(t *testing.T) {
	query, args, err := applyFilter(articlesFrom("COUNT(*)"), domain.ArticleFilter{}).ToSql()
	require.NoError(t, err)

	assert.NotContains(t, query, "WHERE")
	assert.Empty(t, args)
}

func TestApplyFilter_All(t *testing.T) {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)

	query, args, err := applyFilter(articlesFrom("COUNT(*)"), domain.ArticleFilter{
		Keywords:   "wahl",
		TopicIDs:   []int64{1, 2},
		Publishers: []int64{7},
		Country:    "de",
		DateFrom:   from,
		DateTo:     to,
	}).ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "a.title ILIKE $1")
	assert.Contains(t, query, "f.topic_id IN ($2,$3)")
	assert.Contains(t, query, "a.publisher_id IN ($4)")
	assert.Contains(t, query, "c.iso_code ILIKE $5")
	assert.Contains(t, query, "a.pub_date >= $6")
	assert.Contains(t, query, "a.pub_date <= $7")
	assert.Equal(t, []interface{}{"%wahl%", int64(1), int64(2), int64(7), "de", from, to}, args)
}

func TestNewestFirst_PageQuery(t *testing.T) {
	page := domain.Page{Number: 3, Size: 20}
	query, _, err := newestFirst(articlesFrom(articleViewColumns...)).
		Limit(uint64(page.Size)).
		Offset(uint64(page.Offset())).
		ToSql()
	require.NoError(t, err)

	assert.Contains(t, query, "ORDER BY a.pub_date DESC NULLS LAST, a.id DESC")
	assert.Contains(t, query, "LIMIT 20")
	assert.Contains(t, query, "OFFSET 40")
}

func TestGroupByPublisher_FirstSeenOrder(t *testing.T) {
	articles := []domain.ArticleView{
		{ID: 5, PublisherID: 2, PublisherName: "Die Zeit"},
		{ID: 4, PublisherID: 1, PublisherName: "Der Spiegel"},
		{ID: 3, PublisherID: 2, PublisherName: "Die Zeit"},
		{ID: 2, PublisherID: 3, PublisherName: "taz"},
		{ID: 1, PublisherID: 1, PublisherName: "Der Spiegel"},
	}

	groups := GroupByPublisher(articles)
	require.Len(t, groups, 3)

	assert.Equal(t, "Die Zeit", groups[0].Publisher.Name)
	assert.Equal(t, "Der Spiegel", groups[1].Publisher.Name)
	assert.Equal(t, "taz", groups[2].Publisher.Name)

	require.Len(t, groups[0].Articles, 2)
	assert.Equal(t, int64(5), groups[0].Articles[0].ID)
	assert.Equal(t, int64(3), groups[0].Articles[1].ID)
	require.Len(t, groups[1].Articles, 2)
	assert.Equal(t, int64(1), groups[1].Articles[1].ID)
}

func TestGroupByPublisher_Empty(t *testing.T) {
	assert.Empty(t, GroupByPublisher(nil))
}
