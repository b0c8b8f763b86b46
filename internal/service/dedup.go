package service

import (
	"context"
	"fmt"

	"maptimes/internal/domain"
)

// DedupResult is the outcome of filtering one feed's items.
type DedupResult struct {
	Staged    []domain.FeedItem
	Existing  int
	EarlyStop bool
}

// Deduplicator separates new items from already stored ones. Items are
// expected newest first: once threshold consecutive items are already known
// the rest of the feed is not looked at.
type Deduplicator struct {
	articles  ArticleStore
	threshold int
}

// NewDeduplicator returns a Deduplicator. A threshold below 1 disables the
// early stop. In configuration that is a negative value, zero means default.
func NewDeduplicator(articles ArticleStore, threshold int) *Deduplicator {
	return &Deduplicator{articles: articles, threshold: threshold}
}

func (d *Deduplicator) Filter(ctx context.Context, feedID int64, items []domain.FeedItem) (*DedupResult, error) {
	result := &DedupResult{}
	staged := make(map[string]struct{}, len(items))
	consecutive := 0

	for _, item := range items {
		if _, ok := staged[item.Link]; ok {
			continue
		}

		exists, err := d.articles.Exists(ctx, item.Link, feedID)
		if err != nil {
			return nil, fmt.Errorf("check article %s: %w", item.Link, err)
		}

		if exists {
			result.Existing++
			consecutive++
			if d.threshold > 0 && consecutive >= d.threshold {
				result.EarlyStop = true
				break
			}
			continue
		}

		consecutive = 0
		staged[item.Link] = struct{}{}
		result.Staged = append(result.Staged, item)
	}

	return result, nil
}
