package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"maptimes/internal/config"
	"maptimes/internal/domain"
	"maptimes/internal/feedurl"
)

// IngestService pulls every stored feed, keeps the items not seen before and
// stores them in one transaction per feed.
type IngestService struct {
	feeds     FeedStore
	articles  ArticleStore
	fetcher   FeedFetcher
	dedup     *Deduplicator
	resolver  *PublisherResolver
	txManager TransactionManager
	notifier  Notifier
	logger    *slog.Logger
}

// NewIngestService wires the pipeline. notifier may be nil.
func NewIngestService(
	feeds FeedStore,
	articles ArticleStore,
	publishers PublisherStore,
	fetcher FeedFetcher,
	txManager TransactionManager,
	notifier Notifier,
	logger *slog.Logger,
	cfg config.IngestConfig,
) *IngestService {
	return &IngestService{
		feeds:     feeds,
		articles:  articles,
		fetcher:   fetcher,
		dedup:     NewDeduplicator(articles, cfg.MaxConsecutiveExisting),
		resolver:  NewPublisherResolver(publishers),
		txManager: txManager,
		notifier:  notifier,
		logger:    logger.With("component", "ingest"),
	}
}

// Run processes all feeds in order. A failing feed is logged and counted;
// only listing the feeds or cancellation ends the run early.
func (s *IngestService) Run(ctx context.Context) (*domain.IngestStats, error) {
	startTime := time.Now()
	stats := &domain.IngestStats{RunID: uuid.NewString()}
	logger := s.logger.With("run_id", stats.RunID)

	sources, err := s.feeds.ListSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("list feeds: %w", err)
	}

	logger.Info("starting ingestion", "feeds", len(sources))

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			stats.Duration = time.Since(startTime)
			return stats, err
		}

		stats.Feeds++
		feedStats, err := s.ProcessFeed(ctx, src)
		if feedStats != nil {
			stats.Fetched += feedStats.Fetched
			stats.Dropped += feedStats.Dropped
			stats.Existing += feedStats.Existing
			stats.Inserted += feedStats.Inserted
			stats.Published += feedStats.Published
			stats.Errors += feedStats.Unresolved + feedStats.PublishFailed
			if feedStats.EarlyStop {
				stats.EarlyStops++
			}
		}
		if err != nil {
			stats.FailedFeeds++
			logger.Error("feed processing failed", "feed_id", src.ID, "error", err)
		}
	}

	stats.Duration = time.Since(startTime)

	logger.Info("ingestion completed",
		"feeds", stats.Feeds,
		"failed_feeds", stats.FailedFeeds,
		"fetched", stats.Fetched,
		"existing", stats.Existing,
		"early_stops", stats.EarlyStops,
		"inserted", stats.Inserted,
		"published", stats.Published,
		"errors", stats.Errors,
		"duration", stats.Duration,
	)

	return stats, nil
}

// ProcessFeed fetches one feed and stores its new items. The returned stats
// are non-nil whenever the feed was fetched, even if storing failed.
func (s *IngestService) ProcessFeed(ctx context.Context, src domain.FeedSource) (*domain.FeedStats, error) {
	logger := s.logger.With("feed_id", src.ID)
	url := feedurl.FeedURL(src.TopicLink, src.QueryParams)

	parsed, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", url, err)
	}

	stats := &domain.FeedStats{
		Fetched: len(parsed.Items),
		Dropped: parsed.Dropped,
	}

	result, err := s.dedup.Filter(ctx, src.ID, parsed.Items)
	if err != nil {
		return stats, fmt.Errorf("deduplicate: %w", err)
	}

	stats.Existing = result.Existing
	stats.Staged = len(result.Staged)
	stats.EarlyStop = result.EarlyStop

	if result.EarlyStop {
		logger.Info("consecutive known articles reached, stopping feed", "existing", result.Existing)
	}

	if len(result.Staged) == 0 {
		logger.Info("no new articles")
		return stats, nil
	}

	articles := make([]domain.Article, 0, len(result.Staged))
	for _, item := range result.Staged {
		publisherID, err := s.resolver.Resolve(ctx, item.PublisherName, src.CountryID)
		if err != nil {
			stats.Unresolved++
			logger.Warn("storing article without publisher", "link", item.Link, "error", err)
		}

		articles = append(articles, domain.Article{
			Title:       item.Title,
			Link:        item.Link,
			PubDate:     item.PubDate,
			PublisherID: publisherID,
			FeedID:      src.ID,
		})
	}

	var inserted []domain.Article
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		rows, err := s.articles.InsertBatch(txCtx, articles)
		if err != nil {
			return err
		}
		inserted = rows
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("store articles: %w", err)
	}

	stats.Inserted = len(inserted)
	logger.Info("inserted new articles", "staged", stats.Staged, "inserted", stats.Inserted)

	if s.notifier != nil {
		for i := range inserted {
			if err := s.notifier.Publish(ctx, &inserted[i]); err != nil {
				stats.PublishFailed++
				logger.Warn("failed to publish article event", "article_id", inserted[i].ID, "error", err)
				continue
			}
			stats.Published++
		}
	}

	return stats, nil
}
