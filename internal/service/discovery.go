package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"maptimes/internal/config"
	"maptimes/internal/domain"
	"maptimes/internal/feedurl"
)

// DiscoveryService registers the per-country feeds of a topic.
type DiscoveryService struct {
	topics    TopicStore
	countries CountryStore
	feeds     FeedStore
	fetcher   FeedFetcher
	logger    *slog.Logger
	config    config.FeedsConfig
}

func NewDiscoveryService(
	topics TopicStore,
	countries CountryStore,
	feeds FeedStore,
	fetcher FeedFetcher,
	logger *slog.Logger,
	cfg config.FeedsConfig,
) *DiscoveryService {
	return &DiscoveryService{
		topics:    topics,
		countries: countries,
		feeds:     feeds,
		fetcher:   fetcher,
		logger:    logger.With("component", "discovery"),
		config:    cfg,
	}
}

// EnsureTopic returns the topic named name, creating it with the template for
// topicCode when absent. An existing topic keeps its template.
func (s *DiscoveryService) EnsureTopic(ctx context.Context, topicCode, name string) (*domain.Topic, error) {
	topic, err := s.topics.FindByName(ctx, name)
	if err == nil {
		return topic, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("find topic: %w", err)
	}

	link := feedurl.TopicTemplate(s.config.TemplateBase, topicCode)
	id, err := s.topics.Create(ctx, name, link)
	switch {
	case err == nil:
		s.logger.Info("topic created", "topic", name, "topic_id", id)
		return &domain.Topic{ID: id, Name: name, Link: link}, nil
	case errors.Is(err, domain.ErrConflict):
		topic, err := s.topics.FindByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("find topic after conflict: %w", err)
		}
		return topic, nil
	default:
		return nil, fmt.Errorf("create topic: %w", err)
	}
}

// Discover creates one feed per country for the topic, priority countries
// first. A country whose feed cannot be fetched is logged and skipped.
func (s *DiscoveryService) Discover(ctx context.Context, topicCode, topicName string) (*domain.DiscoveryStats, error) {
	topic, err := s.EnsureTopic(ctx, topicCode, topicName)
	if err != nil {
		return nil, err
	}

	countries, err := s.countries.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list countries: %w", err)
	}

	stats := &domain.DiscoveryStats{TopicID: topic.ID, Countries: len(countries)}
	logger := s.logger.With("topic", topic.Name, "topic_id", topic.ID)

	for _, country := range feedurl.Prioritize(countries, s.config.PriorityCountries) {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		clog := logger.With("iso_code", country.ISOCode)
		created, err := s.addFeed(ctx, topic, country)
		switch {
		case err != nil:
			stats.Failed++
			clog.Error("failed to add feed", "error", err)
		case created:
			stats.Created++
			clog.Info("feed added")
		default:
			stats.Duplicates++
			clog.Info("feed with the same query parameters exists, skipped")
		}
	}

	logger.Info("discovery completed",
		"countries", stats.Countries,
		"created", stats.Created,
		"duplicates", stats.Duplicates,
		"failed", stats.Failed,
	)

	return stats, nil
}

func (s *DiscoveryService) addFeed(ctx context.Context, topic *domain.Topic, country domain.Country) (bool, error) {
	url := feedurl.Resolve(topic.Link, country.ISOCode)

	parsed, err := s.fetcher.Fetch(ctx, url)
	if err != nil {
		return false, fmt.Errorf("fetch %s: %w", url, err)
	}

	ch := parsed.Channel
	exists, err := s.feeds.Exists(ctx, topic.ID, ch.QueryParams)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	language := ch.Language
	if language == nil {
		iso := country.ISOCode
		language = &iso
	}

	_, err = s.feeds.Create(ctx, &domain.Feed{
		Title:         ch.Title,
		Language:      language,
		LastBuildDate: ch.LastBuildDate,
		CountryID:     country.ID,
		TopicID:       topic.ID,
		QueryParams:   ch.QueryParams,
	})
	if errors.Is(err, domain.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("create feed: %w", err)
	}
	return true, nil
}
