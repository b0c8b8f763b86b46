package rss

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	gofeedrss "github.com/mmcdole/gofeed/rss"

	"maptimes/internal/domain"
	"maptimes/internal/feedurl"
)

const maxFeedSize = 10 << 20

var ErrUnexpectedStatus = errors.New("unexpected status")

// Config holds RSS fetcher configuration.
type Config struct {
	Timeout   time.Duration
	UserAgent string
}

// Fetcher retrieves and parses RSS 2.0 feeds.
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// New creates a new RSS fetcher.
func New(cfg Config, logger *slog.Logger) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		userAgent: cfg.UserAgent,
		logger:    logger.With("component", "rss"),
	}
}

// Fetch performs a single GET of url and parses the body. Non-2xx responses
// and transport failures are returned as errors; callers skip the feed.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*domain.ParsedFeed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/rss+xml, application/xml, text/xml")
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	feed, err := f.Parse(io.LimitReader(resp.Body, maxFeedSize))
	if err != nil {
		return nil, err
	}

	f.logger.Debug("fetched feed",
		"url", url,
		"items", len(feed.Items),
		"dropped", feed.Dropped,
	)

	return feed, nil
}

// Parse decodes an RSS document. Missing channel fields stay nil, items
// without a link are dropped, and missing titles and publishers get
// placeholder values.
func (f *Fetcher) Parse(r io.Reader) (*domain.ParsedFeed, error) {
	parser := gofeedrss.Parser{}
	raw, err := parser.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	result := &domain.ParsedFeed{
		Channel: f.channel(raw),
		Items:   make([]domain.FeedItem, 0, len(raw.Items)),
	}

	for _, it := range raw.Items {
		if it == nil {
			continue
		}

		link := strings.TrimSpace(it.Link)
		if link == "" {
			f.logger.Warn("dropping item without link", "title", it.Title)
			result.Dropped++
			continue
		}

		title := strings.TrimSpace(it.Title)
		if title == "" {
			title = domain.UnknownTitle
		}

		pubDate := ParseDate(it.PubDate)
		if pubDate == nil && strings.TrimSpace(it.PubDate) != "" {
			f.logger.Warn("failed to parse date",
				"link", link,
				"date", it.PubDate,
			)
		}

		result.Items = append(result.Items, domain.FeedItem{
			Title:         title,
			Link:          link,
			PubDate:       pubDate,
			PublisherName: publisherName(it.Source),
		})
	}

	return result, nil
}

func (f *Fetcher) channel(raw *gofeedrss.Feed) domain.Channel {
	ch := domain.Channel{
		Title:    optional(raw.Title),
		Language: optional(raw.Language),
		Link:     strings.TrimSpace(raw.Link),
	}
	ch.QueryParams = feedurl.QueryParams(ch.Link)

	ch.LastBuildDate = ParseDate(raw.LastBuildDate)
	if ch.LastBuildDate == nil && strings.TrimSpace(raw.LastBuildDate) != "" {
		f.logger.Warn("failed to parse last build date", "date", raw.LastBuildDate)
	}

	return ch
}

// publisherName reads the <source> element. An absent element yields the
// unknown placeholder; a blank one yields "" so no publisher is attached.
func publisherName(src *gofeedrss.Source) string {
	if src == nil {
		return domain.UnknownPublisher
	}
	return strings.TrimSpace(src.Title)
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
