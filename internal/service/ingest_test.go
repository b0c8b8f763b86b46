package service

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"maptimes/internal/config"
	"maptimes/internal/domain"
	"maptimes/internal/service/mocks"
)

const worldTemplate = "https://news.google.com/rss/topics/WORLD?hl={hl}&gl={gl}&ceid={ceid}"

type IngestServiceTestSuite struct {
	suite.Suite
	ctrl *gomock.Controller

	feeds      *mocks.MockFeedStore
	articles   *mocks.MockArticleStore
	publishers *mocks.MockPublisherStore
	fetcher    *mocks.MockFeedFetcher
	txManager  *mocks.MockTransactionManager
	notifier   *mocks.MockNotifier

	service *IngestService
	logger  *slog.Logger
}

func (s *IngestServiceTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())

	s.feeds = mocks.NewMockFeedStore(s.ctrl)
	s.articles = mocks.NewMockArticleStore(s.ctrl)
	s.publishers = mocks.NewMockPublisherStore(s.ctrl)
	s.fetcher = mocks.NewMockFeedFetcher(s.ctrl)
	s.txManager = mocks.NewMockTransactionManager(s.ctrl)
	s.notifier = mocks.NewMockNotifier(s.ctrl)

	s.logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	s.service = NewIngestService(
		s.feeds,
		s.articles,
		s.publishers,
		s.fetcher,
		s.txManager,
		s.notifier,
		s.logger,
		config.IngestConfig{MaxConsecutiveExisting: 10},
	)
}

func (s *IngestServiceTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestIngestServiceTestSuite(t *testing.T) {
	suite.Run(t, new(IngestServiceTestSuite))
}

func (s *IngestServiceTestSuite) expectTransaction() *gomock.Call {
	return s.txManager.EXPECT().WithTransaction(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, fn func(context.Context) error) error {
			return fn(ctx)
		},
	)
}

func source(id, countryID int64, params string) domain.FeedSource {
	return domain.FeedSource{
		Feed:      domain.Feed{ID: id, CountryID: countryID, TopicID: 1, QueryParams: params},
		TopicLink: worldTemplate,
	}
}

func (s *IngestServiceTestSuite) TestRun_InsertsNewArticles() {
	ctx := context.Background()
	pub := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	s.feeds.EXPECT().ListSources(ctx).Return([]domain.FeedSource{source(5, 2, "hl=de&gl=DE&ceid=DE:de")}, nil)

	s.fetcher.EXPECT().Fetch(ctx, "https://news.google.com/rss/topics/WORLD?hl=de&gl=DE&ceid=DE:de").Return(&domain.ParsedFeed{
		Items: []domain.FeedItem{
			{Title: "Wahl", Link: "https://example.com/1", PubDate: &pub, PublisherName: "Der Spiegel"},
			{Title: "Unknown Title", Link: "https://example.com/2", PublisherName: ""},
		},
		Dropped: 1,
	}, nil)

	s.articles.EXPECT().Exists(ctx, "https://example.com/1", int64(5)).Return(false, nil)
	s.articles.EXPECT().Exists(ctx, "https://example.com/2", int64(5)).Return(false, nil)

	s.publishers.EXPECT().FindByName(ctx, "Der Spiegel").Return(int64(0), domain.ErrNotFound)
	s.publishers.EXPECT().Create(ctx, "Der Spiegel", int64(2)).Return(int64(7), nil)

	spiegel := int64(7)
	expected := []domain.Article{
		{Title: "Wahl", Link: "https://example.com/1", PubDate: &pub, PublisherID: &spiegel, FeedID: 5},
		{Title: "Unknown Title", Link: "https://example.com/2", FeedID: 5},
	}
	stored := []domain.Article{expected[0], expected[1]}
	stored[0].ID, stored[1].ID = 100, 101

	s.expectTransaction()
	s.articles.EXPECT().InsertBatch(ctx, expected).Return(stored, nil)

	s.notifier.EXPECT().Publish(ctx, &domain.Article{ID: 100, Title: "Wahl", Link: "https://example.com/1", PubDate: &pub, PublisherID: &spiegel, FeedID: 5}).Return(nil)
	s.notifier.EXPECT().Publish(ctx, gomock.Any()).Return(errors.New("channel closed"))

	stats, err := s.service.Run(ctx)

	s.NoError(err)
	s.NotEmpty(stats.RunID)
	s.Equal(1, stats.Feeds)
	s.Equal(0, stats.FailedFeeds)
	s.Equal(2, stats.Fetched)
	s.Equal(1, stats.Dropped)
	s.Equal(2, stats.Inserted)
	s.Equal(1, stats.Published)
	s.Equal(1, stats.Errors)
}

func (s *IngestServiceTestSuite) TestRun_FetchFailureSkipsFeed() {
	ctx := context.Background()

	s.feeds.EXPECT().ListSources(ctx).Return([]domain.FeedSource{
		source(1, 1, "hl=de&gl=DE&ceid=DE:de"),
		source(2, 2, "hl=en-US&gl=US&ceid=US:en"),
	}, nil)

	s.fetcher.EXPECT().Fetch(ctx, "https://news.google.com/rss/topics/WORLD?hl=de&gl=DE&ceid=DE:de").
		Return(nil, errors.New("unexpected status: 503"))
	s.fetcher.EXPECT().Fetch(ctx, "https://news.google.com/rss/topics/WORLD?hl=en-US&gl=US&ceid=US:en").
		Return(&domain.ParsedFeed{}, nil)

	stats, err := s.service.Run(ctx)

	s.NoError(err)
	s.Equal(2, stats.Feeds)
	s.Equal(1, stats.FailedFeeds)
	s.Equal(0, stats.Inserted)
}

func (s *IngestServiceTestSuite) TestRun_EarlyStopSkipsRemainder() {
	ctx := context.Background()

	items := append(feedItems("known", 10), feedItems("older", 3)...)

	s.feeds.EXPECT().ListSources(ctx).Return([]domain.FeedSource{source(1, 1, "hl=de&gl=DE&ceid=DE:de")}, nil)
	s.fetcher.EXPECT().Fetch(ctx, gomock.Any()).Return(&domain.ParsedFeed{Items: items}, nil)
	s.articles.EXPECT().Exists(ctx, gomock.Any(), int64(1)).Return(true, nil).Times(10)

	stats, err := s.service.Run(ctx)

	s.NoError(err)
	s.Equal(13, stats.Fetched)
	s.Equal(10, stats.Existing)
	s.Equal(1, stats.EarlyStops)
	s.Equal(0, stats.Inserted)
}

func (s *IngestServiceTestSuite) TestRun_BatchFailureMovesToNextFeed() {
	ctx := context.Background()

	s.feeds.EXPECT().ListSources(ctx).Return([]domain.FeedSource{
		source(1, 1, "hl=de&gl=DE&ceid=DE:de"),
		source(2, 1, "hl=fr&gl=FR&ceid=FR:fr"),
	}, nil)

	s.fetcher.EXPECT().Fetch(ctx, gomock.Any()).Return(&domain.ParsedFeed{
		Items: []domain.FeedItem{{Title: "A", Link: "https://example.com/a"}},
	}, nil)
	s.fetcher.EXPECT().Fetch(ctx, gomock.Any()).Return(&domain.ParsedFeed{
		Items: []domain.FeedItem{{Title: "B", Link: "https://example.com/b"}},
	}, nil)

	s.articles.EXPECT().Exists(ctx, gomock.Any(), gomock.Any()).Return(false, nil).Times(2)

	s.expectTransaction().Times(2)
	gomock.InOrder(
		s.articles.EXPECT().InsertBatch(ctx, gomock.Any()).Return(nil, errors.New("deadlock detected")),
		s.articles.EXPECT().InsertBatch(ctx, gomock.Any()).Return([]domain.Article{{ID: 9, Link: "https://example.com/b", FeedID: 2}}, nil),
	)
	s.notifier.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	stats, err := s.service.Run(ctx)

	s.NoError(err)
	s.Equal(2, stats.Feeds)
	s.Equal(1, stats.FailedFeeds)
	s.Equal(1, stats.Inserted)
	s.Equal(1, stats.Published)
}

func (s *IngestServiceTestSuite) TestRun_PublisherFailureStoresWithoutPublisher() {
	ctx := context.Background()

	s.feeds.EXPECT().ListSources(ctx).Return([]domain.FeedSource{source(1, 1, "hl=de&gl=DE&ceid=DE:de")}, nil)
	s.fetcher.EXPECT().Fetch(ctx, gomock.Any()).Return(&domain.ParsedFeed{
		Items: []domain.FeedItem{{Title: "A", Link: "https://example.com/a", PublisherName: "Bild"}},
	}, nil)
	s.articles.EXPECT().Exists(ctx, "https://example.com/a", int64(1)).Return(false, nil)
	s.publishers.EXPECT().FindByName(ctx, "Bild").Return(int64(0), errors.New("timeout"))

	s.expectTransaction()
	s.articles.EXPECT().InsertBatch(ctx, []domain.Article{{Title: "A", Link: "https://example.com/a", FeedID: 1}}).
		Return([]domain.Article{{ID: 1, Title: "A", Link: "https://example.com/a", FeedID: 1}}, nil)
	s.notifier.EXPECT().Publish(ctx, gomock.Any()).Return(nil)

	stats, err := s.service.Run(ctx)

	s.NoError(err)
	s.Equal(1, stats.Inserted)
	s.Equal(1, stats.Errors)
}

func (s *IngestServiceTestSuite) TestRun_SecondRunInsertsNothing() {
	ctx := context.Background()

	s.feeds.EXPECT().ListSources(ctx).Return([]domain.FeedSource{source(1, 1, "hl=de&gl=DE&ceid=DE:de")}, nil)
	s.fetcher.EXPECT().Fetch(ctx, gomock.Any()).Return(&domain.ParsedFeed{Items: feedItems("seen", 4)}, nil)
	s.articles.EXPECT().Exists(ctx, gomock.Any(), int64(1)).Return(true, nil).Times(4)

	stats, err := s.service.Run(ctx)

	s.NoError(err)
	s.Equal(4, stats.Existing)
	s.Equal(0, stats.Inserted)
	s.Equal(0, stats.EarlyStops)
}

func (s *IngestServiceTestSuite) TestRun_ListFailure() {
	ctx := context.Background()
	s.feeds.EXPECT().ListSources(ctx).Return(nil, errors.New("relation feeds does not exist"))

	stats, err := s.service.Run(ctx)

	s.Error(err)
	s.Nil(stats)
}

func (s *IngestServiceTestSuite) TestRun_WithoutNotifier() {
	ctx := context.Background()
	service := NewIngestService(s.feeds, s.articles, s.publishers, s.fetcher, s.txManager, nil, s.logger,
		config.IngestConfig{MaxConsecutiveExisting: 10})

	s.feeds.EXPECT().ListSources(ctx).Return([]domain.FeedSource{source(1, 1, "hl=de&gl=DE&ceid=DE:de")}, nil)
	s.fetcher.EXPECT().Fetch(ctx, gomock.Any()).Return(&domain.ParsedFeed{
		Items: []domain.FeedItem{{Title: "A", Link: "https://example.com/a"}},
	}, nil)
	s.articles.EXPECT().Exists(ctx, gomock.Any(), int64(1)).Return(false, nil)
	s.expectTransaction()
	s.articles.EXPECT().InsertBatch(ctx, gomock.Any()).Return([]domain.Article{{ID: 1}}, nil)

	stats, err := service.Run(ctx)

	s.NoError(err)
	s.Equal(1, stats.Inserted)
	s.Equal(0, stats.Published)
}
