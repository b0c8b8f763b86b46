package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"maptimes/internal/api/mocks"
	"maptimes/internal/domain"
)

type HandlerTestSuite struct {
	suite.Suite
	ctrl   *gomock.Controller
	store  *mocks.MockQueryStore
	router *gin.Engine
}

func (s *HandlerTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
}

func (s *HandlerTestSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockQueryStore(s.ctrl)

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	s.router = NewHandler(s.store, logger, Config{DefaultPageSize: 200, MaxPageSize: 1000}).Router()
}

func (s *HandlerTestSuite) TearDownTest() {
	s.ctrl.Finish()
}

func TestHandlerTestSuite(t *testing.T) {
	suite.Run(t, new(HandlerTestSuite))
}

func (s *HandlerTestSuite) get(target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func ptr[T any](v T) *T {
	return &v
}

func spiegelArticle() domain.ArticleView {
	pub := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	return domain.ArticleView{
		ID:            100,
		Title:         "Wahl",
		Link:          "https://example.com/1",
		PubDate:       &pub,
		PublisherID:   7,
		PublisherName: "Der Spiegel",
		TopicID:       1,
		TopicName:     "World",
		Latitude:      ptr(53.54),
		Longitude:     ptr(9.98),
		City:          ptr("Hamburg"),
		CountryName:   ptr("Germany"),
		ISOCode:       ptr("DE"),
	}
}

func (s *HandlerTestSuite) TestListNews_Defaults() {
	s.store.EXPECT().ListArticles(gomock.Any(), domain.ArticleFilter{}, domain.Page{Number: 1, Size: 200}).
		Return([]domain.ArticleView{spiegelArticle()}, 1, nil)

	rec := s.get("/api/v01/news")

	s.Equal(http.StatusOK, rec.Code)
	var body ArticleList
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal(1, body.Total)
	s.Equal(1, body.Page)
	s.Equal(200, body.PageSize)
	s.Require().Len(body.Items, 1)
	s.Equal("Der Spiegel", body.Items[0].Publisher.Name)
	s.Equal("Hamburg", *body.Items[0].Publisher.Location.City)
	s.Equal("Germany", *body.Items[0].Publisher.Location.Country)
	s.Equal("World", body.Items[0].Topic.Name)
}

func (s *HandlerTestSuite) TestListNews_Filters() {
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	expected := domain.ArticleFilter{
		Keywords:   "wahl",
		TopicIDs:   []int64{1, 2},
		Publishers: []int64{7},
		Country:    "de",
		DateFrom:   from,
	}
	s.store.EXPECT().ListArticles(gomock.Any(), gomock.Any(), domain.Page{Number: 2, Size: 50}).
		DoAndReturn(func(_ context.Context, f domain.ArticleFilter, _ domain.Page) ([]domain.ArticleView, int, error) {
			s.Equal(expected.Keywords, f.Keywords)
			s.Equal(expected.TopicIDs, f.TopicIDs)
			s.Equal(expected.Publishers, f.Publishers)
			s.Equal(expected.Country, f.Country)
			s.True(from.Equal(f.DateFrom))
			s.True(f.DateTo.IsZero())
			return nil, 0, nil
		})

	rec := s.get("/api/v01/news?keywords=wahl&topics=1&topics=2&publishers=7&country=de&date_from=2025-01-01T00:00:00Z&page=2&page_size=50")

	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"total":0,"page":2,"page_size":50,"items":[]}`, rec.Body.String())
}

func (s *HandlerTestSuite) TestListNews_InvalidParameters() {
	for _, target := range []string{
		"/api/v01/news?page=0",
		"/api/v01/news?page_size=0",
		"/api/v01/news?page_size=1001",
		"/api/v01/news?topics=abc",
		"/api/v01/news?date_from=yesterday",
	} {
		rec := s.get(target)
		s.Equal(http.StatusBadRequest, rec.Code, target)
		s.Contains(rec.Body.String(), `"error"`, target)
	}
}

func (s *HandlerTestSuite) TestListNews_StoreFailure() {
	s.store.EXPECT().ListArticles(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, 0, errors.New("connection reset"))

	rec := s.get("/api/v01/news")

	s.Equal(http.StatusInternalServerError, rec.Code)
	s.JSONEq(`{"error":"internal server error"}`, rec.Body.String())
}

func (s *HandlerTestSuite) TestGetNews() {
	article := spiegelArticle()
	s.store.EXPECT().GetArticle(gomock.Any(), int64(100)).Return(&article, nil)

	rec := s.get("/api/v01/news/100")

	s.Equal(http.StatusOK, rec.Code)
	var body Article
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal(int64(100), body.ID)
	s.Equal("https://example.com/1", body.Link)
}

func (s *HandlerTestSuite) TestGetNews_NotFound() {
	s.store.EXPECT().GetArticle(gomock.Any(), int64(5)).Return(nil, domain.ErrNotFound)

	rec := s.get("/api/v01/news/5")

	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *HandlerTestSuite) TestGetNews_InvalidID() {
	rec := s.get("/api/v01/news/latest")

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerTestSuite) TestListTopics() {
	s.store.EXPECT().ListTopics(gomock.Any()).Return([]domain.Topic{
		{ID: 2, Name: "Business", Link: "https://example.com/b"},
		{ID: 1, Name: "World", Link: "https://example.com/w"},
	}, nil)

	rec := s.get("/api/v01/topics")

	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"items":[{"id":2,"topic_name":"Business"},{"id":1,"topic_name":"World"}]}`, rec.Body.String())
}

func (s *HandlerTestSuite) TestListPublishers_ByCountry() {
	s.store.EXPECT().ListPublishers(gomock.Any(), "de").Return([]domain.PublisherView{
		{ID: 3, Name: "taz"},
	}, nil)

	rec := s.get("/api/v01/publishers?country=de")

	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"items":[{"id":3,"name":"taz","location":{"latitude":null,"longitude":null,"country":null,"city":null}}]}`,
		rec.Body.String())
}

func (s *HandlerTestSuite) TestAutocomplete() {
	s.store.EXPECT().Autocomplete(gomock.Any(), "spi").Return([]string{"Spiele", "Der Spiegel"}, nil)

	rec := s.get("/api/v01/search/autocomplete?q=spi")

	s.Equal(http.StatusOK, rec.Code)
	s.JSONEq(`{"suggestions":["Spiele","Der Spiegel"]}`, rec.Body.String())
}

func (s *HandlerTestSuite) TestAutocomplete_RequiresQuery() {
	rec := s.get("/api/v01/search/autocomplete")

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlerTestSuite) TestSearch_GroupsByPublisher() {
	a := spiegelArticle()
	s.store.EXPECT().SearchByPublisher(gomock.Any(), domain.ArticleFilter{Keywords: "wahl"}, domain.Page{Number: 1, Size: 10}).
		Return(&domain.SearchResult{
			TotalPublishers: 3,
			TotalArticles:   5,
			Groups: []domain.PublisherGroup{{
				Publisher: domain.PublisherView{ID: 7, Name: "Der Spiegel", CountryName: ptr("Germany")},
				Articles:  []domain.ArticleView{a},
			}},
		}, nil)

	rec := s.get("/api/v01/search?keywords=wahl&page_size=10")

	s.Equal(http.StatusOK, rec.Code)
	var body SearchResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal(3, body.TotalPublishers)
	s.Equal(5, body.TotalArticles)
	s.Equal(10, body.PageSize)
	s.Require().Len(body.Items, 1)
	s.Equal("Der Spiegel", body.Items[0].Publisher.Name)
	s.Require().Len(body.Items[0].Articles, 1)
	s.Equal(int64(100), body.Items[0].Articles[0].ID)
}

func (s *HandlerTestSuite) TestMetricsExposed() {
	rec := s.get("/metrics")

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "go_goroutines")
}
