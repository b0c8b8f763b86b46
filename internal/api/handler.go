package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"maptimes/internal/domain"
	"maptimes/internal/metrics"
)

const basePath = "/api/v01"

type Config struct {
	DefaultPageSize int
	MaxPageSize     int
}

type Handler struct {
	store  QueryStore
	logger *slog.Logger
	cfg    Config
}

func NewHandler(store QueryStore, logger *slog.Logger, cfg Config) *Handler {
	return &Handler{
		store:  store,
		logger: logger.With("component", "api"),
		cfg:    cfg,
	}
}

// Router builds the gin engine with every query route and /metrics.
func (h *Handler) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.logRequests())

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	v1 := router.Group(basePath)
	v1.GET("/news", h.listNews)
	v1.GET("/news/:id", h.getNews)
	v1.GET("/topics", h.listTopics)
	v1.GET("/publishers", h.listPublishers)
	v1.GET("/search/autocomplete", h.autocomplete)
	v1.GET("/search", h.search)

	return router
}

func (h *Handler) logRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		h.logger.Debug("request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}

type articleQuery struct {
	Keywords   string    `form:"keywords"`
	Topics     []int64   `form:"topics"`
	Publishers []int64   `form:"publishers"`
	Country    string    `form:"country"`
	DateFrom   time.Time `form:"date_from" time_format:"2006-01-02T15:04:05Z07:00"`
	DateTo     time.Time `form:"date_to" time_format:"2006-01-02T15:04:05Z07:00"`
	Page       int       `form:"page,default=1" binding:"min=1"`
	PageSize   *int      `form:"page_size"`
}

func (h *Handler) bindArticleQuery(c *gin.Context) (domain.ArticleFilter, domain.Page, error) {
	var q articleQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		return domain.ArticleFilter{}, domain.Page{}, err
	}

	size := h.cfg.DefaultPageSize
	if q.PageSize != nil {
		size = *q.PageSize
	}
	if size < 1 || size > h.cfg.MaxPageSize {
		return domain.ArticleFilter{}, domain.Page{}, fmt.Errorf("page_size must be between 1 and %d", h.cfg.MaxPageSize)
	}

	filter := domain.ArticleFilter{
		Keywords:   strings.TrimSpace(q.Keywords),
		TopicIDs:   q.Topics,
		Publishers: q.Publishers,
		Country:    strings.TrimSpace(q.Country),
		DateFrom:   q.DateFrom,
		DateTo:     q.DateTo,
	}
	return filter, domain.Page{Number: q.Page, Size: size}, nil
}

func (h *Handler) listNews(c *gin.Context) {
	filter, page, err := h.bindArticleQuery(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	articles, total, err := h.store.ListArticles(c.Request.Context(), filter, page)
	if err != nil {
		h.internalError(c, "list articles", err)
		return
	}

	c.JSON(http.StatusOK, ArticleList{
		Total:    total,
		Page:     page.Number,
		PageSize: page.Size,
		Items:    toArticles(articles),
	})
}

func (h *Handler) getNews(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid article id"})
		return
	}

	article, err := h.store.GetArticle(c.Request.Context(), id)
	if errors.Is(err, domain.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}
	if err != nil {
		h.internalError(c, "get article", err)
		return
	}

	c.JSON(http.StatusOK, toArticle(*article))
}

func (h *Handler) listTopics(c *gin.Context) {
	topics, err := h.store.ListTopics(c.Request.Context())
	if err != nil {
		h.internalError(c, "list topics", err)
		return
	}

	items := make([]Topic, 0, len(topics))
	for _, t := range topics {
		items = append(items, Topic{ID: t.ID, Name: t.Name})
	}
	c.JSON(http.StatusOK, TopicList{Items: items})
}

func (h *Handler) listPublishers(c *gin.Context) {
	country := strings.TrimSpace(c.Query("country"))

	publishers, err := h.store.ListPublishers(c.Request.Context(), country)
	if err != nil {
		h.internalError(c, "list publishers", err)
		return
	}

	items := make([]Publisher, 0, len(publishers))
	for _, p := range publishers {
		items = append(items, toPublisher(p))
	}
	c.JSON(http.StatusOK, PublisherList{Items: items})
}

func (h *Handler) autocomplete(c *gin.Context) {
	var q struct {
		Q string `form:"q" binding:"required,min=1"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, err)
		return
	}

	suggestions, err := h.store.Autocomplete(c.Request.Context(), q.Q)
	if err != nil {
		h.internalError(c, "autocomplete", err)
		return
	}
	if suggestions == nil {
		suggestions = []string{}
	}
	c.JSON(http.StatusOK, Suggestions{Suggestions: suggestions})
}

func (h *Handler) search(c *gin.Context) {
	filter, page, err := h.bindArticleQuery(c)
	if err != nil {
		badRequest(c, err)
		return
	}

	result, err := h.store.SearchByPublisher(c.Request.Context(), filter, page)
	if err != nil {
		h.internalError(c, "search", err)
		return
	}

	items := make([]PublisherArticles, 0, len(result.Groups))
	for _, g := range result.Groups {
		items = append(items, PublisherArticles{
			Publisher: toPublisher(g.Publisher),
			Articles:  toArticles(g.Articles),
		})
	}

	c.JSON(http.StatusOK, SearchResponse{
		TotalPublishers: result.TotalPublishers,
		TotalArticles:   result.TotalArticles,
		Page:            page.Number,
		PageSize:        page.Size,
		Items:           items,
	})
}

func badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

func (h *Handler) internalError(c *gin.Context, op string, err error) {
	h.logger.Error("query failed", "op", op, "error", err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
