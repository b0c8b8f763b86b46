package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"maptimes/internal/domain"
)

var ErrUnexpectedStatus = errors.New("unexpected status")

// Config holds Nominatim client configuration.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
}

// Client performs single free-text searches against a Nominatim instance.
// It does no rate limiting or retrying of its own.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	logger     *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		logger:    logger.With("component", "nominatim"),
	}
}

// Search returns the best match for query restricted to countryCode, or
// nil when the provider has no result.
func (c *Client) Search(ctx context.Context, query, countryCode string) (*domain.GeoResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("countrycodes", strings.ToLower(countryCode))
	params.Set("format", "json")
	params.Set("limit", "1")
	params.Set("addressdetails", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}

	var places []Place
	if err := json.NewDecoder(resp.Body).Decode(&places); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(places) == 0 {
		c.logger.Debug("no geocoding results", "query", query, "country_code", countryCode)
		return nil, nil
	}

	return places[0].toResult()
}

func (p Place) toResult() (*domain.GeoResult, error) {
	lat, err := strconv.ParseFloat(p.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse latitude %q: %w", p.Lat, err)
	}
	lon, err := strconv.ParseFloat(p.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse longitude %q: %w", p.Lon, err)
	}

	return &domain.GeoResult{
		Latitude:    lat,
		Longitude:   lon,
		CountryName: p.Address.Country,
		City:        p.Address.Locality(),
		CountryCode: strings.ToUpper(p.Address.CountryCode),
	}, nil
}
