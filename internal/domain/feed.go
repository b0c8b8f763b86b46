package domain

import "time"

// Channel holds the channel level metadata of a fetched feed. Every field
// except QueryParams is optional.
type Channel struct {
	Title         *string
	Language      *string
	LastBuildDate *time.Time
	Link          string
	QueryParams   string
}

type FeedItem struct {
	Title         string
	Link          string
	PubDate       *time.Time
	PublisherName string
}

type ParsedFeed struct {
	Channel Channel
	Items   []FeedItem
	// Dropped counts items discarded because they had no link.
	Dropped int
}

type GeoResult struct {
	Latitude    float64
	Longitude   float64
	CountryName string
	City        string
	CountryCode string
}
