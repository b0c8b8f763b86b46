package domain

import "time"

const (
	UnknownTitle     = "Unknown Title"
	UnknownPublisher = "Unknown Publisher"
)

type Country struct {
	ID      int64  `db:"id"`
	Name    string `db:"country_name"`
	ISOCode string `db:"iso_code"`
}

// Topic link is a URL template with {hl}, {gl} and {ceid} placeholders.
type Topic struct {
	ID   int64  `db:"id"`
	Name string `db:"topic_name"`
	Link string `db:"link"`
}

type Feed struct {
	ID            int64      `db:"id"`
	Title         *string    `db:"title"`
	Language      *string    `db:"language"`
	LastBuildDate *time.Time `db:"last_build_date"`
	CountryID     int64      `db:"country_id"`
	TopicID       int64      `db:"topic_id"`
	QueryParams   string     `db:"query_params"`
}

// FeedSource is a feed joined with the URL template of its topic.
type FeedSource struct {
	Feed
	TopicLink string `db:"topic_link"`
}

type Publisher struct {
	ID        int64    `db:"id"`
	Name      string   `db:"name"`
	Latitude  *float64 `db:"latitude"`
	Longitude *float64 `db:"longitude"`
	CountryID int64    `db:"country_id"`
	City      *string  `db:"city"`
}

// PendingPublisher is a publisher still lacking coordinates, with the ISO
// code of the country it was first seen in.
type PendingPublisher struct {
	ID      int64  `db:"id"`
	Name    string `db:"name"`
	ISOCode string `db:"iso_code"`
}

type Article struct {
	ID          int64      `db:"id" json:"id"`
	Title       string     `db:"title" json:"title"`
	Link        string     `db:"link" json:"link"`
	PubDate     *time.Time `db:"pub_date" json:"pub_date,omitempty"`
	PublisherID *int64     `db:"publisher_id" json:"publisher_id,omitempty"`
	FeedID      int64      `db:"feed_id" json:"feed_id"`
}
