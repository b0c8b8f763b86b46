package domain

import "time"

// ArticleFilter narrows article listings. Zero values mean "no filter".
type ArticleFilter struct {
	Keywords   string
	TopicIDs   []int64
	Publishers []int64
	Country    string
	DateFrom   time.Time
	DateTo     time.Time
}

type Page struct {
	Number int
	Size   int
}

func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// ArticleView is an article joined with its publisher, publisher country and
// topic, as served by the query API.
type ArticleView struct {
	ID            int64      `db:"id"`
	Title         string     `db:"title"`
	Link          string     `db:"link"`
	PubDate       *time.Time `db:"pub_date"`
	PublisherID   int64      `db:"publisher_id"`
	PublisherName string     `db:"publisher_name"`
	TopicID       int64      `db:"topic_id"`
	TopicName     string     `db:"topic_name"`
	Latitude      *float64   `db:"latitude"`
	Longitude     *float64   `db:"longitude"`
	City          *string    `db:"city"`
	CountryName   *string    `db:"country_name"`
	ISOCode       *string    `db:"iso_code"`
}

// PublisherView is a publisher joined with its country.
type PublisherView struct {
	ID          int64    `db:"id"`
	Name        string   `db:"name"`
	Latitude    *float64 `db:"latitude"`
	Longitude   *float64 `db:"longitude"`
	City        *string  `db:"city"`
	CountryName *string  `db:"country_name"`
	ISOCode     *string  `db:"iso_code"`
}

// PublisherGroup is one publisher with its matching articles, newest first.
type PublisherGroup struct {
	Publisher PublisherView
	Articles  []ArticleView
}

// SearchResult holds one page of publisher groups and the totals across all
// pages.
type SearchResult struct {
	TotalPublishers int
	TotalArticles   int
	Groups          []PublisherGroup
}
