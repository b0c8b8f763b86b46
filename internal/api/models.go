package api

import (
	"time"

	"maptimes/internal/domain"
)

type Location struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Country   *string  `json:"country"`
	City      *string  `json:"city"`
}

type Publisher struct {
	ID       int64    `json:"id"`
	Name     string   `json:"name"`
	Location Location `json:"location"`
}

type Topic struct {
	ID   int64  `json:"id"`
	Name string `json:"topic_name"`
}

type Article struct {
	ID        int64      `json:"id"`
	Title     string     `json:"title"`
	Link      string     `json:"link"`
	PubDate   *time.Time `json:"pub_date"`
	Publisher Publisher  `json:"publisher"`
	Topic     Topic      `json:"topic"`
}

type ArticleList struct {
	Total    int       `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
	Items    []Article `json:"items"`
}

type PublisherArticles struct {
	Publisher Publisher `json:"publisher"`
	Articles  []Article `json:"articles"`
}

type SearchResponse struct {
	TotalPublishers int                 `json:"total_publishers"`
	TotalArticles   int                 `json:"total_articles"`
	Page            int                 `json:"page"`
	PageSize        int                 `json:"page_size"`
	Items           []PublisherArticles `json:"items"`
}

type TopicList struct {
	Items []Topic `json:"items"`
}

type PublisherList struct {
	Items []Publisher `json:"items"`
}

type Suggestions struct {
	Suggestions []string `json:"suggestions"`
}

func toPublisher(p domain.PublisherView) Publisher {
	return Publisher{
		ID:   p.ID,
		Name: p.Name,
		Location: Location{
			Latitude:  p.Latitude,
			Longitude: p.Longitude,
			Country:   p.CountryName,
			City:      p.City,
		},
	}
}

func toArticle(a domain.ArticleView) Article {
	return Article{
		ID:      a.ID,
		Title:   a.Title,
		Link:    a.Link,
		PubDate: a.PubDate,
		Publisher: Publisher{
			ID:   a.PublisherID,
			Name: a.PublisherName,
			Location: Location{
				Latitude:  a.Latitude,
				Longitude: a.Longitude,
				Country:   a.CountryName,
				City:      a.City,
			},
		},
		Topic: Topic{ID: a.TopicID, Name: a.TopicName},
	}
}

func toArticles(views []domain.ArticleView) []Article {
	items := make([]Article, 0, len(views))
	for _, v := range views {
		items = append(items, toArticle(v))
	}
	return items
}
