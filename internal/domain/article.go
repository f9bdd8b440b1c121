package domain

import "time"

// Article is a stored news record. It is never mutated after ingestion.
type Article struct {
	SourceID    string    `json:"sourceId,omitempty"`
	SourceName  string    `json:"sourceName"`
	Author      string    `json:"author,omitempty"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	URL         string    `json:"url"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	PublishedAt time.Time `json:"publishedAt"`
	Content     string    `json:"content,omitempty"`
	FetchDate   string    `json:"fetchDate"` // YYYY-MM-DD, UTC
	Category    Category  `json:"category"`
}

// RawArticle is an article payload as returned by an upstream provider,
// before validation and classification.
type RawArticle struct {
	SourceID    string
	SourceName  string
	Author      string
	Title       string
	Description string
	URL         string
	ImageURL    string
	PublishedAt string
	Content     string
}

// CategoryCount is one row of the per-day category aggregation.
type CategoryCount struct {
	Category Category `json:"category"`
	Count    int      `json:"count"`
}
