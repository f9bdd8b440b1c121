// Package newsapi provides an HTTP client for the NewsAPI "everything" endpoint.
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"

	"github.com/xiaot623/newsstream/internal/domain"
)

var logger = loggo.GetLogger("newsstream.adapter.newsapi")

// Client fetches one calendar day of articles from NewsAPI.
type Client struct {
	baseURL    string
	apiKey     string
	query      string
	language   string
	httpClient *http.Client
}

// NewClient creates a new NewsAPI client.
func NewClient(baseURL, apiKey, query, language string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		apiKey:   apiKey,
		query:    query,
		language: language,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Response is the body of GET /everything.
type Response struct {
	Status       string    `json:"status"`
	TotalResults int       `json:"totalResults"`
	Articles     []Article `json:"articles"`
	Code         string    `json:"code,omitempty"`
	Message      string    `json:"message,omitempty"`
}

// Article is one NewsAPI article payload.
type Article struct {
	Source      Source `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
	Content     string `json:"content"`
}

// Source identifies the publisher of an article.
type Source struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Fetch calls GET /everything for the UTC day containing day.
func (c *Client) Fetch(ctx context.Context, day time.Time) ([]domain.RawArticle, error) {
	date := domain.StartOfDay(day).Format(domain.DateLayout)

	params := url.Values{}
	params.Set("q", c.query)
	params.Set("from", date)
	params.Set("to", date)
	params.Set("sortBy", "publishedAt")
	params.Set("language", c.language)
	params.Set("apiKey", c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/everything?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.Annotate(err, "failed to create request")
	}

	logger.Infof("fetching news from API for date: %s", date)
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, errors.Annotate(err, "failed to call news api")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Annotate(err, "failed to read news api response")
	}

	var parsed Response
	decodeErr := json.Unmarshal(body, &parsed)

	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && parsed.Message != "" {
			return nil, fmt.Errorf("news api error (%d): %s", resp.StatusCode, parsed.Message)
		}
		return nil, fmt.Errorf("news api returned status %d: %s", resp.StatusCode, string(body))
	}
	if decodeErr != nil {
		return nil, errors.Annotate(decodeErr, "failed to decode news api response")
	}
	if parsed.Status != "ok" {
		return nil, fmt.Errorf("news api error: %s", parsed.Message)
	}

	logger.Infof("fetched %d articles from API (total available: %d)", len(parsed.Articles), parsed.TotalResults)

	out := make([]domain.RawArticle, 0, len(parsed.Articles))
	for _, a := range parsed.Articles {
		out = append(out, domain.RawArticle{
			SourceID:    a.Source.ID,
			SourceName:  a.Source.Name,
			Author:      a.Author,
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			ImageURL:    a.URLToImage,
			PublishedAt: a.PublishedAt,
			Content:     a.Content,
		})
	}
	return out, nil
}
