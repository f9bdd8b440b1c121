// Package rss provides an upstream provider backed by RSS/Atom feeds.
package rss

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/mmcdole/gofeed"

	"github.com/xiaot623/newsstream/internal/domain"
)

var logger = loggo.GetLogger("newsstream.adapter.rss")

// Client fetches feed items published on a given UTC day.
type Client struct {
	feeds  []string
	parser *gofeed.Parser
}

// NewClient creates a feed client for the given feed URLs.
func NewClient(feeds []string, timeout time.Duration) *Client {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	return &Client{feeds: feeds, parser: parser}
}

// Fetch fetches every feed concurrently and keeps the items published on
// the UTC day containing day. It fails only when every feed fails.
func (c *Client) Fetch(ctx context.Context, day time.Time) ([]domain.RawArticle, error) {
	if len(c.feeds) == 0 {
		return nil, errors.NotValidf("empty feed list")
	}
	window := domain.DayRange(day)

	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		articles []domain.RawArticle
		errs     []error
	)

	for _, feedURL := range c.feeds {
		wg.Add(1)
		go func(feedURL string) {
			defer wg.Done()
			items, err := c.fetchFeed(ctx, feedURL, window)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				logger.Warningf("feed %s: %v", feedURL, err)
				errs = append(errs, err)
				return
			}
			articles = append(articles, items...)
		}(feedURL)
	}
	wg.Wait()

	if len(errs) == len(c.feeds) {
		return nil, errors.Annotatef(errs[0], "all %d feeds failed", len(c.feeds))
	}
	return articles, nil
}

func (c *Client) fetchFeed(ctx context.Context, feedURL string, window domain.TimeRange) ([]domain.RawArticle, error) {
	feed, err := c.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, errors.Annotatef(err, "fetching %s", feedURL)
	}

	var out []domain.RawArticle
	for _, item := range feed.Items {
		pub := item.PublishedParsed
		if pub == nil {
			pub = item.UpdatedParsed
		}
		if pub == nil || pub.Before(window.Start) || pub.After(window.End) {
			continue
		}

		raw := domain.RawArticle{
			SourceName:  feed.Title,
			Title:       strings.TrimSpace(item.Title),
			Description: item.Description,
			URL:         item.Link,
			PublishedAt: pub.UTC().Format(time.RFC3339),
			Content:     item.Content,
		}
		if item.Author != nil {
			raw.Author = item.Author.Name
		} else if len(item.Authors) > 0 && item.Authors[0] != nil {
			raw.Author = item.Authors[0].Name
		}
		if item.Image != nil {
			raw.ImageURL = item.Image.URL
		}
		if feed.Link != "" {
			raw.SourceID = feed.Link
		}
		out = append(out, raw)
	}
	return out, nil
}
