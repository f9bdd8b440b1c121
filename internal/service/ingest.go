package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/juju/errors"

	"github.com/xiaot623/newsstream/internal/domain"
)

// Ingest fetches the upstream articles for day, classifies them and stores
// them. Duplicate URLs are skipped; items that fail validation or
// persistence are counted and dropped without aborting the batch.
func (s *Service) Ingest(ctx context.Context, day time.Time) (domain.IngestReport, error) {
	day = domain.StartOfDay(day)
	report := domain.IngestReport{Date: day.Format(domain.DateLayout)}

	raw, err := s.fetcher.Fetch(ctx, day)
	if err != nil {
		s.metrics.UpstreamFetchFailed()
		logger.Errorf("error fetching news for %s: %v", report.Date, err)
		return report, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	report.Fetched = len(raw)

	window := domain.DayRange(day)
	logger.Infof("starting to save %d articles to database...", len(raw))
	for i, item := range raw {
		article, err := s.toArticle(item, report.Date)
		if err != nil {
			report.Failed++
			logger.Warningf("skipping article %d: %v", i+1, err)
			continue
		}
		// A stray item would make its own day look already ingested.
		if article.PublishedAt.Before(window.Start) || article.PublishedAt.After(window.End) {
			report.Failed++
			logger.Warningf("skipping article %d: published %s outside %s",
				i+1, article.PublishedAt.Format(time.RFC3339), report.Date)
			continue
		}

		err = s.store.InsertArticle(ctx, article)
		switch {
		case errors.Is(err, errors.AlreadyExists):
			report.Duplicates++
		case err != nil:
			report.Failed++
			logger.Errorf("error saving article %d: %v", i+1, err)
		default:
			report.Saved++
			if report.Saved%50 == 0 {
				logger.Infof("saved %d/%d articles...", report.Saved, len(raw))
			}
		}
	}

	s.metrics.Ingested(report)
	logger.Infof("database save complete for %s: %d saved, %d duplicates skipped, %d errors",
		report.Date, report.Saved, report.Duplicates, report.Failed)
	return report, nil
}

// ensureIngested runs Ingest for day unless the store already holds
// articles for it. Concurrent callers for the same day share one run.
func (s *Service) ensureIngested(ctx context.Context, day time.Time) (domain.IngestReport, error) {
	key := domain.StartOfDay(day).Format(domain.DateLayout)
	v, err, shared := s.ingest.Do(key, func() (interface{}, error) {
		// The run is shared by every caller that joins the flight, so the
		// first caller going away must not cancel it.
		ictx := context.WithoutCancel(ctx)
		n, err := s.store.CountArticles(ictx, domain.DayRange(day))
		if err != nil {
			return domain.IngestReport{Date: key}, fmt.Errorf("%w: %w", ErrStore, err)
		}
		if n > 0 {
			return domain.IngestReport{Date: key}, nil
		}
		logger.Infof("no articles in database for %s - fetching from API...", key)
		return s.Ingest(ictx, day)
	})
	if shared {
		logger.Debugf("joined in-flight ingestion for %s", key)
	}
	return v.(domain.IngestReport), err
}

func (s *Service) toArticle(raw domain.RawArticle, fetchDate string) (*domain.Article, error) {
	title := strings.TrimSpace(raw.Title)
	if title == "" {
		return nil, errors.NotValidf("article %q without title", raw.URL)
	}
	url := strings.TrimSpace(raw.URL)
	if url == "" {
		return nil, errors.NotValidf("article %q without url", title)
	}
	publishedAt, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(raw.PublishedAt))
	if err != nil {
		return nil, errors.NewNotValid(err, fmt.Sprintf("publishedAt of %q", url))
	}

	category := s.classifier.Classify(title)
	if logger.IsDebugEnabled() {
		logger.Debugf("classified %q as %s, scores %v", title, category, s.classifier.Score(title))
	}

	return &domain.Article{
		SourceID:    raw.SourceID,
		SourceName:  raw.SourceName,
		Author:      raw.Author,
		Title:       title,
		Description: raw.Description,
		URL:         url,
		ImageURL:    raw.ImageURL,
		PublishedAt: publishedAt.UTC(),
		Content:     raw.Content,
		FetchDate:   fetchDate,
		Category:    category,
	}, nil
}
