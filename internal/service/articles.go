package service

import (
	"context"
	"fmt"
	"time"

	"github.com/juju/errors"

	"github.com/xiaot623/newsstream/internal/domain"
)

// GetArticles returns the articles for the query's day, ingesting the day
// from upstream on first access. The date is normalised with ResolveDay.
func (s *Service) GetArticles(ctx context.Context, q domain.ArticleQuery) ([]domain.Article, error) {
	return s.articlesForDay(ctx, s.ResolveDay(q.Date), q.Category)
}

// FilterArticles serves the request/response query surface. The day is used
// as given. An upstream failure yields an empty result; store failures are
// returned.
func (s *Service) FilterArticles(ctx context.Context, day time.Time, category domain.Category) ([]domain.Article, error) {
	articles, err := s.articlesForDay(ctx, domain.StartOfDay(day), category)
	if errors.Is(err, ErrUpstream) {
		logger.Warningf("filter for %s degraded to empty result: %v", day.Format(domain.DateLayout), err)
		return []domain.Article{}, nil
	}
	if err != nil {
		return nil, err
	}
	if articles == nil {
		articles = []domain.Article{}
	}
	return articles, nil
}

// CategoryCounts reports how many articles of each category exist for day.
func (s *Service) CategoryCounts(ctx context.Context, day time.Time) ([]domain.CategoryCount, error) {
	counts, err := s.store.CategoryCounts(ctx, domain.DayRange(day))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	if counts == nil {
		counts = []domain.CategoryCount{}
	}
	return counts, nil
}

func (s *Service) articlesForDay(ctx context.Context, day time.Time, category domain.Category) ([]domain.Article, error) {
	r := domain.DayRange(day)
	date := day.Format(domain.DateLayout)

	articles, err := s.store.FindArticles(ctx, r, category)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	if len(articles) > 0 {
		logger.Debugf("found %d articles in database for %s", len(articles), date)
		return articles, nil
	}

	if category != "" {
		n, err := s.store.CountArticles(ctx, r)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrStore, err)
		}
		if n > 0 {
			// The day is already ingested; nothing matches this category.
			return nil, nil
		}
	}

	if _, err := s.ensureIngested(ctx, day); err != nil {
		return nil, err
	}

	articles, err = s.store.FindArticles(ctx, r, category)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStore, err)
	}
	return articles, nil
}
