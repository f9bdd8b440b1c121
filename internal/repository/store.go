// Package repository defines the article store interface and implementations.
package repository

import (
	"context"

	"github.com/xiaot623/newsstream/internal/domain"
)

// Store defines the interface for article persistence.
type Store interface {
	// FindArticles returns articles published within r, ascending by
	// publication time. An empty category matches every category.
	FindArticles(ctx context.Context, r domain.TimeRange, category domain.Category) ([]domain.Article, error)

	// CountArticles returns the number of articles published within r.
	CountArticles(ctx context.Context, r domain.TimeRange) (int, error)

	// InsertArticle stores a new article. A URL that is already stored
	// yields an error satisfying errors.Is(err, errors.AlreadyExists).
	InsertArticle(ctx context.Context, article *domain.Article) error

	// CategoryCounts groups the articles published within r by category,
	// largest group first.
	CategoryCounts(ctx context.Context, r domain.TimeRange) ([]domain.CategoryCount, error)

	// Lifecycle
	Close() error
}
