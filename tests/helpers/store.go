package helpers

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/xiaot623/newsstream/internal/domain"
	"github.com/xiaot623/newsstream/internal/repository"
)

func NewTestSQLiteStore(t *testing.T) *repository.SQLiteStore {
	t.Helper()

	s, err := repository.NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create sqlite store: %v", err)
	}

	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

// SeedArticles inserts n articles for day, one minute apart, all with the
// given category.
func SeedArticles(t *testing.T, s repository.Store, day time.Time, n int, category domain.Category) []domain.Article {
	t.Helper()

	start := domain.StartOfDay(day)
	out := make([]domain.Article, 0, n)
	for i := 0; i < n; i++ {
		a := domain.Article{
			SourceName:  "Test Wire",
			Title:       "Seeded article",
			URL:         "https://example.com/" + start.Format(domain.DateLayout) + "/" + string(category) + "/" + strconv.Itoa(i),
			PublishedAt: start.Add(time.Duration(i+1) * time.Minute),
			FetchDate:   start.Format(domain.DateLayout),
			Category:    category,
		}
		if err := s.InsertArticle(context.Background(), &a); err != nil {
			t.Fatalf("InsertArticle: %v", err)
		}
		out = append(out, a)
	}
	return out
}

