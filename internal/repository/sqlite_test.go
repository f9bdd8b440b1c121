package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/juju/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xiaot623/newsstream/internal/domain"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}

var testDay = time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

func article(url string, publishedAt time.Time, category domain.Category) *domain.Article {
	return &domain.Article{
		SourceID:    "wire",
		SourceName:  "Wire",
		Title:       "title " + url,
		URL:         url,
		PublishedAt: publishedAt,
		FetchDate:   domain.StartOfDay(publishedAt).Format(domain.DateLayout),
		Category:    category,
	}
}

func TestSQLiteStoreInsertAndFind(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	// Inserted out of order; Find must sort ascending by published_at.
	require.NoError(t, store.InsertArticle(ctx, article("u2", testDay.Add(2*time.Hour), domain.CategorySports)))
	require.NoError(t, store.InsertArticle(ctx, article("u1", testDay.Add(1*time.Hour), domain.CategoryPolitics)))
	require.NoError(t, store.InsertArticle(ctx, article("u3", testDay.Add(3*time.Hour), domain.CategorySports)))
	// Next day, outside the range.
	require.NoError(t, store.InsertArticle(ctx, article("u4", testDay.Add(25*time.Hour), domain.CategorySports)))

	got, err := store.FindArticles(ctx, domain.DayRange(testDay), "")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "u1", got[0].URL)
	assert.Equal(t, "u2", got[1].URL)
	assert.Equal(t, "u3", got[2].URL)
	assert.Equal(t, "Wire", got[0].SourceName)
	assert.Equal(t, testDay.Add(time.Hour), got[0].PublishedAt)
	assert.Equal(t, "2026-10-17", got[0].FetchDate)

	sports, err := store.FindArticles(ctx, domain.DayRange(testDay), domain.CategorySports)
	require.NoError(t, err)
	require.Len(t, sports, 2)
	assert.Equal(t, "u2", sports[0].URL)

	n, err := store.CountArticles(ctx, domain.DayRange(testDay))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSQLiteStoreDayBoundaries(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	require.NoError(t, store.InsertArticle(ctx, article("first", testDay, domain.CategoryGeneral)))
	require.NoError(t, store.InsertArticle(ctx, article("last", testDay.Add(24*time.Hour-time.Millisecond), domain.CategoryGeneral)))
	require.NoError(t, store.InsertArticle(ctx, article("before", testDay.Add(-time.Millisecond), domain.CategoryGeneral)))

	got, err := store.FindArticles(ctx, domain.DayRange(testDay), "")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].URL)
	assert.Equal(t, "last", got[1].URL)
}

func TestSQLiteStoreDuplicateURL(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	require.NoError(t, store.InsertArticle(ctx, article("dup", testDay.Add(time.Hour), domain.CategorySports)))
	err := store.InsertArticle(ctx, article("dup", testDay.Add(2*time.Hour), domain.CategoryCrime))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.AlreadyExists), "got %v", err)

	n, err := store.CountArticles(ctx, domain.DayRange(testDay))
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestSQLiteStoreDefaultsCategory(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	require.NoError(t, store.InsertArticle(ctx, article("nocat", testDay.Add(time.Hour), "")))
	got, err := store.FindArticles(ctx, domain.DayRange(testDay), domain.CategoryGeneral)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.CategoryGeneral, got[0].Category)
}

func TestSQLiteStoreCategoryCounts(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	defer store.Close()

	seed := map[domain.Category]int{
		domain.CategorySports:   3,
		domain.CategoryPolitics: 1,
		domain.CategoryBusiness: 2,
	}
	i := 0
	for category, n := range seed {
		for j := 0; j < n; j++ {
			i++
			url := fmt.Sprintf("%s-%d", category, j)
			require.NoError(t, store.InsertArticle(ctx, article(url, testDay.Add(time.Duration(i)*time.Minute), category)))
		}
	}

	counts, err := store.CategoryCounts(ctx, domain.DayRange(testDay))
	require.NoError(t, err)
	assert.Equal(t, []domain.CategoryCount{
		{Category: domain.CategorySports, Count: 3},
		{Category: domain.CategoryBusiness, Count: 2},
		{Category: domain.CategoryPolitics, Count: 1},
	}, counts)
}
