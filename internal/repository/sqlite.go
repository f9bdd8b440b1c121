package repository

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/mattn/go-sqlite3"

	"github.com/xiaot623/newsstream/internal/domain"
)

var logger = loggo.GetLogger("newsstream.repository")

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errors.Annotate(err, "failed to open database")
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	store := &SQLiteStore{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, errors.Annotate(err, "failed to migrate database")
	}

	return store, nil
}

// migrate runs database migrations.
func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			url TEXT NOT NULL UNIQUE,
			source_id TEXT,
			source_name TEXT,
			author TEXT,
			title TEXT NOT NULL,
			description TEXT,
			image_url TEXT,
			published_at INTEGER NOT NULL,
			content TEXT,
			fetch_date TEXT NOT NULL,
			category TEXT NOT NULL DEFAULT 'General',
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_published ON articles(published_at)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_fetch_date ON articles(fetch_date)`,
		`CREATE INDEX IF NOT EXISTS idx_articles_category ON articles(category, published_at)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return errors.Annotatef(err, "migration failed\n%s", m)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const articleColumns = `url, source_id, source_name, author, title, description, image_url, published_at, content, fetch_date, category`

// FindArticles retrieves articles published within r.
func (s *SQLiteStore) FindArticles(ctx context.Context, r domain.TimeRange, category domain.Category) ([]domain.Article, error) {
	query := `SELECT ` + articleColumns + ` FROM articles WHERE published_at >= ? AND published_at <= ?`
	args := []interface{}{r.Start.UnixMilli(), r.End.UnixMilli()}

	if category != "" {
		query += ` AND category = ?`
		args = append(args, string(category))
	}
	query += ` ORDER BY published_at ASC, rowid ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()

	var articles []domain.Article
	for rows.Next() {
		var a domain.Article
		var sourceID, sourceName, author, description, imageURL, content sql.NullString
		var publishedAt int64
		var category string
		if err := rows.Scan(&a.URL, &sourceID, &sourceName, &author, &a.Title, &description,
			&imageURL, &publishedAt, &content, &a.FetchDate, &category); err != nil {
			return nil, errors.Trace(err)
		}
		a.SourceID = sourceID.String
		a.SourceName = sourceName.String
		a.Author = author.String
		a.Description = description.String
		a.ImageURL = imageURL.String
		a.Content = content.String
		a.PublishedAt = time.UnixMilli(publishedAt).UTC()
		a.Category = domain.Category(category)
		articles = append(articles, a)
	}
	return articles, errors.Trace(rows.Err())
}

// CountArticles counts articles published within r.
func (s *SQLiteStore) CountArticles(ctx context.Context, r domain.TimeRange) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE published_at >= ? AND published_at <= ?`,
		r.Start.UnixMilli(), r.End.UnixMilli()).Scan(&n)
	return n, errors.Trace(err)
}

// InsertArticle creates a new article.
func (s *SQLiteStore) InsertArticle(ctx context.Context, a *domain.Article) error {
	category := a.Category
	if category == "" {
		category = domain.CategoryGeneral
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO articles (`+articleColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.URL, nullString(a.SourceID), nullString(a.SourceName), nullString(a.Author), a.Title,
		nullString(a.Description), nullString(a.ImageURL), a.PublishedAt.UnixMilli(),
		nullString(a.Content), a.FetchDate, string(category))
	if isUniqueViolation(err) {
		return errors.AlreadyExistsf("article %q", a.URL)
	}
	return errors.Trace(err)
}

// CategoryCounts aggregates articles published within r by category.
func (s *SQLiteStore) CategoryCounts(ctx context.Context, r domain.TimeRange) ([]domain.CategoryCount, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT category, COUNT(*) AS n FROM articles
		WHERE published_at >= ? AND published_at <= ?
		GROUP BY category ORDER BY n DESC, category ASC`,
		r.Start.UnixMilli(), r.End.UnixMilli())
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer rows.Close()

	var counts []domain.CategoryCount
	for rows.Next() {
		var c domain.CategoryCount
		var category string
		if err := rows.Scan(&category, &c.Count); err != nil {
			return nil, errors.Trace(err)
		}
		c.Category = domain.Category(category)
		counts = append(counts, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Trace(err)
	}
	logger.Debugf("category counts for %s: %d groups", r.Start.Format(domain.DateLayout), len(counts))
	return counts, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
