package service

import (
	"context"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"golang.org/x/sync/singleflight"

	"github.com/xiaot623/newsstream/internal/classify"
	"github.com/xiaot623/newsstream/internal/domain"
	"github.com/xiaot623/newsstream/internal/metrics"
	"github.com/xiaot623/newsstream/internal/repository"
)

var logger = loggo.GetLogger("newsstream.service")

const (
	// ErrUpstream marks failures of the upstream news provider.
	ErrUpstream = errors.ConstError("upstream fetch failed")
	// ErrStore marks failures of the article store.
	ErrStore = errors.ConstError("article store failed")
)

// Fetcher is an upstream news provider.
type Fetcher interface {
	// Fetch returns the raw articles published on the UTC day containing day.
	Fetch(ctx context.Context, day time.Time) ([]domain.RawArticle, error)
}

type Service struct {
	store      repository.Store
	fetcher    Fetcher
	classifier *classify.Classifier
	clock      clock.Clock
	metrics    *metrics.Collector

	// ingest collapses concurrent first-access ingestion of the same day.
	ingest singleflight.Group
}

func New(store repository.Store, fetcher Fetcher, classifier *classify.Classifier, clk clock.Clock, m *metrics.Collector) *Service {
	if clk == nil {
		clk = clock.WallClock
	}
	if m == nil {
		m = metrics.NewCollector()
	}
	return &Service{
		store:      store,
		fetcher:    fetcher,
		classifier: classifier,
		clock:      clk,
		metrics:    m,
	}
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.clock.Now()
}
