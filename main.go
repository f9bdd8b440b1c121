package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/juju/clock"
	"github.com/juju/errors"
	"github.com/juju/loggo/v2"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/xiaot623/newsstream/internal/adapter/newsapi"
	"github.com/xiaot623/newsstream/internal/adapter/rss"
	"github.com/xiaot623/newsstream/internal/classify"
	"github.com/xiaot623/newsstream/internal/config"
	"github.com/xiaot623/newsstream/internal/hub"
	"github.com/xiaot623/newsstream/internal/metrics"
	"github.com/xiaot623/newsstream/internal/repository"
	"github.com/xiaot623/newsstream/internal/service"
	internalhttp "github.com/xiaot623/newsstream/internal/transport/http"
	"github.com/xiaot623/newsstream/internal/transport/ws"
	"github.com/xiaot623/newsstream/policy"
)

var logger = loggo.GetLogger("newsstream")

func main() {
	// Load configuration
	cfg := config.Load()

	if err := loggo.ConfigureLoggers("<root>=" + strings.ToUpper(cfg.LogLevel)); err != nil {
		logger.Warningf("invalid LOG_LEVEL %q: %v", cfg.LogLevel, err)
	}

	logger.Infof("Starting news stream service...")
	logger.Infof("WebSocket Port: %d", cfg.WSPort)
	logger.Infof("HTTP Port: %d", cfg.HTTPPort)
	logger.Infof("Database: %s", cfg.DatabaseURL)
	logger.Infof("Upstream: %s", cfg.Upstream)
	logger.Infof("Stream interval: %s", cfg.StreamInterval)

	// Initialize store
	db, err := repository.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize upstream client
	fetcher, err := newFetcher(cfg)
	if err != nil {
		fatalf("Failed to initialize upstream: %v", err)
	}

	// Initialize classifier
	classifier, err := newClassifier(cfg.CategoryKeywordsFile)
	if err != nil {
		fatalf("Failed to load category keywords: %v", err)
	}

	// Initialize metrics
	collector := metrics.NewCollector()
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collector,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize service
	svc := service.New(db, fetcher, classifier, clock.WallClock, collector)

	// Initialize hub
	hubCtx, stopHub := context.WithCancel(ctx)
	connectionHub := hub.NewHub()
	go connectionHub.Run(hubCtx)

	// Initialize WebSocket server
	wsServer := ws.NewServer(cfg, connectionHub, svc, clock.WallClock, collector)

	// Create WebSocket Echo server
	wsEcho := echo.New()
	wsEcho.HideBanner = true
	wsEcho.HidePort = true
	wsEcho.Use(middleware.Logger())
	wsEcho.Use(middleware.Recover())
	wsEcho.GET("/ws", wsServer.HandleStream)

	// Initialize query HTTP server
	httpServer := internalhttp.NewServer(svc, policyEngine, connectionHub, registry)
	httpServer.HidePort = true

	// Start WebSocket server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.WSPort)
		if err := wsEcho.Start(addr); err != nil && err != http.ErrServerClosed {
			fatalf("Failed to start WebSocket server: %v", err)
		}
	}()

	// Start query HTTP server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := httpServer.Start(addr); err != nil && err != http.ErrServerClosed {
			fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	logger.Infof("WebSocket server started on port %d", cfg.WSPort)
	logger.Infof("HTTP server started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Infof("Shutting down news stream service...")

	// Close every stream so clients receive a close frame.
	stopHub()

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Shutdown both servers
	if err := wsEcho.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Failed to shutdown WebSocket server gracefully: %v", err)
	}
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Failed to shutdown HTTP server gracefully: %v", err)
	}

	logger.Infof("News stream service stopped")
}

func newFetcher(cfg *config.Config) (service.Fetcher, error) {
	switch cfg.Upstream {
	case config.UpstreamNewsAPI:
		if cfg.NewsAPIKey == "" {
			logger.Warningf("NEWS_API_KEY is not set; upstream requests will be rejected")
		}
		return newsapi.NewClient(cfg.NewsAPIURL, cfg.NewsAPIKey, cfg.NewsQuery, cfg.NewsLanguage, cfg.UpstreamTimeout), nil
	case config.UpstreamRSS:
		if len(cfg.RSSFeedURLs) == 0 {
			return nil, errors.NotValidf("RSS_FEED_URLS is empty; upstream %q", cfg.Upstream)
		}
		return rss.NewClient(cfg.RSSFeedURLs, cfg.UpstreamTimeout), nil
	default:
		return nil, errors.NotValidf("upstream %q", cfg.Upstream)
	}
}

func newClassifier(path string) (*classify.Classifier, error) {
	classifier := classify.New()
	if path == "" {
		return classifier, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer f.Close()

	extra, err := classify.LoadKeywords(f)
	if err != nil {
		return nil, errors.Annotatef(err, "parsing %s", path)
	}
	logger.Infof("Loaded extra keywords for %d categories from %s", len(extra), path)
	return classifier.WithExtraKeywords(extra)
}

func fatalf(format string, args ...interface{}) {
	logger.Criticalf(format, args...)
	os.Exit(1)
}
