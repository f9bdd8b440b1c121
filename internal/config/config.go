// Package config provides configuration for the news stream service.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Upstream sources
const (
	UpstreamNewsAPI = "newsapi"
	UpstreamRSS     = "rss"
)

// Config holds the service configuration.
type Config struct {
	// Server settings
	WSPort   int // WebSocket streaming port
	HTTPPort int // REST query port for /api/*, /metrics

	// Storage
	DatabaseURL string

	// Upstream settings
	Upstream        string
	NewsAPIURL      string
	NewsAPIKey      string
	NewsQuery       string
	NewsLanguage    string
	RSSFeedURLs     []string
	UpstreamTimeout time.Duration

	// Streaming
	StreamInterval       time.Duration
	StreamAnnounceResume bool

	// Classification
	CategoryKeywordsFile string

	// WebSocket settings
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	ReadTimeout    time.Duration
	MaxMessageSize int64

	// Logging
	LogLevel string
}

const defaultStreamIntervalSeconds = 120

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		WSPort:               getEnvInt("WS_PORT", 8090),
		HTTPPort:             getEnvInt("HTTP_PORT", 8091),
		DatabaseURL:          getEnv("DATABASE_URL", "file:newsstream.db?cache=shared&mode=rwc"),
		Upstream:             strings.ToLower(getEnv("UPSTREAM", UpstreamNewsAPI)),
		NewsAPIURL:           getEnv("NEWS_API_URL", "https://newsapi.org/v2"),
		NewsAPIKey:           getEnv("NEWS_API_KEY", ""),
		NewsQuery:            getEnv("NEWS_QUERY", "India"),
		NewsLanguage:         getEnv("NEWS_LANGUAGE", "en"),
		RSSFeedURLs:          getEnvList("RSS_FEED_URLS"),
		UpstreamTimeout:      time.Duration(getEnvInt("UPSTREAM_TIMEOUT_MS", 30000)) * time.Millisecond,
		StreamInterval:       streamInterval(),
		StreamAnnounceResume: getEnvBool("STREAM_ANNOUNCE_RESUME", false),
		CategoryKeywordsFile: getEnv("CATEGORY_KEYWORDS_FILE", ""),
		PingInterval:         time.Duration(getEnvInt("WS_PING_INTERVAL_MS", 30000)) * time.Millisecond,
		WriteTimeout:         time.Duration(getEnvInt("WS_WRITE_TIMEOUT_MS", 10000)) * time.Millisecond,
		ReadTimeout:          time.Duration(getEnvInt("WS_READ_TIMEOUT_MS", 60000)) * time.Millisecond,
		MaxMessageSize:       int64(getEnvInt("WS_MAX_MESSAGE_SIZE", 65536)),
		LogLevel:             getEnv("LOG_LEVEL", "info"),
	}
}

// streamInterval falls back to the default for zero, negative or
// unparseable values.
func streamInterval() time.Duration {
	secs := getEnvInt("STREAM_INTERVAL_SECONDS", defaultStreamIntervalSeconds)
	if secs <= 0 {
		secs = defaultStreamIntervalSeconds
	}
	return time.Duration(secs) * time.Second
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}

func getEnvList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
