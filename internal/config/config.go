package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Common contains Elasticsearch parameters shared by every service.
type Common struct {
	ElasticsearchAddr  string
	ElasticsearchIndex string
}

// Worker holds configuration for the Kafka -> Elasticsearch ingest worker.
type Worker struct {
	Common
	KafkaBrokers     []string
	KafkaTopic       string
	KafkaConsumer    string
	KeywordsFile     string
	KeywordLimit     int
	KeywordMinLength int
	DedupeCapacity   int
	DedupeTTL        time.Duration
	BatchSize        int
	CommitInterval   time.Duration
}

// API describes HTTP-layer configuration.
type API struct {
	Common
	BindAddr     string
	KeywordsFile string
	DefaultPage  int
	MaxPage      int
	FeedSize     int
}

// Retention configures the cleanup loop.
type Retention struct {
	Common
	Interval  time.Duration
	MaxAge    time.Duration
	BatchSize int
}

// maxFeedSize caps how many records one sports page is built from.
const maxFeedSize = 1000

// LoadWorker builds a Worker config from environment variables.
func LoadWorker() (*Worker, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	c := &Worker{
		Common:           loadCommon(),
		KafkaBrokers:     splitAndTrim(getEnv("KAFKA_BROKERS", "kafka:9092")),
		KafkaTopic:       getEnv("KAFKA_TOPIC", "news_published"),
		KafkaConsumer:    getEnv("KAFKA_CONSUMER_GROUP", "sports-desk-worker"),
		KeywordsFile:     getEnv("SPORTS_KEYWORDS_FILE", ""),
		KeywordLimit:     getInt("WORKER_KEYWORD_LIMIT", 8),
		KeywordMinLength: getInt("WORKER_KEYWORD_MIN_LEN", 3),
		DedupeCapacity:   getInt("WORKER_DEDUPE_CAPACITY", 20000),
		DedupeTTL:        getDuration("WORKER_DEDUPE_TTL", "24h"),
		BatchSize:        getInt("WORKER_BATCH_SIZE", 10),
		CommitInterval:   getDuration("WORKER_COMMIT_INTERVAL", "2s"),
	}

	if len(c.KafkaBrokers) == 0 {
		return nil, fmt.Errorf("KAFKA_BROKERS must contain at least one broker")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("WORKER_BATCH_SIZE must be positive")
	}
	if c.DedupeCapacity <= 0 {
		return nil, fmt.Errorf("WORKER_DEDUPE_CAPACITY must be positive")
	}
	if c.KeywordLimit <= 0 {
		return nil, fmt.Errorf("WORKER_KEYWORD_LIMIT must be positive")
	}
	if c.KeywordMinLength < 0 {
		return nil, fmt.Errorf("WORKER_KEYWORD_MIN_LEN cannot be negative")
	}

	return c, nil
}

// LoadAPI builds an API config from environment variables.
func LoadAPI() (*API, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	c := &API{
		Common:       loadCommon(),
		BindAddr:     getEnv("API_BIND_ADDR", "0.0.0.0:8080"),
		KeywordsFile: getEnv("SPORTS_KEYWORDS_FILE", ""),
		DefaultPage:  getInt("API_PAGE_SIZE", 20),
		MaxPage:      getInt("API_MAX_PAGE_SIZE", 100),
		FeedSize:     getInt("API_FEED_SIZE", 300),
	}

	if c.DefaultPage <= 0 {
		return nil, fmt.Errorf("API_PAGE_SIZE must be positive")
	}
	if c.MaxPage <= 0 {
		return nil, fmt.Errorf("API_MAX_PAGE_SIZE must be positive")
	}
	if c.DefaultPage > c.MaxPage {
		return nil, fmt.Errorf("API_PAGE_SIZE cannot exceed API_MAX_PAGE_SIZE")
	}
	if c.FeedSize <= 0 || c.FeedSize > maxFeedSize {
		return nil, fmt.Errorf("API_FEED_SIZE must be between 1 and %d", maxFeedSize)
	}

	return c, nil
}

// LoadRetention builds a Retention config from environment variables.
func LoadRetention() (*Retention, error) {
	if err := loadDotEnv(); err != nil {
		return nil, err
	}

	c := &Retention{
		Common:    loadCommon(),
		Interval:  getDuration("RETENTION_CRON", "24h"),
		MaxAge:    getDuration("RETENTION_MAX_AGE", "720h"),
		BatchSize: getInt("RETENTION_BATCH_SIZE", 500),
	}

	if c.MaxAge <= 0 {
		return nil, fmt.Errorf("RETENTION_MAX_AGE must be positive")
	}
	if c.Interval <= 0 {
		return nil, fmt.Errorf("RETENTION_CRON must be positive")
	}
	if c.BatchSize <= 0 {
		return nil, fmt.Errorf("RETENTION_BATCH_SIZE must be positive")
	}

	return c, nil
}

func loadCommon() Common {
	return Common{
		ElasticsearchAddr:  getEnv("ELASTICSEARCH_ADDR", "http://elasticsearch:9200"),
		ElasticsearchIndex: getEnv("ELASTICSEARCH_INDEX", "news"),
	}
}

// loadDotEnv reads ENV_FILE (default .env) when it exists. Variables already
// set in the environment win.
func loadDotEnv() error {
	path := getEnv("ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key, fallback string) time.Duration {
	if d, err := time.ParseDuration(getEnv(key, fallback)); err == nil {
		return d
	}
	d, err := time.ParseDuration(fallback)
	if err != nil {
		panic(fmt.Sprintf("invalid fallback duration %q: %v", fallback, err))
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
