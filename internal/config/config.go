package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/saturnino-fabrica-de-software/siamese/internal/metric"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database
	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Provider
	ProviderType     string        `envconfig:"PROVIDER_TYPE" default:"deepface"`
	DeepFaceURL      string        `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	DeepFaceModel    string        `envconfig:"DEEPFACE_MODEL" default:"Facenet512"`
	DeepFaceDetector string        `envconfig:"DEEPFACE_DETECTOR" default:"retinaface"`
	DeepFaceTimeout  time.Duration `envconfig:"DEEPFACE_TIMEOUT" default:"30s"`

	// Siamese
	DistanceMetric     string  `envconfig:"DISTANCE_METRIC" default:"normalized_squared_euclidean"`
	LossMargin         float64 `envconfig:"LOSS_MARGIN" default:"1.0"`
	EmbedConcurrency   int     `envconfig:"EMBED_CONCURRENCY" default:"4"`
	EmbeddingCacheSize int     `envconfig:"EMBEDDING_CACHE_SIZE" default:"1024"`
	HistogramBins      int     `envconfig:"HISTOGRAM_BINS" default:"20"`

	// Webhook; disabled when WebhookURL is empty
	WebhookURL         string   `envconfig:"WEBHOOK_URL"`
	WebhookSecret      string   `envconfig:"WEBHOOK_SECRET"`
	WebhookEvents      []string `envconfig:"WEBHOOK_EVENTS"`
	WebhookMaxAttempts int      `envconfig:"WEBHOOK_MAX_ATTEMPTS" default:"5"`

	// Observability
	MetricsEnabled bool   `envconfig:"METRICS_ENABLED" default:"true"`
	LogLevel       string `envconfig:"LOG_LEVEL"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate rejects values the service cannot start with
func (c *Config) Validate() error {
	switch c.ProviderType {
	case ProviderDeepFace, ProviderMock:
	default:
		return fmt.Errorf("unknown provider type %q (supported: %s, %s)", c.ProviderType, ProviderDeepFace, ProviderMock)
	}
	if _, err := metric.Lookup(c.DistanceMetric); err != nil {
		return fmt.Errorf("distance metric %q: %w", c.DistanceMetric, err)
	}
	if c.LossMargin <= 0 {
		return fmt.Errorf("LOSS_MARGIN must be positive, got %v", c.LossMargin)
	}
	if c.EmbedConcurrency < 1 {
		return fmt.Errorf("EMBED_CONCURRENCY must be at least 1, got %d", c.EmbedConcurrency)
	}
	if c.EmbeddingCacheSize < 0 {
		return fmt.Errorf("EMBEDDING_CACHE_SIZE must not be negative, got %d", c.EmbeddingCacheSize)
	}
	if c.HistogramBins < 1 {
		return fmt.Errorf("HISTOGRAM_BINS must be at least 1, got %d", c.HistogramBins)
	}
	if c.WebhookURL != "" && c.WebhookSecret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required when WEBHOOK_URL is set")
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return nil
}

const (
	ProviderDeepFace = "deepface"
	ProviderMock     = "mock"
)

// Logger builds the service logger from ENV and LOG_LEVEL
func (c *Config) Logger() *slog.Logger {
	level, _ := ParseLevel(c.LogLevel)
	return NewLogger(LoggerOptions{Env: c.Environment, Level: level})
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
