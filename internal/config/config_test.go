package config

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(t *testing.T, c *Config)
	}{
		{
			name: "loads with all vars",
			envVars: map[string]string{
				"PORT":                 "8080",
				"ENV":                  "production",
				"DATABASE_URL":         "postgres://localhost/test",
				"PROVIDER_TYPE":        "mock",
				"DEEPFACE_TIMEOUT":     "5s",
				"DISTANCE_METRIC":      "cosine",
				"LOSS_MARGIN":          "2.5",
				"EMBED_CONCURRENCY":    "8",
				"EMBEDDING_CACHE_SIZE": "0",
				"HISTOGRAM_BINS":       "40",
				"METRICS_ENABLED":      "false",
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 8080, c.Port)
				assert.Equal(t, "production", c.Environment)
				assert.Equal(t, "postgres://localhost/test", c.DatabaseURL)
				assert.Equal(t, ProviderMock, c.ProviderType)
				assert.Equal(t, 5*time.Second, c.DeepFaceTimeout)
				assert.Equal(t, "cosine", c.DistanceMetric)
				assert.Equal(t, 2.5, c.LossMargin)
				assert.Equal(t, 8, c.EmbedConcurrency)
				assert.Equal(t, 0, c.EmbeddingCacheSize)
				assert.Equal(t, 40, c.HistogramBins)
				assert.False(t, c.MetricsEnabled)
			},
		},
		{
			name: "uses defaults when optional vars missing",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/test",
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, 3000, c.Port)
				assert.Equal(t, "development", c.Environment)
				assert.Equal(t, ProviderDeepFace, c.ProviderType)
				assert.Equal(t, "Facenet512", c.DeepFaceModel)
				assert.Equal(t, "normalized_squared_euclidean", c.DistanceMetric)
				assert.Equal(t, 1.0, c.LossMargin)
				assert.Equal(t, 4, c.EmbedConcurrency)
				assert.Equal(t, 20, c.HistogramBins)
				assert.True(t, c.MetricsEnabled)
			},
		},
		{
			name:    "fails when DATABASE_URL missing",
			envVars: map[string]string{},
			wantErr: true,
		},
		{
			name: "fails on unknown provider",
			envVars: map[string]string{
				"DATABASE_URL":  "postgres://localhost/test",
				"PROVIDER_TYPE": "rekognition",
			},
			wantErr: true,
		},
		{
			name: "fails on unknown metric",
			envVars: map[string]string{
				"DATABASE_URL":    "postgres://localhost/test",
				"DISTANCE_METRIC": "manhattan",
			},
			wantErr: true,
		},
		{
			name: "fails on non-positive margin",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/test",
				"LOSS_MARGIN":  "0",
			},
			wantErr: true,
		},
		{
			name: "loads webhook settings",
			envVars: map[string]string{
				"DATABASE_URL":         "postgres://localhost/test",
				"WEBHOOK_URL":          "https://hooks.example.com/siamese",
				"WEBHOOK_SECRET":       "s3cret",
				"WEBHOOK_EVENTS":       "classifier.fitted,classifier.deleted",
				"WEBHOOK_MAX_ATTEMPTS": "3",
			},
			check: func(t *testing.T, c *Config) {
				assert.Equal(t, "https://hooks.example.com/siamese", c.WebhookURL)
				assert.Equal(t, []string{"classifier.fitted", "classifier.deleted"}, c.WebhookEvents)
				assert.Equal(t, 3, c.WebhookMaxAttempts)
			},
		},
		{
			name: "fails on webhook without secret",
			envVars: map[string]string{
				"DATABASE_URL": "postgres://localhost/test",
				"WEBHOOK_URL":  "https://hooks.example.com/siamese",
			},
			wantErr: true,
		},
		{
			name: "fails on zero histogram bins",
			envVars: map[string]string{
				"DATABASE_URL":   "postgres://localhost/test",
				"HISTOGRAM_BINS": "0",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.envVars {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			tt.check(t, cfg)
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := Config{
		ProviderType:       ProviderMock,
		DistanceMetric:     "euclidean",
		LossMargin:         1,
		EmbedConcurrency:   1,
		EmbeddingCacheSize: 16,
		HistogramBins:      10,
	}
	assert.NoError(t, valid.Validate())

	bad := valid
	bad.EmbedConcurrency = 0
	assert.Error(t, bad.Validate())

	bad = valid
	bad.EmbeddingCacheSize = -1
	assert.Error(t, bad.Validate())
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"development", "development", true},
		{"production", "production", false},
		{"staging", "staging", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			assert.Equal(t, tt.want, c.IsDevelopment())
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name string
		env  string
		want bool
	}{
		{"production", "production", true},
		{"development", "development", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Config{Environment: tt.env}
			assert.Equal(t, tt.want, c.IsProduction())
		})
	}
}

func TestNewLogger(t *testing.T) {
	t.Run("production writes JSON at info", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LoggerOptions{Env: "production", Output: &buf})

		logger.Debug("hidden")
		logger.Info("classifier fitted", slog.String("classifier", "faces"))

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "classifier fitted", line["msg"])
		assert.Equal(t, "faces", line["classifier"])
		assert.NotContains(t, buf.String(), "hidden")
	})

	t.Run("development writes text at debug", func(t *testing.T) {
		var buf bytes.Buffer
		NewLogger(LoggerOptions{Env: "development", Output: &buf}).Debug("restored")

		assert.Contains(t, buf.String(), "level=DEBUG")
		assert.Contains(t, buf.String(), "msg=restored")
		assert.Contains(t, buf.String(), "source=")
	})

	t.Run("level overrides the environment default", func(t *testing.T) {
		var buf bytes.Buffer
		logger := NewLogger(LoggerOptions{Env: "cli", Level: slog.LevelWarn, Output: &buf})

		logger.Info("hidden")
		logger.Warn("store unavailable")

		assert.NotContains(t, buf.String(), "hidden")
		assert.Contains(t, buf.String(), "store unavailable")
		assert.NotContains(t, buf.String(), "source=")
	})
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Leveler
		wantErr bool
	}{
		{in: "", want: nil},
		{in: "debug", want: slog.LevelDebug},
		{in: "WARN", want: slog.LevelWarn},
		{in: " error ", want: slog.LevelError},
		{in: "verbose", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLevel(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
