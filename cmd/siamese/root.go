package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/siamese/internal/cache"
	"github.com/saturnino-fabrica-de-software/siamese/internal/config"
	"github.com/saturnino-fabrica-de-software/siamese/internal/face"
	"github.com/saturnino-fabrica-de-software/siamese/internal/metric"
	"github.com/saturnino-fabrica-de-software/siamese/internal/siamese"
)

var rootCmd = &cobra.Command{
	Use:   "siamese",
	Short: "Fit and inspect distance thresholds for image pair verification",
	Long: `siamese embeds image pairs with a face recognition backbone, fits the
distance threshold that best separates matching from non-matching pairs and
reports how the two distance distributions overlap.

Datasets are YAML manifests:

  root: ./images
  pairs:
    - {first: alice/1.jpg, second: alice/2.jpg, same: true}
    - {first: alice/1.jpg, second: bob/1.jpg, same: false}
  samples:
    alice: [alice/1.jpg, alice/2.jpg]
    bob: [bob/1.jpg]`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := rootCmd.PersistentFlags()
	flags.String("provider", config.ProviderDeepFace, "Embedding backbone: deepface or mock")
	flags.String("deepface-url", "http://localhost:5005", "DeepFace service URL")
	flags.String("model", "Facenet512", "DeepFace model name")
	flags.String("detector", "retinaface", "DeepFace face detector")
	flags.String("metric", metric.Default, "Distance metric")
	flags.Int("concurrency", 4, "Number of images embedded in parallel")
	flags.Int("cache-size", 1024, "Embeddings kept in memory")
	flags.Bool("json", false, "Output as JSON")
	flags.Bool("verbose", false, "Log debug output to stderr")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// loadConfig builds the backbone settings from flags; the CLI never talks
// to the database so DATABASE_URL is not needed.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg := &config.Config{
		Environment:        "development",
		ProviderType:       mustGetString(cmd, "provider"),
		DeepFaceURL:        mustGetString(cmd, "deepface-url"),
		DeepFaceModel:      mustGetString(cmd, "model"),
		DeepFaceDetector:   mustGetString(cmd, "detector"),
		DistanceMetric:     mustGetString(cmd, "metric"),
		LossMargin:         siamese.DefaultMargin,
		EmbedConcurrency:   mustGetInt(cmd, "concurrency"),
		EmbeddingCacheSize: mustGetInt(cmd, "cache-size"),
		HistogramBins:      1,
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	level := slog.LevelWarn
	if mustGetBool(cmd, "verbose") {
		level = slog.LevelDebug
	}
	return config.NewLogger(config.LoggerOptions{
		Env:    "cli",
		Level:  level,
		Output: cmd.ErrOrStderr(),
	})
}

// newEmbedder returns the configured backbone behind an in-memory cache
func newEmbedder(cmd *cobra.Command, cfg *config.Config) (*cache.Embedder, error) {
	backbone, err := face.NewBackbone(cfg)
	if err != nil {
		return nil, err
	}
	return cache.NewEmbedder(backbone, cfg.EmbeddingCacheSize, nil, newLogger(cmd))
}

// newModel wires config into an unfit ThresholdSiamese over raw image bytes
func newModel(cmd *cobra.Command) (*siamese.ThresholdSiamese[[]byte], *config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	embedder, err := newEmbedder(cmd, cfg)
	if err != nil {
		return nil, nil, err
	}
	distance, err := metric.Lookup(cfg.DistanceMetric)
	if err != nil {
		return nil, nil, err
	}

	scorer := siamese.NewScorer[[]byte](embedder,
		siamese.WithMetric(distance),
		siamese.WithConcurrency(cfg.EmbedConcurrency),
	)
	return siamese.NewThresholdSiamese(scorer, nil), cfg, nil
}

func outputJSON(data any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
