package main

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/siamese/internal/dataset"
	"github.com/saturnino-fabrica-de-software/siamese/internal/metric"
	"github.com/saturnino-fabrica-de-software/siamese/internal/report"
)

var embeddingsCmd = &cobra.Command{
	Use:   "embeddings <manifest.yaml>",
	Short: "Summarize the embeddings of each class",
	Long: `Embed the samples of every class listed in the manifest and report how
tightly each class clusters around its centroid.

With --project, every sample also gets a 2-D t-SNE point, included in the
--json output for plotting.`,
	Args: cobra.ExactArgs(1),
	RunE: runEmbeddings,
}

func init() {
	rootCmd.AddCommand(embeddingsCmd)

	embeddingsCmd.Flags().Int("max-per-class", 0, "Limit samples per class (0 = no limit)")
	embeddingsCmd.Flags().Bool("normalize", false, "L2-normalize embeddings before averaging")
	embeddingsCmd.Flags().Int64("seed", 0, "Seed for --max-per-class subsampling")
	embeddingsCmd.Flags().Bool("project", false, "Add a 2-D t-SNE point per sample")
	embeddingsCmd.Flags().Int("perplexity", 0, "t-SNE perplexity (0 = min(samples-1, 5))")
	embeddingsCmd.Flags().Int("iterations", 0, "t-SNE iterations (0 = 100)")
}

func runEmbeddings(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	manifest, err := dataset.Load(args[0])
	if err != nil {
		return err
	}
	images, err := manifest.SampleImages()
	if err != nil {
		return err
	}
	if len(images) == 0 {
		return fmt.Errorf("manifest %s has no samples", args[0])
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	embedder, err := newEmbedder(cmd, cfg)
	if err != nil {
		return err
	}
	distance, err := metric.Lookup(cfg.DistanceMetric)
	if err != nil {
		return err
	}

	total := 0
	for _, imgs := range images {
		total += len(imgs)
	}

	jsonOutput := mustGetBool(cmd, "json")
	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(total,
			progressbar.OptionSetDescription("Computing embeddings"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("images"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
	}

	samples := make(map[string][][]float64, len(images))
	for label, imgs := range images {
		for i, img := range imgs {
			v, err := embedder.Embed(ctx, img)
			if err != nil {
				return fmt.Errorf("embed %s sample %d: %w", label, i, err)
			}
			samples[label] = append(samples[label], v)
			if bar != nil {
				_ = bar.Add(1)
			}
		}
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	summaries, err := report.Embeddings(samples, report.EmbeddingOptions{
		Metric:      distance,
		Normalize:   mustGetBool(cmd, "normalize"),
		MaxPerClass: mustGetInt(cmd, "max-per-class"),
		Seed:        mustGetInt64(cmd, "seed"),
		Project:     mustGetBool(cmd, "project"),
		Projection: report.ProjectionParams{
			Perplexity: mustGetInt(cmd, "perplexity"),
			Iterations: mustGetInt(cmd, "iterations"),
		},
	})
	if err != nil {
		return err
	}

	if jsonOutput {
		return outputJSON(summaries)
	}

	fmt.Printf("%-24s %8s %12s\n", "CLASS", "SAMPLES", "MEAN DIST")
	for _, s := range summaries {
		fmt.Printf("%-24s %8d %12.6f\n", s.Label, s.Count, s.MeanIntraDistance)
	}
	if mustGetBool(cmd, "project") {
		fmt.Println("\nProjected points are only printed with --json")
	}
	return nil
}
