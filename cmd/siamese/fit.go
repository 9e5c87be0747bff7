package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/siamese/internal/dataset"
	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
)

var fitCmd = &cobra.Command{
	Use:   "fit <manifest.yaml>",
	Short: "Fit the distance threshold on a labelled pair manifest",
	Long: `Embed every pair of the manifest and pick the threshold that classifies
the most pairs correctly. Pairs closer than the threshold are the same identity.

Examples:
  # Fit with the DeepFace backbone
  siamese fit pairs.yaml

  # Use cosine distance and print JSON
  siamese fit pairs.yaml --metric cosine --json`,
	Args: cobra.ExactArgs(1),
	RunE: runFit,
}

func init() {
	rootCmd.AddCommand(fitCmd)
}

type FitResult struct {
	Manifest       string  `json:"manifest"`
	Metric         string  `json:"metric"`
	Threshold      float64 `json:"threshold"`
	Accuracy       float64 `json:"accuracy"`
	Observations   int     `json:"observations"`
	SamePairs      int     `json:"same_pairs"`
	DifferentPairs int     `json:"different_pairs"`
}

func runFit(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	manifest, err := dataset.Load(args[0])
	if err != nil {
		return err
	}
	pairs, err := manifest.LabeledPairs()
	if err != nil {
		return err
	}

	model, cfg, err := newModel(cmd)
	if err != nil {
		return err
	}

	obs, err := model.Observe(ctx, pairs)
	if err != nil {
		return err
	}
	threshold, err := model.Classifier().Fit(obs)
	if err != nil {
		return fmt.Errorf("fit threshold: %w", err)
	}

	same, diff := domain.CountLabels(obs)
	result := FitResult{
		Manifest:       args[0],
		Metric:         cfg.DistanceMetric,
		Threshold:      threshold,
		Accuracy:       model.Classifier().Accuracy(),
		Observations:   len(obs),
		SamePairs:      same,
		DifferentPairs: diff,
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(result)
	}

	fmt.Printf("Metric:       %s\n", result.Metric)
	fmt.Printf("Pairs:        %d (%d same, %d different)\n", result.Observations, same, diff)
	fmt.Printf("Threshold:    %.6f\n", result.Threshold)
	fmt.Printf("Accuracy:     %.2f%%\n", result.Accuracy*100)
	return nil
}
