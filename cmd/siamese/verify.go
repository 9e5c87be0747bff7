package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/siamese/internal/dataset"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <image1> <image2>",
	Short: "Decide whether two images show the same identity",
	Long: `Score two images and compare their distance against a threshold, either
given directly or fitted on a manifest first.

Examples:
  siamese verify a.jpg b.jpg --threshold 0.42
  siamese verify a.jpg b.jpg --manifest pairs.yaml`,
	Args: cobra.ExactArgs(2),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().Float64("threshold", 0, "Distance threshold (pairs closer than this are the same)")
	verifyCmd.Flags().String("manifest", "", "Fit the threshold on this manifest instead")
}

type VerifyResult struct {
	Same      bool    `json:"same"`
	Distance  float64 `json:"distance"`
	Threshold float64 `json:"threshold"`
}

func runVerify(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	threshold := mustGetFloat64(cmd, "threshold")
	manifestPath := mustGetString(cmd, "manifest")
	if manifestPath == "" && !cmd.Flags().Changed("threshold") {
		return fmt.Errorf("either --threshold or --manifest is required")
	}

	first, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	second, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[1], err)
	}

	model, _, err := newModel(cmd)
	if err != nil {
		return err
	}

	if manifestPath != "" {
		manifest, err := dataset.Load(manifestPath)
		if err != nil {
			return err
		}
		pairs, err := manifest.LabeledPairs()
		if err != nil {
			return err
		}
		if threshold, err = model.Fit(ctx, pairs); err != nil {
			return fmt.Errorf("fit threshold: %w", err)
		}
	} else if err := model.Classifier().Restore(threshold, 0); err != nil {
		return err
	}

	distance, err := model.Scorer().Score(ctx, first, second)
	if err != nil {
		return err
	}
	same, err := model.Classifier().Decide(distance)
	if err != nil {
		return err
	}

	result := VerifyResult{Same: same, Distance: distance, Threshold: threshold}
	if mustGetBool(cmd, "json") {
		return outputJSON(result)
	}

	verdict := "different"
	if same {
		verdict = "same"
	}
	fmt.Printf("%s (distance %.6f, threshold %.6f)\n", verdict, distance, threshold)
	return nil
}
