package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/siamese/internal/dataset"
	"github.com/saturnino-fabrica-de-software/siamese/internal/report"
)

var histogramCmd = &cobra.Command{
	Use:   "histogram <manifest.yaml>",
	Short: "Show intra-class vs inter-class distance distributions",
	Long: `Embed every pair of the manifest and print the distances of matching
(intra-class, #) and non-matching (inter-class, =) pairs side by side.
Well separated distributions mean a single threshold can split them.`,
	Args: cobra.ExactArgs(1),
	RunE: runHistogram,
}

func init() {
	rootCmd.AddCommand(histogramCmd)

	histogramCmd.Flags().Int("bins", 20, "Number of histogram bins")
	histogramCmd.Flags().Int("width", 40, "Width of the longest bar")
}

func runHistogram(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	manifest, err := dataset.Load(args[0])
	if err != nil {
		return err
	}
	pairs, err := manifest.LabeledPairs()
	if err != nil {
		return err
	}

	model, _, err := newModel(cmd)
	if err != nil {
		return err
	}
	obs, err := model.Observe(ctx, pairs)
	if err != nil {
		return err
	}

	hist, err := report.NewHistogram(obs, mustGetInt(cmd, "bins"))
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "json") {
		return outputJSON(hist)
	}
	return hist.Render(os.Stdout, mustGetInt(cmd, "width"))
}
