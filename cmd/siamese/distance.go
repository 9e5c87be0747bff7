package main

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/siamese/internal/dataset"
)

var distanceCmd = &cobra.Command{
	Use:   "distance <manifest.yaml>",
	Short: "Print the distance of every pair in a manifest",
	Args:  cobra.ExactArgs(1),
	RunE:  runDistance,
}

func init() {
	rootCmd.AddCommand(distanceCmd)
}

type PairDistance struct {
	First    string  `json:"first"`
	Second   string  `json:"second"`
	Same     bool    `json:"same"`
	Distance float64 `json:"distance"`
}

func runDistance(cmd *cobra.Command, args []string) error {
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
	scorer := model.Scorer()

	jsonOutput := mustGetBool(cmd, "json")
	var bar *progressbar.ProgressBar
	if !jsonOutput {
		bar = progressbar.NewOptions(len(pairs),
			progressbar.OptionSetDescription("Scoring pairs"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("pairs"),
			progressbar.OptionShowElapsedTimeOnFinish(),
			progressbar.OptionFullWidth(),
		)
	}

	results := make([]PairDistance, len(pairs))
	for i, p := range pairs {
		d, err := scorer.Score(ctx, p.First, p.Second)
		if err != nil {
			return fmt.Errorf("pair %d (%s, %s): %w", i, manifest.Pairs[i].First, manifest.Pairs[i].Second, err)
		}
		results[i] = PairDistance{
			First:    manifest.Pairs[i].First,
			Second:   manifest.Pairs[i].Second,
			Same:     p.IsSame,
			Distance: d,
		}
		if bar != nil {
			_ = bar.Add(1)
		}
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Println()
	}

	if jsonOutput {
		return outputJSON(results)
	}

	for _, r := range results {
		label := "diff"
		if r.Same {
			label = "same"
		}
		fmt.Printf("%.6f  %s  %s  %s\n", r.Distance, label, r.First, r.Second)
	}
	return nil
}
