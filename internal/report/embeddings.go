package report

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
	"github.com/saturnino-fabrica-de-software/siamese/internal/metric"
)

// ClassSummary describes how one class sits in feature space
type ClassSummary struct {
	Label             string    `json:"label"`
	Count             int       `json:"count"`
	Centroid          []float64 `json:"centroid"`
	MeanIntraDistance float64   `json:"mean_intra_distance"`
	// Points holds one 2-D t-SNE point per sample, in sample order
	Points [][2]float64 `json:"points,omitempty"`
}

type EmbeddingOptions struct {
	// Metric defaults to metric.NormalizedSquaredEuclidean
	Metric metric.Func
	// Normalize scales every embedding to unit length before summarising
	Normalize bool
	// MaxPerClass keeps a random subset of N samples per class; 0 keeps all
	MaxPerClass int
	// Seed drives the subsampling, so a run can be repeated
	Seed int64
	// Project adds a t-SNE point per sample to every summary
	Project    bool
	Projection ProjectionParams
}

// Embeddings summarises labelled embeddings per class, sorted by label.
// Classes with a single sample report a mean intra distance of zero.
func Embeddings(samples map[string][][]float64, opts EmbeddingOptions) ([]ClassSummary, error) {
	if len(samples) == 0 {
		return nil, domain.ErrInsufficientData
	}
	fn := opts.Metric
	if fn == nil {
		fn = metric.NormalizedSquaredEuclidean
	}

	labels := make([]string, 0, len(samples))
	for label := range samples {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	rng := rand.New(rand.NewSource(opts.Seed))

	dim := -1
	out := make([]ClassSummary, 0, len(labels))
	var kept [][]float64
	for _, label := range labels {
		vs := subsample(rng, samples[label], opts.MaxPerClass)
		if len(vs) == 0 {
			continue
		}

		if opts.Normalize {
			normed := make([][]float64, len(vs))
			for i, v := range vs {
				n, err := metric.Normalize(v)
				if err != nil {
					return nil, fmt.Errorf("class %q sample %d: %w", label, i, err)
				}
				normed[i] = n
			}
			vs = normed
		}

		centroid := make([]float64, len(vs[0]))
		for i, v := range vs {
			if dim >= 0 && len(v) != dim {
				return nil, fmt.Errorf("class %q sample %d: %w", label, i, domain.ErrDimensionMismatch)
			}
			dim = len(v)
			for j, x := range v {
				centroid[j] += x
			}
		}
		for j := range centroid {
			centroid[j] /= float64(len(vs))
		}

		var sum float64
		var pairs int
		for i := 0; i < len(vs); i++ {
			for j := i + 1; j < len(vs); j++ {
				d, err := fn(vs[i], vs[j])
				if err != nil {
					return nil, fmt.Errorf("class %q samples %d/%d: %w", label, i, j, err)
				}
				sum += d
				pairs++
			}
		}
		mean := 0.0
		if pairs > 0 {
			mean = sum / float64(pairs)
		}

		out = append(out, ClassSummary{
			Label:             label,
			Count:             len(vs),
			Centroid:          centroid,
			MeanIntraDistance: mean,
		})
		kept = append(kept, vs...)
	}

	if len(out) == 0 {
		return nil, domain.ErrInsufficientData
	}

	if opts.Project {
		points, err := project(kept, opts.Projection)
		if err != nil {
			return nil, fmt.Errorf("project embeddings: %w", err)
		}
		offset := 0
		for i := range out {
			out[i].Points = points[offset : offset+out[i].Count]
			offset += out[i].Count
		}
	}
	return out, nil
}

// subsample picks n samples at random and keeps them in their input order
func subsample(rng *rand.Rand, vs [][]float64, n int) [][]float64 {
	if n <= 0 || len(vs) <= n {
		return vs
	}
	idx := rng.Perm(len(vs))[:n]
	sort.Ints(idx)
	picked := make([][]float64, n)
	for i, j := range idx {
		picked[i] = vs[j]
	}
	return picked
}
