package report

import (
	"errors"
	"fmt"
	"math"

	"github.com/danaugrs/go-tsne/tsne"
	"gonum.org/v1/gonum/mat"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
)

const projectionDims = 2

// ProjectionParams controla o t-SNE usado para projetar as amostras em 2-D.
// Zero values fall back to the defaults.
type ProjectionParams struct {
	Perplexity   int
	Iterations   int
	LearningRate int
}

func (p ProjectionParams) withDefaults(inputSize int) ProjectionParams {
	if p.Perplexity == 0 {
		p.Perplexity = min(inputSize-1, 5)
	}
	if p.Iterations == 0 {
		p.Iterations = 100
	}
	if p.LearningRate == 0 {
		p.LearningRate = 25
	}
	return p
}

func (p ProjectionParams) validate(inputSize, dims int) error {
	var errs []error
	if inputSize < 2 {
		errs = append(errs, fmt.Errorf("need at least 2 samples to project, got %d", inputSize))
	}
	if p.Perplexity < 1 || p.Perplexity >= inputSize {
		errs = append(errs, fmt.Errorf("perplexity must be in [1, %d), got %d", inputSize, p.Perplexity))
	}
	if p.Iterations < 1 {
		errs = append(errs, fmt.Errorf("iterations must be at least 1, got %d", p.Iterations))
	}
	if p.LearningRate < 1 {
		errs = append(errs, fmt.Errorf("learning rate must be at least 1, got %d", p.LearningRate))
	}
	if projectionDims >= dims {
		errs = append(errs, fmt.Errorf("embeddings must have more than %d dimensions, got %d", projectionDims, dims))
	}
	if len(errs) > 0 {
		return domain.ErrValidationFailed.WithError(errors.Join(errs...))
	}
	return nil
}

// project runs t-SNE over every row of vs jointly, so points of different
// classes share one plane.
func project(vs [][]float64, params ProjectionParams) ([][2]float64, error) {
	if len(vs) == 0 {
		return nil, domain.ErrInsufficientData
	}
	dims := len(vs[0])
	params = params.withDefaults(len(vs))
	if err := params.validate(len(vs), dims); err != nil {
		return nil, err
	}

	merged := make([]float64, len(vs)*dims)
	for i, v := range vs {
		copy(merged[i*dims:], v)
	}
	matrix := mat.NewDense(len(vs), dims, merged)

	t := tsne.NewTSNE(projectionDims, float64(params.Perplexity),
		float64(params.LearningRate), params.Iterations, false)
	t.EmbedData(matrix, nil)

	rows, cols := t.Y.Dims()
	if rows != len(vs) || cols != projectionDims {
		return nil, fmt.Errorf("unexpected t-SNE output %dx%d for %d samples", rows, cols, len(vs))
	}

	out := make([][2]float64, rows)
	for i := range out {
		for j := 0; j < projectionDims; j++ {
			y := t.Y.At(i, j)
			if math.IsNaN(y) || math.IsInf(y, 0) {
				return nil, fmt.Errorf("t-SNE diverged at sample %d", i)
			}
			out[i][j] = y
		}
	}
	return out, nil
}
