package metric

import (
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
)

// Normalize returns a copy of v scaled to unit L2 norm.
// A zero, empty or non-finite vector cannot be normalized and yields domain.ErrDegenerateVector.
func Normalize(v []float64) ([]float64, error) {
	return unit(v)
}

// unit divides v by its largest absolute component before taking the norm,
// so finite vectors anywhere in float64 range normalize without the sum of
// squares overflowing or underflowing.
func unit(v []float64) ([]float64, error) {
	if len(v) == 0 {
		return nil, domain.ErrDegenerateVector.WithError(fmt.Errorf("empty vector"))
	}

	var scale float64
	for _, x := range v {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return nil, domain.ErrDegenerateVector.WithError(fmt.Errorf("non-finite component"))
		}
		scale = math.Max(scale, math.Abs(x))
	}
	if scale == 0 {
		return nil, domain.ErrDegenerateVector.WithError(fmt.Errorf("zero norm"))
	}

	out := make([]float64, len(v))
	var sum float64
	for i, x := range v {
		out[i] = x / scale
		sum += out[i] * out[i]
	}

	// sum >= 1 because the largest component scales to ±1
	n := math.Sqrt(sum)
	for i := range out {
		out[i] /= n
	}
	return out, nil
}
