package siamese

import (
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
)

// DefaultMargin is the contrastive margin used when none is given.
const DefaultMargin = 1.0

// Reduction selects how Batch combines per-pair losses.
type Reduction string

const (
	ReductionMean Reduction = "mean"
	ReductionSum  Reduction = "sum"
	ReductionNone Reduction = "none"
)

// ContrastiveLoss is a hinge loss over distances: matching pairs pay their
// distance, non-matching pairs pay how far they fall short of Margin.
type ContrastiveLoss struct {
	Margin    float64
	Reduction Reduction
}

func NewContrastiveLoss() ContrastiveLoss {
	return ContrastiveLoss{Margin: DefaultMargin, Reduction: ReductionMean}
}

// Loss returns the loss of a single pair.
func (l ContrastiveLoss) Loss(distance float64, isSame bool) float64 {
	if isSame {
		return distance
	}
	return math.Max(0, l.Margin-distance)
}

// Grad returns d(Loss)/d(distance). At distance == Margin the hinge is not
// differentiable; the subgradient 0 is used.
func (l ContrastiveLoss) Grad(distance float64, isSame bool) float64 {
	if isSame {
		return 1
	}
	if distance < l.Margin {
		return -1
	}
	return 0
}

// Batch returns per-pair losses for ReductionNone and a single reduced value
// otherwise.
func (l ContrastiveLoss) Batch(distances []float64, isSame []bool) ([]float64, error) {
	if len(distances) != len(isSame) {
		return nil, domain.ErrDimensionMismatch.WithError(
			fmt.Errorf("%d distances and %d labels", len(distances), len(isSame)))
	}
	if len(distances) == 0 {
		return nil, domain.ErrInsufficientData.WithError(fmt.Errorf("empty batch"))
	}

	losses := make([]float64, len(distances))
	var sum float64
	for i, d := range distances {
		losses[i] = l.Loss(d, isSame[i])
		sum += losses[i]
	}

	switch l.Reduction {
	case ReductionNone:
		return losses, nil
	case ReductionSum:
		return []float64{sum}, nil
	case ReductionMean, "":
		return []float64{sum / float64(len(losses))}, nil
	default:
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("unknown reduction %q", l.Reduction))
	}
}

// ParseReduction validates a reduction name.
func ParseReduction(s string) (Reduction, error) {
	switch r := Reduction(s); r {
	case ReductionMean, ReductionSum, ReductionNone:
		return r, nil
	case "":
		return ReductionMean, nil
	default:
		return "", domain.ErrValidationFailed.WithError(fmt.Errorf("unknown reduction %q", s))
	}
}
