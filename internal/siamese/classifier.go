package siamese

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
)

// ThresholdClassifier decides "same" for every distance strictly below a
// fitted threshold and "different" for every distance at or above it.
//
// It is safe for concurrent use: Fit takes the write lock, Decide the read lock.
type ThresholdClassifier struct {
	mu        sync.RWMutex
	fit       bool
	threshold float64
	accuracy  float64
}

// NewThresholdClassifier returns an unfit classifier.
func NewThresholdClassifier() *ThresholdClassifier {
	return &ThresholdClassifier{}
}

// Fit picks the threshold that maximizes accuracy of "distance < t ⇒ same"
// over obs and stores it, replacing any earlier fit.
//
// Candidates are each distinct distance, each midpoint between consecutive
// distinct distances, and the next float above the largest distance. Ties are
// broken toward the smaller candidate.
func (c *ThresholdClassifier) Fit(obs []domain.Observation) (float64, error) {
	threshold, accuracy, err := FitThreshold(obs)
	if err != nil {
		return 0, err
	}

	c.mu.Lock()
	c.fit = true
	c.threshold = threshold
	c.accuracy = accuracy
	c.mu.Unlock()

	return threshold, nil
}

// Restore marks the classifier as fit with a previously computed threshold.
func (c *ThresholdClassifier) Restore(threshold, accuracy float64) error {
	if math.IsNaN(threshold) || threshold < 0 {
		return domain.ErrInvalidObservation.WithError(fmt.Errorf("threshold %v", threshold))
	}

	c.mu.Lock()
	c.fit = true
	c.threshold = threshold
	c.accuracy = accuracy
	c.mu.Unlock()
	return nil
}

// Decide reports whether distance belongs to a matching pair.
func (c *ThresholdClassifier) Decide(distance float64) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.fit {
		return false, domain.ErrUnfitState
	}
	return distance < c.threshold, nil
}

// Threshold returns the fitted threshold, or ErrUnfitState.
func (c *ThresholdClassifier) Threshold() (float64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.fit {
		return 0, domain.ErrUnfitState
	}
	return c.threshold, nil
}

// Accuracy returns the training accuracy of the last fit, in [0, 1].
func (c *ThresholdClassifier) Accuracy() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accuracy
}

func (c *ThresholdClassifier) IsFit() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fit
}

// FitThreshold is the stateless search behind ThresholdClassifier.Fit.
// It sorts the distances once and scores every candidate with running
// counts, so the whole search is O(N log N).
func FitThreshold(obs []domain.Observation) (threshold, accuracy float64, err error) {
	same, diff := domain.CountLabels(obs)
	if same == 0 || diff == 0 {
		return 0, 0, domain.ErrInsufficientData.WithError(
			fmt.Errorf("%d matching and %d non-matching observations", same, diff))
	}
	for i, o := range obs {
		if !o.Valid() {
			return 0, 0, domain.ErrInvalidObservation.WithError(fmt.Errorf("observation %d: distance %v", i, o.Distance))
		}
	}

	sorted := make([]domain.Observation, len(obs))
	copy(sorted, obs)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Distance < sorted[j].Distance
	})

	n := len(sorted)
	sameBelow := 0
	bestCorrect := -1
	var best float64

	// With k observations below t, the correct decisions are the matching
	// pairs among them plus the non-matching pairs among the rest.
	consider := func(t float64, below, sameAmongBelow int) {
		correct := sameAmongBelow + (diff - (below - sameAmongBelow))
		if correct > bestCorrect {
			bestCorrect = correct
			best = t
		}
	}

	// Candidates are visited in increasing order, so strict ">" keeps the
	// smallest threshold among equally accurate ones.
	i := 0
	for i < n {
		d := sorted[i].Distance
		consider(d, i, sameBelow)

		j := i
		for j < n && sorted[j].Distance == d {
			if sorted[j].IsSame {
				sameBelow++
			}
			j++
		}

		if j < n {
			mid := d + (sorted[j].Distance-d)/2
			if mid > d && mid < sorted[j].Distance {
				consider(mid, j, sameBelow)
			}
		} else {
			consider(math.Nextafter(d, math.Inf(1)), j, sameBelow)
		}
		i = j
	}

	return best, float64(bestCorrect) / float64(n), nil
}
