package siamese

import (
	"context"
	"fmt"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
)

// ThresholdSiamese classifies raw input pairs as same or different by
// thresholding the distance a Scorer assigns to them.
type ThresholdSiamese[T any] struct {
	scorer     *Scorer[T]
	classifier *ThresholdClassifier
}

func NewThresholdSiamese[T any](scorer *Scorer[T], classifier *ThresholdClassifier) *ThresholdSiamese[T] {
	if classifier == nil {
		classifier = NewThresholdClassifier()
	}
	return &ThresholdSiamese[T]{
		scorer:     scorer,
		classifier: classifier,
	}
}

func (s *ThresholdSiamese[T]) Scorer() *Scorer[T] {
	return s.scorer
}

func (s *ThresholdSiamese[T]) Classifier() *ThresholdClassifier {
	return s.classifier
}

// Classify scores the pair and applies the fitted threshold.
func (s *ThresholdSiamese[T]) Classify(ctx context.Context, first, second T) (bool, error) {
	if !s.classifier.IsFit() {
		return false, domain.ErrUnfitState
	}

	distance, err := s.scorer.Score(ctx, first, second)
	if err != nil {
		return false, fmt.Errorf("score pair: %w", err)
	}
	return s.classifier.Decide(distance)
}

// Observe scores every labeled pair without fitting anything.
func (s *ThresholdSiamese[T]) Observe(ctx context.Context, pairs []LabeledPair[T]) ([]domain.Observation, error) {
	unlabeled := make([]Pair[T], len(pairs))
	for i, p := range pairs {
		unlabeled[i] = Pair[T]{First: p.First, Second: p.Second}
	}

	distances, err := s.scorer.ScoreBatch(ctx, unlabeled)
	if err != nil {
		return nil, fmt.Errorf("score pairs: %w", err)
	}

	obs := make([]domain.Observation, len(pairs))
	for i, p := range pairs {
		obs[i] = domain.Observation{Distance: distances[i], IsSame: p.IsSame}
	}
	return obs, nil
}

// Fit scores the labeled pairs and fits the threshold on the result.
func (s *ThresholdSiamese[T]) Fit(ctx context.Context, pairs []LabeledPair[T]) (float64, error) {
	same, diff := countPairLabels(pairs)
	if same == 0 || diff == 0 {
		return 0, domain.ErrInsufficientData.WithError(
			fmt.Errorf("%d matching and %d non-matching pairs", same, diff))
	}

	obs, err := s.Observe(ctx, pairs)
	if err != nil {
		return 0, err
	}
	return s.classifier.Fit(obs)
}

func countPairLabels[T any](pairs []LabeledPair[T]) (same, diff int) {
	for _, p := range pairs {
		if p.IsSame {
			same++
		} else {
			diff++
		}
	}
	return same, diff
}
