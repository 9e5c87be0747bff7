package siamese

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/saturnino-fabrica-de-software/siamese/internal/metric"
)

const defaultConcurrency = 4

// Scorer outputs the distance between two inputs in feature space.
type Scorer[T any] struct {
	backbone    Embedder[T]
	distance    metric.Func
	concurrency int
}

// ScorerOption configures a Scorer.
type ScorerOption func(*scorerOptions)

type scorerOptions struct {
	distance    metric.Func
	concurrency int
}

// WithMetric replaces the default normalized squared Euclidean distance.
func WithMetric(fn metric.Func) ScorerOption {
	return func(o *scorerOptions) {
		o.distance = fn
	}
}

// WithConcurrency bounds how many inputs are embedded at once when the
// backbone has no batch entry point. Values below 1 mean sequential.
func WithConcurrency(n int) ScorerOption {
	return func(o *scorerOptions) {
		o.concurrency = n
	}
}

// NewScorer wraps backbone. The backbone is borrowed, never modified.
func NewScorer[T any](backbone Embedder[T], opts ...ScorerOption) *Scorer[T] {
	o := scorerOptions{
		distance:    metric.NormalizedSquaredEuclidean,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.concurrency < 1 {
		o.concurrency = 1
	}

	return &Scorer[T]{
		backbone:    backbone,
		distance:    o.distance,
		concurrency: o.concurrency,
	}
}

// Score embeds both inputs independently and returns their distance.
func (s *Scorer[T]) Score(ctx context.Context, first, second T) (float64, error) {
	s.inference()

	f1, err := s.embed(ctx, first)
	if err != nil {
		return 0, fmt.Errorf("embed first input: %w", err)
	}
	f2, err := s.embed(ctx, second)
	if err != nil {
		return 0, fmt.Errorf("embed second input: %w", err)
	}

	return s.distance(f1, f2)
}

// ScoreBatch returns one distance per pair, in input order.
func (s *Scorer[T]) ScoreBatch(ctx context.Context, pairs []Pair[T]) ([]float64, error) {
	if len(pairs) == 0 {
		return []float64{}, nil
	}
	s.inference()

	firsts := make([]T, len(pairs))
	seconds := make([]T, len(pairs))
	for i, p := range pairs {
		firsts[i] = p.First
		seconds[i] = p.Second
	}

	f1, err := s.embedAll(ctx, firsts)
	if err != nil {
		return nil, fmt.Errorf("embed first inputs: %w", err)
	}
	f2, err := s.embedAll(ctx, seconds)
	if err != nil {
		return nil, fmt.Errorf("embed second inputs: %w", err)
	}

	return metric.Batch(s.distance, f1, f2)
}

func (s *Scorer[T]) inference() {
	if sw, ok := s.backbone.(InferenceSwitch); ok {
		sw.Eval()
	}
}

// embed returns a private copy of the backbone output so later mutation of
// the backbone's buffers cannot change a computed score.
func (s *Scorer[T]) embed(ctx context.Context, input T) ([]float64, error) {
	v, err := s.backbone.Embed(ctx, input)
	if err != nil {
		return nil, err
	}
	return clone(v), nil
}

func (s *Scorer[T]) embedAll(ctx context.Context, inputs []T) ([][]float64, error) {
	if be, ok := s.backbone.(BatchEmbedder[T]); ok {
		vs, err := be.EmbedBatch(ctx, inputs)
		if err != nil {
			return nil, err
		}
		if len(vs) != len(inputs) {
			return nil, fmt.Errorf("backbone returned %d embeddings for %d inputs", len(vs), len(inputs))
		}
		out := make([][]float64, len(vs))
		for i, v := range vs {
			out[i] = clone(v)
		}
		return out, nil
	}

	out := make([][]float64, len(inputs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range inputs {
		idx := i
		g.Go(func() error {
			v, err := s.embed(gCtx, inputs[idx])
			if err != nil {
				return fmt.Errorf("input %d: %w", idx, err)
			}
			out[idx] = v
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}
