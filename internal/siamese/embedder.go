// Package siamese turns an embedding backbone into a same/different pair
// classifier: a Scorer measures the distance between two embedded inputs and
// a ThresholdClassifier converts distances into decisions.
package siamese

import "context"

// Embedder maps a raw input to a flat embedding vector. Implementations must
// not update any internal state (normalization statistics, caches of
// gradients) as a side effect of Embed: the scorer only borrows them.
type Embedder[T any] interface {
	Embed(ctx context.Context, input T) ([]float64, error)
}

// BatchEmbedder is implemented by backbones that embed several inputs in one
// call. Output order must match input order.
type BatchEmbedder[T any] interface {
	Embedder[T]
	EmbedBatch(ctx context.Context, inputs []T) ([][]float64, error)
}

// InferenceSwitch is implemented by backbones that have distinct training and
// inference modes. The scorer switches them to inference before every pass.
type InferenceSwitch interface {
	Eval()
}

// EmbedderFunc adapts a plain function to the Embedder interface.
type EmbedderFunc[T any] func(ctx context.Context, input T) ([]float64, error)

func (f EmbedderFunc[T]) Embed(ctx context.Context, input T) ([]float64, error) {
	return f(ctx, input)
}

// Pair is two raw inputs to compare.
type Pair[T any] struct {
	First  T
	Second T
}

// LabeledPair is a pair with its ground-truth match label.
type LabeledPair[T any] struct {
	First  T
	Second T
	IsSame bool
}
