package siamese

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
	"github.com/saturnino-fabrica-de-software/siamese/internal/metric"
)

// lookupEmbedder embeds string keys from a fixed table.
type lookupEmbedder struct {
	vectors map[string][]float64
	calls   atomic.Int32
	evals   atomic.Int32
}

func newLookupEmbedder(vectors map[string][]float64) *lookupEmbedder {
	return &lookupEmbedder{vectors: vectors}
}

func (e *lookupEmbedder) Embed(_ context.Context, key string) ([]float64, error) {
	e.calls.Add(1)
	v, ok := e.vectors[key]
	if !ok {
		return nil, fmt.Errorf("unknown input %q", key)
	}
	return v, nil
}

func (e *lookupEmbedder) Eval() {
	e.evals.Add(1)
}

// MockBatchEmbedder records batch calls.
type MockBatchEmbedder struct {
	mock.Mock
}

func (m *MockBatchEmbedder) Embed(ctx context.Context, input string) ([]float64, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]float64), args.Error(1)
}

func (m *MockBatchEmbedder) EmbedBatch(ctx context.Context, inputs []string) ([][]float64, error) {
	args := m.Called(ctx, inputs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([][]float64), args.Error(1)
}

var faces = map[string][]float64{
	"alice-1": {1, 0.1, 0},
	"alice-2": {0.9, 0.12, 0.01},
	"bob-1":   {0, 1, 0.2},
	"bob-2":   {0.05, 0.95, 0.25},
	"blank":   {0, 0, 0},
	"short":   {1, 0},
}

func TestScorer_Score(t *testing.T) {
	emb := newLookupEmbedder(faces)
	s := NewScorer[string](emb)

	same, err := s.Score(context.Background(), "alice-1", "alice-2")
	require.NoError(t, err)
	diff, err := s.Score(context.Background(), "alice-1", "bob-1")
	require.NoError(t, err)

	assert.Less(t, same, diff)
	assert.GreaterOrEqual(t, same, 0.0)
	assert.LessOrEqual(t, diff, 4.0)
	assert.Equal(t, int32(4), emb.calls.Load())
	assert.Equal(t, int32(2), emb.evals.Load(), "scorer switches backbone to inference on every pass")

	self, err := s.Score(context.Background(), "bob-1", "bob-1")
	require.NoError(t, err)
	assert.Equal(t, 0.0, self)
}

func TestScorer_ScoreSymmetric(t *testing.T) {
	s := NewScorer[string](newLookupEmbedder(faces))

	ab, err := s.Score(context.Background(), "alice-2", "bob-2")
	require.NoError(t, err)
	ba, err := s.Score(context.Background(), "bob-2", "alice-2")
	require.NoError(t, err)
	assert.InDelta(t, ab, ba, 1e-12)
}

func TestScorer_Errors(t *testing.T) {
	s := NewScorer[string](newLookupEmbedder(faces))

	_, err := s.Score(context.Background(), "alice-1", "short")
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

	_, err = s.Score(context.Background(), "blank", "alice-1")
	assert.ErrorIs(t, err, domain.ErrDegenerateVector)

	_, err = s.Score(context.Background(), "alice-1", "carol")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embed second input")
}

func TestScorer_WithMetric(t *testing.T) {
	s := NewScorer[string](newLookupEmbedder(faces), WithMetric(metric.CosineDistance))

	got, err := s.Score(context.Background(), "alice-1", "bob-1")
	require.NoError(t, err)

	want, err := metric.CosineDistance(faces["alice-1"], faces["bob-1"])
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-12)
}

func TestScorer_ScoreBatch(t *testing.T) {
	emb := newLookupEmbedder(faces)
	s := NewScorer[string](emb, WithConcurrency(3))

	pairs := []Pair[string]{
		{First: "alice-1", Second: "alice-2"},
		{First: "alice-1", Second: "bob-1"},
		{First: "bob-1", Second: "bob-2"},
		{First: "bob-2", Second: "alice-2"},
	}

	got, err := s.ScoreBatch(context.Background(), pairs)
	require.NoError(t, err)
	require.Len(t, got, len(pairs))

	for i, p := range pairs {
		want, err := s.Score(context.Background(), p.First, p.Second)
		require.NoError(t, err)
		assert.InDelta(t, want, got[i], 1e-12, "pair %d out of order", i)
	}
}

func TestScorer_ScoreBatchErrors(t *testing.T) {
	s := NewScorer[string](newLookupEmbedder(faces))

	_, err := s.ScoreBatch(context.Background(), []Pair[string]{
		{First: "alice-1", Second: "alice-2"},
		{First: "carol", Second: "alice-2"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "input 1")

	got, err := s.ScoreBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScorer_UsesBatchEmbedder(t *testing.T) {
	m := new(MockBatchEmbedder)
	m.On("EmbedBatch", mock.Anything, []string{"a", "b"}).Return([][]float64{{1, 0}, {0, 1}}, nil).Once()
	m.On("EmbedBatch", mock.Anything, []string{"c", "d"}).Return([][]float64{{1, 0}, {0, 2}}, nil).Once()

	s := NewScorer[string](m)
	got, err := s.ScoreBatch(context.Background(), []Pair[string]{
		{First: "a", Second: "c"},
		{First: "b", Second: "d"},
	})
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float64{0, 0}, got, 1e-12)

	m.AssertExpectations(t)
	m.AssertNotCalled(t, "Embed", mock.Anything, mock.Anything)
}

func TestScorer_BatchEmbedderWrongLength(t *testing.T) {
	m := new(MockBatchEmbedder)
	m.On("EmbedBatch", mock.Anything, mock.Anything).Return([][]float64{{1, 0}}, nil)

	s := NewScorer[string](m)
	_, err := s.ScoreBatch(context.Background(), []Pair[string]{
		{First: "a", Second: "c"},
		{First: "b", Second: "d"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "returned 1 embeddings for 2 inputs")
}

func TestScorer_DoesNotAliasBackboneBuffers(t *testing.T) {
	shared := []float64{1, 0}
	var mu sync.Mutex
	emb := EmbedderFunc[string](func(_ context.Context, input string) ([]float64, error) {
		mu.Lock()
		defer mu.Unlock()
		if input == "x" {
			shared[0], shared[1] = 1, 0
		} else {
			shared[0], shared[1] = 0, 1
		}
		return shared, nil
	})

	got, err := NewScorer[string](emb).Score(context.Background(), "x", "y")
	require.NoError(t, err)
	assert.InDelta(t, 2.0, got, 1e-12)
}

func TestScorer_ContextCancelled(t *testing.T) {
	emb := EmbedderFunc[string](func(ctx context.Context, _ string) ([]float64, error) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return []float64{1, 0}, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScorer[string](emb).ScoreBatch(ctx, []Pair[string]{{First: "a", Second: "b"}})
	assert.True(t, errors.Is(err, context.Canceled))
}
