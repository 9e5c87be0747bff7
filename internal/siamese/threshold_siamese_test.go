package siamese

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
)

func labeledFaces() []LabeledPair[string] {
	return []LabeledPair[string]{
		{First: "alice-1", Second: "alice-2", IsSame: true},
		{First: "bob-1", Second: "bob-2", IsSame: true},
		{First: "alice-1", Second: "bob-1", IsSame: false},
		{First: "alice-2", Second: "bob-2", IsSame: false},
	}
}

func TestThresholdSiamese_FitAndClassify(t *testing.T) {
	ctx := context.Background()
	ts := NewThresholdSiamese(NewScorer[string](newLookupEmbedder(faces)), nil)

	threshold, err := ts.Fit(ctx, labeledFaces())
	require.NoError(t, err)
	assert.Greater(t, threshold, 0.0)
	assert.Equal(t, 1.0, ts.Classifier().Accuracy())

	same, err := ts.Classify(ctx, "bob-2", "bob-1")
	require.NoError(t, err)
	assert.True(t, same)

	same, err = ts.Classify(ctx, "bob-2", "alice-1")
	require.NoError(t, err)
	assert.False(t, same)
}

func TestThresholdSiamese_ClassifyBeforeFit(t *testing.T) {
	emb := newLookupEmbedder(faces)
	ts := NewThresholdSiamese(NewScorer[string](emb), NewThresholdClassifier())

	_, err := ts.Classify(context.Background(), "alice-1", "alice-2")
	assert.ErrorIs(t, err, domain.ErrUnfitState)
	assert.Equal(t, int32(0), emb.calls.Load(), "unfit classifier must not call the backbone")
}

func TestThresholdSiamese_FitSingleClass(t *testing.T) {
	emb := newLookupEmbedder(faces)
	ts := NewThresholdSiamese(NewScorer[string](emb), nil)

	_, err := ts.Fit(context.Background(), []LabeledPair[string]{
		{First: "alice-1", Second: "alice-2", IsSame: true},
	})
	assert.ErrorIs(t, err, domain.ErrInsufficientData)
	assert.Equal(t, int32(0), emb.calls.Load())
}

func TestThresholdSiamese_Observe(t *testing.T) {
	ts := NewThresholdSiamese(NewScorer[string](newLookupEmbedder(faces)), nil)

	got, err := ts.Observe(context.Background(), labeledFaces())
	require.NoError(t, err)
	require.Len(t, got, 4)

	assert.True(t, got[0].IsSame)
	assert.False(t, got[2].IsSame)
	assert.Less(t, got[0].Distance, got[2].Distance)
	assert.False(t, ts.Classifier().IsFit(), "observing does not fit")
}

func TestThresholdSiamese_FitPropagatesScoringErrors(t *testing.T) {
	ts := NewThresholdSiamese(NewScorer[string](newLookupEmbedder(faces)), nil)

	_, err := ts.Fit(context.Background(), []LabeledPair[string]{
		{First: "alice-1", Second: "alice-2", IsSame: true},
		{First: "blank", Second: "bob-1", IsSame: false},
	})
	assert.ErrorIs(t, err, domain.ErrDegenerateVector)
	assert.False(t, ts.Classifier().IsFit())
}
