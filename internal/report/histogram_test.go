package report

import (
	"bytes"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
)

func obs(pairs ...any) []domain.Observation {
	out := make([]domain.Observation, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, domain.Observation{Distance: pairs[i].(float64), IsSame: pairs[i+1].(bool)})
	}
	return out
}

func TestNewHistogram(t *testing.T) {
	h, err := NewHistogram(obs(
		0.0, true,
		0.5, true,
		0.9, true,
		1.5, false,
		2.0, false,
	), 4)
	require.NoError(t, err)

	assert.Equal(t, 3, h.IntraCount)
	assert.Equal(t, 2, h.InterCount)
	assert.Equal(t, 0.0, h.Min)
	assert.Equal(t, 2.0, h.Max)
	require.Len(t, h.Bins, 4)

	assert.InDelta(t, 0.0, h.Bins[0].Lower, 1e-12)
	assert.InDelta(t, 0.5, h.Bins[1].Lower, 1e-12)
	assert.Equal(t, 2.0, h.Bins[3].Upper)

	// [0, .5) holds 0.0; [.5, 1) holds 0.5 and 0.9; [1.5, 2] holds both inter
	assert.InDelta(t, 1.0/3, h.Bins[0].Intra, 1e-12)
	assert.InDelta(t, 2.0/3, h.Bins[1].Intra, 1e-12)
	assert.InDelta(t, 0.0, h.Bins[2].Inter, 1e-12)
	assert.InDelta(t, 1.0, h.Bins[3].Inter, 1e-12)
}

func TestNewHistogram_FractionsSumToOne(t *testing.T) {
	var o []domain.Observation
	for i := 0; i < 97; i++ {
		o = append(o, domain.Observation{Distance: math.Mod(float64(i)*0.37, 4), IsSame: i%3 == 0})
	}

	h, err := NewHistogram(o, 13)
	require.NoError(t, err)

	var intra, inter float64
	for _, b := range h.Bins {
		intra += b.Intra
		inter += b.Inter
	}
	assert.InDelta(t, 1.0, intra, 1e-9)
	assert.InDelta(t, 1.0, inter, 1e-9)
}

func TestNewHistogram_SingleClass(t *testing.T) {
	h, err := NewHistogram(obs(0.2, true, 0.4, true), 2)
	require.NoError(t, err)

	assert.Equal(t, 0, h.InterCount)
	for _, b := range h.Bins {
		assert.Zero(t, b.Inter)
	}
}

func TestNewHistogram_SingleValue(t *testing.T) {
	h, err := NewHistogram(obs(1.0, true, 1.0, false), 2)
	require.NoError(t, err)

	assert.Equal(t, 0.5, h.Bins[0].Lower)
	assert.Equal(t, 1.5, h.Bins[1].Upper)
	assert.InDelta(t, 1.0, h.Bins[1].Intra, 1e-12)
	assert.InDelta(t, 1.0, h.Bins[1].Inter, 1e-12)
}

func TestNewHistogram_Errors(t *testing.T) {
	_, err := NewHistogram(nil, 10)
	assert.ErrorIs(t, err, domain.ErrInsufficientData)

	_, err = NewHistogram(obs(0.1, true), 0)
	assert.ErrorIs(t, err, domain.ErrValidationFailed)

	_, err = NewHistogram(obs(0.1, true, -1.0, false), 4)
	assert.ErrorIs(t, err, domain.ErrInvalidObservation)

	_, err = NewHistogram([]domain.Observation{{Distance: math.NaN()}}, 4)
	assert.ErrorIs(t, err, domain.ErrInvalidObservation)
}

func TestHistogram_Render(t *testing.T) {
	h, err := NewHistogram(obs(0.0, true, 1.0, false), 2)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, h.Render(&buf, 10))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], IntraClass)
	assert.Contains(t, lines[1], strings.Repeat("#", 10))
	assert.Contains(t, lines[1], "100.00%")
	assert.True(t, strings.HasPrefix(lines[1], "[  0.0000,   0.5000)"), lines[1])
	assert.Contains(t, lines[2], strings.Repeat("=", 10))
	// the last bin holds the maximum distance
	assert.True(t, strings.HasPrefix(lines[2], "[  0.5000,   1.0000]"), lines[2])
	assert.Contains(t, lines[3], "intra-class: 1 pairs, inter-class: 1 pairs")
}
