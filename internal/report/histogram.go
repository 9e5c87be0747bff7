// Package report summarises distances and embeddings for inspection: the
// intra-class vs inter-class distance histogram and per-class embedding
// statistics.
package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
)

const (
	IntraClass = "intra-class"
	InterClass = "inter-class"
)

// Bin is one histogram bucket. Intra and Inter are fractions of their own
// class, so each column sums to 1 over all bins.
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Intra float64 `json:"intra"`
	Inter float64 `json:"inter"`
}

// Histogram compares the distance distributions of matching and
// non-matching pairs over shared bins.
type Histogram struct {
	Bins       []Bin   `json:"bins"`
	IntraCount int     `json:"intra_count"`
	InterCount int     `json:"inter_count"`
	Min        float64 `json:"min"`
	Max        float64 `json:"max"`
}

// NewHistogram bins observations into n equal-width buckets spanning the
// observed range. The last bucket includes its upper edge.
func NewHistogram(obs []domain.Observation, n int) (*Histogram, error) {
	if n < 1 {
		return nil, domain.ErrValidationFailed.WithError(fmt.Errorf("bins must be at least 1, got %d", n))
	}
	if len(obs) == 0 {
		return nil, domain.ErrInsufficientData
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for i, o := range obs {
		if !o.Valid() {
			return nil, fmt.Errorf("observation %d: %w", i, domain.ErrInvalidObservation)
		}
		lo = math.Min(lo, o.Distance)
		hi = math.Max(hi, o.Distance)
	}

	h := &Histogram{Min: lo, Max: hi, Bins: make([]Bin, n)}

	// a single distinct value still gets a range of width one
	if lo == hi {
		lo, hi = lo-0.5, hi+0.5
	}
	width := (hi - lo) / float64(n)
	for i := range h.Bins {
		h.Bins[i].Lower = lo + float64(i)*width
		h.Bins[i].Upper = lo + float64(i+1)*width
	}
	h.Bins[n-1].Upper = hi

	h.IntraCount, h.InterCount = domain.CountLabels(obs)
	for _, o := range obs {
		i := int((o.Distance - lo) / width)
		if i >= n {
			i = n - 1
		}
		if o.IsSame {
			h.Bins[i].Intra += 1 / float64(h.IntraCount)
		} else {
			h.Bins[i].Inter += 1 / float64(h.InterCount)
		}
	}

	return h, nil
}

// Render writes the histogram as text bars, one row per bin. width is the
// length of a bar at 100%.
func (h *Histogram) Render(w io.Writer, width int) error {
	if width < 1 {
		width = 40
	}
	if _, err := fmt.Fprintf(w, "%-21s %-*s %s\n", "distance", width+8, IntraClass+" (#)", InterClass+" (=)"); err != nil {
		return err
	}
	for i, b := range h.Bins {
		closing := ")"
		if i == len(h.Bins)-1 {
			closing = "]"
		}
		_, err := fmt.Fprintf(w, "[%8.4f, %8.4f%s %-*s %6.2f%% %s %6.2f%%\n",
			b.Lower, b.Upper, closing,
			width, bar('#', b.Intra, width), 100*b.Intra,
			bar('=', b.Inter, width), 100*b.Inter,
		)
		if err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%s: %d pairs, %s: %d pairs\n", IntraClass, h.IntraCount, InterClass, h.InterCount)
	return err
}

func bar(c rune, fraction float64, width int) string {
	return strings.Repeat(string(c), int(math.Round(fraction*float64(width))))
}
