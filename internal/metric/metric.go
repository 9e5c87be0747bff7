// Package metric provides distance functions between embedding vectors.
//
// Every function returns a non-negative dissimilarity: 0 for identical
// directions, larger for vectors that are further apart.
package metric

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
)

// Func computes the distance between two embedding vectors.
type Func func(a, b []float64) (float64, error)

const (
	NameNormalizedSquaredEuclidean = "normalized_squared_euclidean"
	NameCosine                     = "cosine"
	NameEuclidean                  = "euclidean"

	// Default is the metric used when none is configured.
	Default = NameNormalizedSquaredEuclidean
)

var (
	registryMu sync.RWMutex
	registry   = map[string]Func{
		NameNormalizedSquaredEuclidean: NormalizedSquaredEuclidean,
		NameCosine:                     CosineDistance,
		NameEuclidean:                  EuclideanDistance,
	}
)

// Register adds a distance function under name, replacing any previous one.
func Register(name string, fn Func) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[name] = fn
}

// Lookup returns the distance function registered under name.
func Lookup(name string) (Func, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	fn, ok := registry[name]
	if !ok {
		return nil, domain.ErrMetricNotFound.WithError(fmt.Errorf("metric %q", name))
	}
	return fn, nil
}

// Names returns the registered metric names in sorted order.
func Names() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NormalizedSquaredEuclidean scales both vectors to unit length and returns
// the squared Euclidean distance between them. The result lies in [0, 4].
func NormalizedSquaredEuclidean(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, dimensionMismatch(len(a), len(b))
	}

	ua, err := unit(a)
	if err != nil {
		return 0, err
	}
	ub, err := unit(b)
	if err != nil {
		return 0, err
	}

	var sum float64
	for i := range ua {
		diff := ua[i] - ub[i]
		sum += diff * diff
	}
	return sum, nil
}

// CosineDistance returns 1 - cosine similarity, in [0, 2].
func CosineDistance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, dimensionMismatch(len(a), len(b))
	}

	ua, err := unit(a)
	if err != nil {
		return 0, err
	}
	ub, err := unit(b)
	if err != nil {
		return 0, err
	}

	var similarity float64
	for i := range ua {
		similarity += ua[i] * ub[i]
	}
	// Clamp to [-1, 1] to absorb floating point error
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return 1 - similarity, nil
}

// EuclideanDistance is the plain L2 distance, without normalization.
func EuclideanDistance(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, dimensionMismatch(len(a), len(b))
	}
	if len(a) == 0 {
		return 0, domain.ErrDegenerateVector.WithError(fmt.Errorf("empty vector"))
	}

	var sum float64
	for i := range a {
		diff := a[i] - b[i]
		sum += diff * diff
	}
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return 0, domain.ErrDegenerateVector.WithError(fmt.Errorf("non-finite component"))
	}
	return math.Sqrt(sum), nil
}

// Batch applies fn to every aligned pair of as and bs, preserving order.
func Batch(fn Func, as, bs [][]float64) ([]float64, error) {
	if len(as) != len(bs) {
		return nil, domain.ErrDimensionMismatch.WithError(fmt.Errorf("batch sizes %d and %d", len(as), len(bs)))
	}

	out := make([]float64, len(as))
	for i := range as {
		d, err := fn(as[i], bs[i])
		if err != nil {
			return nil, fmt.Errorf("pair %d: %w", i, err)
		}
		out[i] = d
	}
	return out, nil
}

func dimensionMismatch(a, b int) error {
	return domain.ErrDimensionMismatch.WithError(fmt.Errorf("dimensions %d and %d", a, b))
}
