package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// Observation é uma distância já calculada e o rótulo do par que a produziu
type Observation struct {
	Distance float64 `json:"distance"`
	IsSame   bool    `json:"is_same"`
}

// Valid reports whether the distance is finite and non-negative.
func (o Observation) Valid() bool {
	return !math.IsNaN(o.Distance) && !math.IsInf(o.Distance, 0) && o.Distance >= 0
}

// Classifier representa um limiar ajustado e persistido
type Classifier struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Metric       string    `json:"metric"`
	Model        string    `json:"model"`
	Threshold    float64   `json:"threshold"`
	Accuracy     float64   `json:"accuracy"`
	Observations int       `json:"observations"`
	SamePairs    int       `json:"same_pairs"`
	DiffPairs    int       `json:"different_pairs"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Decision representa o resultado de uma classificação de par
type Decision struct {
	ID         uuid.UUID `json:"id"`
	Classifier string    `json:"classifier"`
	Distance   float64   `json:"distance"`
	Threshold  float64   `json:"threshold"`
	Same       bool      `json:"same"`
	LatencyMs  int64     `json:"latency_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// CountLabels returns how many observations are matching and non-matching pairs.
func CountLabels(obs []Observation) (same, diff int) {
	for _, o := range obs {
		if o.IsSame {
			same++
		} else {
			diff++
		}
	}
	return same, diff
}
