package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
)

type ObservationRepository struct {
	pool PgxPool
}

func NewObservationRepository(pool PgxPool) *ObservationRepository {
	return &ObservationRepository{pool: pool}
}

// ListByClassifier returns the observations of the latest fit, in insertion order
func (r *ObservationRepository) ListByClassifier(ctx context.Context, classifierID uuid.UUID) ([]domain.Observation, error) {
	query := `
		SELECT distance, is_same
		FROM observations
		WHERE classifier_id = $1
		ORDER BY id
	`

	rows, err := r.pool.Query(ctx, query, classifierID)
	if err != nil {
		return nil, fmt.Errorf("list observations: %w", err)
	}
	defer rows.Close()

	var out []domain.Observation
	for rows.Next() {
		var o domain.Observation
		if err := rows.Scan(&o.Distance, &o.IsSame); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate observations: %w", err)
	}

	return out, nil
}
