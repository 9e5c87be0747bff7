package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
)

type DecisionRepository struct {
	pool PgxPool
}

func NewDecisionRepository(pool PgxPool) *DecisionRepository {
	return &DecisionRepository{pool: pool}
}

// Create records a decision against the classifier named in d.Classifier
func (r *DecisionRepository) Create(ctx context.Context, d *domain.Decision) error {
	query := `
		INSERT INTO decisions (id, classifier_id, distance, threshold, same, latency_ms, created_at)
		SELECT $1, c.id, $3, $4, $5, $6, NOW()
		FROM classifiers c
		WHERE c.name = $2
		RETURNING created_at
	`

	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}

	err := r.pool.QueryRow(ctx, query,
		d.ID,
		d.Classifier,
		d.Distance,
		d.Threshold,
		d.Same,
		d.LatencyMs,
	).Scan(&d.CreatedAt)

	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrClassifierNotFound
	}
	if err != nil {
		return fmt.Errorf("create decision: %w", err)
	}

	return nil
}

func (r *DecisionRepository) ListRecent(ctx context.Context, classifier string, limit int) ([]domain.Decision, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT d.id, c.name, d.distance, d.threshold, d.same, d.latency_ms, d.created_at
		FROM decisions d
		INNER JOIN classifiers c ON c.id = d.classifier_id
		WHERE c.name = $1
		ORDER BY d.created_at DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, classifier, limit)
	if err != nil {
		return nil, fmt.Errorf("list decisions: %w", err)
	}
	defer rows.Close()

	var out []domain.Decision
	for rows.Next() {
		var d domain.Decision
		err := rows.Scan(&d.ID, &d.Classifier, &d.Distance, &d.Threshold, &d.Same, &d.LatencyMs, &d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan decision: %w", err)
		}
		out = append(out, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate decisions: %w", err)
	}

	return out, nil
}
