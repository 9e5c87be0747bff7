package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
)

type ClassifierRepository struct {
	pool PgxPool
}

func NewClassifierRepository(pool PgxPool) *ClassifierRepository {
	return &ClassifierRepository{pool: pool}
}

// SaveFit stores a fitted classifier and its observations in one
// transaction. The classifier row is inserted or overwritten by name, the
// previous observations are dropped and obs is bulk loaded with COPY.
// ID and timestamps are filled from the stored row.
func (r *ClassifierRepository) SaveFit(ctx context.Context, c *domain.Classifier, obs []domain.Observation) error {
	query := `
		INSERT INTO classifiers (id, name, metric, model, threshold, accuracy, observations, same_pairs, different_pairs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW())
		ON CONFLICT (name) DO UPDATE
		SET metric = EXCLUDED.metric,
		    model = EXCLUDED.model,
		    threshold = EXCLUDED.threshold,
		    accuracy = EXCLUDED.accuracy,
		    observations = EXCLUDED.observations,
		    same_pairs = EXCLUDED.same_pairs,
		    different_pairs = EXCLUDED.different_pairs,
		    updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	id := c.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var stored domain.Classifier
	err = tx.QueryRow(ctx, query,
		id,
		c.Name,
		c.Metric,
		c.Model,
		c.Threshold,
		c.Accuracy,
		c.Observations,
		c.SamePairs,
		c.DiffPairs,
	).Scan(&stored.ID, &stored.CreatedAt, &stored.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert classifier: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM observations WHERE classifier_id = $1`, stored.ID); err != nil {
		return fmt.Errorf("clear observations: %w", err)
	}

	if len(obs) > 0 {
		rows := make([][]any, len(obs))
		for i, o := range obs {
			rows[i] = []any{stored.ID, o.Distance, o.IsSame}
		}

		_, err = tx.CopyFrom(ctx,
			pgx.Identifier{"observations"},
			[]string{"classifier_id", "distance", "is_same"},
			pgx.CopyFromRows(rows),
		)
		if err != nil {
			return fmt.Errorf("copy observations: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	c.ID, c.CreatedAt, c.UpdatedAt = stored.ID, stored.CreatedAt, stored.UpdatedAt
	return nil
}

func (r *ClassifierRepository) GetByName(ctx context.Context, name string) (*domain.Classifier, error) {
	query := `
		SELECT id, name, metric, model, threshold, accuracy, observations, same_pairs, different_pairs, created_at, updated_at
		FROM classifiers
		WHERE name = $1
	`

	var c domain.Classifier
	err := r.pool.QueryRow(ctx, query, name).Scan(
		&c.ID,
		&c.Name,
		&c.Metric,
		&c.Model,
		&c.Threshold,
		&c.Accuracy,
		&c.Observations,
		&c.SamePairs,
		&c.DiffPairs,
		&c.CreatedAt,
		&c.UpdatedAt,
	)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrClassifierNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get classifier by name: %w", err)
	}

	return &c, nil
}

func (r *ClassifierRepository) List(ctx context.Context) ([]domain.Classifier, error) {
	query := `
		SELECT id, name, metric, model, threshold, accuracy, observations, same_pairs, different_pairs, created_at, updated_at
		FROM classifiers
		ORDER BY name
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list classifiers: %w", err)
	}
	defer rows.Close()

	var out []domain.Classifier
	for rows.Next() {
		var c domain.Classifier
		err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Metric,
			&c.Model,
			&c.Threshold,
			&c.Accuracy,
			&c.Observations,
			&c.SamePairs,
			&c.DiffPairs,
			&c.CreatedAt,
			&c.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan classifier: %w", err)
		}
		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate classifiers: %w", err)
	}

	return out, nil
}

// Delete removes the classifier with its observations and decisions
func (r *ClassifierRepository) Delete(ctx context.Context, name string) error {
	query := `DELETE FROM classifiers WHERE name = $1`

	result, err := r.pool.Exec(ctx, query, name)
	if err != nil {
		return fmt.Errorf("delete classifier: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrClassifierNotFound
	}

	return nil
}
