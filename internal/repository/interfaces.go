package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/siamese/internal/domain"
)

// PgxPool is the subset of *pgxpool.Pool the repositories use, so
// pgxmock can stand in for it
type PgxPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)
}

// ClassifierRepositoryInterface defines operations for fitted classifiers
type ClassifierRepositoryInterface interface {
	SaveFit(ctx context.Context, c *domain.Classifier, obs []domain.Observation) error
	GetByName(ctx context.Context, name string) (*domain.Classifier, error)
	List(ctx context.Context) ([]domain.Classifier, error)
	Delete(ctx context.Context, name string) error
}

// ObservationRepositoryInterface defines operations for fit observations
type ObservationRepositoryInterface interface {
	ListByClassifier(ctx context.Context, classifierID uuid.UUID) ([]domain.Observation, error)
}

// DecisionRepositoryInterface defines operations for decision auditing
type DecisionRepositoryInterface interface {
	Create(ctx context.Context, d *domain.Decision) error
	ListRecent(ctx context.Context, classifier string, limit int) ([]domain.Decision, error)
}
