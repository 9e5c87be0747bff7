package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

var (
	// ErrCacheMiss is returned when a key is not found in cache
	ErrCacheMiss = errors.New("cache miss")
	// ErrCacheExpired is returned when a cached value has expired
	ErrCacheExpired = errors.New("cache expired")
)

// DB interface for database operations (compatible with pgxpool.Pool and pgxmock)
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, arguments ...interface{}) (pgconn.CommandTag, error)
}

// PGStore persists embeddings in PostgreSQL (pgvector) with a TTL, so
// restarts and other replicas do not have to call the backbone again.
type PGStore struct {
	db DB
}

// NewPGStore creates a new PostgreSQL embedding store
func NewPGStore(db *pgxpool.Pool) *PGStore {
	return &PGStore{db: db}
}

// NewPGStoreWithDB creates a new PostgreSQL embedding store with custom DB interface
func NewPGStoreWithDB(db DB) *PGStore {
	return &PGStore{db: db}
}

// Get retrieves an embedding by key. pgvector stores float32 components, so
// values come back at that precision.
func (s *PGStore) Get(ctx context.Context, key string) ([]float64, error) {
	query := `
		SELECT embedding, expires_at
		FROM embedding_cache
		WHERE key = $1
	`

	var vec *pgvector.Vector
	var expiresAt time.Time

	err := s.db.QueryRow(ctx, query, key).Scan(&vec, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("get embedding: %w", err)
	}

	if time.Now().After(expiresAt) {
		_ = s.Delete(ctx, key)
		return nil, ErrCacheExpired
	}

	if vec == nil {
		return nil, ErrCacheMiss
	}

	floats := vec.Slice()
	embedding := make([]float64, len(floats))
	for i, v := range floats {
		embedding[i] = float64(v)
	}
	return embedding, nil
}

// Set stores an embedding with TTL
func (s *PGStore) Set(ctx context.Context, key, model string, embedding []float64, ttl time.Duration) error {
	query := `
		INSERT INTO embedding_cache (key, model, embedding, expires_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (key) DO UPDATE
		SET embedding = EXCLUDED.embedding,
		    model = EXCLUDED.model,
		    expires_at = EXCLUDED.expires_at,
		    created_at = NOW()
	`

	floats := make([]float32, len(embedding))
	for i, v := range embedding {
		floats[i] = float32(v)
	}

	expiresAt := time.Now().Add(ttl)
	if _, err := s.db.Exec(ctx, query, key, model, pgvector.NewVector(floats), expiresAt); err != nil {
		return fmt.Errorf("set embedding: %w", err)
	}
	return nil
}

// Delete removes a key from the store
func (s *PGStore) Delete(ctx context.Context, key string) error {
	query := `DELETE FROM embedding_cache WHERE key = $1`
	_, err := s.db.Exec(ctx, query, key)
	return err
}

// CleanupExpired removes all expired entries
func (s *PGStore) CleanupExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM embedding_cache WHERE expires_at < NOW()`
	result, err := s.db.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected(), nil
}
