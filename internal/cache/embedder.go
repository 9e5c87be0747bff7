// Package cache memoizes backbone embeddings: an in-process LRU in front of
// an optional persistent store in front of the backbone itself.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log/slog"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/saturnino-fabrica-de-software/siamese/internal/metrics"
	"github.com/saturnino-fabrica-de-software/siamese/internal/provider"
)

const defaultTTL = 24 * time.Hour

// Store is a persistent embedding cache
type Store interface {
	Get(ctx context.Context, key string) ([]float64, error)
	Set(ctx context.Context, key, model string, embedding []float64, ttl time.Duration) error
}

// Embedder wraps a backbone and caches its embeddings by image content.
type Embedder struct {
	backbone provider.Backbone
	lru      *lru.Cache[string, []float64]
	store    Store
	ttl      time.Duration
	logger   *slog.Logger
}

// NewEmbedder creates a caching embedder holding up to size entries in memory.
// store may be nil.
func NewEmbedder(backbone provider.Backbone, size int, store Store, logger *slog.Logger) (*Embedder, error) {
	if size <= 0 {
		size = 1
	}
	c, err := lru.New[string, []float64](size)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Embedder{
		backbone: backbone,
		lru:      c,
		store:    store,
		ttl:      defaultTTL,
		logger:   logger,
	}, nil
}

// WithTTL sets how long persisted embeddings stay valid
func (e *Embedder) WithTTL(ttl time.Duration) *Embedder {
	e.ttl = ttl
	return e
}

func (e *Embedder) Model() string {
	return e.backbone.Model()
}

// Embed returns the cached embedding of image, computing it on a miss.
// Returned slices are copies; callers may modify them. With a store the
// embedding is kept at float32 precision in every tier, so a pair scores the
// same before and after a restart.
func (e *Embedder) Embed(ctx context.Context, image []byte) ([]float64, error) {
	key := e.key(image)

	if v, ok := e.lru.Get(key); ok {
		metrics.EmbeddingCacheTotal.WithLabelValues("memory", "hit").Inc()
		return clone(v), nil
	}
	metrics.EmbeddingCacheTotal.WithLabelValues("memory", "miss").Inc()

	if e.store != nil {
		v, err := e.store.Get(ctx, key)
		switch {
		case err == nil:
			metrics.EmbeddingCacheTotal.WithLabelValues("store", "hit").Inc()
			e.lru.Add(key, v)
			return clone(v), nil
		case errors.Is(err, ErrCacheMiss), errors.Is(err, ErrCacheExpired):
			metrics.EmbeddingCacheTotal.WithLabelValues("store", "miss").Inc()
		default:
			// the store is an optimization; fall through to the backbone
			e.logger.Warn("embedding store lookup failed", slog.Any("error", err))
		}
	}

	v, err := e.backbone.Embed(ctx, image)
	if err != nil {
		return nil, err
	}
	v = clone(v)
	if e.store != nil {
		// the store keeps float32 (pgvector); a memory hit must see the same values
		roundToStored(v)
	}
	e.lru.Add(key, v)

	if e.store != nil {
		if err := e.store.Set(ctx, key, e.backbone.Model(), v, e.ttl); err != nil {
			e.logger.Warn("embedding store write failed", slog.Any("error", err))
		}
	}

	return clone(v), nil
}

// Len returns the number of in-memory entries
func (e *Embedder) Len() int {
	return e.lru.Len()
}

// Purge drops every in-memory entry
func (e *Embedder) Purge() {
	e.lru.Purge()
}

func (e *Embedder) key(image []byte) string {
	h := sha256.New()
	h.Write([]byte(e.backbone.Model()))
	h.Write([]byte{0})
	h.Write(image)
	return hex.EncodeToString(h.Sum(nil))
}

func roundToStored(v []float64) {
	for i, x := range v {
		v[i] = float64(float32(x))
	}
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

// Ensure Embedder implements provider.Backbone
var _ provider.Backbone = (*Embedder)(nil)
