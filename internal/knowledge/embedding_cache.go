package knowledge

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-advisor/internal/llm"
	"github.com/spec-kit/ticket-advisor/internal/observability"
)

// CachedEmbedder memoizes embeddings in Redis. Cache failures fall through
// to the wrapped embedder.
type CachedEmbedder struct {
	next    llm.Embedder
	client  *redis.Client
	ttl     time.Duration
	logger  *zap.Logger
	metrics *observability.Metrics
}

// NewCachedEmbedder wraps next. A nil client disables caching.
func NewCachedEmbedder(next llm.Embedder, client *redis.Client, ttl time.Duration, logger *zap.Logger, metrics *observability.Metrics) *CachedEmbedder {
	return &CachedEmbedder{
		next:    next,
		client:  client,
		ttl:     ttl,
		logger:  observability.Component(logger, "embedding_cache"),
		metrics: metrics,
	}
}

// Model implements llm.Embedder.
func (c *CachedEmbedder) Model() string {
	return c.next.Model()
}

// Embed implements llm.Embedder.
func (c *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if c.client == nil {
		return c.next.Embed(ctx, text)
	}
	key := c.key(text)

	raw, err := c.client.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var vec []float32
		if jsonErr := json.Unmarshal(raw, &vec); jsonErr == nil {
			c.metrics.RecordCacheLookup("embedding", true)
			return vec, nil
		}
		c.logger.Warn("discarding corrupt cached embedding", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("embedding cache read failed", zap.Error(err))
	}
	c.metrics.RecordCacheLookup("embedding", false)

	vec, err := c.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(vec); err == nil {
		if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("embedding cache write failed", zap.Error(err))
		}
	}
	return vec, nil
}

func (c *CachedEmbedder) key(text string) string {
	sum := sha256.Sum256([]byte(text))
	return "embedding:" + c.next.Model() + ":" + hex.EncodeToString(sum[:])
}
