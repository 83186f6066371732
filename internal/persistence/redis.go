package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-advisor/internal/config"
	"github.com/spec-kit/ticket-advisor/internal/domain"
)

const analysisKeyPrefix = "analysis:"

// ErrCacheMiss is returned when a cached value is absent.
var ErrCacheMiss = errors.New("cache miss")

// Redis wraps the go-redis client. A nil Client means caching is off.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if !cfg.Enabled {
		logger.Info("redis disabled; caching off")
		return &Redis{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Enabled reports whether a client was configured.
func (r *Redis) Enabled() bool {
	return r != nil && r.Client != nil
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if !r.Enabled() {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// Handle returns the raw client, nil when disabled.
func (r *Redis) Handle() *redis.Client {
	if r == nil {
		return nil
	}
	return r.Client
}

// PutAnalysis caches a finished analysis under its id.
func (r *Redis) PutAnalysis(ctx context.Context, analysis *domain.Analysis, ttl time.Duration) error {
	if r == nil || r.Client == nil {
		return nil
	}
	payload, err := json.Marshal(analysis)
	if err != nil {
		return err
	}
	return r.Client.Set(ctx, analysisKeyPrefix+analysis.ID, payload, ttl).Err()
}

// GetAnalysis returns ErrCacheMiss when nothing is cached for id.
func (r *Redis) GetAnalysis(ctx context.Context, id string) (*domain.Analysis, error) {
	if r == nil || r.Client == nil {
		return nil, ErrCacheMiss
	}
	payload, err := r.Client.Get(ctx, analysisKeyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, err
	}
	var analysis domain.Analysis
	if err := json.Unmarshal(payload, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}
