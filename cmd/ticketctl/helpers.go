package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/spec-kit/ticket-advisor/internal/bootstrap"
	"github.com/spec-kit/ticket-advisor/internal/config"
	"github.com/spec-kit/ticket-advisor/internal/observability"
	"github.com/spec-kit/ticket-advisor/internal/persistence"
)

// runtime is the wired stack plus the resources that must be closed after use.
type runtime struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
	redis  *persistence.Redis
	stack  *bootstrap.Stack
}

func openRuntime(ctx context.Context) (*runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	// stdout carries the command output.
	cfg.Logger.Output = "stderr"
	cfg.Logger.Format = "console"
	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	redis := persistence.NewRedis(cfg.Redis, logger)

	stack, err := bootstrap.Build(ctx, cfg, pg, redis, logger, nil)
	if err != nil {
		pg.Close()
		redis.Close()
		return nil, err
	}
	return &runtime{cfg: cfg, logger: logger, pg: pg, redis: redis, stack: stack}, nil
}

func (r *runtime) Close() {
	r.redis.Close()
	r.pg.Close()
	_ = r.logger.Sync()
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
