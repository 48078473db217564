package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/blog-service/internal/config"
	"github.com/spec-kit/blog-service/internal/observability"
	"github.com/spec-kit/blog-service/internal/persistence"
)

// runEnv holds what every subcommand needs.
type runEnv struct {
	cfg    *config.Config
	logger *zap.Logger
	pg     *persistence.Postgres
}

func bootstrap(ctx context.Context) (*runEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect postgres: %w", err)
	}

	return &runEnv{cfg: cfg, logger: logger, pg: pg}, nil
}

func (r *runEnv) Close() {
	r.pg.Close()
	_ = r.logger.Sync()
}
