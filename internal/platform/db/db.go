// Package db connects to PostgreSQL, applies migrations and seeds the first
// tenant.
package db

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"staffeval/internal/platform/config"
)

type Pool = pgxpool.Pool

func Connect(ctx context.Context, cfg config.Config) (*Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConnIdleTime = 15 * time.Minute
	if poolCfg.MaxConns < 10 {
		poolCfg.MaxConns = 10
	}
	poolCfg.MinConns = 2
	poolCfg.ConnConfig.Tracer = NewTracer()

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
