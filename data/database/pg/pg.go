package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

// Config represents the Postgres connection settings.
type Config struct {
	URL         string
	MaxPoolSize int32
	MaxRetry    int
}

// Open builds a pgx pool from the config and verifies connectivity,
// retrying because the database may still be starting up alongside us.
func Open(ctx context.Context, cfg Config) (*pgxpool.Pool, error) {
	if cfg.URL == "" {
		return nil, errors.New("pg: url is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, errors.Wrap(err, "pg: parse config")
	}
	if cfg.MaxPoolSize > 0 {
		poolCfg.MaxConns = cfg.MaxPoolSize
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, errors.Wrap(err, "pg: new pool")
	}

	retry := cfg.MaxRetry
	if retry <= 0 {
		retry = 3
	}
	for i := 0; ; i++ {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = pool.Ping(pingCtx)
		cancel()
		if err == nil {
			return pool, nil
		}
		if i >= retry {
			pool.Close()
			return nil, errors.Wrap(err, "pg: ping")
		}
		time.Sleep(time.Second)
	}
}
