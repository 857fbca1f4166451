package storage

import (
	"context"
	"fmt"

	"github.com/s0930s44/BINGO/config"
	"github.com/s0930s44/BINGO/domain"
)

// New selects the storage backend at startup. The rest of the server only
// ever sees the domain.Store contract and never branches on which adapter
// is behind it.
func New(ctx context.Context, cfg config.Config) (domain.Store, error) {
	switch cfg.StorageBackend {
	case config.BackendMemory:
		return NewMemoryStore(), nil
	case config.BackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case config.BackendPostgres:
		return NewPostgresStore(ctx, cfg.PostgresURL)
	case config.BackendRedis:
		return NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrStorage, err)
}
