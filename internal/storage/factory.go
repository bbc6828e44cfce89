package storage

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-sync/pkg/config"
	pkgredis "github.com/angelmondragon/storefront-sync/pkg/redis"
)

// Open builds the KV named by the storage config.
func Open(ctx context.Context, cfg *config.Config) (KV, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	switch cfg.Storage.Driver {
	case config.StorageDriverMemory:
		return NewMemory(), nil
	case config.StorageDriverSQLite:
		return NewSQLite(cfg.Storage)
	case config.StorageDriverRedis:
		client, err := pkgredis.New(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return NewRedis(client)
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
