package cache

import (
	"context"

	"github.com/condohub/billing/internal/config"
	"github.com/condohub/billing/internal/logger"
	"github.com/condohub/billing/internal/types"
	"go.uber.org/fx"
)

// NewCache picks the backend from configuration. Redis clients are closed on
// shutdown.
func NewCache(lc fx.Lifecycle, cfg *config.Configuration, logger *logger.Logger) (Cache, error) {
	if cfg.Cache.Backend != types.CacheBackendRedis {
		logger.Infow("using in-memory cache", "ttl", cfg.Cache.TTL, "enabled", cfg.Cache.Enabled)
		return NewInMemoryCache(cfg), nil
	}

	client, err := NewRedisClient(context.Background(), cfg)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})
	logger.Infow("using redis cache", "address", cfg.Redis.Address, "ttl", cfg.Cache.TTL)
	return NewRedisCache(client, cfg, logger), nil
}
