package cmd

import (
	"context"
	"fmt"
	"net/http"

	"MusicFlow/cache"
	"MusicFlow/config"
	"MusicFlow/core/offline"
	"MusicFlow/db"
	"MusicFlow/logger"
	"MusicFlow/storage"
)

// memoryQuota mirrors the usual per-origin local storage limit.
const memoryQuota = 5 << 20

// openStateStore connects the configured state backend. The returned func
// releases its connection.
func openStateStore(cfg *config.Config) (*cache.StateStore, func(), error) {
	switch cfg.StateBackend {
	case "redis":
		if err := db.ConnectRedis(cfg); err != nil {
			return nil, nil, err
		}
		backend := cache.NewRedisBackend(db.RedisClient, "musicflow:")
		return cache.NewStateStore(backend, cfg.StateProfile), func() {
			if err := db.CloseRedis(); err != nil {
				logger.Warn("failed to close Redis", logger.ErrorField(err))
			}
		}, nil
	case "mysql":
		if err := db.ConnectGormDB(cfg); err != nil {
			return nil, nil, err
		}
		if err := db.AutoMigrateModels(&cache.KVEntry{}); err != nil {
			db.CloseGormDB()
			return nil, nil, err
		}
		return cache.NewStateStore(cache.NewGormBackend(db.GormDB), cfg.StateProfile), func() {
			if err := db.CloseGormDB(); err != nil {
				logger.Warn("failed to close database", logger.ErrorField(err))
			}
		}, nil
	case "", "memory":
		return cache.NewStateStore(cache.NewMemoryBackend(memoryQuota), cfg.StateProfile), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown state backend %q", cfg.StateBackend)
	}
}

func openOfflineCache(ctx context.Context, cfg *config.Config) (offline.Cache, error) {
	switch cfg.CacheBackend {
	case "minio":
		return storage.NewMinioCache(ctx, cfg)
	case "", "memory":
		return offline.NewMemoryCache(), nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.CacheBackend)
	}
}

// startCoordinator opens the offline cache and drops partitions of older
// versions. With install set it first stores the app shell from the
// upstream; a failed install is only logged, the music partition works
// without it.
func startCoordinator(ctx context.Context, cfg *config.Config, install bool) (*offline.Coordinator, error) {
	store, err := openOfflineCache(ctx, cfg)
	if err != nil {
		return nil, err
	}
	coord, err := offline.NewCoordinator(store, http.DefaultClient, cfg.BaseURL, cfg.CacheVersion)
	if err != nil {
		return nil, err
	}
	if install {
		if err := coord.Install(ctx, offline.DefaultAssets); err != nil {
			logger.Warn("offline install incomplete", logger.ErrorField(err))
		}
	}
	if err := coord.Activate(ctx); err != nil {
		logger.Warn("failed to drop old partitions", logger.ErrorField(err))
	}
	return coord, nil
}
