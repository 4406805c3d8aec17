// Package storage puts the two storage engines behind one interface. The
// engine is chosen once, at start-up, by Open.
package storage

import (
	"context"
	"fmt"

	"dishdash-be/internal/account"
	"dishdash-be/internal/catalog"
	"dishdash-be/internal/config"
	"dishdash-be/internal/db"
	"dishdash-be/internal/order"
	"dishdash-be/internal/storage/postgres"
	"dishdash-be/internal/storage/redisstore"

	"go.uber.org/zap"
)

// Store is everything the services need from persistence.
type Store interface {
	account.Repository
	catalog.Repository
	order.Repository

	// Engine names the active engine for diagnostics only.
	Engine() string
	Ping(ctx context.Context) error
	Close() error
}

var _ Store = (*postgres.Store)(nil)
var _ Store = (*redisstore.Store)(nil)

// Open connects to the engine named by cfg.DBEngine.
func Open(ctx context.Context, cfg *config.Config, log *zap.Logger) (Store, error) {
	switch cfg.DBEngine {
	case config.EnginePostgres:
		sqlDB, err := db.NewPostgres(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info("storage engine ready",
			zap.String("engine", config.EnginePostgres),
			zap.String("host", cfg.DBHost),
			zap.String("database", cfg.DBName),
		)
		return postgres.New(sqlDB), nil

	case config.EngineRedis:
		rdb, err := db.NewRedis(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info("storage engine ready",
			zap.String("engine", config.EngineRedis),
			zap.String("addr", cfg.RedisAddr),
			zap.String("prefix", cfg.RedisPrefix),
		)
		return redisstore.New(rdb, cfg.RedisPrefix), nil
	}

	return nil, fmt.Errorf("unknown storage engine %q", cfg.DBEngine)
}
