package configs

import (
	"context"
	"fmt"

	"github.com/Rakhulsr/axen-cart/app/repositories"
	"go.uber.org/zap"
)

// OpenStorage builds the shared storage selected by STORAGE_DRIVER. The
// returned close func releases the underlying connection.
func OpenStorage(ctx context.Context, env ENV, logger *zap.Logger) (repositories.SharedStorage, func(), error) {
	switch env.StorageDriver {
	case StorageRedis:
		rdb, err := OpenRedis(ctx, env)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using redis storage", zap.String("addr", env.RedisAddr))
		return repositories.NewRedisStorage(rdb, logger), func() { _ = rdb.Close() }, nil

	case StorageMySQL:
		db, err := OpenConnection(env, logger)
		if err != nil {
			return nil, nil, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using mysql storage", zap.Duration("poll_interval", env.StoragePollInterval))
		return repositories.NewGormStorage(db, logger, env.StoragePollInterval), func() { _ = sqlDB.Close() }, nil

	case StorageMemory:
		logger.Info("using in-memory storage; carts are lost on restart")
		return repositories.NewMemoryStorage(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("%w: STORAGE_DRIVER %q", ErrInvalidEnv, env.StorageDriver)
}
