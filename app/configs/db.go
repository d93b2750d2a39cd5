package configs

import (
	"fmt"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

const (
	maxDBRetries = 10
	dbRetryDelay = 5 * time.Second
)

func DSN(env ENV) string {
	cfg := gomysql.NewConfig()
	cfg.User = env.DBUser
	cfg.Passwd = env.DBPassword
	cfg.Net = "tcp"
	cfg.Addr = env.DBHost + ":" + env.DBPort
	cfg.DBName = env.DBName
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// OpenConnection retries while the database container is still starting.
func OpenConnection(env ENV, logger *zap.Logger) (*gorm.DB, error) {
	dsn := DSN(env)
	addr := env.DBHost + ":" + env.DBPort

	var lastErr error
	for i := 0; i < maxDBRetries; i++ {
		logger.Info("connecting to database", zap.String("addr", addr), zap.Int("attempt", i+1))

		db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{})
		if err == nil {
			sqlDB, pingErr := db.DB()
			if pingErr == nil {
				pingErr = sqlDB.Ping()
				if pingErr == nil {
					logger.Info("database connection successful")
					return db, nil
				}
			}
			lastErr = pingErr
		} else {
			lastErr = err
		}

		logger.Warn("database not ready", zap.Error(lastErr), zap.Duration("retry_in", dbRetryDelay))
		time.Sleep(dbRetryDelay)
	}

	return nil, fmt.Errorf("failed to connect to the database at %s after %d retries: %w", addr, maxDBRetries, lastErr)
}
