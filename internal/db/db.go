package db

import (
	"fmt"
	"log/slog"
	"time"

	"idscan/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Open connects to Postgres and migrates the registry tables.
func Open(dsn string, maxConnLifetime time.Duration, log *slog.Logger) (*gorm.DB, error) {
	if log == nil {
		log = slog.Default()
	}
	conn, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("connect to db: %w", err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db from gorm: %w", err)
	}
	sqlDB.SetConnMaxLifetime(maxConnLifetime)
	log.Info("db.connected")

	if err := conn.AutoMigrate(&models.User{}); err != nil {
		return nil, fmt.Errorf("automigrate users: %w", err)
	}
	return conn, nil
}

// Close releases the underlying connection pool.
func Close(conn *gorm.DB) error {
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
