package postgres

import (
	"context"
	"fmt"

	"github.com/vogiaan1904/quickseat-booking/config"
	postgresrepo "github.com/vogiaan1904/quickseat-booking/internal/repository/postgres"
	"github.com/vogiaan1904/quickseat-booking/pkg/logger"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"
)

// Connect opens the pool and migrates the booking tables.
func Connect(ctx context.Context, cfg config.PostgresConfig, l logger.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{
		TranslateError: true,
		Logger:         gormLogger.Default.LogMode(gormLogger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open Postgres: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get Postgres pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping Postgres: %w", err)
	}

	if err := db.WithContext(ctx).AutoMigrate(postgresrepo.Models()...); err != nil {
		return nil, fmt.Errorf("failed to migrate Postgres: %w", err)
	}

	l.Info(ctx, "Connected to Postgres")

	return db, nil
}

func Disconnect(ctx context.Context, db *gorm.DB, l logger.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err != nil {
		l.Warnf(ctx, "postgres.Disconnect: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		l.Warnf(ctx, "postgres.Disconnect: %v", err)
		return
	}

	l.Info(ctx, "Connection to Postgres closed.")
}
