// Package database opens the GORM connection used by the repositories.
package database

import (
	"fmt"
	"time"

	"autoparts/internal/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Open connects to driver ("postgres" or "sqlite") at dsn and migrates the
// schema when migrate is set.
func Open(driver, dsn string, migrate bool, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		TranslateError: true,
		Logger:         NewLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}

	if migrate {
		if err := Migrate(db); err != nil {
			return nil, err
		}
		log.Info("database schema migrated", zap.String("driver", driver))
	}
	return db, nil
}

// NewLogger sends GORM's warnings (slow queries and failed statements) to log.
// Missing rows are reported to callers as ErrNotFound and are not logged.
func NewLogger(log *zap.Logger) gormlogger.Interface {
	std, err := zap.NewStdLogAt(log.Named("gorm").WithOptions(zap.AddCallerSkip(2)), zapcore.WarnLevel)
	if err != nil {
		return gormlogger.Discard
	}
	return gormlogger.New(std, gormlogger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

// Migrate creates or updates the users and parts tables.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.User{}, &models.Part{}); err != nil {
		return fmt.Errorf("failed to auto-migrate database: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
