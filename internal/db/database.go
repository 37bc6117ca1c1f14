package db

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"go-hedgevault/internal/config"
	"go-hedgevault/internal/models"
)

// DB global database handle
var DB *gorm.DB

// InitDB connects to Postgres and migrates the index tables.
func InitDB() error {
	if config.AppConfig == nil {
		return fmt.Errorf("configuration not loaded")
	}
	dsn := config.AppConfig.Database.DSN
	if dsn == "" {
		return fmt.Errorf("database DSN not configured")
	}

	gormDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return fmt.Errorf("failed to access underlying connection pool: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := gormDB.AutoMigrate(
		&models.ProxyRecord{},
		&models.WithdrawalRecord{},
		&models.CommitmentRecord{},
		&models.BatchRecord{},
		&models.NotificationRecord{},
	); err != nil {
		return fmt.Errorf("failed to migrate index tables: %w", err)
	}

	DB = gormDB
	log.Println("✅ Database initialized and index tables migrated")
	return nil
}
