package database

import (
	"fmt"

	"github.com/yukikurage/cms-resource-broker/internal/config"
	"github.com/yukikurage/cms-resource-broker/internal/models"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Dialector selects the gorm driver for cfg.Driver
func Dialector(cfg *config.DatabaseConfig) (gorm.Dialector, error) {
	switch cfg.Driver {
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.User,
			cfg.Password,
			cfg.Host,
			cfg.Port,
			cfg.Name,
		)
		return mysql.Open(dsn), nil
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host,
			cfg.Port,
			cfg.User,
			cfg.Password,
			cfg.Name,
			cfg.SSLMode,
		)
		return postgres.Open(dsn), nil
	case "sqlite":
		return sqlite.Open(cfg.Path), nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

// Connect opens a connection for the configured driver
func Connect(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dialector, err := Dialector(cfg)
	if err != nil {
		return nil, err
	}

	logMode := logger.Warn
	if cfg.LogQueries {
		logMode = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logMode),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// In-memory sqlite databases live per connection.
	if cfg.Driver == "sqlite" && cfg.Path == ":memory:" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get database handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

// Migrate creates or updates the broker schema
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Group{},
		&models.UserGroup{},
		&models.Project{},
		&models.ResourceType{},
		&models.Resource{},
		&models.Metadefinition{},
		&models.Metainformation{},
	)
	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	return nil
}
