package database

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"task-workflow-api/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Config selects the database file and how chatty gorm is.
type Config struct {
	Path     string `yaml:"path"`
	LogLevel string `yaml:"logLevel"`
}

// DefaultConfig returns a config pointing at a file in the working directory.
func DefaultConfig() Config {
	return Config{Path: "task-workflow.db", LogLevel: "warn"}
}

// Open opens (creating if needed) the SQLite database and migrates the schema.
// glebarez/sqlite is a pure Go driver so no CGO is required.
func Open(cfg Config) (*gorm.DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dsn := cfg.Path
	if cfg.Path != ":memory:" {
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("could not create database directory: %w", err)
			}
		}
		dsn = fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", cfg.Path)
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(LogLevel(cfg.LogLevel)),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite allows one writer at a time; a single connection keeps
	// transactions from tripping over each other and keeps :memory: databases
	// visible to every query.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("could not get sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates every table the service uses.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// LogLevel maps a config string to a gorm log level. Unknown values are silent.
func LogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "info", "debug":
		return logger.Info
	case "warn", "warning":
		return logger.Warn
	case "error":
		return logger.Error
	}
	return logger.Silent
}
