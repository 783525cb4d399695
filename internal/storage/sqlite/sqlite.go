// Package sqlite implements storage.Repository on gorm over SQLite.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"task-workflow-api/internal/cache"
	"task-workflow-api/internal/domain"
	"task-workflow-api/internal/log"
	"task-workflow-api/internal/storage"
)

// RepositoryConfig is the configuration for the SQLite repository.
type RepositoryConfig struct {
	DB     *gorm.DB
	Logger log.Logger
	// UserCache holds user lookups by ID. Defaults to a five minute TTL cache.
	UserCache cache.Cache[string, domain.User]
}

func (c *RepositoryConfig) defaults() error {
	if c.DB == nil {
		return fmt.Errorf("db is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "storage.SQLite"})
	if c.UserCache == nil {
		c.UserCache = cache.NewSimpleCache[string, domain.User](cache.Options{DefaultTTL: 5 * time.Minute})
	}
	return nil
}

// Repository is a gorm implementation of storage.Repository.
type Repository struct {
	db     *gorm.DB
	logger log.Logger
	users  cache.Cache[string, domain.User]
}

// NewRepository creates a new SQLite repository over an already migrated db.
func NewRepository(cfg RepositoryConfig) (*Repository, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &Repository{db: cfg.DB, logger: cfg.Logger, users: cfg.UserCache}, nil
}

// WithinTx implements storage.Repository.
func (r *Repository) WithinTx(ctx context.Context, fn func(storage.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx, logger: r.logger, users: r.users})
	})
}

func (r *Repository) conn(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx)
}

// wrapErr maps gorm errors onto domain sentinels.
func wrapErr(err error, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return fmt.Errorf("%s: %w", msg, domain.ErrNotFound)
	case errors.Is(err, gorm.ErrDuplicatedKey), strings.Contains(err.Error(), "UNIQUE constraint failed"):
		return fmt.Errorf("%s: %w", msg, domain.ErrConflict)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

func utc(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	return t.UTC()
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

var _ storage.Repository = (*Repository)(nil)
