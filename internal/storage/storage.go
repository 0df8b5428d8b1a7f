// Package storage provides the durable key-value backends the shopping list
// is persisted to. Each key holds one opaque string value.
package storage

import (
	"context"
	"errors"
	"fmt"

	"meal-shopper/internal/config"
	"meal-shopper/internal/database"
)

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = errors.New("storage backend is closed")

// Backend is a durable string store with an explicit shutdown.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	Close() error
}

// Open builds the backend selected by cfg.StorageBackend.
func Open(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.StorageBackend {
	case "memory":
		return NewMemory(), nil
	case "file":
		return NewFileStore(cfg.StoragePath)
	case "sqlite":
		db, err := database.OpenSQLite(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize database: %w", err)
		}
		return NewSQLiteStore(db), nil
	case "postgres":
		return ConnectPostgres(ctx, cfg.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}
