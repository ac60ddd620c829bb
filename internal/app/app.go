// Package app holds the wiring shared by the server and the admin CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/your-org/attendance/internal/config"
	"github.com/your-org/attendance/internal/seal"
	"github.com/your-org/attendance/internal/storage"
)

// OpenStore connects the configured record store. Postgres gets its schema
// ensured on the way.
func OpenStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.Store.Driver {
	case "memory":
		slog.Warn("using in-memory store, data is lost on exit")
		return storage.NewMemoryStore(), nil
	case "postgres":
		db, err := storage.NewPostgresStore(cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("connect to postgres: %w", err)
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
}

// LoadSealKey returns the template master key: seal.key when set, otherwise
// the key file, created on first start.
func LoadSealKey(cfg config.SealConfig) ([]byte, error) {
	if cfg.Key != "" {
		key, err := seal.ParseKey(cfg.Key)
		if err != nil {
			return nil, fmt.Errorf("parse seal key: %w", err)
		}
		return key, nil
	}

	key, created, err := seal.LoadOrCreateKeyFile(cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load seal key file: %w", err)
	}
	if created {
		slog.Warn("generated new template sealing key, back it up", "path", cfg.KeyFile)
	}
	return key, nil
}

// OpenTemplates builds the template sealer from cfg.
func OpenTemplates(cfg config.SealConfig) (*seal.Templates, error) {
	key, err := LoadSealKey(cfg)
	if err != nil {
		return nil, err
	}
	sealer, err := seal.NewAEADSealer(key)
	if err != nil {
		return nil, fmt.Errorf("create sealer: %w", err)
	}
	return seal.NewTemplates(sealer), nil
}
