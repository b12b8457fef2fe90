package core

import (
	"context"
	"fmt"

	"genealogycore/internal/infra/persistence/memory"
	"genealogycore/internal/infra/persistence/postgres"
	"genealogycore/internal/infra/persistence/sqlite"
	"genealogycore/pkg/domain"
)

// StorageDriver identifies a concrete persistent storage implementation.
type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"   // in-memory only (tests / ephemeral)
	StorageSQLite   StorageDriver = "sqlite"   // embedded sqlite file
	StoragePostgres StorageDriver = "postgres" // PostgreSQL server
)

// StorageConfig selects and configures the persistent store.
type StorageConfig struct {
	Driver      string `env:"DRIVER" envDefault:"sqlite"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"genealogy.db"`
	PostgresDSN string `env:"POSTGRES_DSN"`
}

// ClosableStore is a persistent store holding backend resources.
type ClosableStore interface {
	domain.PersistentStore
	Close() error
}

type memoryBackend struct{ *memory.Store }

func (memoryBackend) Close() error { return nil }

// OpenPersistentStore opens the backend named by cfg.Driver with the default
// integrity rules installed. Durable backends hydrate their state before
// returning.
func OpenPersistentStore(ctx context.Context, cfg StorageConfig, opts ...memory.Option) (ClosableStore, error) {
	opts = append([]memory.Option{memory.WithRulesEngine(NewDefaultRulesEngine())}, opts...)
	switch StorageDriver(cfg.Driver) {
	case StorageMemory:
		return memoryBackend{memory.NewStore(opts...)}, nil
	case StorageSQLite, "":
		store, err := sqlite.NewStore(cfg.SQLitePath, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	case StoragePostgres:
		if cfg.PostgresDSN == "" {
			return nil, fmt.Errorf("postgres driver requires a DSN")
		}
		store, err := postgres.NewStore(ctx, cfg.PostgresDSN, opts...)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
