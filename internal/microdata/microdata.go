// Package microdata opens the persisted microdata store. It is the only
// package that imports the persistence backends.
package microdata

import (
	"context"
	"fmt"

	"cpstables/internal/infra/persistence/memory"
	"cpstables/internal/infra/persistence/postgres"
	"cpstables/internal/infra/persistence/sqlite"
	"cpstables/pkg/domain"
)

// Driver identifies a concrete storage implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

type Store = domain.MicrodataStore

// Config selects and configures a backend.
type Config struct {
	Driver      Driver `yaml:"driver"`
	SQLitePath  string `yaml:"sqlite_path"`
	PostgresDSN string `yaml:"postgres_dsn"`
}

// Open constructs the configured store. An empty driver selects sqlite.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case "", DriverSQLite:
		return sqlite.NewStore(ctx, cfg.SQLitePath)
	case DriverMemory:
		return memory.NewStore(), nil
	case DriverPostgres:
		return postgres.NewStore(ctx, cfg.PostgresDSN)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}
