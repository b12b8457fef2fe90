// Package postgres provides a Postgres-backed persistent store that keeps the
// in-memory semantics and journals every committed batch to normalized tables.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"sync"

	"genealogycore/internal/infra/persistence/memory"
	"genealogycore/internal/infra/persistence/sqlstore"
	"genealogycore/pkg/domain"

	"github.com/golang-migrate/migrate/v4"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Compile-time contract assertion ensuring the store satisfies the domain interface.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/genealogy?sslmode=disable"
	maxTxTries    = 5
)

//go:embed migrations/*.sql
var migrationFS embed.FS

var (
	sqlOpen       = sql.Open
	runMigrations = migrateUp
	openMu        sync.Mutex
)

// Store persists state to Postgres while reusing the in-memory implementation for transactions.
type Store struct {
	*memory.Store
	db *sqlx.DB
}

// NewStore opens a Postgres-backed store using the provided DSN (falls back to defaultDSN).
// It migrates the schema and hydrates the in-memory store from the journal tables.
func NewStore(ctx context.Context, dsn string, opts ...memory.Option) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	raw, err := sqlOpen(defaultDriver, dsn)
	migrations := runMigrations
	openMu.Unlock()
	if err != nil {
		return nil, errors.Wrap(err, "open postgres")
	}
	if err := raw.PingContext(ctx); err != nil {
		_ = raw.Close()
		return nil, errors.Wrap(err, "ping postgres")
	}
	if err := migrations(raw); err != nil {
		_ = raw.Close()
		return nil, err
	}
	db := sqlx.NewDb(raw, defaultDriver)
	journal := sqlstore.NewJournal(db, sqlbuilder.PostgreSQL, sqlstore.WithRetry(sqlstore.Retrying(maxTxTries, IsRetryable)))
	snapshot, err := journal.Load(ctx)
	if err != nil {
		_ = raw.Close()
		return nil, err
	}
	mem := memory.NewStore(append(opts, memory.WithJournal(journal))...)
	mem.ImportState(snapshot)
	return &Store{Store: mem, db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "load migrations")
	}
	driver, err := migratepgx.WithInstance(db, &migratepgx.Config{})
	if err != nil {
		return errors.Wrap(err, "migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "pgx5", driver)
	if err != nil {
		return errors.Wrap(err, "init migrations")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}

// IsRetryable reports serialization failures and deadlocks, which succeed
// when the transaction is replayed.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01":
		return true
	}
	return false
}

// DB exposes the underlying handle for integration testing hooks.
func (s *Store) DB() *sqlx.DB { return s.db }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }

// OverrideSQLOpen swaps the sqlOpen function for tests and returns a restore function.
func OverrideSQLOpen(fn func(driverName, dataSourceName string) (*sql.DB, error)) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := sqlOpen
	sqlOpen = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		sqlOpen = prev
	}
}

// OverrideMigrations swaps the schema migration step for tests and returns a
// restore function.
func OverrideMigrations(fn func(*sql.DB) error) func() {
	openMu.Lock()
	defer openMu.Unlock()
	prev := runMigrations
	runMigrations = fn
	return func() {
		openMu.Lock()
		defer openMu.Unlock()
		runMigrations = prev
	}
}
