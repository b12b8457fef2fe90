// Package sqlite provides the embedded durable backend: the in-memory store
// journaled to a single SQLite file through the shared sqlstore journal.
package sqlite

import (
	"context"
	"embed"
	"os"
	"path/filepath"

	"genealogycore/internal/infra/persistence/memory"
	"genealogycore/internal/infra/persistence/sqlstore"
	"genealogycore/pkg/domain"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/huandu/go-sqlbuilder"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	moderncsqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Compile-time contract assertion.
var _ domain.PersistentStore = (*Store)(nil)

const (
	defaultPath  = "genealogy.db"
	busyTimeout  = "_pragma=busy_timeout(5000)"
	maxBusyTries = 5
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// Store is the memory store journaled to SQLite.
type Store struct {
	*memory.Store
	db      *sqlx.DB
	journal *sqlstore.Journal
	path    string
}

// NewStore opens (creating if needed) the database at path, migrates it to
// the latest schema and hydrates the in-memory state from it.
func NewStore(path string, opts ...memory.Option) (*Store, error) {
	if path == "" {
		path = defaultPath
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errors.Wrap(err, "create dirs")
		}
	}
	db, err := sqlx.Open("sqlite", path+"?"+busyTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}
	// A single connection keeps writers from contending on the file lock.
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	journal := sqlstore.NewJournal(db, sqlbuilder.SQLite, sqlstore.WithRetry(sqlstore.Retrying(maxBusyTries, IsBusy)))
	snapshot, err := journal.Load(context.Background())
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	mem := memory.NewStore(append(opts, memory.WithJournal(journal))...)
	mem.ImportState(snapshot)
	return &Store{Store: mem, db: db, journal: journal, path: path}, nil
}

func migrateUp(db *sqlx.DB) error {
	src, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return errors.Wrap(err, "load migrations")
	}
	driver, err := migratesqlite.WithInstance(db.DB, &migratesqlite.Config{})
	if err != nil {
		return errors.Wrap(err, "migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return errors.Wrap(err, "init migrations")
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return errors.Wrap(err, "apply migrations")
	}
	return nil
}

// IsBusy reports whether err is a transient SQLITE_BUSY or SQLITE_LOCKED failure.
func IsBusy(err error) bool {
	var sqliteErr *moderncsqlite.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	switch sqliteErr.Code() & 0xff {
	case sqlite3.SQLITE_BUSY, sqlite3.SQLITE_LOCKED:
		return true
	}
	return false
}

// DB exposes the underlying handle for integration testing hooks.
func (s *Store) DB() *sqlx.DB { return s.db }

// Path returns the configured database path.
func (s *Store) Path() string { return s.path }

// Close releases the database handle.
func (s *Store) Close() error { return s.db.Close() }
