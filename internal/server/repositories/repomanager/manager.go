// Package repomanager vends dialect-specific repositories, opens the
// backing database and applies the embedded goose migrations.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"

	"github.com/dmitrijs2005/gophstat/internal/dbx"
	"github.com/dmitrijs2005/gophstat/internal/server/migrations"
	"github.com/dmitrijs2005/gophstat/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
)

type RepositoryManager interface {
	// DriverName is the database/sql driver to open DSNs with.
	DriverName() string
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
}

// migrator is the part of *goose.Provider used here.
type migrator interface {
	Up(ctx context.Context) ([]*goose.MigrationResult, error)
}

// newMigrator is a seam for goose.NewProvider.
var newMigrator = func(dialect goose.Dialect, db *sql.DB, fsys fs.FS) (migrator, error) {
	return goose.NewProvider(dialect, db, fsys)
}

func runMigrations(ctx context.Context, db *sql.DB, dialect goose.Dialect, driver string) error {
	fsys, err := migrations.ForDriver(driver)
	if err != nil {
		return err
	}
	m, err := newMigrator(dialect, db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := m.Up(ctx); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}
	return nil
}

// NewRepositoryManager returns the manager for "postgres" or "sqlite".
func NewRepositoryManager(driver string) (RepositoryManager, error) {
	switch driver {
	case "postgres":
		return &PostgresRepositoryManager{}, nil
	case "sqlite":
		return &SQLiteRepositoryManager{}, nil
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Open opens and pings a database for the manager's driver.
func Open(ctx context.Context, m RepositoryManager, dsn string) (*sql.DB, error) {
	db, err := sql.Open(m.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", m.DriverName(), err)
	}
	if tuner, ok := m.(interface{ tune(*sql.DB) }); ok {
		tuner.tune(db)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", m.DriverName(), err)
	}
	return db, nil
}
