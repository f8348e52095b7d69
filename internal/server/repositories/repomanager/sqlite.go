package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophstat/internal/dbx"
	"github.com/dmitrijs2005/gophstat/internal/server/repositories/users"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteRepositoryManager vends SQLite-backed repositories (modernc.org/sqlite).
type SQLiteRepositoryManager struct{}

func (m *SQLiteRepositoryManager) DriverName() string { return "sqlite" }

func (m *SQLiteRepositoryManager) Users(db dbx.DBTX) users.Repository {
	return users.NewSQLiteRepository(db)
}

func (m *SQLiteRepositoryManager) RunMigrations(ctx context.Context, db *sql.DB) error {
	return runMigrations(ctx, db, goose.DialectSQLite3, "sqlite")
}

// tune serializes access through one connection: SQLite allows a single
// writer, and in-memory databases are private to their connection.
func (m *SQLiteRepositoryManager) tune(db *sql.DB) {
	db.SetMaxOpenConns(1)
}
