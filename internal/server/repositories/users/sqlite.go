package users

import (
	"errors"
	"strings"

	"github.com/dmitrijs2005/gophstat/internal/dbx"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var sqliteQueries = queries{
	selectByUsername: `SELECT username, email, full_name, password_hash, disabled FROM user_auth
		 WHERE username = ?`,
	insert: `INSERT INTO user_auth (username, email, full_name, password_hash, disabled)
		 VALUES (?, ?, ?, ?, ?)`,
	setDisabled: `UPDATE user_auth SET disabled = ?
		 WHERE username = ?`,
}

// NewSQLiteRepository returns a Repository for SQLite (modernc.org/sqlite).
func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: sqliteQueries, isDuplicate: isSQLiteUniqueViolation}
}

func isSQLiteUniqueViolation(err error) bool {
	var sqErr *sqlite.Error
	if !errors.As(err, &sqErr) {
		return false
	}
	switch sqErr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	case sqlite3.SQLITE_CONSTRAINT:
		return strings.Contains(sqErr.Error(), "UNIQUE")
	}
	return false
}
