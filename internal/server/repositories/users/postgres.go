package users

import (
	"errors"

	"github.com/dmitrijs2005/gophstat/internal/dbx"
	"github.com/jackc/pgx/v5/pgconn"
)

const pgUniqueViolation = "23505"

var postgresQueries = queries{
	selectByUsername: `SELECT username, email, full_name, password_hash, disabled FROM user_auth
		 WHERE username = $1`,
	insert: `INSERT INTO user_auth (username, email, full_name, password_hash, disabled)
		 VALUES ($1, $2, $3, $4, $5)`,
	setDisabled: `UPDATE user_auth SET disabled = $1
		 WHERE username = $2`,
}

// NewPostgresRepository returns a Repository for PostgreSQL via pgx.
func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, q: postgresQueries, isDuplicate: isPgUniqueViolation}
}

func isPgUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
