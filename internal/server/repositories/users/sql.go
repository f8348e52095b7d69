package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophstat/internal/common"
	"github.com/dmitrijs2005/gophstat/internal/dbx"
	"github.com/dmitrijs2005/gophstat/internal/server/models"
)

// queries holds the dialect-specific statements for user_auth.
type queries struct {
	selectByUsername string
	insert           string
	setDisabled      string
}

// SQLRepository is a Repository over database/sql. The dialect only
// changes the statement text and how unique violations are recognized.
type SQLRepository struct {
	db          dbx.DBTX
	q           queries
	isDuplicate func(error) bool
}

func (r *SQLRepository) GetUserByLogin(ctx context.Context, username string) (*models.User, error) {
	var (
		user            models.User
		email, fullName sql.NullString
	)
	err := r.db.QueryRowContext(ctx, r.q.selectByUsername, username).
		Scan(&user.Username, &email, &fullName, &user.PasswordHash, &user.Disabled)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	user.Email = email.String
	user.FullName = fullName.String
	return &user, nil
}

func (r *SQLRepository) Create(ctx context.Context, user *models.User) error {
	_, err := r.db.ExecContext(ctx, r.q.insert,
		user.Username, nullable(user.Email), nullable(user.FullName), user.PasswordHash, user.Disabled)

	if err != nil {
		if r.isDuplicate(err) {
			return fmt.Errorf("user %q: %w", user.Username, common.ErrAlreadyExists)
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *SQLRepository) SetDisabled(ctx context.Context, username string, disabled bool) error {
	res, err := r.db.ExecContext(ctx, r.q.setDisabled, disabled, username)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
