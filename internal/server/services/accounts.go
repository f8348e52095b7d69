package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophstat/internal/dbx"
	"github.com/dmitrijs2005/gophstat/internal/server/auth"
	"github.com/dmitrijs2005/gophstat/internal/server/models"
	"github.com/dmitrijs2005/gophstat/internal/server/repositories/repomanager"
)

// ErrMissingField is returned by AccountService.Create for an empty
// username or password.
var ErrMissingField = errors.New("username and password are required")

// AccountService provisions and toggles user records. It backs the
// userctl tool; the HTTP API never writes to the store.
type AccountService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	hasher      auth.PasswordHasher
}

func NewAccountService(db *sql.DB, m repomanager.RepositoryManager, hasher auth.PasswordHasher) *AccountService {
	return &AccountService{db: db, repomanager: m, hasher: hasher}
}

// Create stores a new active user with a freshly hashed password.
func (s *AccountService) Create(ctx context.Context, username, email, fullName, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingField
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Username:     username,
		Email:        strings.TrimSpace(email),
		FullName:     strings.TrimSpace(fullName),
		PasswordHash: hash,
	}

	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Users(tx).Create(ctx, user)
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

// SetDisabled flips the disabled flag for username. An unknown user yields
// common.ErrorNotFound.
func (s *AccountService) SetDisabled(ctx context.Context, username string, disabled bool) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.repomanager.Users(tx).SetDisabled(ctx, username, disabled)
	})
}
