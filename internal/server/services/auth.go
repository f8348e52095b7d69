// Package services contains server-side business logic. This file implements
// AuthService: password login issuing bearer tokens, and resolution of a
// presented token to the caller's current profile.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophstat/internal/common"
	"github.com/dmitrijs2005/gophstat/internal/dbx"
	"github.com/dmitrijs2005/gophstat/internal/server/auth"
	"github.com/dmitrijs2005/gophstat/internal/server/models"
	"github.com/dmitrijs2005/gophstat/internal/server/repositories/repomanager"
)

// TokenTypeBearer is the token_type reported alongside access tokens.
const TokenTypeBearer = "bearer"

// TokenResponse is what a successful login returns to the client.
type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// AuthService is stateless apart from its collaborators; every call reads
// the credential store afresh.
type AuthService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	codec       auth.TokenCodec
	verifier    auth.PasswordVerifier
	tokenTTL    time.Duration
}

// NewAuthService wires an AuthService. tokenTTL is the lifetime of tokens
// issued by Login.
func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, codec auth.TokenCodec,
	verifier auth.PasswordVerifier, tokenTTL time.Duration) *AuthService {
	return &AuthService{
		db:          db,
		repomanager: m,
		codec:       codec,
		verifier:    verifier,
		tokenTTL:    tokenTTL,
	}
}

// Authenticate reports whether password is valid for username. Unknown users
// and wrong passwords both yield false; only store failures return an error.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (bool, error) {
	user, err := s.findUser(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			// equalize timing with the found-user path
			s.verifier.Verify(password, "")
			return false, nil
		}
		return false, err
	}
	return s.verifier.Verify(password, user.PasswordHash), nil
}

// Login authenticates and, on success, issues a bearer token for username.
// Bad credentials yield common.ErrIncorrectCredentials.
func (s *AuthService) Login(ctx context.Context, username, password string) (*TokenResponse, error) {
	ok, err := s.Authenticate(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, common.ErrIncorrectCredentials
	}

	token, err := s.codec.Encode(auth.Claims{Subject: username}, s.tokenTTL)
	if err != nil {
		return nil, fmt.Errorf("%w: encode token: %v", common.ErrorInternal, err)
	}
	return &TokenResponse{AccessToken: token, TokenType: TokenTypeBearer}, nil
}

// Resolve turns an Authorization header value into the caller's Principal.
//
// Errors, in the order they are checked: common.ErrNotAuthenticated,
// common.ErrCouldNotValidate, common.ErrUserNotFound, common.ErrInactiveUser.
// Store failures wrap common.ErrorInternal.
func (s *AuthService) Resolve(ctx context.Context, authorization string) (*models.Principal, error) {
	token, err := auth.BearerToken(authorization)
	if err != nil {
		return nil, err
	}

	claims, err := s.codec.Decode(token)
	if err != nil || claims.Subject == "" {
		return nil, common.ErrCouldNotValidate
	}

	user, err := s.findUser(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrUserNotFound
		}
		return nil, err
	}
	if user.Disabled {
		return nil, common.ErrInactiveUser
	}
	return user.Principal(), nil
}

// findUser reads one record on a dedicated pooled connection that is
// released before returning.
func (s *AuthService) findUser(ctx context.Context, username string) (*models.User, error) {
	var user *models.User
	err := dbx.WithConn(ctx, s.db, func(ctx context.Context, conn dbx.DBTX) error {
		u, err := s.repomanager.Users(conn).GetUserByLogin(ctx, username)
		user = u
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return user, nil
}
