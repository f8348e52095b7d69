package users

import (
	"context"

	"github.com/dmitrijs2005/gophstat/internal/server/models"
)

// Repository reads and provisions credential records.
//
// GetUserByLogin returns common.ErrorNotFound when the username is unknown.
// Create returns common.ErrAlreadyExists for a taken username, and
// SetDisabled returns common.ErrorNotFound when nothing was updated.
type Repository interface {
	GetUserByLogin(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	SetDisabled(ctx context.Context, username string, disabled bool) error
}
