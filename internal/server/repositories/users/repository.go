// Package users persists registered accounts.
package users

import (
	"context"

	"github.com/dmitrijs2005/whisperbox/internal/server/models"
)

// Repository stores users. Email uniqueness is case-insensitive and
// enforced by the store; a duplicate Create returns common.ErrorAlreadyExists.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	// Search returns users whose lower-cased email contains query, ordered
	// by email, at most limit of them.
	Search(ctx context.Context, query string, limit int) ([]*models.User, error)
}
