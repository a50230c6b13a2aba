// Package users declares the account-persistence contract consumed by the
// session manager, and its PostgreSQL implementation.
package users

import (
	"context"

	"github.com/PhoenixRFA/backlogapp/internal/server/models"
)

// Repository is the persistence interface for account documents.
//
// Lookups return common.ErrorNotFound when no account matches; callers map
// that to a generic failure so the wire never reveals which half of a
// credential pair was wrong. The refresh-token collection is always written
// as a whole (last writer wins); there is no per-token update.
type Repository interface {
	// GetByID returns the account with the given id.
	GetByID(ctx context.Context, id string) (*models.User, error)

	// GetByEmail returns the account with the given normalized email.
	GetByEmail(ctx context.Context, normalizedEmail string) (*models.User, error)

	// GetByRefreshToken returns the account whose token collection contains
	// the given token, whether or not that token is still active.
	GetByRefreshToken(ctx context.Context, token string) (*models.User, error)

	// Create persists a new account under the id chosen by the caller.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// UpdateRefreshTokens replaces the account's whole token collection.
	UpdateRefreshTokens(ctx context.Context, id string, tokens []models.RefreshToken) error

	// UpdatePassword replaces the password hash and the whole token
	// collection as a single atomic update.
	UpdatePassword(ctx context.Context, id string, passwordHash string, tokens []models.RefreshToken) error

	// UpdateName changes the display name.
	UpdateName(ctx context.Context, id string, name string) error

	// UpdateEmail changes the email and its normalized form together.
	UpdateEmail(ctx context.Context, id string, email, normalizedEmail string) error
}
