// Package accounts declares the repository contract for source accounts.
package accounts

import (
	"context"

	"github.com/kikuomax/tweetscape-streams/internal/models"
)

// Repository stores normalized accounts.
type Repository interface {
	// Upsert inserts or replaces accounts keyed by id.
	Upsert(ctx context.Context, accounts []*models.Account) error

	// Get returns the account with the given id or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.Account, error)
}
