// Package accesstokens declares the repository contract for the OAuth
// tokens of requester accounts.
package accesstokens

import (
	"context"

	"github.com/kikuomax/tweetscape-streams/internal/models"
)

type Repository interface {
	// Get returns the token of ownerID or common.ErrorNotFound.
	Get(ctx context.Context, ownerID string) (*models.AccessToken, error)

	// Save inserts or replaces the token of token.OwnerID. The original
	// issue time is kept on replace.
	Save(ctx context.Context, token *models.AccessToken) error
}
