// Package trackedaccounts declares the repository contract for accounts
// whose timelines are mirrored and their watermarks.
package trackedaccounts

import (
	"context"

	"github.com/kikuomax/tweetscape-streams/internal/models"
)

// Repository persists tracked accounts.
type Repository interface {
	// Get returns the tracked account joined with its account row, or
	// common.ErrorNotFound.
	Get(ctx context.Context, accountID string) (*models.TrackedAccount, error)

	// List returns every tracked account ordered by requester.
	List(ctx context.Context) ([]*models.TrackedAccount, error)

	// Create registers accountID with a null watermark. It reports false
	// when the account was already tracked.
	Create(ctx context.Context, accountID, requesterID string) (bool, error)

	// SetWatermark writes both watermark ids.
	SetWatermark(ctx context.Context, accountID string, w models.Watermark) error
}
