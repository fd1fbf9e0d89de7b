// Package media declares the repository contract for media attachments.
package media

import (
	"context"

	"github.com/kikuomax/tweetscape-streams/internal/models"
)

// Repository stores normalized media.
type Repository interface {
	// Upsert inserts or replaces media keyed by media key.
	Upsert(ctx context.Context, media []*models.Media) error
}
