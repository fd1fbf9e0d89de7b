// Package posts declares the repository contract for timeline posts.
package posts

import (
	"context"

	"github.com/kikuomax/tweetscape-streams/internal/models"
)

// Repository stores normalized posts.
type Repository interface {
	// Upsert inserts or replaces posts keyed by id.
	Upsert(ctx context.Context, posts []*models.Post) error

	// CountByAuthor returns how many posts of authorID are stored.
	CountByAuthor(ctx context.Context, authorID string) (int, error)
}
