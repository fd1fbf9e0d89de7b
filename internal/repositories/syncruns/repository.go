// Package syncruns declares the repository contract for sync run records.
package syncruns

import (
	"context"

	"github.com/kikuomax/tweetscape-streams/internal/models"
)

type Repository interface {
	// Start inserts a new run.
	Start(ctx context.Context, run *models.SyncRun) error

	// Update writes the mutable fields of run.
	Update(ctx context.Context, run *models.SyncRun) error

	// Get returns a run by id or common.ErrorNotFound.
	Get(ctx context.Context, id string) (*models.SyncRun, error)
}
