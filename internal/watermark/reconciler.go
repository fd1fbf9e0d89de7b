// Package watermark decides and persists the synced window of a tracked
// account after a pull.
package watermark

import (
	"context"
	"errors"
	"fmt"

	"github.com/kikuomax/tweetscape-streams/internal/logging"
	"github.com/kikuomax/tweetscape-streams/internal/models"
)

// ErrPrecondition is matched by PreconditionError.
var ErrPrecondition = errors.New("watermark precondition violated")

// PreconditionError reports a reconciliation that must not proceed.
type PreconditionError struct {
	AccountID string
	Reason    string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("%v for %s: %s", ErrPrecondition, e.AccountID, e.Reason)
}

func (e *PreconditionError) Is(target error) bool {
	return target == ErrPrecondition
}

// Store persists a watermark.
type Store interface {
	SetWatermark(ctx context.Context, accountID string, w models.Watermark) error
}

// Outcome tells what Reconcile did.
type Outcome string

const (
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeReset     Outcome = "reset"
	OutcomeAdvanced  Outcome = "advanced"
)

type Reconciler struct {
	store  Store
	logger logging.Logger
}

func NewReconciler(store Store, logger logging.Logger) *Reconciler {
	return &Reconciler{store: store, logger: logger}
}

// Reconcile applies rng to the account's prior watermark.
//
// An empty range writes nothing. A never-synced account gets both ids from
// rng. Otherwise only the latest id moves and the earliest id is kept.
func (r *Reconciler) Reconcile(ctx context.Context, account models.TrackedAccount, rng models.Range) (models.Watermark, Outcome, error) {
	prior := account.Watermark
	if rng.Empty() {
		r.logger.Debug(ctx, "no posts pulled, watermark unchanged", "account_id", account.ID)
		return prior, OutcomeUnchanged, nil
	}
	if rng.NewestID == "" || rng.OldestID == "" {
		return prior, OutcomeUnchanged, &PreconditionError{AccountID: account.ID, Reason: "incomplete range"}
	}

	if prior.NeverSynced() {
		w, err := r.Reset(ctx, account.ID, rng)
		if err != nil {
			return prior, OutcomeUnchanged, err
		}
		return w, OutcomeReset, nil
	}

	w, err := r.AdvanceLatest(ctx, account.ID, prior, rng.NewestID)
	if err != nil {
		return prior, OutcomeUnchanged, err
	}
	return w, OutcomeAdvanced, nil
}

// Reset overwrites both ids.
func (r *Reconciler) Reset(ctx context.Context, accountID string, rng models.Range) (models.Watermark, error) {
	w := models.Watermark{
		LatestID:   models.StringPtr(rng.NewestID),
		EarliestID: models.StringPtr(rng.OldestID),
	}
	if err := r.store.SetWatermark(ctx, accountID, w); err != nil {
		return models.Watermark{}, fmt.Errorf("reset watermark of %s: %w", accountID, err)
	}
	r.logger.Info(ctx, "watermark reset", "account_id", accountID, "latest_id", rng.NewestID, "earliest_id", rng.OldestID)
	return w, nil
}

// AdvanceLatest moves the latest id to newestID and keeps the earliest id
// of prior, which must be set.
func (r *Reconciler) AdvanceLatest(ctx context.Context, accountID string, prior models.Watermark, newestID string) (models.Watermark, error) {
	if prior.EarliestID == nil {
		return models.Watermark{}, &PreconditionError{AccountID: accountID, Reason: "earliest id absent on advance"}
	}
	w := models.Watermark{
		LatestID:   models.StringPtr(newestID),
		EarliestID: models.StringPtr(*prior.EarliestID),
	}
	if err := r.store.SetWatermark(ctx, accountID, w); err != nil {
		return models.Watermark{}, fmt.Errorf("advance watermark of %s: %w", accountID, err)
	}
	r.logger.Info(ctx, "watermark advanced", "account_id", accountID, "latest_id", newestID)
	return w, nil
}
