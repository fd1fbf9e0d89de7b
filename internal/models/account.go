// Package models holds the domain types shared by the transport, store and
// sync layers of the indexer.
package models

import (
	"errors"
	"fmt"
)

// ErrInvalidWatermark reports a watermark whose latest id is set while its
// earliest id is not.
var ErrInvalidWatermark = errors.New("invalid watermark")

// Account is a source account as stored after normalization.
type Account struct {
	ID              string
	Username        string
	Name            string
	ProfileImageURL string
	// Properties holds every normalized attribute, including the flattened
	// "public_metrics.*" keys.
	Properties Object
}

func (a Account) String() string {
	return fmt.Sprintf("Account(id=%s, username=%s)", a.ID, a.Username)
}

// Watermark is the known-synced window of a tracked account.
//
// Both ids nil means the account was never synced. EarliestID nil with
// LatestID set is invalid.
type Watermark struct {
	LatestID   *string
	EarliestID *string
}

// NeverSynced reports whether no sync has completed for the account yet.
func (w Watermark) NeverSynced() bool {
	return w.EarliestID == nil
}

// Validate checks the null-pair invariant.
func (w Watermark) Validate() error {
	if w.EarliestID == nil && w.LatestID != nil {
		return fmt.Errorf("%w: latest=%s without earliest", ErrInvalidWatermark, *w.LatestID)
	}
	return nil
}

// Equal compares two watermarks by value.
func (w Watermark) Equal(o Watermark) bool {
	return eqPtr(w.LatestID, o.LatestID) && eqPtr(w.EarliestID, o.EarliestID)
}

func (w Watermark) String() string {
	return fmt.Sprintf("Watermark(latest=%s, earliest=%s)", deref(w.LatestID), deref(w.EarliestID))
}

// TrackedAccount is an account whose posts are mirrored, together with the
// requester whose access token pays for the API calls.
type TrackedAccount struct {
	Account
	RequesterID string
	Watermark   Watermark
}

func (t TrackedAccount) String() string {
	return fmt.Sprintf("TrackedAccount(id=%s, username=%s, requester=%s, %s)",
		t.ID, t.Username, t.RequesterID, t.Watermark)
}

// StringPtr returns a pointer to a copy of s.
func StringPtr(s string) *string {
	return &s
}

func eqPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
