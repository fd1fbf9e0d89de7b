package models

import (
	"fmt"
	"time"

	"github.com/kikuomax/tweetscape-streams/internal/common"
)

// AccessToken is the OAuth token pair of a requester account.
type AccessToken struct {
	OwnerID       string
	AccessSecret  string
	RefreshSecret string
	IssuedAt      time.Time
	UpdatedAt     time.Time
	TTL           time.Duration
}

// String masks both secrets.
func (t AccessToken) String() string {
	return fmt.Sprintf("AccessToken(owner=%s, access=%s, refresh=%s, issued_at=%s, updated_at=%s, ttl=%s)",
		t.OwnerID,
		common.MaskSecret(t.AccessSecret),
		common.MaskSecret(t.RefreshSecret),
		t.IssuedAt.Format(time.RFC3339),
		t.UpdatedAt.Format(time.RFC3339),
		t.TTL,
	)
}
