package models

import "time"

// SyncState is a step of the per-account sync state machine.
type SyncState string

const (
	SyncStateStart         SyncState = "START"
	SyncStateTokenAcquired SyncState = "TOKEN_ACQUIRED"
	SyncStatePulling       SyncState = "PULLING"
	SyncStateUpserting     SyncState = "NORMALIZING_AND_UPSERTING"
	SyncStateReconciling   SyncState = "RECONCILING"
	SyncStateDone          SyncState = "DONE"
	SyncStateFailed        SyncState = "FAILED"
)

// Terminal reports whether no further transition can happen.
func (s SyncState) Terminal() bool {
	return s == SyncStateDone || s == SyncStateFailed
}

// SyncRun records one orchestrator run for one account.
type SyncRun struct {
	ID          string     `json:"id"`
	AccountID   string     `json:"accountId"`
	RequesterID string     `json:"requesterId"`
	State       SyncState  `json:"state"`
	Pages       int        `json:"pages"`
	Items       int        `json:"items"`
	LatestID    *string    `json:"latestId,omitempty"`
	EarliestID  *string    `json:"earliestId,omitempty"`
	StartedAt   time.Time  `json:"startedAt"`
	FinishedAt  *time.Time `json:"finishedAt,omitempty"`
	Error       string     `json:"error,omitempty"`
}
