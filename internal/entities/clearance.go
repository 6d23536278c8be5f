package entities

import "time"

// OrderClearance tracks the escrow hold for one completed order. HoldHours is
// snapshotted at creation; later changes to the platform setting never touch
// an existing clearance. Cleared and Cancelled are terminal.
type OrderClearance struct {
	ID                      int64      `db:"id"                         json:"id"`
	OrderID                 int64      `db:"order_id"                   json:"order_id"`
	WalletID                int64      `db:"wallet_id"                  json:"wallet_id"`
	Amount                  int64      `db:"amount"                     json:"amount"`
	HoldHours               int        `db:"hold_hours"                 json:"hold_hours"`
	CompletedAt             time.Time  `db:"completed_at"               json:"completed_at"`
	WithdrawableAt          time.Time  `db:"withdrawable_at"            json:"withdrawable_at"`
	PausedAt                *time.Time `db:"paused_at"                  json:"paused_at,omitempty"`
	RemainingSecondsAtPause *int64     `db:"remaining_seconds_at_pause" json:"remaining_seconds_at_pause,omitempty"`
	IsPaused                bool       `db:"is_paused"                  json:"is_paused"`
	IsCleared               bool       `db:"is_cleared"                 json:"is_cleared"`
	IsCancelled             bool       `db:"is_cancelled"               json:"is_cancelled"`
	IsFlaggedForReview      bool       `db:"is_flagged_for_review"      json:"is_flagged_for_review"`
	BlockedAt               *time.Time `db:"blocked_at"                 json:"blocked_at,omitempty"`
	UnblockedAt             *time.Time `db:"unblocked_at"               json:"unblocked_at,omitempty"`
	ClearedAt               *time.Time `db:"cleared_at"                 json:"cleared_at,omitempty"`
	ComplaintID             *int64     `db:"complaint_id"               json:"complaint_id,omitempty"`
	CreatedAt               time.Time  `db:"created_at"                 json:"created_at"`
	UpdatedAt               time.Time  `db:"updated_at"                 json:"updated_at"`
}

// IsTerminal reports whether the clearance can never change state again.
func (c *OrderClearance) IsTerminal() bool {
	return c.IsCleared || c.IsCancelled
}

// IsBlocked reports whether a complaint review currently overrides the timer.
func (c *OrderClearance) IsBlocked() bool {
	return c.IsFlaggedForReview && !c.IsTerminal()
}

// IsEligible reports whether the sweeper may promote the clearance at the
// given instant. A blocked or paused clearance is never eligible no matter
// how long ago WithdrawableAt passed.
func (c *OrderClearance) IsEligible(now time.Time) bool {
	return !c.IsCleared && !c.IsCancelled && !c.IsPaused && !c.IsFlaggedForReview &&
		!c.WithdrawableAt.After(now)
}

// ClearanceFilter selects clearances for listing. A nil State means all.
type ClearanceFilter struct {
	State   *ClearanceState
	OrderID *int64
	Limit   uint64
}

// ClearanceState is the externally visible state of a clearance.
type ClearanceState string

const (
	ClearanceHolding   ClearanceState = "holding"
	ClearancePaused    ClearanceState = "paused"
	ClearanceBlocked   ClearanceState = "blocked"
	ClearanceEligible  ClearanceState = "eligible"
	ClearanceCleared   ClearanceState = "cleared"
	ClearanceCancelled ClearanceState = "cancelled"
)

// State derives the clearance state at the given instant.
func (c *OrderClearance) State(now time.Time) ClearanceState {
	switch {
	case c.IsCancelled:
		return ClearanceCancelled
	case c.IsCleared:
		return ClearanceCleared
	case c.IsFlaggedForReview:
		return ClearanceBlocked
	case c.IsPaused:
		return ClearancePaused
	case !c.WithdrawableAt.After(now):
		return ClearanceEligible
	default:
		return ClearanceHolding
	}
}
