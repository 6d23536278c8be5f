package usecases

import "errors"

// Validation failures are typed results for callers to match with errors.Is.
// They are never fatal and never logged as system errors.
var (
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrInsufficientBalance = errors.New("insufficient withdrawable balance")
	ErrTransferFailed      = errors.New("transfer gateway failure")

	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotCompleted = errors.New("order is not completed")

	ErrClearanceNotFound  = errors.New("clearance not found")
	ErrClearanceCleared   = errors.New("clearance already cleared")
	ErrClearanceCancelled = errors.New("clearance already cancelled")
	ErrAlreadyPaused      = errors.New("clearance already paused")
	ErrNotPaused          = errors.New("clearance is not paused")
	ErrNotBlocked         = errors.New("clearance is not blocked")

	ErrNoActiveComplaint    = errors.New("no active complaint on order")
	ErrComplaintStillActive = errors.New("order still has an active complaint")
	ErrComplaintNotFound    = errors.New("complaint not found")
	ErrInvalidResolution    = errors.New("invalid resolution type")
)
