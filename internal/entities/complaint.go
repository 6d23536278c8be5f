package entities

import "time"

// ComplaintStatus is the lifecycle state of a customer complaint. Complaints
// are owned by the marketplace; the clearance engine only reads them.
type ComplaintStatus string

const (
	ComplaintOpen      ComplaintStatus = "open"
	ComplaintInReview  ComplaintStatus = "in_review"
	ComplaintEscalated ComplaintStatus = "escalated"
	ComplaintResolved  ComplaintStatus = "resolved"
	ComplaintDismissed ComplaintStatus = "dismissed"
)

// IsActive reports whether the complaint still gates clearance. An order with
// any active complaint can never clear, regardless of elapsed hold time.
func (s ComplaintStatus) IsActive() bool {
	return s == ComplaintOpen || s == ComplaintInReview || s == ComplaintEscalated
}

// ResolutionType is the outcome attached to a resolved complaint.
type ResolutionType string

const (
	ResolutionDismiss       ResolutionType = "dismiss"
	ResolutionWarning       ResolutionType = "warning"
	ResolutionPartialRefund ResolutionType = "partial_refund"
	ResolutionFullRefund    ResolutionType = "full_refund"
	ResolutionSuspend       ResolutionType = "suspend"
)

// Valid reports whether the resolution type is one of the known outcomes.
func (r ResolutionType) Valid() bool {
	switch r {
	case ResolutionDismiss, ResolutionWarning, ResolutionPartialRefund, ResolutionFullRefund, ResolutionSuspend:
		return true
	}
	return false
}

// ReleasesFunds reports whether resolving with this outcome unblocks the
// clearance and resumes the escrow timer.
func (r ResolutionType) ReleasesFunds() bool {
	return r == ResolutionDismiss || r == ResolutionWarning
}

// CancelsClearance reports whether resolving with this outcome permanently
// cancels the clearance and excludes the held amount from future sweeps.
func (r ResolutionType) CancelsClearance() bool {
	return r == ResolutionPartialRefund || r == ResolutionFullRefund || r == ResolutionSuspend
}

// Complaint is a read-only projection of a customer complaint.
type Complaint struct {
	ID             int64           `db:"id"`
	OrderID        int64           `db:"order_id"`
	Status         ComplaintStatus `db:"status"`
	ResolutionType *ResolutionType `db:"resolution_type"`
	CreatedAt      time.Time       `db:"created_at"`
	ResolvedAt     *time.Time      `db:"resolved_at"`
}
