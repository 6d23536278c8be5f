package ports

// Notification kinds emitted by the clearance engine.
const (
	NotificationFundsWithdrawable  = "funds_withdrawable"
	NotificationWithdrawalFailed   = "withdrawal_failed"
	NotificationClearanceCancelled = "clearance_cancelled"
)

// Audit actions emitted by the clearance engine.
const (
	AuditActionCommissionSettled  = "order.commission_settled"
	AuditActionClearancePaused    = "clearance.paused"
	AuditActionClearanceResumed   = "clearance.resumed"
	AuditActionClearanceBlocked   = "clearance.blocked"
	AuditActionClearanceCancelled = "clearance.cancelled"
	AuditActionClearanceCleared   = "clearance.cleared"
	AuditActionWithdrawal         = "wallet.withdrawal"
)

// Fallback values used when no settings row exists yet.
const (
	DefaultCommissionRate = 10
	DefaultHoldHours      = 3
)
