package ports

import (
	"context"

	"github.com/shopspring/decimal"
)

// Notifier dispatches a queued, fire-and-forget notification to a cook.
// Delivery transport (push, email) lives outside this service; a failed
// dispatch must never roll back a financial transaction.
type Notifier interface {
	Notify(ctx context.Context, tenantID, cookID int64, kind string, payload map[string]any) error
}

// AuditLogger records a business-level audit event. Storage of the activity
// log is an external concern.
type AuditLogger interface {
	Log(ctx context.Context, actor, action string, properties map[string]any)
}

// TransferGateway initiates an external mobile-money payout and returns the
// provider reference on acceptance.
type TransferGateway interface {
	InitiateTransfer(ctx context.Context, amount int64, destination string) (string, error)
}

// SettingsReader exposes the mutable platform settings. Callers read a value
// exactly once, at the moment it is snapshotted onto an entity; settings are
// never re-read for an existing entity.
type SettingsReader interface {
	CommissionRate(ctx context.Context, tenantID int64) (decimal.Decimal, error)
	HoldHours(ctx context.Context) (int, error)
}
