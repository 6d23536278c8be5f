package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatusCompleted is the only order status the clearance engine reacts
// to; everything before it belongs to the marketplace.
const OrderStatusCompleted = "completed"

// Order is the slice of a marketplace order the clearance engine needs.
// CommissionRate is nil until settlement snapshots it.
type Order struct {
	ID             int64            `db:"id"`
	TenantID       int64            `db:"tenant_id"`
	CookID         int64            `db:"cook_id"`
	OrderNumber    string           `db:"order_number"`
	Subtotal       int64            `db:"subtotal"`
	DeliveryFee    int64            `db:"delivery_fee"`
	Status         string           `db:"status"`
	CommissionRate *decimal.Decimal `db:"commission_rate"`
	CompletedAt    *time.Time       `db:"completed_at"`
}
