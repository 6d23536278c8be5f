package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TransactionPaymentCredit TransactionType = "payment_credit"
	TransactionCommission    TransactionType = "commission"
	TransactionWithdrawal    TransactionType = "withdrawal"
	TransactionRefundDebit   TransactionType = "refund_debit"
)

// TransactionStatus is the lifecycle state of a ledger entry. Completed
// entries are immutable; only withdrawals ever pass through pending.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionFailed    TransactionStatus = "failed"
)

// WalletTransaction is one immutable row of the append-only ledger. For a
// given wallet, ordered by creation, BalanceAfter[i] == BalanceBefore[i] +
// Amount[i] and BalanceBefore[i+1] == BalanceAfter[i].
type WalletTransaction struct {
	ID             uuid.UUID         `db:"id"              json:"id"`
	WalletID       int64             `db:"wallet_id"       json:"wallet_id"`
	OrderID        *int64            `db:"order_id"        json:"order_id,omitempty"`
	Type           TransactionType   `db:"type"            json:"type"`
	Amount         int64             `db:"amount"          json:"amount"`
	BalanceBefore  int64             `db:"balance_before"  json:"balance_before"`
	BalanceAfter   int64             `db:"balance_after"   json:"balance_after"`
	IsWithdrawable bool              `db:"is_withdrawable" json:"is_withdrawable"`
	WithdrawableAt *time.Time        `db:"withdrawable_at" json:"withdrawable_at,omitempty"`
	Status         TransactionStatus `db:"status"          json:"status"`
	Metadata       Metadata          `db:"metadata"        json:"metadata"`
	CreatedAt      time.Time         `db:"created_at"      json:"created_at"`
}

// Metadata carries the per-type payload of a ledger entry. Exactly one arm is
// set, matching the transaction type.
type Metadata struct {
	PaymentCredit *PaymentCreditDetails `json:"payment_credit,omitempty"`
	Commission    *CommissionDetails    `json:"commission,omitempty"`
	Withdrawal    *WithdrawalDetails    `json:"withdrawal,omitempty"`
	RefundDebit   *RefundDebitDetails   `json:"refund_debit,omitempty"`
}

// PaymentCreditDetails describes the net cook credit for a completed order.
type PaymentCreditDetails struct {
	OrderNumber string `json:"order_number"`
	Subtotal    int64  `json:"subtotal"`
	DeliveryFee int64  `json:"delivery_fee"`
	HoldHours   int    `json:"hold_hours"`
}

// CommissionDetails describes the platform's cut of an order.
type CommissionDetails struct {
	OrderNumber string          `json:"order_number"`
	Subtotal    int64           `json:"subtotal"`
	Rate        decimal.Decimal `json:"rate"`
}

// WithdrawalDetails describes a payout request to the transfer gateway.
type WithdrawalDetails struct {
	Destination   string `json:"destination"`
	GatewayRef    string `json:"gateway_ref,omitempty"`
	FailureReason string `json:"failure_reason,omitempty"`
}

// RefundDebitDetails describes held funds removed by a complaint resolution.
type RefundDebitDetails struct {
	ComplaintID int64  `json:"complaint_id"`
	Resolution  string `json:"resolution"`
}
