package entities

import "time"

// RevenueCookID marks the tenant's platform revenue wallet. Commission
// entries post here; cook wallets always carry a real cook id.
const RevenueCookID int64 = 0

// WalletRef identifies a wallet by its owning tenant and cook.
type WalletRef struct {
	TenantID int64
	CookID   int64
}

// RevenueWalletRef returns the reference of the tenant's revenue wallet.
func RevenueWalletRef(tenantID int64) WalletRef {
	return WalletRef{TenantID: tenantID, CookID: RevenueCookID}
}

// IsRevenue reports whether the reference points at a tenant revenue wallet.
func (r WalletRef) IsRevenue() bool {
	return r.CookID == RevenueCookID
}

// CookWallet is the denormalized running balance for a (tenant, cook) pair.
// It is created lazily on the first ledger write and mutated only inside the
// same transaction boundary as that write. Amounts are whole XAF.
type CookWallet struct {
	ID                    int64     `db:"id"                     json:"id"`
	TenantID              int64     `db:"tenant_id"              json:"tenant_id"`
	CookID                int64     `db:"cook_id"                json:"cook_id"`
	TotalBalance          int64     `db:"total_balance"          json:"total_balance"`
	WithdrawableBalance   int64     `db:"withdrawable_balance"   json:"withdrawable_balance"`
	UnwithdrawableBalance int64     `db:"unwithdrawable_balance" json:"unwithdrawable_balance"`
	CreatedAt             time.Time `db:"created_at"             json:"created_at"`
	UpdatedAt             time.Time `db:"updated_at"             json:"updated_at"`
}

// Ref returns the wallet's (tenant, cook) reference.
func (w *CookWallet) Ref() WalletRef {
	return WalletRef{TenantID: w.TenantID, CookID: w.CookID}
}
