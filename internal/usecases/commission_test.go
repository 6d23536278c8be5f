package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dancycodes/chopwallet/internal/entities"
)

func TestSettleDeliveryOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedCompletedOrder(1, 7, 42, "ORD-1001", 5000, 500)

	clearance, err := f.commissions.SettleCompletedOrder(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(5000), clearance.Amount)
	require.Equal(t, 3, clearance.HoldHours)
	require.Equal(t, f.clock.Add(3*time.Hour), clearance.WithdrawableAt)

	// The platform's cut lands on the tenant revenue wallet, immediately
	// withdrawable.
	revenue, err := f.ledger.WalletBalances(ctx, entities.RevenueWalletRef(7))
	require.NoError(t, err)
	require.Equal(t, int64(500), revenue.TotalBalance)
	require.Equal(t, int64(500), revenue.WithdrawableBalance)

	// The cook sees the net credit, held in escrow.
	cook, err := f.ledger.WalletBalances(ctx, entities.WalletRef{TenantID: 7, CookID: 42})
	require.NoError(t, err)
	require.Equal(t, int64(5000), cook.TotalBalance)
	require.Equal(t, int64(0), cook.WithdrawableBalance)
	require.Equal(t, int64(5000), cook.UnwithdrawableBalance)

	// The commission rate is snapshotted onto the order.
	order, err := f.store.Orders().FindForUpdate(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, order.CommissionRate)
	require.True(t, order.CommissionRate.Equal(decimal.NewFromInt(10)))
}

func TestSettlePickupOrder(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedCompletedOrder(2, 7, 42, "ORD-1002", 8000, 0)

	clearance, err := f.commissions.SettleCompletedOrder(ctx, 2)
	require.NoError(t, err)
	require.Equal(t, int64(7200), clearance.Amount)

	revenue, err := f.ledger.WalletBalances(ctx, entities.RevenueWalletRef(7))
	require.NoError(t, err)
	require.Equal(t, int64(800), revenue.TotalBalance)
}

func TestSettleCustomTenantRate(t *testing.T) {
	f := newFixture()
	f.settings.Rates[9] = decimal.NewFromInt(15)
	ctx := context.Background()
	f.seedCompletedOrder(3, 9, 42, "ORD-1003", 10000, 1000)

	clearance, err := f.commissions.SettleCompletedOrder(ctx, 3)
	require.NoError(t, err)
	require.Equal(t, int64(9500), clearance.Amount)

	revenue, err := f.ledger.WalletBalances(ctx, entities.RevenueWalletRef(9))
	require.NoError(t, err)
	require.Equal(t, int64(1500), revenue.TotalBalance)
}

func TestSettleIsIdempotent(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedCompletedOrder(4, 7, 42, "ORD-1004", 5000, 500)

	first, err := f.commissions.SettleCompletedOrder(ctx, 4)
	require.NoError(t, err)

	second, err := f.commissions.SettleCompletedOrder(ctx, 4)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	// Exactly one commission and one payment credit.
	require.Len(t, f.store.Transactions(), 2)

	cook, err := f.ledger.WalletBalances(ctx, entities.WalletRef{TenantID: 7, CookID: 42})
	require.NoError(t, err)
	require.Equal(t, int64(5000), cook.TotalBalance)
}

func TestSettleSnapshotsHoldHours(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.seedCompletedOrder(5, 7, 42, "ORD-1005", 5000, 0)

	first, err := f.commissions.SettleCompletedOrder(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, 3, first.HoldHours)

	// The platform setting changes; existing clearances must not move.
	f.settings.Hours = 6
	f.seedCompletedOrder(6, 7, 42, "ORD-1006", 5000, 0)

	second, err := f.commissions.SettleCompletedOrder(ctx, 6)
	require.NoError(t, err)
	require.Equal(t, 6, second.HoldHours)
	require.Equal(t, f.clock.Add(6*time.Hour), second.WithdrawableAt)

	unchanged, err := f.store.Clearances().FindByOrder(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, 3, unchanged.HoldHours)
	require.Equal(t, first.WithdrawableAt, unchanged.WithdrawableAt)
}

func TestSettleZeroCommission(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.settings.Rates = map[int64]decimal.Decimal{7: decimal.Zero}
	f.seedCompletedOrder(1, 7, 42, "ORD-1004", 5000, 500)

	clearance, err := f.commissions.SettleCompletedOrder(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, int64(5500), clearance.Amount)

	// No commission entry is posted when the platform's cut is nothing.
	commission, err := f.store.Ledger().FindByOrderAndType(ctx, 1, entities.TransactionCommission)
	require.NoError(t, err)
	require.Nil(t, commission)

	cook, err := f.ledger.WalletBalances(ctx, entities.WalletRef{TenantID: 7, CookID: 42})
	require.NoError(t, err)
	require.Equal(t, int64(5500), cook.TotalBalance)
	require.Equal(t, int64(5500), cook.UnwithdrawableBalance)
}

func TestSettleUnknownOrder(t *testing.T) {
	f := newFixture()

	_, err := f.commissions.SettleCompletedOrder(context.Background(), 999)
	require.ErrorIs(t, err, ErrOrderNotFound)
}

func TestSettleOrderNotCompleted(t *testing.T) {
	f := newFixture()
	f.store.PutOrder(&entities.Order{
		ID:          7,
		TenantID:    7,
		CookID:      42,
		OrderNumber: "ORD-1007",
		Subtotal:    5000,
		Status:      "preparing",
	})

	_, err := f.commissions.SettleCompletedOrder(context.Background(), 7)
	require.ErrorIs(t, err, ErrOrderNotCompleted)
}

func TestCommissionAmountRoundsHalfUp(t *testing.T) {
	cases := []struct {
		subtotal int64
		rate     decimal.Decimal
		want     int64
	}{
		{5000, decimal.NewFromInt(10), 500},
		{8000, decimal.NewFromInt(10), 800},
		{10000, decimal.NewFromInt(15), 1500},
		{3333, decimal.NewFromFloat(7.5), 250},  // 249.975 rounds up
		{1005, decimal.NewFromFloat(2.5), 25},   // 25.125 rounds down
		{333, decimal.NewFromInt(15), 50},       // 49.95 rounds up
		{1234, decimal.NewFromFloat(12.5), 154}, // 154.25 rounds down
	}

	for _, tc := range cases {
		require.Equal(t, tc.want, CommissionAmount(tc.subtotal, tc.rate),
			"subtotal=%d rate=%s", tc.subtotal, tc.rate)
	}
}
