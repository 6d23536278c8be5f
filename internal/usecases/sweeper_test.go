package usecases

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dancycodes/chopwallet/internal/entities"
)

func TestSweepPromotesEligibleClearance(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.settleOrder(t, 1)

	f.advance(3*time.Hour + time.Minute)

	processed, err := f.sweeper.SweepEligible(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, processed)

	clearance, err := f.store.Clearances().FindByOrder(ctx, 1)
	require.NoError(t, err)
	require.True(t, clearance.IsCleared)
	require.NotNil(t, clearance.ClearedAt)

	// The held amount moved buckets without touching the total.
	cook, err := f.ledger.WalletBalances(ctx, entities.WalletRef{TenantID: 7, CookID: 42})
	require.NoError(t, err)
	require.Equal(t, int64(5000), cook.TotalBalance)
	require.Equal(t, int64(5000), cook.WithdrawableBalance)
	require.Equal(t, int64(0), cook.UnwithdrawableBalance)

	credit, err := f.store.Ledger().FindByOrderAndType(ctx, 1, entities.TransactionPaymentCredit)
	require.NoError(t, err)
	require.True(t, credit.IsWithdrawable)

	require.Len(t, f.notifier.Sent, 1)
	require.Equal(t, "funds_withdrawable", f.notifier.Sent[0].Kind)
	require.Equal(t, int64(42), f.notifier.Sent[0].CookID)
}

func TestSweepClearsAtMostOnce(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.settleOrder(t, 1)

	f.advance(4 * time.Hour)

	processed, err := f.sweeper.SweepEligible(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, processed)

	// A second run, however late, must not move the balance again.
	f.advance(4 * time.Hour)
	processed, err = f.sweeper.SweepEligible(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, processed)

	cook, err := f.ledger.WalletBalances(ctx, entities.WalletRef{TenantID: 7, CookID: 42})
	require.NoError(t, err)
	require.Equal(t, int64(5000), cook.WithdrawableBalance)
	require.Len(t, f.notifier.Sent, 1)
}

func TestSweepBeforeHoldElapsed(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	f.settleOrder(t, 1)

	f.advance(2 * time.Hour)

	processed, err := f.sweeper.SweepEligible(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, processed)

	clearance, err := f.store.Clearances().FindByOrder(ctx, 1)
	require.NoError(t, err)
	require.False(t, clearance.IsCleared)
}

func TestSweepSkipsPausedAndBlocked(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.settleOrder(t, 1)
	f.seedOpenComplaint(1, 1)
	_, err := f.clearances.HoldForComplaint(ctx, 1, 1)
	require.NoError(t, err)

	f.seedCompletedOrder(2, 7, 43, "ORD-3002", 8000, 0)
	_, err = f.commissions.SettleCompletedOrder(ctx, 2)
	require.NoError(t, err)

	f.advance(4 * time.Hour)

	// Only the unheld clearance clears.
	processed, err := f.sweeper.SweepEligible(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, processed)

	held, err := f.store.Clearances().FindByOrder(ctx, 1)
	require.NoError(t, err)
	require.False(t, held.IsCleared)

	cleared, err := f.store.Clearances().FindByOrder(ctx, 2)
	require.NoError(t, err)
	require.True(t, cleared.IsCleared)
}

func TestSweepProcessesOtherRowsWhenOneIsContested(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	f.settleOrder(t, 1)
	f.seedCompletedOrder(2, 7, 43, "ORD-3003", 8000, 0)
	_, err := f.commissions.SettleCompletedOrder(ctx, 2)
	require.NoError(t, err)

	f.advance(4 * time.Hour)

	// Another sweep claims order 1 between the select and the claim.
	_, err = f.store.Clearances().Claim(ctx, 1, f.clock)
	require.NoError(t, err)

	processed, err := f.sweeper.SweepEligible(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, processed)
}
