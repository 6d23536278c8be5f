package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dancycodes/chopwallet/internal/entities"
)

func TestRecordKeepsBalanceChain(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ref := entities.WalletRef{TenantID: 1, CookID: 10}

	amounts := []int64{5000, 2500, -1500}
	for i, amount := range amounts {
		orderID := int64(100 + i)
		_, err := f.ledger.Record(ctx, RecordParams{
			Wallet:       ref,
			Type:         entities.TransactionPaymentCredit,
			Amount:       amount,
			OrderID:      &orderID,
			Withdrawable: true,
		})
		require.NoError(t, err)
	}

	rows := f.store.Transactions()
	require.Len(t, rows, 3)

	var running int64
	for _, row := range rows {
		require.Equal(t, running, row.BalanceBefore)
		require.Equal(t, running+row.Amount, row.BalanceAfter)
		running = row.BalanceAfter
	}

	wallet, err := f.ledger.WalletBalances(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, int64(6000), wallet.TotalBalance)
	require.Equal(t, wallet.WithdrawableBalance+wallet.UnwithdrawableBalance, wallet.TotalBalance)
}

func TestRecordIdempotentOnOrderAndType(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	ref := entities.WalletRef{TenantID: 1, CookID: 10}
	orderID := int64(200)

	first, err := f.ledger.Record(ctx, RecordParams{
		Wallet:       ref,
		Type:         entities.TransactionPaymentCredit,
		Amount:       5000,
		OrderID:      &orderID,
		Withdrawable: false,
	})
	require.NoError(t, err)

	second, err := f.ledger.Record(ctx, RecordParams{
		Wallet:       ref,
		Type:         entities.TransactionPaymentCredit,
		Amount:       5000,
		OrderID:      &orderID,
		Withdrawable: false,
	})
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	require.Len(t, f.store.Transactions(), 1)

	wallet, err := f.ledger.WalletBalances(ctx, ref)
	require.NoError(t, err)
	require.Equal(t, int64(5000), wallet.TotalBalance)
}

func TestRecordRejectsZeroAmount(t *testing.T) {
	f := newFixture()

	_, err := f.ledger.Record(context.Background(), RecordParams{
		Wallet: entities.WalletRef{TenantID: 1, CookID: 10},
		Type:   entities.TransactionPaymentCredit,
	})
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestWalletBalancesUnknownWallet(t *testing.T) {
	f := newFixture()

	wallet, err := f.ledger.WalletBalances(context.Background(), entities.WalletRef{TenantID: 9, CookID: 9})
	require.NoError(t, err)
	require.Nil(t, wallet)

	rows, err := f.ledger.WalletTransactions(context.Background(), entities.WalletRef{TenantID: 9, CookID: 9})
	require.NoError(t, err)
	require.Nil(t, rows)
}
