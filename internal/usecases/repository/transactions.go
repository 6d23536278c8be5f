package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	tx "github.com/Thiht/transactor/pgx"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dancycodes/chopwallet/internal/entities"
	"github.com/dancycodes/chopwallet/pkg/database"
)

const transactionColumns = `id, wallet_id, order_id, type, amount, balance_before, balance_after, is_withdrawable, withdrawable_at, status, metadata, created_at`

// TransactionsRepository persists the append-only wallet ledger.
type TransactionsRepository struct {
	logger *slog.Logger

	db         tx.DBGetter
	transactor *tx.Transactor
}

// NewTransactionsRepository creates a new ledger repository.
func NewTransactionsRepository(logger *slog.Logger, pg *database.Postgres) *TransactionsRepository {
	return &TransactionsRepository{
		logger:     logger,
		db:         pg.DBGetter,
		transactor: pg.Transactor,
	}
}

// FindByOrderAndType retrieves the ledger entry posted for an order with the
// given type, nil if none exists. The caller holds the wallet lock, so the
// check cannot race with a concurrent posting.
func (r *TransactionsRepository) FindByOrderAndType(ctx context.Context, orderID int64, typ entities.TransactionType) (*entities.WalletTransaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM wallet_transactions WHERE order_id = $1 AND type = $2`, transactionColumns)

	rows, err := r.db(ctx).Query(ctx, query, orderID, typ)
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction by order and type: %w", err)
	}

	txn, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[entities.WalletTransaction])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to collect transaction row: %w", err)
	}

	return txn, nil
}

// Insert appends a ledger row. Rows are never updated afterwards except for
// the pending-withdrawal status transition and the is_withdrawable flag.
func (r *TransactionsRepository) Insert(ctx context.Context, txn *entities.WalletTransaction) error {
	metadata, err := json.Marshal(txn.Metadata)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	_, err = r.db(ctx).Exec(ctx,
		`INSERT INTO wallet_transactions
            (id, wallet_id, order_id, type, amount, balance_before, balance_after, is_withdrawable, withdrawable_at, status, metadata, created_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		txn.ID, txn.WalletID, txn.OrderID, txn.Type, txn.Amount, txn.BalanceBefore, txn.BalanceAfter,
		txn.IsWithdrawable, txn.WithdrawableAt, txn.Status, metadata, txn.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert ledger entry: %w", err)
	}

	r.logger.Info("Ledger entry recorded",
		"transaction_id", txn.ID, "wallet_id", txn.WalletID, "type", txn.Type, "amount", txn.Amount)

	return nil
}

// UpdateStatus moves a pending entry to completed or failed. Completed rows
// are immutable, so the update is conditioned on the pending status.
func (r *TransactionsRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status entities.TransactionStatus, meta entities.Metadata) error {
	metadata, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal transaction metadata: %w", err)
	}

	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE wallet_transactions SET status = $2, metadata = $3 WHERE id = $1 AND status = 'pending'`,
		id, status, metadata)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("transaction %s is not pending", id)
	}

	return nil
}

// SetOrderWithdrawable flips the withdrawable flag on the entry posted for an
// order with the given type.
func (r *TransactionsRepository) SetOrderWithdrawable(ctx context.Context, orderID int64, typ entities.TransactionType, withdrawable bool) error {
	_, err := r.db(ctx).Exec(ctx,
		`UPDATE wallet_transactions SET is_withdrawable = $3 WHERE order_id = $1 AND type = $2`,
		orderID, typ, withdrawable)
	if err != nil {
		return fmt.Errorf("failed to set transaction withdrawable flag: %w", err)
	}

	return nil
}

// ListByWallet retrieves all ledger entries of a wallet, newest first.
func (r *TransactionsRepository) ListByWallet(ctx context.Context, walletID int64) ([]entities.WalletTransaction, error) {
	query := fmt.Sprintf(`SELECT %s FROM wallet_transactions WHERE wallet_id = $1 ORDER BY created_at DESC, id DESC`, transactionColumns)

	rows, err := r.db(ctx).Query(ctx, query, walletID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet transactions: %w", err)
	}

	transactions, err := pgx.CollectRows(rows, pgx.RowToStructByName[entities.WalletTransaction])
	if err != nil {
		r.logger.Error("failed to collect transaction rows", "error", err)
		return nil, err
	}

	return transactions, nil
}
