package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dancycodes/chopwallet/internal/entities"
)

// Transactor runs a function inside a database transaction. Nested calls join
// the outer transaction through savepoints.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// WalletStore is the aggregate side of the ledger. FindForUpdate creates the
// wallet lazily on first use and must take a row lock, so that all balance
// writes for one wallet are serialized.
type WalletStore interface {
	Find(ctx context.Context, ref entities.WalletRef) (*entities.CookWallet, error)
	FindForUpdate(ctx context.Context, ref entities.WalletRef) (*entities.CookWallet, error)
	FindByIDForUpdate(ctx context.Context, id int64) (*entities.CookWallet, error)
	ApplyDelta(ctx context.Context, walletID int64, total, withdrawable, unwithdrawable int64) error
}

// TransactionStore persists ledger rows. Completed rows are never updated or
// deleted; UpdateStatus only moves pending withdrawals forward.
type TransactionStore interface {
	FindByOrderAndType(ctx context.Context, orderID int64, typ entities.TransactionType) (*entities.WalletTransaction, error)
	Insert(ctx context.Context, txn *entities.WalletTransaction) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status entities.TransactionStatus, meta entities.Metadata) error
	SetOrderWithdrawable(ctx context.Context, orderID int64, typ entities.TransactionType, withdrawable bool) error
	ListByWallet(ctx context.Context, walletID int64) ([]entities.WalletTransaction, error)
}

// RecordParams describes one ledger posting.
type RecordParams struct {
	Wallet entities.WalletRef
	Type   entities.TransactionType

	// Amount is signed: credits positive, debits negative.
	Amount int64

	// OrderID, when set, makes the posting idempotent on (order, type).
	OrderID *int64

	// Withdrawable selects the aggregate bucket the amount moves through.
	Withdrawable   bool
	WithdrawableAt *time.Time

	// Status defaults to completed. Only withdrawals start out pending.
	Status   entities.TransactionStatus
	Metadata entities.Metadata
}

// LedgerService owns the append-only wallet ledger and keeps the aggregate
// balances in lockstep with it.
type LedgerService struct {
	logger       *slog.Logger
	transactor   Transactor
	wallets      WalletStore
	transactions TransactionStore

	now func() time.Time
}

// NewLedgerService creates the ledger service.
func NewLedgerService(logger *slog.Logger, transactor Transactor, wallets WalletStore, transactions TransactionStore) *LedgerService {
	return &LedgerService{
		logger:       logger,
		transactor:   transactor,
		wallets:      wallets,
		transactions: transactions,
		now:          time.Now,
	}
}

// Record inserts one ledger row and updates the wallet aggregate atomically.
// The wallet row lock is held for the whole posting, so the duplicate check
// and the balance computation cannot race with a concurrent posting for the
// same wallet. A retry with the same (order, type) returns the existing row.
func (s *LedgerService) Record(ctx context.Context, p RecordParams) (*entities.WalletTransaction, error) {
	if p.Amount == 0 {
		return nil, ErrInvalidAmount
	}

	status := p.Status
	if status == "" {
		status = entities.TransactionCompleted
	}

	var result *entities.WalletTransaction

	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		wallet, err := s.wallets.FindForUpdate(ctx, p.Wallet)
		if err != nil {
			return fmt.Errorf("failed to lock wallet: %w", err)
		}

		if p.OrderID != nil {
			existing, err := s.transactions.FindByOrderAndType(ctx, *p.OrderID, p.Type)
			if err != nil {
				return fmt.Errorf("failed to check for existing transaction: %w", err)
			}
			if existing != nil {
				s.logger.Info("Ledger entry already recorded",
					"order_id", *p.OrderID, "type", p.Type, "transaction_id", existing.ID)
				result = existing
				return nil
			}
		}

		txn := &entities.WalletTransaction{
			ID:             uuid.New(),
			WalletID:       wallet.ID,
			OrderID:        p.OrderID,
			Type:           p.Type,
			Amount:         p.Amount,
			BalanceBefore:  wallet.TotalBalance,
			BalanceAfter:   wallet.TotalBalance + p.Amount,
			IsWithdrawable: p.Withdrawable,
			WithdrawableAt: p.WithdrawableAt,
			Status:         status,
			Metadata:       p.Metadata,
			CreatedAt:      s.now(),
		}

		if err = s.transactions.Insert(ctx, txn); err != nil {
			return fmt.Errorf("failed to insert ledger entry: %w", err)
		}

		var withdrawable, unwithdrawable int64
		if p.Withdrawable {
			withdrawable = p.Amount
		} else {
			unwithdrawable = p.Amount
		}

		if err = s.wallets.ApplyDelta(ctx, wallet.ID, p.Amount, withdrawable, unwithdrawable); err != nil {
			return fmt.Errorf("failed to update wallet aggregate: %w", err)
		}

		result = txn
		return nil
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// WalletBalances returns the aggregate for a wallet reference, or nil when no
// transaction has ever touched it.
func (s *LedgerService) WalletBalances(ctx context.Context, ref entities.WalletRef) (*entities.CookWallet, error) {
	return s.wallets.Find(ctx, ref)
}

// WalletTransactions lists the ledger rows of a wallet, newest first.
func (s *LedgerService) WalletTransactions(ctx context.Context, ref entities.WalletRef) ([]entities.WalletTransaction, error) {
	wallet, err := s.wallets.Find(ctx, ref)
	if err != nil {
		return nil, err
	}
	if wallet == nil {
		return nil, nil
	}
	return s.transactions.ListByWallet(ctx, wallet.ID)
}
