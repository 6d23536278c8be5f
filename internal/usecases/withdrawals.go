package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dancycodes/chopwallet/internal/core/ports"
	"github.com/dancycodes/chopwallet/internal/entities"
)

// WithdrawalService converts withdrawable balance into an external payout.
// The balance is debited before the gateway is called, so a second concurrent
// request can never spend the same funds; a gateway failure credits the
// amount straight back.
type WithdrawalService struct {
	logger     *slog.Logger
	transactor Transactor
	wallets    WalletStore
	ledger     *LedgerService
	gateway    ports.TransferGateway
	notifier   ports.Notifier
	audit      ports.AuditLogger

	now func() time.Time
}

// NewWithdrawalService creates the withdrawal processor.
func NewWithdrawalService(
	logger *slog.Logger,
	transactor Transactor,
	wallets WalletStore,
	ledger *LedgerService,
	gateway ports.TransferGateway,
	notifier ports.Notifier,
	audit ports.AuditLogger,
) *WithdrawalService {
	return &WithdrawalService{
		logger:     logger,
		transactor: transactor,
		wallets:    wallets,
		ledger:     ledger,
		gateway:    gateway,
		notifier:   notifier,
		audit:      audit,
		now:        time.Now,
	}
}

// RequestWithdrawal debits the wallet optimistically, posts a pending
// withdrawal entry, then initiates the external transfer. On gateway success
// the entry completes; on failure the debit is reversed, the entry is marked
// failed and ErrTransferFailed is returned.
func (s *WithdrawalService) RequestWithdrawal(ctx context.Context, ref entities.WalletRef, amount int64, destination string) (*entities.WalletTransaction, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}

	var txn *entities.WalletTransaction

	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		wallet, err := s.wallets.FindForUpdate(ctx, ref)
		if err != nil {
			return fmt.Errorf("failed to lock wallet: %w", err)
		}
		if amount > wallet.WithdrawableBalance {
			return ErrInsufficientBalance
		}

		txn, err = s.ledger.Record(ctx, RecordParams{
			Wallet:       ref,
			Type:         entities.TransactionWithdrawal,
			Amount:       -amount,
			Withdrawable: true,
			Status:       entities.TransactionPending,
			Metadata: entities.Metadata{Withdrawal: &entities.WithdrawalDetails{
				Destination: destination,
			}},
		})
		if err != nil {
			return fmt.Errorf("failed to post withdrawal entry: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reference, gatewayErr := s.gateway.InitiateTransfer(ctx, amount, destination)
	if gatewayErr != nil {
		if reverseErr := s.reverse(ctx, txn, amount, destination, gatewayErr); reverseErr != nil {
			// The debit stays in place and the entry pending; surfacing the
			// reversal failure lets the scheduler retry it.
			return nil, fmt.Errorf("failed to reverse withdrawal %s: %w", txn.ID, reverseErr)
		}

		if err := s.notifier.Notify(ctx, ref.TenantID, ref.CookID, ports.NotificationWithdrawalFailed, map[string]any{
			"amount":      amount,
			"destination": destination,
		}); err != nil {
			s.logger.Error("Failed to dispatch withdrawal-failed notification", "error", err)
		}

		return nil, fmt.Errorf("%w: %w", ErrTransferFailed, gatewayErr)
	}

	meta := txn.Metadata
	meta.Withdrawal.GatewayRef = reference

	err = s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		return s.ledger.transactions.UpdateStatus(ctx, txn.ID, entities.TransactionCompleted, meta)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to complete withdrawal entry: %w", err)
	}

	txn.Status = entities.TransactionCompleted
	txn.Metadata = meta

	s.audit.Log(ctx, "system", ports.AuditActionWithdrawal, map[string]any{
		"tenant_id":   ref.TenantID,
		"cook_id":     ref.CookID,
		"amount":      amount,
		"gateway_ref": reference,
	})
	s.logger.Info("Withdrawal completed",
		"transaction_id", txn.ID, "amount", amount, "gateway_ref", reference)

	return txn, nil
}

// reverse credits the optimistic debit back and marks the entry failed.
func (s *WithdrawalService) reverse(ctx context.Context, txn *entities.WalletTransaction, amount int64, destination string, cause error) error {
	s.logger.Warn("Transfer gateway rejected withdrawal, reversing debit",
		"transaction_id", txn.ID, "amount", amount, "error", cause)

	meta := txn.Metadata
	meta.Withdrawal.FailureReason = cause.Error()

	return s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		wallet, err := s.wallets.FindByIDForUpdate(ctx, txn.WalletID)
		if err != nil {
			return fmt.Errorf("failed to lock wallet: %w", err)
		}

		if err = s.ledger.transactions.UpdateStatus(ctx, txn.ID, entities.TransactionFailed, meta); err != nil {
			return fmt.Errorf("failed to mark withdrawal failed: %w", err)
		}

		return s.wallets.ApplyDelta(ctx, wallet.ID, amount, amount, 0)
	})
}
