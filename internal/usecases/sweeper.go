package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dancycodes/chopwallet/internal/core/ports"
	"github.com/dancycodes/chopwallet/internal/entities"
)

// SweepService promotes overdue clearances to cleared. It is built for
// at-least-once scheduling: a run that overlaps another, or one that fires
// hours late, processes each clearance exactly once thanks to the
// conditional claim on is_cleared.
type SweepService struct {
	logger     *slog.Logger
	transactor Transactor
	clearances ClearanceStore
	wallets    WalletStore
	ledger     *LedgerService
	notifier   ports.Notifier
	audit      ports.AuditLogger

	now func() time.Time
}

// NewSweepService creates the clearance sweeper.
func NewSweepService(
	logger *slog.Logger,
	transactor Transactor,
	clearances ClearanceStore,
	wallets WalletStore,
	ledger *LedgerService,
	notifier ports.Notifier,
	audit ports.AuditLogger,
) *SweepService {
	return &SweepService{
		logger:     logger,
		transactor: transactor,
		clearances: clearances,
		wallets:    wallets,
		ledger:     ledger,
		notifier:   notifier,
		audit:      audit,
		now:        time.Now,
	}
}

// SweepEligible processes every clearance whose hold has elapsed and that is
// not paused, blocked or terminal. One clearance failing is logged and the
// batch moves on; the returned error is reserved for infrastructure failures
// that abort the whole run.
func (s *SweepService) SweepEligible(ctx context.Context) (int, error) {
	now := s.now()

	ids, err := s.clearances.EligibleIDs(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to select eligible clearances: %w", err)
	}

	processed := 0
	for _, id := range ids {
		clearance, wallet, err := s.clearOne(ctx, id)
		if err != nil {
			s.logger.Error("Failed to clear clearance", "error", err, "clearance_id", id)
			continue
		}
		if clearance == nil {
			// Claimed by a concurrent run, or its state changed since the
			// select. Nothing to do.
			continue
		}

		processed++

		s.audit.Log(ctx, "system", ports.AuditActionClearanceCleared, map[string]any{
			"order_id":     clearance.OrderID,
			"clearance_id": clearance.ID,
			"amount":       clearance.Amount,
		})

		// Fire and forget: the funds are already withdrawable whether or not
		// the notification makes it out.
		if err := s.notifier.Notify(ctx, wallet.TenantID, wallet.CookID, ports.NotificationFundsWithdrawable, map[string]any{
			"order_id": clearance.OrderID,
			"amount":   clearance.Amount,
		}); err != nil {
			s.logger.Error("Failed to dispatch funds-withdrawable notification",
				"error", err, "clearance_id", clearance.ID)
		}
	}

	s.logger.Info("Sweep finished", "eligible", len(ids), "processed", processed)

	return processed, nil
}

// clearOne claims a single clearance and moves its amount from the held to
// the withdrawable bucket. Lock order is always clearance first, wallet
// second. A nil clearance means the claim lost the race.
func (s *SweepService) clearOne(ctx context.Context, id int64) (*entities.OrderClearance, *entities.CookWallet, error) {
	var (
		clearance *entities.OrderClearance
		wallet    *entities.CookWallet
	)

	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := s.clearances.Claim(ctx, id, s.now())
		if err != nil {
			return fmt.Errorf("failed to claim clearance: %w", err)
		}
		if c == nil {
			return nil
		}

		if err = s.ledger.transactions.SetOrderWithdrawable(ctx, c.OrderID, entities.TransactionPaymentCredit, true); err != nil {
			return fmt.Errorf("failed to flip payment credit withdrawable: %w", err)
		}

		w, err := s.wallets.FindByIDForUpdate(ctx, c.WalletID)
		if err != nil {
			return fmt.Errorf("failed to lock wallet: %w", err)
		}

		if err = s.wallets.ApplyDelta(ctx, w.ID, 0, c.Amount, -c.Amount); err != nil {
			return fmt.Errorf("failed to move balance to withdrawable: %w", err)
		}

		clearance = c
		wallet = w
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return clearance, wallet, nil
}
