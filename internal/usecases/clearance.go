package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dancycodes/chopwallet/internal/core/ports"
	"github.com/dancycodes/chopwallet/internal/entities"
)

// ClearanceStore persists escrow clearances. Claim must be a conditional
// update keyed on is_cleared=false so that concurrent sweeps cannot promote
// the same clearance twice.
type ClearanceStore interface {
	Insert(ctx context.Context, c *entities.OrderClearance) (*entities.OrderClearance, error)
	FindByOrder(ctx context.Context, orderID int64) (*entities.OrderClearance, error)
	FindByOrderForUpdate(ctx context.Context, orderID int64) (*entities.OrderClearance, error)
	Update(ctx context.Context, c *entities.OrderClearance) error
	EligibleIDs(ctx context.Context, now time.Time) ([]int64, error)
	Claim(ctx context.Context, id int64, now time.Time) (*entities.OrderClearance, error)
	List(ctx context.Context, filter entities.ClearanceFilter) ([]entities.OrderClearance, error)
}

// ComplaintStore is the read-only view of marketplace complaints.
type ComplaintStore interface {
	Find(ctx context.Context, id int64) (*entities.Complaint, error)
	CountActiveForOrder(ctx context.Context, orderID int64) (int, error)
}

// ClearanceService drives the per-order escrow state machine. Complaint
// gating strictly dominates elapsed hold time: a clearance with an active
// complaint can never clear, however overdue its timer is.
type ClearanceService struct {
	logger     *slog.Logger
	transactor Transactor
	clearances ClearanceStore
	complaints ComplaintStore
	ledger     *LedgerService
	wallets    WalletStore
	notifier   ports.Notifier
	audit      ports.AuditLogger

	now func() time.Time
}

// NewClearanceService creates the clearance state machine service.
func NewClearanceService(
	logger *slog.Logger,
	transactor Transactor,
	clearances ClearanceStore,
	complaints ComplaintStore,
	ledger *LedgerService,
	wallets WalletStore,
	notifier ports.Notifier,
	audit ports.AuditLogger,
) *ClearanceService {
	return &ClearanceService{
		logger:     logger,
		transactor: transactor,
		clearances: clearances,
		complaints: complaints,
		ledger:     ledger,
		wallets:    wallets,
		notifier:   notifier,
		audit:      audit,
		now:        time.Now,
	}
}

// Pause freezes the escrow timer for an order that has an active complaint.
// The seconds left until WithdrawableAt are stored so a later resume restores
// exactly the remaining hold.
func (s *ClearanceService) Pause(ctx context.Context, orderID int64) (*entities.OrderClearance, error) {
	var clearance *entities.OrderClearance

	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := s.clearances.FindByOrderForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to lock clearance: %w", err)
		}
		if c == nil {
			return ErrClearanceNotFound
		}
		if c.IsCancelled {
			return ErrClearanceCancelled
		}
		if c.IsCleared {
			return ErrClearanceCleared
		}
		if c.IsPaused {
			return ErrAlreadyPaused
		}

		active, err := s.complaints.CountActiveForOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to count active complaints: %w", err)
		}
		if active == 0 {
			return ErrNoActiveComplaint
		}

		now := s.now()
		remaining := int64(c.WithdrawableAt.Sub(now) / time.Second)
		if remaining < 0 {
			remaining = 0
		}

		c.IsPaused = true
		c.PausedAt = &now
		c.RemainingSecondsAtPause = &remaining

		if err = s.clearances.Update(ctx, c); err != nil {
			return fmt.Errorf("failed to pause clearance: %w", err)
		}

		clearance = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, "system", ports.AuditActionClearancePaused, map[string]any{
		"order_id":          orderID,
		"remaining_seconds": *clearance.RemainingSecondsAtPause,
	})

	return clearance, nil
}

// Resume restarts the escrow timer with exactly the remaining hold that was
// stored at pause time. It refuses while any complaint on the order is still
// active, not just the one that triggered the pause.
func (s *ClearanceService) Resume(ctx context.Context, orderID int64) (*entities.OrderClearance, error) {
	var clearance *entities.OrderClearance

	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := s.clearances.FindByOrderForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to lock clearance: %w", err)
		}
		if c == nil {
			return ErrClearanceNotFound
		}
		if c.IsCancelled {
			return ErrClearanceCancelled
		}
		if !c.IsPaused {
			return ErrNotPaused
		}

		active, err := s.complaints.CountActiveForOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to count active complaints: %w", err)
		}
		if active > 0 {
			return ErrComplaintStillActive
		}

		s.applyResume(c)

		if err = s.clearances.Update(ctx, c); err != nil {
			return fmt.Errorf("failed to resume clearance: %w", err)
		}

		clearance = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, "system", ports.AuditActionClearanceResumed, map[string]any{
		"order_id":        orderID,
		"withdrawable_at": clearance.WithdrawableAt,
	})

	return clearance, nil
}

// Block flags the clearance for review and forces the order's payment credit
// back to unwithdrawable, overriding any elapsed hold time.
func (s *ClearanceService) Block(ctx context.Context, orderID, complaintID int64) (*entities.OrderClearance, error) {
	var clearance *entities.OrderClearance

	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		c, err := s.clearances.FindByOrderForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to lock clearance: %w", err)
		}
		if c == nil {
			return ErrClearanceNotFound
		}
		if c.IsCancelled {
			return ErrClearanceCancelled
		}
		if c.IsCleared {
			// Terminal: the funds already left escrow.
			return ErrClearanceCleared
		}

		now := s.now()
		c.IsFlaggedForReview = true
		c.BlockedAt = &now
		c.ComplaintID = &complaintID

		if err = s.clearances.Update(ctx, c); err != nil {
			return fmt.Errorf("failed to block clearance: %w", err)
		}

		if err = s.ledger.transactions.SetOrderWithdrawable(ctx, orderID, entities.TransactionPaymentCredit, false); err != nil {
			return fmt.Errorf("failed to force payment credit unwithdrawable: %w", err)
		}

		clearance = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, "system", ports.AuditActionClearanceBlocked, map[string]any{
		"order_id":     orderID,
		"complaint_id": complaintID,
	})

	return clearance, nil
}

// HoldForComplaint is the complaint-filed hook: it blocks the clearance and,
// when the timer is still running, pauses it as well.
func (s *ClearanceService) HoldForComplaint(ctx context.Context, orderID, complaintID int64) (*entities.OrderClearance, error) {
	complaint, err := s.complaints.Find(ctx, complaintID)
	if err != nil {
		return nil, fmt.Errorf("failed to load complaint: %w", err)
	}
	if complaint == nil || complaint.OrderID != orderID {
		return nil, ErrComplaintNotFound
	}

	clearance, err := s.Block(ctx, orderID, complaintID)
	if err != nil {
		return nil, err
	}

	clearance, pauseErr := s.Pause(ctx, orderID)
	if pauseErr != nil {
		// Already paused is fine; the block alone keeps the funds held.
		if errors.Is(pauseErr, ErrAlreadyPaused) {
			return s.clearances.FindByOrder(ctx, orderID)
		}
		return nil, pauseErr
	}

	return clearance, nil
}

// ResolveComplaint applies a complaint resolution to the order's clearance.
// Dismiss and warning unblock it and resume normal timing; partial refund,
// full refund and suspend cancel it permanently, removing the held amount
// from the cook's unwithdrawable balance. The clearance is located through
// the complaint's order, so any complaint on the order can resolve it, not
// just the one that blocked it last.
func (s *ClearanceService) ResolveComplaint(ctx context.Context, complaintID int64, resolution entities.ResolutionType) (*entities.OrderClearance, error) {
	if !resolution.Valid() {
		return nil, ErrInvalidResolution
	}

	var (
		clearance *entities.OrderClearance
		wallet    *entities.CookWallet
		cancelled bool
	)

	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		complaint, err := s.complaints.Find(ctx, complaintID)
		if err != nil {
			return fmt.Errorf("failed to load complaint: %w", err)
		}
		if complaint == nil {
			return ErrComplaintNotFound
		}

		c, err := s.clearances.FindByOrderForUpdate(ctx, complaint.OrderID)
		if err != nil {
			return fmt.Errorf("failed to lock clearance: %w", err)
		}
		if c == nil {
			return ErrClearanceNotFound
		}
		if c.IsCancelled {
			return ErrClearanceCancelled
		}
		if c.IsCleared {
			return ErrClearanceCleared
		}

		now := s.now()

		if resolution.CancelsClearance() {
			c.IsCancelled = true
			c.UnblockedAt = &now

			if err = s.clearances.Update(ctx, c); err != nil {
				return fmt.Errorf("failed to cancel clearance: %w", err)
			}

			w, err := s.wallets.FindByIDForUpdate(ctx, c.WalletID)
			if err != nil {
				return fmt.Errorf("failed to lock wallet: %w", err)
			}

			// Remove the held amount from escrow for good. The customer
			// refund itself is handled by the refunds collaborator.
			if _, err = s.ledger.Record(ctx, RecordParams{
				Wallet:       w.Ref(),
				Type:         entities.TransactionRefundDebit,
				Amount:       -c.Amount,
				OrderID:      &c.OrderID,
				Withdrawable: false,
				Metadata: entities.Metadata{RefundDebit: &entities.RefundDebitDetails{
					ComplaintID: complaintID,
					Resolution:  string(resolution),
				}},
			}); err != nil {
				return fmt.Errorf("failed to post refund debit: %w", err)
			}

			clearance = c
			wallet = w
			cancelled = true
			return nil
		}

		if !c.IsFlaggedForReview && !c.IsPaused {
			return ErrNotBlocked
		}

		if c.IsFlaggedForReview {
			c.IsFlaggedForReview = false
			c.UnblockedAt = &now
		}

		// Resume the timer only once no complaint on the order is active;
		// otherwise the clearance stays paused behind the remaining one.
		active, err := s.complaints.CountActiveForOrder(ctx, c.OrderID)
		if err != nil {
			return fmt.Errorf("failed to count active complaints: %w", err)
		}
		if c.IsPaused && active == 0 {
			s.applyResume(c)
		}

		if err = s.clearances.Update(ctx, c); err != nil {
			return fmt.Errorf("failed to unblock clearance: %w", err)
		}

		clearance = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	if cancelled {
		s.audit.Log(ctx, "system", ports.AuditActionClearanceCancelled, map[string]any{
			"order_id":     clearance.OrderID,
			"complaint_id": complaintID,
			"resolution":   string(resolution),
			"amount":       clearance.Amount,
		})
		if err := s.notifier.Notify(ctx, wallet.TenantID, wallet.CookID, ports.NotificationClearanceCancelled, map[string]any{
			"order_id": clearance.OrderID,
			"amount":   clearance.Amount,
		}); err != nil {
			s.logger.Error("Failed to dispatch cancellation notification",
				"error", err, "order_id", clearance.OrderID)
		}
	} else {
		s.audit.Log(ctx, "system", ports.AuditActionClearanceResumed, map[string]any{
			"order_id":     clearance.OrderID,
			"complaint_id": complaintID,
			"resolution":   string(resolution),
		})
	}

	return clearance, nil
}

// List returns clearances matching the filter.
func (s *ClearanceService) List(ctx context.Context, filter entities.ClearanceFilter) ([]entities.OrderClearance, error) {
	return s.clearances.List(ctx, filter)
}

// applyResume restarts the timer from the stored remaining hold.
func (s *ClearanceService) applyResume(c *entities.OrderClearance) {
	now := s.now()
	remaining := int64(0)
	if c.RemainingSecondsAtPause != nil {
		remaining = *c.RemainingSecondsAtPause
	}
	withdrawableAt := now.Add(time.Duration(remaining) * time.Second)

	c.WithdrawableAt = withdrawableAt
	c.IsPaused = false
	c.PausedAt = nil
	c.RemainingSecondsAtPause = nil
}
