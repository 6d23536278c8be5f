package usecases

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dancycodes/chopwallet/internal/core/ports"
	"github.com/dancycodes/chopwallet/internal/entities"
)

// OrderStore is the read/snapshot surface of marketplace orders the engine
// needs. Orders themselves are owned by the marketplace.
type OrderStore interface {
	FindForUpdate(ctx context.Context, id int64) (*entities.Order, error)
	SnapshotCommissionRate(ctx context.Context, id int64, rate decimal.Decimal) error
}

// CommissionService turns a completed order into ledger entries and an escrow
// clearance. Triggering it again for the same order is a no-op.
type CommissionService struct {
	logger     *slog.Logger
	transactor Transactor
	orders     OrderStore
	clearances ClearanceStore
	ledger     *LedgerService
	settings   ports.SettingsReader
	audit      ports.AuditLogger

	now func() time.Time
}

// NewCommissionService creates the commission calculator.
func NewCommissionService(
	logger *slog.Logger,
	transactor Transactor,
	orders OrderStore,
	clearances ClearanceStore,
	ledger *LedgerService,
	settings ports.SettingsReader,
	audit ports.AuditLogger,
) *CommissionService {
	return &CommissionService{
		logger:     logger,
		transactor: transactor,
		orders:     orders,
		clearances: clearances,
		ledger:     ledger,
		settings:   settings,
		audit:      audit,
		now:        time.Now,
	}
}

// CommissionAmount computes the platform's cut of a subtotal, rounded half-up
// to whole XAF. The delivery fee is never commissioned.
func CommissionAmount(subtotal int64, rate decimal.Decimal) int64 {
	return decimal.NewFromInt(subtotal).
		Mul(rate).
		Div(decimal.NewFromInt(100)).
		Round(0).
		IntPart()
}

// SettleCompletedOrder posts the commission debit and the cook's net payment
// credit, snapshots the commission rate onto the order, and opens the escrow
// clearance. The hold-hours setting is captured at this instant; later
// changes never touch the clearance. Re-settling an already settled order
// returns the existing clearance unchanged.
func (s *CommissionService) SettleCompletedOrder(ctx context.Context, orderID int64) (*entities.OrderClearance, error) {
	var (
		clearance        *entities.OrderClearance
		commissionAmount int64
		orderNumber      string
		settled          bool
	)

	err := s.transactor.WithinTransaction(ctx, func(ctx context.Context) error {
		order, err := s.orders.FindForUpdate(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to load order: %w", err)
		}
		if order == nil {
			return ErrOrderNotFound
		}
		if order.Status != entities.OrderStatusCompleted {
			return ErrOrderNotCompleted
		}

		existing, err := s.clearances.FindByOrder(ctx, orderID)
		if err != nil {
			return fmt.Errorf("failed to check for existing clearance: %w", err)
		}
		if existing != nil {
			clearance = existing
			return nil
		}

		rate, err := s.settings.CommissionRate(ctx, order.TenantID)
		if err != nil {
			return fmt.Errorf("failed to read commission rate: %w", err)
		}
		if err = s.orders.SnapshotCommissionRate(ctx, orderID, rate); err != nil {
			return fmt.Errorf("failed to snapshot commission rate: %w", err)
		}

		holdHours, err := s.settings.HoldHours(ctx)
		if err != nil {
			return fmt.Errorf("failed to read hold hours: %w", err)
		}

		commissionAmount = CommissionAmount(order.Subtotal, rate)
		cookCredit := order.Subtotal - commissionAmount + order.DeliveryFee
		orderNumber = order.OrderNumber

		completedAt := s.now()
		if order.CompletedAt != nil {
			completedAt = *order.CompletedAt
		}
		withdrawableAt := completedAt.Add(time.Duration(holdHours) * time.Hour)

		// Commission goes to the tenant revenue wallet as an immediately
		// withdrawable credit; the cook only ever sees the net amount.
		// A zero rate or a subtotal small enough to round to nothing
		// produces no commission row at all.
		if commissionAmount > 0 {
			if _, err = s.ledger.Record(ctx, RecordParams{
				Wallet:       entities.RevenueWalletRef(order.TenantID),
				Type:         entities.TransactionCommission,
				Amount:       commissionAmount,
				OrderID:      &order.ID,
				Withdrawable: true,
				Metadata: entities.Metadata{Commission: &entities.CommissionDetails{
					OrderNumber: order.OrderNumber,
					Subtotal:    order.Subtotal,
					Rate:        rate,
				}},
			}); err != nil {
				return fmt.Errorf("failed to post commission entry: %w", err)
			}
		}

		credit, err := s.ledger.Record(ctx, RecordParams{
			Wallet:         entities.WalletRef{TenantID: order.TenantID, CookID: order.CookID},
			Type:           entities.TransactionPaymentCredit,
			Amount:         cookCredit,
			OrderID:        &order.ID,
			Withdrawable:   false,
			WithdrawableAt: &withdrawableAt,
			Metadata: entities.Metadata{PaymentCredit: &entities.PaymentCreditDetails{
				OrderNumber: order.OrderNumber,
				Subtotal:    order.Subtotal,
				DeliveryFee: order.DeliveryFee,
				HoldHours:   holdHours,
			}},
		})
		if err != nil {
			return fmt.Errorf("failed to post payment credit: %w", err)
		}

		clearance, err = s.clearances.Insert(ctx, &entities.OrderClearance{
			OrderID:        order.ID,
			WalletID:       credit.WalletID,
			Amount:         cookCredit,
			HoldHours:      holdHours,
			CompletedAt:    completedAt,
			WithdrawableAt: withdrawableAt,
		})
		if err != nil {
			return fmt.Errorf("failed to create clearance: %w", err)
		}

		settled = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if settled {
		s.audit.Log(ctx, "system", ports.AuditActionCommissionSettled, map[string]any{
			"order_number":      orderNumber,
			"commission_amount": commissionAmount,
		})
		s.logger.Info("Order settled",
			"order_id", orderID, "order_number", orderNumber,
			"commission_amount", commissionAmount, "clearance_id", clearance.ID)
	}

	return clearance, nil
}
