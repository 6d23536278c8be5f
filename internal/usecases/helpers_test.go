package usecases

import (
	"io"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/dancycodes/chopwallet/internal/entities"
	"github.com/dancycodes/chopwallet/internal/usecases/mocked"
)

// fixture wires every service over one in-memory store with a controllable
// clock, so tests can advance time deterministically.
type fixture struct {
	store    *mocked.Store
	settings *mocked.SettingsStub
	notifier *mocked.NotifierSpy
	audit    *mocked.AuditSpy
	gateway  *mocked.GatewayStub

	ledger      *LedgerService
	commissions *CommissionService
	clearances  *ClearanceService
	sweeper     *SweepService
	withdrawals *WithdrawalService

	clock time.Time
}

func newFixture() *fixture {
	f := &fixture{
		store:    mocked.NewStore(),
		settings: &mocked.SettingsStub{Rates: map[int64]decimal.Decimal{}, Hours: 3},
		notifier: &mocked.NotifierSpy{},
		audit:    &mocked.AuditSpy{},
		gateway:  &mocked.GatewayStub{Ref: "MOMO-REF-1"},
		clock:    time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := func() time.Time { return f.clock }
	f.store.Now = now

	f.ledger = NewLedgerService(logger, f.store, f.store.Wallets(), f.store.Ledger())
	f.ledger.now = now

	f.commissions = NewCommissionService(logger, f.store, f.store.Orders(), f.store.Clearances(), f.ledger, f.settings, f.audit)
	f.commissions.now = now

	f.clearances = NewClearanceService(logger, f.store, f.store.Clearances(), f.store.Complaints(), f.ledger, f.store.Wallets(), f.notifier, f.audit)
	f.clearances.now = now

	f.sweeper = NewSweepService(logger, f.store, f.store.Clearances(), f.store.Wallets(), f.ledger, f.notifier, f.audit)
	f.sweeper.now = now

	f.withdrawals = NewWithdrawalService(logger, f.store, f.store.Wallets(), f.ledger, f.gateway, f.notifier, f.audit)
	f.withdrawals.now = now

	return f
}

func (f *fixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

// seedCompletedOrder stores a completed order whose CompletedAt is the current
// fixture clock.
func (f *fixture) seedCompletedOrder(id, tenantID, cookID int64, number string, subtotal, deliveryFee int64) {
	completedAt := f.clock
	f.store.PutOrder(&entities.Order{
		ID:          id,
		TenantID:    tenantID,
		CookID:      cookID,
		OrderNumber: number,
		Subtotal:    subtotal,
		DeliveryFee: deliveryFee,
		Status:      entities.OrderStatusCompleted,
		CompletedAt: &completedAt,
	})
}

func (f *fixture) seedOpenComplaint(id, orderID int64) {
	f.store.PutComplaint(&entities.Complaint{
		ID:        id,
		OrderID:   orderID,
		Status:    entities.ComplaintOpen,
		CreatedAt: f.clock,
	})
}

func (f *fixture) resolveComplaintRecord(id int64, resolution entities.ResolutionType) {
	f.store.SetComplaintStatus(id, entities.ComplaintResolved, &resolution)
}
