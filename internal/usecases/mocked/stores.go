package mocked

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/dancycodes/chopwallet/internal/entities"
)

// Store is an in-memory stand-in for Postgres used by unit tests. The typed
// views returned by Wallets, Ledger, Clearances, Orders and Complaints
// implement the usecase store interfaces over one shared state, and the Store
// itself doubles as the transactor.
type Store struct {
	mu sync.Mutex

	wallets      map[entities.WalletRef]*entities.CookWallet
	walletSeq    int64
	transactions []*entities.WalletTransaction
	clearances   map[int64]*entities.OrderClearance
	clearanceSeq int64
	orders       map[int64]*entities.Order
	complaints   map[int64]*entities.Complaint

	// Now supplies the instant used for state classification. Tests with a
	// synthetic clock override it.
	Now func() time.Time
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		wallets:    make(map[entities.WalletRef]*entities.CookWallet),
		clearances: make(map[int64]*entities.OrderClearance),
		orders:     make(map[int64]*entities.Order),
		complaints: make(map[int64]*entities.Complaint),
		Now:        time.Now,
	}
}

// WithinTransaction satisfies the Transactor interface. The in-memory store
// has no isolation to manage; nested calls just run the callback.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// Wallets returns the WalletStore view.
func (s *Store) Wallets() *WalletStore { return &WalletStore{s: s} }

// Ledger returns the TransactionStore view.
func (s *Store) Ledger() *TransactionStore { return &TransactionStore{s: s} }

// Clearances returns the ClearanceStore view.
func (s *Store) Clearances() *ClearanceStore { return &ClearanceStore{s: s} }

// Orders returns the OrderStore view.
func (s *Store) Orders() *OrderStore { return &OrderStore{s: s} }

// Complaints returns the ComplaintStore view.
func (s *Store) Complaints() *ComplaintStore { return &ComplaintStore{s: s} }

// WalletStore is the in-memory cook_wallets view.
type WalletStore struct{ s *Store }

func (v *WalletStore) Find(_ context.Context, ref entities.WalletRef) (*entities.CookWallet, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	wallet, ok := v.s.wallets[ref]
	if !ok {
		return nil, nil
	}
	copied := *wallet
	return &copied, nil
}

func (v *WalletStore) FindForUpdate(_ context.Context, ref entities.WalletRef) (*entities.CookWallet, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	wallet, ok := v.s.wallets[ref]
	if !ok {
		v.s.walletSeq++
		wallet = &entities.CookWallet{
			ID:        v.s.walletSeq,
			TenantID:  ref.TenantID,
			CookID:    ref.CookID,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		v.s.wallets[ref] = wallet
	}
	copied := *wallet
	return &copied, nil
}

func (v *WalletStore) FindByIDForUpdate(_ context.Context, id int64) (*entities.CookWallet, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	if wallet := v.s.walletByID(id); wallet != nil {
		copied := *wallet
		return &copied, nil
	}
	return nil, nil
}

func (v *WalletStore) ApplyDelta(_ context.Context, walletID int64, total, withdrawable, unwithdrawable int64) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	if wallet := v.s.walletByID(walletID); wallet != nil {
		wallet.TotalBalance += total
		wallet.WithdrawableBalance += withdrawable
		wallet.UnwithdrawableBalance += unwithdrawable
		wallet.UpdatedAt = time.Now()
	}
	return nil
}

func (s *Store) walletByID(id int64) *entities.CookWallet {
	for _, wallet := range s.wallets {
		if wallet.ID == id {
			return wallet
		}
	}
	return nil
}

// TransactionStore is the in-memory wallet_transactions view.
type TransactionStore struct{ s *Store }

func (v *TransactionStore) FindByOrderAndType(_ context.Context, orderID int64, typ entities.TransactionType) (*entities.WalletTransaction, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	for _, txn := range v.s.transactions {
		if txn.OrderID != nil && *txn.OrderID == orderID && txn.Type == typ {
			copied := *txn
			return &copied, nil
		}
	}
	return nil, nil
}

func (v *TransactionStore) Insert(_ context.Context, txn *entities.WalletTransaction) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	copied := *txn
	v.s.transactions = append(v.s.transactions, &copied)
	return nil
}

func (v *TransactionStore) UpdateStatus(_ context.Context, id uuid.UUID, status entities.TransactionStatus, meta entities.Metadata) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	for _, txn := range v.s.transactions {
		if txn.ID == id {
			txn.Status = status
			txn.Metadata = meta
			return nil
		}
	}
	return nil
}

func (v *TransactionStore) SetOrderWithdrawable(_ context.Context, orderID int64, typ entities.TransactionType, withdrawable bool) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	for _, txn := range v.s.transactions {
		if txn.OrderID != nil && *txn.OrderID == orderID && txn.Type == typ {
			txn.IsWithdrawable = withdrawable
		}
	}
	return nil
}

func (v *TransactionStore) ListByWallet(_ context.Context, walletID int64) ([]entities.WalletTransaction, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	var result []entities.WalletTransaction
	for i := len(v.s.transactions) - 1; i >= 0; i-- {
		if v.s.transactions[i].WalletID == walletID {
			result = append(result, *v.s.transactions[i])
		}
	}
	return result, nil
}

// ClearanceStore is the in-memory order_clearances view.
type ClearanceStore struct{ s *Store }

func (v *ClearanceStore) Insert(_ context.Context, c *entities.OrderClearance) (*entities.OrderClearance, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	v.s.clearanceSeq++
	copied := *c
	copied.ID = v.s.clearanceSeq
	copied.CreatedAt = time.Now()
	copied.UpdatedAt = time.Now()
	v.s.clearances[copied.ID] = &copied

	returned := copied
	return &returned, nil
}

func (v *ClearanceStore) FindByOrder(_ context.Context, orderID int64) (*entities.OrderClearance, error) {
	return v.s.clearanceByOrder(orderID), nil
}

func (v *ClearanceStore) FindByOrderForUpdate(_ context.Context, orderID int64) (*entities.OrderClearance, error) {
	return v.s.clearanceByOrder(orderID), nil
}

func (v *ClearanceStore) Update(_ context.Context, c *entities.OrderClearance) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	copied := *c
	copied.UpdatedAt = time.Now()
	v.s.clearances[c.ID] = &copied
	return nil
}

func (v *ClearanceStore) EligibleIDs(_ context.Context, now time.Time) ([]int64, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	var ids []int64
	for _, c := range v.s.clearances {
		if c.IsEligible(now) {
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (v *ClearanceStore) Claim(_ context.Context, id int64, now time.Time) (*entities.OrderClearance, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	c, ok := v.s.clearances[id]
	if !ok || !c.IsEligible(now) {
		return nil, nil
	}

	c.IsCleared = true
	c.ClearedAt = &now
	c.UpdatedAt = now

	copied := *c
	return &copied, nil
}

func (v *ClearanceStore) List(_ context.Context, filter entities.ClearanceFilter) ([]entities.OrderClearance, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	now := v.s.Now()
	var result []entities.OrderClearance
	for _, c := range v.s.clearances {
		if filter.OrderID != nil && c.OrderID != *filter.OrderID {
			continue
		}
		if filter.State != nil && c.State(now) != *filter.State {
			continue
		}
		result = append(result, *c)
		if filter.Limit > 0 && uint64(len(result)) == filter.Limit {
			break
		}
	}
	return result, nil
}

func (s *Store) clearanceByOrder(orderID int64) *entities.OrderClearance {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.clearances {
		if c.OrderID == orderID {
			copied := *c
			return &copied
		}
	}
	return nil
}

// OrderStore is the in-memory orders view.
type OrderStore struct{ s *Store }

func (v *OrderStore) FindForUpdate(_ context.Context, id int64) (*entities.Order, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	order, ok := v.s.orders[id]
	if !ok {
		return nil, nil
	}
	copied := *order
	return &copied, nil
}

func (v *OrderStore) SnapshotCommissionRate(_ context.Context, id int64, rate decimal.Decimal) error {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	if order, ok := v.s.orders[id]; ok {
		order.CommissionRate = &rate
	}
	return nil
}

// ComplaintStore is the in-memory complaints view.
type ComplaintStore struct{ s *Store }

func (v *ComplaintStore) Find(_ context.Context, id int64) (*entities.Complaint, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	complaint, ok := v.s.complaints[id]
	if !ok {
		return nil, nil
	}
	copied := *complaint
	return &copied, nil
}

func (v *ComplaintStore) CountActiveForOrder(_ context.Context, orderID int64) (int, error) {
	v.s.mu.Lock()
	defer v.s.mu.Unlock()

	count := 0
	for _, complaint := range v.s.complaints {
		if complaint.OrderID == orderID && complaint.Status.IsActive() {
			count++
		}
	}
	return count, nil
}

// PutOrder seeds an order.
func (s *Store) PutOrder(order *entities.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *order
	s.orders[order.ID] = &copied
}

// PutComplaint seeds a complaint.
func (s *Store) PutComplaint(complaint *entities.Complaint) {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *complaint
	s.complaints[complaint.ID] = &copied
}

// SetComplaintStatus updates a seeded complaint's lifecycle state.
func (s *Store) SetComplaintStatus(id int64, status entities.ComplaintStatus, resolution *entities.ResolutionType) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if complaint, ok := s.complaints[id]; ok {
		complaint.Status = status
		complaint.ResolutionType = resolution
	}
}

// Transactions returns a snapshot of all ledger rows, oldest first.
func (s *Store) Transactions() []entities.WalletTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]entities.WalletTransaction, 0, len(s.transactions))
	for _, txn := range s.transactions {
		result = append(result, *txn)
	}
	return result
}
