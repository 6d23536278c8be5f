package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/dancycodes/chopwallet/internal/entities"
	"github.com/dancycodes/chopwallet/internal/usecases"
	"github.com/dancycodes/chopwallet/internal/usecases/mocked"
)

type testEnv struct {
	router  *mux.Router
	store   *mocked.Store
	gateway *mocked.GatewayStub
	ledger  *usecases.LedgerService
}

func newTestEnv(t *testing.T, logger *slog.Logger) *testEnv {
	t.Helper()

	store := mocked.NewStore()
	settings := &mocked.SettingsStub{Rates: map[int64]decimal.Decimal{}, Hours: 3}
	notifier := &mocked.NotifierSpy{}
	audit := &mocked.AuditSpy{}
	gateway := &mocked.GatewayStub{Ref: "MOMO-REF-1"}

	ledger := usecases.NewLedgerService(logger, store, store.Wallets(), store.Ledger())
	commissions := usecases.NewCommissionService(logger, store, store.Orders(), store.Clearances(), ledger, settings, audit)
	clearances := usecases.NewClearanceService(logger, store, store.Clearances(), store.Complaints(), ledger, store.Wallets(), notifier, audit)
	sweeper := usecases.NewSweepService(logger, store, store.Clearances(), store.Wallets(), ledger, notifier, audit)
	withdrawals := usecases.NewWithdrawalService(logger, store, store.Wallets(), ledger, gateway, notifier, audit)

	router := mux.NewRouter()
	NewHTTPHandler(logger, commissions, clearances, ledger, withdrawals, sweeper).RegisterRoutes(router)

	return &testEnv{router: router, store: store, gateway: gateway, ledger: ledger}
}

func newTestRouter(t *testing.T) (*mux.Router, *mocked.Store) {
	t.Helper()

	env := newTestEnv(t, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return env.router, env.store
}

func seedCompletedOrder(store *mocked.Store, id int64) {
	completedAt := time.Now().Add(-time.Minute)
	store.PutOrder(&entities.Order{
		ID:          id,
		TenantID:    7,
		CookID:      42,
		OrderNumber: "ORD-1001",
		Subtotal:    5000,
		DeliveryFee: 500,
		Status:      entities.OrderStatusCompleted,
		CompletedAt: &completedAt,
	})
}

func TestSettleOrderEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	seedCompletedOrder(store, 1)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders/1/settle", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		Status    string                   `json:"status"`
		Clearance *entities.OrderClearance `json:"clearance"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "success", body.Status)
	require.Equal(t, int64(5000), body.Clearance.Amount)
}

func TestSettleUnknownOrderEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders/404/settle", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetWalletEndpoint(t *testing.T) {
	router, store := newTestRouter(t)
	seedCompletedOrder(store, 1)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders/1/settle", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/wallets/7/42", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var wallet entities.CookWallet
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &wallet))
	require.Equal(t, int64(5000), wallet.TotalBalance)
	require.Equal(t, int64(5000), wallet.UnwithdrawableBalance)
}

func TestGetWalletNotFound(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/wallets/7/42", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRequestWithdrawalInsufficientBalance(t *testing.T) {
	router, store := newTestRouter(t)
	seedCompletedOrder(store, 1)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders/1/settle", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	// The credit is still escrowed, so nothing is withdrawable yet.
	payload := bytes.NewBufferString(`{"amount": 1000, "destination": "+237670000001"}`)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/wallets/7/42/withdrawals", payload))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRequestWithdrawalMissingDestination(t *testing.T) {
	router, _ := newTestRouter(t)

	payload := bytes.NewBufferString(`{"amount": 1000}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/wallets/7/42/withdrawals", payload))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListClearancesRejectsUnknownState(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/clearances?state=limbo", nil))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHoldAndResolveFlow(t *testing.T) {
	router, store := newTestRouter(t)
	seedCompletedOrder(store, 1)
	store.PutComplaint(&entities.Complaint{ID: 1, OrderID: 1, Status: entities.ComplaintOpen, CreatedAt: time.Now()})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders/1/settle", nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/orders/1/complaints/1/hold", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	resolution := entities.ResolutionDismiss
	store.SetComplaintStatus(1, entities.ComplaintResolved, &resolution)

	payload := bytes.NewBufferString(`{"resolution_type": "dismiss"}`)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/complaints/1/resolve", payload))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Clearance *entities.OrderClearance `json:"clearance"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Clearance.IsFlaggedForReview)
	require.False(t, body.Clearance.IsPaused)
}

func TestTriggerSweepEndpoint(t *testing.T) {
	router, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/clearances/sweep", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Processed int `json:"processed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 0, body.Processed)
}

func TestServiceErrorLogLevels(t *testing.T) {
	var logs bytes.Buffer
	env := newTestEnv(t, slog.New(slog.NewTextHandler(&logs, nil)))

	// An insufficient balance is an expected outcome and must not show up
	// at error level.
	payload := bytes.NewBufferString(`{"amount": 1000, "destination": "+237670000001"}`)
	rec := httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/wallets/7/42/withdrawals", payload))
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.NotContains(t, logs.String(), "level=ERROR")

	// A gateway failure is a real failure and does.
	_, err := env.ledger.Record(context.Background(), usecases.RecordParams{
		Wallet:       entities.WalletRef{TenantID: 7, CookID: 42},
		Type:         entities.TransactionPaymentCredit,
		Amount:       5000,
		Withdrawable: true,
	})
	require.NoError(t, err)
	env.gateway.Err = errors.New("provider timeout")

	payload = bytes.NewBufferString(`{"amount": 1000, "destination": "+237670000001"}`)
	rec = httptest.NewRecorder()
	env.router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/wallets/7/42/withdrawals", payload))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	require.Contains(t, logs.String(), "level=ERROR")
}
