package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"go.openly.dev/pointy"

	"github.com/dancycodes/chopwallet/internal/entities"
	"github.com/dancycodes/chopwallet/internal/usecases"
)

// Consumer-side views of the usecase services.
type (
	CommissionService interface {
		SettleCompletedOrder(ctx context.Context, orderID int64) (*entities.OrderClearance, error)
	}

	ClearanceService interface {
		HoldForComplaint(ctx context.Context, orderID, complaintID int64) (*entities.OrderClearance, error)
		ResolveComplaint(ctx context.Context, complaintID int64, resolution entities.ResolutionType) (*entities.OrderClearance, error)
		List(ctx context.Context, filter entities.ClearanceFilter) ([]entities.OrderClearance, error)
	}

	WalletService interface {
		WalletBalances(ctx context.Context, ref entities.WalletRef) (*entities.CookWallet, error)
		WalletTransactions(ctx context.Context, ref entities.WalletRef) ([]entities.WalletTransaction, error)
	}

	WithdrawalService interface {
		RequestWithdrawal(ctx context.Context, ref entities.WalletRef, amount int64, destination string) (*entities.WalletTransaction, error)
	}

	SweepService interface {
		SweepEligible(ctx context.Context) (int, error)
	}
)

var (
	_ CommissionService = (*usecases.CommissionService)(nil)
	_ ClearanceService  = (*usecases.ClearanceService)(nil)
	_ WalletService     = (*usecases.LedgerService)(nil)
	_ WithdrawalService = (*usecases.WithdrawalService)(nil)
	_ SweepService      = (*usecases.SweepService)(nil)
)

type HTTPHandler struct {
	logger      *slog.Logger
	commissions CommissionService
	clearances  ClearanceService
	wallets     WalletService
	withdrawals WithdrawalService
	sweeper     SweepService
}

func NewHTTPHandler(
	logger *slog.Logger,
	commissions CommissionService,
	clearances ClearanceService,
	wallets WalletService,
	withdrawals WithdrawalService,
	sweeper SweepService,
) *HTTPHandler {
	return &HTTPHandler{
		logger:      logger,
		commissions: commissions,
		clearances:  clearances,
		wallets:     wallets,
		withdrawals: withdrawals,
		sweeper:     sweeper,
	}
}

func (h *HTTPHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api").Subrouter()

	// Order lifecycle hooks
	api.HandleFunc("/orders/{orderId:[0-9]+}/settle", h.SettleOrder).Methods("POST")
	api.HandleFunc("/orders/{orderId:[0-9]+}/complaints/{complaintId:[0-9]+}/hold", h.HoldOrder).Methods("POST")
	api.HandleFunc("/complaints/{complaintId:[0-9]+}/resolve", h.ResolveComplaint).Methods("POST")

	// Wallets
	api.HandleFunc("/wallets/{tenantId:[0-9]+}/{cookId:[0-9]+}", h.GetWallet).Methods("GET")
	api.HandleFunc("/wallets/{tenantId:[0-9]+}/{cookId:[0-9]+}/transactions", h.GetWalletTransactions).Methods("GET")
	api.HandleFunc("/wallets/{tenantId:[0-9]+}/{cookId:[0-9]+}/withdrawals", h.RequestWithdrawal).Methods("POST")

	// Clearances
	api.HandleFunc("/clearances", h.ListClearances).Methods("GET")
	api.HandleFunc("/clearances/sweep", h.TriggerSweep).Methods("POST")
}

// SettleOrder posts the commission and payment credit for a completed order.
func (h *HTTPHandler) SettleOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathInt64(r, "orderId")
	if err != nil {
		http.Error(w, "Invalid order ID format", http.StatusBadRequest)
		return
	}

	clearance, err := h.commissions.SettleCompletedOrder(r.Context(), orderID)
	if err != nil {
		h.writeServiceError(w, err, "Error settling order", "order_id", orderID)
		return
	}

	writeJSON(h.logger, w, http.StatusCreated, map[string]any{
		"status":    "success",
		"clearance": clearance,
	})
}

// HoldOrder blocks and pauses an order's clearance for an open complaint.
func (h *HTTPHandler) HoldOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := pathInt64(r, "orderId")
	if err != nil {
		http.Error(w, "Invalid order ID format", http.StatusBadRequest)
		return
	}
	complaintID, err := pathInt64(r, "complaintId")
	if err != nil {
		http.Error(w, "Invalid complaint ID format", http.StatusBadRequest)
		return
	}

	clearance, err := h.clearances.HoldForComplaint(r.Context(), orderID, complaintID)
	if err != nil {
		h.writeServiceError(w, err, "Error holding clearance", "order_id", orderID, "complaint_id", complaintID)
		return
	}

	writeJSON(h.logger, w, http.StatusOK, map[string]any{
		"status":    "success",
		"clearance": clearance,
	})
}

type resolveRequest struct {
	Resolution entities.ResolutionType `json:"resolution_type"`
}

// ResolveComplaint applies a complaint resolution to the held clearance.
func (h *HTTPHandler) ResolveComplaint(w http.ResponseWriter, r *http.Request) {
	complaintID, err := pathInt64(r, "complaintId")
	if err != nil {
		http.Error(w, "Invalid complaint ID format", http.StatusBadRequest)
		return
	}

	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	clearance, err := h.clearances.ResolveComplaint(r.Context(), complaintID, req.Resolution)
	if err != nil {
		h.writeServiceError(w, err, "Error resolving complaint", "complaint_id", complaintID, "resolution", req.Resolution)
		return
	}

	writeJSON(h.logger, w, http.StatusOK, map[string]any{
		"status":    "success",
		"clearance": clearance,
	})
}

// GetWallet returns the aggregate balances for a cook wallet.
func (h *HTTPHandler) GetWallet(w http.ResponseWriter, r *http.Request) {
	ref, ok := walletRef(w, r)
	if !ok {
		return
	}

	wallet, err := h.wallets.WalletBalances(r.Context(), ref)
	if err != nil {
		h.logger.Error("Error getting wallet", "error", err, "tenant_id", ref.TenantID, "cook_id", ref.CookID)
		http.Error(w, "Failed to retrieve wallet", http.StatusInternalServerError)
		return
	}
	if wallet == nil {
		http.Error(w, "Wallet not found", http.StatusNotFound)
		return
	}

	writeJSON(h.logger, w, http.StatusOK, wallet)
}

// GetWalletTransactions returns the wallet's ledger rows, newest first.
func (h *HTTPHandler) GetWalletTransactions(w http.ResponseWriter, r *http.Request) {
	ref, ok := walletRef(w, r)
	if !ok {
		return
	}

	transactions, err := h.wallets.WalletTransactions(r.Context(), ref)
	if err != nil {
		h.logger.Error("Error getting wallet transactions", "error", err, "tenant_id", ref.TenantID, "cook_id", ref.CookID)
		http.Error(w, "Failed to retrieve transactions", http.StatusInternalServerError)
		return
	}
	if transactions == nil {
		transactions = []entities.WalletTransaction{}
	}

	writeJSON(h.logger, w, http.StatusOK, transactions)
}

type withdrawalRequest struct {
	Amount      int64  `json:"amount"`
	Destination string `json:"destination"`
}

// RequestWithdrawal debits the wallet and initiates a mobile-money payout.
func (h *HTTPHandler) RequestWithdrawal(w http.ResponseWriter, r *http.Request) {
	ref, ok := walletRef(w, r)
	if !ok {
		return
	}

	var req withdrawalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Destination == "" {
		http.Error(w, "Missing required field: destination", http.StatusBadRequest)
		return
	}

	txn, err := h.withdrawals.RequestWithdrawal(r.Context(), ref, req.Amount, req.Destination)
	if err != nil {
		h.writeServiceError(w, err, "Error requesting withdrawal",
			"tenant_id", ref.TenantID,
			"cook_id", ref.CookID,
			"amount", req.Amount)
		return
	}

	writeJSON(h.logger, w, http.StatusCreated, map[string]any{
		"status":      "success",
		"transaction": txn,
	})
}

// ListClearances returns clearances matching the query filters.
func (h *HTTPHandler) ListClearances(w http.ResponseWriter, r *http.Request) {
	var filter entities.ClearanceFilter

	if state := r.URL.Query().Get("state"); state != "" {
		clearanceState := entities.ClearanceState(state)
		switch clearanceState {
		case entities.ClearanceHolding, entities.ClearancePaused, entities.ClearanceBlocked,
			entities.ClearanceEligible, entities.ClearanceCleared, entities.ClearanceCancelled:
			filter.State = pointy.Pointer(clearanceState)
		default:
			http.Error(w, "Invalid state filter", http.StatusBadRequest)
			return
		}
	}

	if orderParam := r.URL.Query().Get("order_id"); orderParam != "" {
		orderID, err := strconv.ParseInt(orderParam, 10, 64)
		if err != nil {
			http.Error(w, "Invalid order_id format", http.StatusBadRequest)
			return
		}
		filter.OrderID = pointy.Int64(orderID)
	}

	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		limit, err := strconv.ParseUint(limitParam, 10, 64)
		if err != nil {
			http.Error(w, "Invalid limit format", http.StatusBadRequest)
			return
		}
		filter.Limit = limit
	}

	clearances, err := h.clearances.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("Error listing clearances", "error", err)
		http.Error(w, "Failed to list clearances", http.StatusInternalServerError)
		return
	}
	if clearances == nil {
		clearances = []entities.OrderClearance{}
	}

	writeJSON(h.logger, w, http.StatusOK, clearances)
}

// TriggerSweep runs one clearance sweep outside the worker schedule.
func (h *HTTPHandler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	processed, err := h.sweeper.SweepEligible(r.Context())
	if err != nil {
		h.logger.Error("Error running sweep", "error", err, "processed", processed)
		http.Error(w, "Sweep failed", http.StatusInternalServerError)
		return
	}

	writeJSON(h.logger, w, http.StatusOK, map[string]any{
		"status":    "success",
		"processed": processed,
	})
}

func pathInt64(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(mux.Vars(r)[name], 10, 64)
}

func walletRef(w http.ResponseWriter, r *http.Request) (entities.WalletRef, bool) {
	tenantID, err := pathInt64(r, "tenantId")
	if err != nil {
		http.Error(w, "Invalid tenant ID format", http.StatusBadRequest)
		return entities.WalletRef{}, false
	}
	cookID, err := pathInt64(r, "cookId")
	if err != nil {
		http.Error(w, "Invalid cook ID format", http.StatusBadRequest)
		return entities.WalletRef{}, false
	}
	return entities.WalletRef{TenantID: tenantID, CookID: cookID}, true
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

// writeServiceError maps the typed usecase errors onto HTTP status codes.
// Validation results are expected outcomes and only logged at debug; error
// level is reserved for gateway and infrastructure failures.
func (h *HTTPHandler) writeServiceError(w http.ResponseWriter, err error, msg string, args ...any) {
	status := serviceErrorStatus(err)
	args = append(args, "error", err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, args...)
	} else {
		h.logger.Debug(msg, args...)
	}

	if status == http.StatusInternalServerError {
		http.Error(w, "Internal server error", status)
		return
	}
	http.Error(w, err.Error(), status)
}

func serviceErrorStatus(err error) int {
	switch {
	case errors.Is(err, usecases.ErrOrderNotFound),
		errors.Is(err, usecases.ErrClearanceNotFound),
		errors.Is(err, usecases.ErrComplaintNotFound):
		return http.StatusNotFound
	case errors.Is(err, usecases.ErrInvalidAmount),
		errors.Is(err, usecases.ErrInvalidResolution),
		errors.Is(err, usecases.ErrOrderNotCompleted):
		return http.StatusBadRequest
	case errors.Is(err, usecases.ErrInsufficientBalance):
		return http.StatusUnprocessableEntity
	case errors.Is(err, usecases.ErrClearanceCleared),
		errors.Is(err, usecases.ErrClearanceCancelled),
		errors.Is(err, usecases.ErrAlreadyPaused),
		errors.Is(err, usecases.ErrNotPaused),
		errors.Is(err, usecases.ErrNotBlocked),
		errors.Is(err, usecases.ErrNoActiveComplaint),
		errors.Is(err, usecases.ErrComplaintStillActive):
		return http.StatusConflict
	case errors.Is(err, usecases.ErrTransferFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
