package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	sq "github.com/Masterminds/squirrel"
	tx "github.com/Thiht/transactor/pgx"
	"github.com/jackc/pgx/v5"

	"github.com/dancycodes/chopwallet/internal/entities"
	"github.com/dancycodes/chopwallet/pkg/database"
)

const clearanceColumns = `id, order_id, wallet_id, amount, hold_hours, completed_at, withdrawable_at, paused_at, remaining_seconds_at_pause, is_paused, is_cleared, is_cancelled, is_flagged_for_review, blocked_at, unblocked_at, cleared_at, complaint_id, created_at, updated_at`

// ClearancesRepository persists per-order escrow clearances.
type ClearancesRepository struct {
	logger *slog.Logger

	db         tx.DBGetter
	transactor *tx.Transactor
}

// NewClearancesRepository creates a new clearance repository.
func NewClearancesRepository(logger *slog.Logger, pg *database.Postgres) *ClearancesRepository {
	return &ClearancesRepository{
		logger:     logger,
		db:         pg.DBGetter,
		transactor: pg.Transactor,
	}
}

// Insert creates the clearance for an order and returns the stored row.
func (r *ClearancesRepository) Insert(ctx context.Context, c *entities.OrderClearance) (*entities.OrderClearance, error) {
	query := fmt.Sprintf(
		`INSERT INTO order_clearances (order_id, wallet_id, amount, hold_hours, completed_at, withdrawable_at)
         VALUES ($1, $2, $3, $4, $5, $6)
         RETURNING %s`, clearanceColumns)

	rows, err := r.db(ctx).Query(ctx, query,
		c.OrderID, c.WalletID, c.Amount, c.HoldHours, c.CompletedAt, c.WithdrawableAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert clearance: %w", err)
	}

	inserted, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[entities.OrderClearance])
	if err != nil {
		return nil, fmt.Errorf("failed to collect inserted clearance: %w", err)
	}

	r.logger.Info("Clearance created",
		"clearance_id", inserted.ID, "order_id", inserted.OrderID,
		"amount", inserted.Amount, "hold_hours", inserted.HoldHours)

	return inserted, nil
}

// FindByOrder retrieves the clearance of an order, nil if none exists.
func (r *ClearancesRepository) FindByOrder(ctx context.Context, orderID int64) (*entities.OrderClearance, error) {
	return r.findOne(ctx,
		fmt.Sprintf(`SELECT %s FROM order_clearances WHERE order_id = $1`, clearanceColumns), orderID)
}

// FindByOrderForUpdate locks the clearance row of an order. All state machine
// transitions take this lock before touching the wallet.
func (r *ClearancesRepository) FindByOrderForUpdate(ctx context.Context, orderID int64) (*entities.OrderClearance, error) {
	return r.findOne(ctx,
		fmt.Sprintf(`SELECT %s FROM order_clearances WHERE order_id = $1 FOR UPDATE`, clearanceColumns), orderID)
}

func (r *ClearancesRepository) findOne(ctx context.Context, query string, arg any) (*entities.OrderClearance, error) {
	rows, err := r.db(ctx).Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query clearance: %w", err)
	}

	clearance, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[entities.OrderClearance])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to collect clearance row: %w", err)
	}

	return clearance, nil
}

// Update writes back the mutable state machine fields.
func (r *ClearancesRepository) Update(ctx context.Context, c *entities.OrderClearance) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE order_clearances
            SET withdrawable_at = $2,
                paused_at = $3,
                remaining_seconds_at_pause = $4,
                is_paused = $5,
                is_cleared = $6,
                is_cancelled = $7,
                is_flagged_for_review = $8,
                blocked_at = $9,
                unblocked_at = $10,
                cleared_at = $11,
                complaint_id = $12,
                updated_at = NOW()
          WHERE id = $1`,
		c.ID, c.WithdrawableAt, c.PausedAt, c.RemainingSecondsAtPause,
		c.IsPaused, c.IsCleared, c.IsCancelled, c.IsFlaggedForReview,
		c.BlockedAt, c.UnblockedAt, c.ClearedAt, c.ComplaintID)
	if err != nil {
		return fmt.Errorf("failed to update clearance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("clearance %d not found for update", c.ID)
	}

	return nil
}

// EligibleIDs selects every clearance the sweeper may promote at the given
// instant. No lower time bound: an arbitrarily overdue clearance is still
// picked up by the next run.
func (r *ClearancesRepository) EligibleIDs(ctx context.Context, now time.Time) ([]int64, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id FROM order_clearances
          WHERE is_cleared = false
            AND is_paused = false
            AND is_cancelled = false
            AND is_flagged_for_review = false
            AND withdrawable_at <= $1
          ORDER BY withdrawable_at`, now)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query eligible clearances: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("failed to collect eligible clearance ids: %w", err)
	}

	return ids, nil
}

// Claim atomically marks a clearance cleared, conditioned on it still being
// claimable. Nil means another run claimed it first or its state changed
// since it was selected.
func (r *ClearancesRepository) Claim(ctx context.Context, id int64, now time.Time) (*entities.OrderClearance, error) {
	query := fmt.Sprintf(
		`UPDATE order_clearances
            SET is_cleared = true, cleared_at = $2, updated_at = $2
          WHERE id = $1
            AND is_cleared = false
            AND is_paused = false
            AND is_cancelled = false
            AND is_flagged_for_review = false
            AND withdrawable_at <= $2
         RETURNING %s`, clearanceColumns)

	rows, err := r.db(ctx).Query(ctx, query, id, now)
	if err != nil {
		return nil, fmt.Errorf("failed to claim clearance: %w", err)
	}

	clearance, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[entities.OrderClearance])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to collect claimed clearance: %w", err)
	}

	return clearance, nil
}

// List retrieves clearances matching the filter, newest first. State filters
// are expressed as explicit predicates over the flag columns.
func (r *ClearancesRepository) List(ctx context.Context, filter entities.ClearanceFilter) ([]entities.OrderClearance, error) {
	builder := sq.Select(clearanceColumns).
		From("order_clearances").
		OrderBy("id DESC").
		PlaceholderFormat(sq.Dollar)

	if filter.OrderID != nil {
		builder = builder.Where(sq.Eq{"order_id": *filter.OrderID})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(filter.Limit)
	}
	if filter.State != nil {
		builder = applyStatePredicate(builder, *filter.State)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build clearance list query: %w", err)
	}

	rows, err := r.db(ctx).Query(ctx, query, args...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query clearances: %w", err)
	}

	clearances, err := pgx.CollectRows(rows, pgx.RowToStructByName[entities.OrderClearance])
	if err != nil {
		r.logger.Error("failed to collect clearance rows", "error", err)
		return nil, err
	}

	return clearances, nil
}

func applyStatePredicate(builder sq.SelectBuilder, state entities.ClearanceState) sq.SelectBuilder {
	open := sq.Eq{"is_cleared": false, "is_cancelled": false}

	switch state {
	case entities.ClearanceCancelled:
		return builder.Where(sq.Eq{"is_cancelled": true})
	case entities.ClearanceCleared:
		return builder.Where(sq.Eq{"is_cleared": true, "is_cancelled": false})
	case entities.ClearanceBlocked:
		return builder.Where(open).Where(sq.Eq{"is_flagged_for_review": true})
	case entities.ClearancePaused:
		return builder.Where(open).Where(sq.Eq{"is_flagged_for_review": false, "is_paused": true})
	case entities.ClearanceEligible:
		return builder.Where(open).
			Where(sq.Eq{"is_flagged_for_review": false, "is_paused": false}).
			Where(sq.Expr("withdrawable_at <= NOW()"))
	case entities.ClearanceHolding:
		return builder.Where(open).
			Where(sq.Eq{"is_flagged_for_review": false, "is_paused": false}).
			Where(sq.Expr("withdrawable_at > NOW()"))
	default:
		return builder
	}
}
