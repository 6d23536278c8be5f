package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tx "github.com/Thiht/transactor/pgx"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dancycodes/chopwallet/internal/entities"
	"github.com/dancycodes/chopwallet/pkg/database"
)

// OrdersRepository reads marketplace orders and snapshots the commission rate
// onto them at settlement time.
type OrdersRepository struct {
	logger *slog.Logger

	db tx.DBGetter
}

// NewOrdersRepository creates a new order repository.
func NewOrdersRepository(logger *slog.Logger, pg *database.Postgres) *OrdersRepository {
	return &OrdersRepository{
		logger: logger,
		db:     pg.DBGetter,
	}
}

// FindForUpdate locks an order row for settlement, nil when it does not
// exist.
func (r *OrdersRepository) FindForUpdate(ctx context.Context, id int64) (*entities.Order, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, tenant_id, cook_id, order_number, subtotal, delivery_fee, status, commission_rate, completed_at
           FROM orders WHERE id = $1 FOR UPDATE`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query order: %w", err)
	}

	order, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[entities.Order])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to collect order row: %w", err)
	}

	return order, nil
}

// SnapshotCommissionRate freezes the tenant's commission rate onto the order.
// Later changes to the tenant setting never touch a settled order.
func (r *OrdersRepository) SnapshotCommissionRate(ctx context.Context, id int64, rate decimal.Decimal) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE orders SET commission_rate = $2 WHERE id = $1`, id, rate)
	if err != nil {
		return fmt.Errorf("failed to snapshot commission rate: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("order %d not found for rate snapshot", id)
	}

	return nil
}
