package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tx "github.com/Thiht/transactor/pgx"
	"github.com/jackc/pgx/v5"

	"github.com/dancycodes/chopwallet/internal/entities"
	"github.com/dancycodes/chopwallet/pkg/database"
)

// ComplaintsRepository reads marketplace complaints. The clearance engine
// never writes them; resolution happens in the complaints module.
type ComplaintsRepository struct {
	logger *slog.Logger

	db tx.DBGetter
}

// NewComplaintsRepository creates a new read-only complaint repository.
func NewComplaintsRepository(logger *slog.Logger, pg *database.Postgres) *ComplaintsRepository {
	return &ComplaintsRepository{
		logger: logger,
		db:     pg.DBGetter,
	}
}

// Find retrieves a complaint by id, nil when it does not exist.
func (r *ComplaintsRepository) Find(ctx context.Context, id int64) (*entities.Complaint, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT id, order_id, status, resolution_type, created_at, resolved_at
           FROM complaints WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query complaint: %w", err)
	}

	complaint, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[entities.Complaint])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to collect complaint row: %w", err)
	}

	return complaint, nil
}

// CountActiveForOrder counts complaints on the order that still gate
// clearance: open, in_review or escalated.
func (r *ComplaintsRepository) CountActiveForOrder(ctx context.Context, orderID int64) (int, error) {
	var count int
	err := r.db(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM complaints
          WHERE order_id = $1 AND status IN ('open', 'in_review', 'escalated')`, orderID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count active complaints: %w", err)
	}

	return count, nil
}
