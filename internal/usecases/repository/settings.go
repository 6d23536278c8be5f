package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	tx "github.com/Thiht/transactor/pgx"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/dancycodes/chopwallet/internal/core/ports"
	"github.com/dancycodes/chopwallet/pkg/database"
)

// SettingsRepository reads the mutable platform settings. Values are read
// once, at the moment they are snapshotted onto an entity.
type SettingsRepository struct {
	logger *slog.Logger

	db tx.DBGetter
}

// NewSettingsRepository creates a new settings reader.
func NewSettingsRepository(logger *slog.Logger, pg *database.Postgres) *SettingsRepository {
	return &SettingsRepository{
		logger: logger,
		db:     pg.DBGetter,
	}
}

// CommissionRate returns the tenant's commission percentage, falling back to
// the platform default when the tenant has no override.
func (r *SettingsRepository) CommissionRate(ctx context.Context, tenantID int64) (decimal.Decimal, error) {
	var rate decimal.Decimal
	err := r.db(ctx).QueryRow(ctx,
		`SELECT commission_rate FROM tenant_settings WHERE tenant_id = $1`, tenantID).Scan(&rate)
	if errors.Is(err, pgx.ErrNoRows) {
		return decimal.NewFromInt(ports.DefaultCommissionRate), nil
	}
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("failed to read tenant commission rate: %w", err)
	}

	return rate, nil
}

// HoldHours returns the platform-wide escrow hold period in hours.
func (r *SettingsRepository) HoldHours(ctx context.Context) (int, error) {
	var hours int
	err := r.db(ctx).QueryRow(ctx,
		`SELECT value::int FROM platform_settings WHERE key = 'clearance_hold_hours'`).Scan(&hours)
	if errors.Is(err, pgx.ErrNoRows) {
		return ports.DefaultHoldHours, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read hold hours setting: %w", err)
	}

	return hours, nil
}
