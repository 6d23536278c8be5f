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

const walletColumns = `id, tenant_id, cook_id, total_balance, withdrawable_balance, unwithdrawable_balance, created_at, updated_at`

// WalletsRepository maintains the cook_wallets aggregate table.
type WalletsRepository struct {
	logger *slog.Logger

	db         tx.DBGetter
	transactor *tx.Transactor
}

// NewWalletsRepository creates a new wallet aggregate repository.
func NewWalletsRepository(logger *slog.Logger, pg *database.Postgres) *WalletsRepository {
	return &WalletsRepository{
		logger:     logger,
		db:         pg.DBGetter,
		transactor: pg.Transactor,
	}
}

// Find retrieves a wallet by its (tenant, cook) reference, nil if it was
// never written to.
func (r *WalletsRepository) Find(ctx context.Context, ref entities.WalletRef) (*entities.CookWallet, error) {
	query := fmt.Sprintf(`SELECT %s FROM cook_wallets WHERE tenant_id = $1 AND cook_id = $2`, walletColumns)

	rows, err := r.db(ctx).Query(ctx, query, ref.TenantID, ref.CookID)
	if err != nil {
		return nil, fmt.Errorf("failed to query wallet: %w", err)
	}

	wallet, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[entities.CookWallet])
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to collect wallet row: %w", err)
	}

	return wallet, nil
}

// FindForUpdate locks the wallet row for the rest of the surrounding
// transaction, creating it lazily on first use. All balance writes for one
// wallet serialize on this lock.
func (r *WalletsRepository) FindForUpdate(ctx context.Context, ref entities.WalletRef) (*entities.CookWallet, error) {
	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO cook_wallets (tenant_id, cook_id) VALUES ($1, $2) ON CONFLICT (tenant_id, cook_id) DO NOTHING`,
		ref.TenantID, ref.CookID)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure wallet exists: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM cook_wallets WHERE tenant_id = $1 AND cook_id = $2 FOR UPDATE`, walletColumns)

	rows, err := r.db(ctx).Query(ctx, query, ref.TenantID, ref.CookID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet: %w", err)
	}

	wallet, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[entities.CookWallet])
	if err != nil {
		return nil, fmt.Errorf("failed to collect locked wallet row: %w", err)
	}

	return wallet, nil
}

// FindByIDForUpdate locks a wallet row by primary key.
func (r *WalletsRepository) FindByIDForUpdate(ctx context.Context, id int64) (*entities.CookWallet, error) {
	query := fmt.Sprintf(`SELECT %s FROM cook_wallets WHERE id = $1 FOR UPDATE`, walletColumns)

	rows, err := r.db(ctx).Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to lock wallet by id: %w", err)
	}

	wallet, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByName[entities.CookWallet])
	if err != nil {
		return nil, fmt.Errorf("failed to collect locked wallet row: %w", err)
	}

	return wallet, nil
}

// ApplyDelta shifts the three balance columns. The caller holds the row lock
// and commits the matching ledger row in the same transaction.
func (r *WalletsRepository) ApplyDelta(ctx context.Context, walletID int64, total, withdrawable, unwithdrawable int64) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE cook_wallets
            SET total_balance = total_balance + $2,
                withdrawable_balance = withdrawable_balance + $3,
                unwithdrawable_balance = unwithdrawable_balance + $4,
                updated_at = NOW()
          WHERE id = $1`,
		walletID, total, withdrawable, unwithdrawable)
	if err != nil {
		return fmt.Errorf("failed to update wallet balances: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("wallet %d not found for balance update", walletID)
	}

	return nil
}
