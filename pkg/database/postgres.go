package database

import (
	"context"
	"fmt"
	"time"

	tx "github.com/Thiht/transactor/pgx"
	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultMaxPoolSize       = 4
	defaultConnTimeout       = 5 * time.Second
	defaultHealthCheckPeriod = time.Minute
)

// Postgres bundles the connection pool with the transactor used for explicit
// transaction boundaries. Repositories query through DBGetter so that calls
// inside Transactor.WithinTransaction join the surrounding transaction.
type Postgres struct {
	Pool       *pgxpool.Pool
	DBGetter   tx.DBGetter
	Transactor *tx.Transactor
}

// Option configures the pool.
type Option func(*pgxpool.Config)

// MaxPoolSize caps the number of pooled connections.
func MaxPoolSize(size int32) Option {
	return func(cfg *pgxpool.Config) {
		cfg.MaxConns = size
	}
}

// ConnTimeout sets the connect timeout in seconds.
func ConnTimeout(seconds int) Option {
	return func(cfg *pgxpool.Config) {
		cfg.ConnConfig.ConnectTimeout = time.Duration(seconds) * time.Second
	}
}

// HealthCheckPeriod sets the pool health check period in minutes.
func HealthCheckPeriod(minutes int) Option {
	return func(cfg *pgxpool.Config) {
		cfg.HealthCheckPeriod = time.Duration(minutes) * time.Minute
	}
}

// New connects to Postgres and wires the transactor.
func New(ctx context.Context, databaseURL string, opts ...Option) (*Postgres, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	cfg.MaxConns = defaultMaxPoolSize
	cfg.ConnConfig.ConnectTimeout = defaultConnTimeout
	cfg.HealthCheckPeriod = defaultHealthCheckPeriod

	for _, opt := range opts {
		opt(cfg)
	}

	// Commission rates are NUMERIC columns read as shopspring decimals.
	cfg.AfterConnect = func(_ context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	transactor, dbGetter := tx.NewTransactorFromPool(pool)

	return &Postgres{
		Pool:       pool,
		DBGetter:   dbGetter,
		Transactor: transactor,
	}, nil
}

// Close releases the pool.
func (p *Postgres) Close() {
	if p.Pool != nil {
		p.Pool.Close()
	}
}
