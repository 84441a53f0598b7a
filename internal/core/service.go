package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the statutory rate applied when none is configured.
var DefaultTaxRate = decimal.RequireFromString("0.085")

// Options configures a Service.
type Options struct {
	// TaxRate overrides DefaultTaxRate when set. Zero is a valid rate.
	TaxRate *decimal.Decimal
	Now     func() time.Time
}

// Service provides the ERP's business operations over a PostgreSQL pool.
type Service struct {
	pool *pgxpool.Pool
	env  HookEnv
}

// NewService creates a new Service instance.
func NewService(pool *pgxpool.Pool, opts Options) *Service {
	rate := DefaultTaxRate
	if opts.TaxRate != nil {
		rate = *opts.TaxRate
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		pool: pool,
		env:  HookEnv{TaxRate: rate, Now: opts.Now},
	}
}

// TaxRate returns the rate used for estimated tax and new tax records.
func (s *Service) TaxRate() decimal.Decimal {
	return s.env.TaxRate
}

// Ping checks database connectivity.
func (s *Service) Ping(ctx context.Context) error {
	if s.pool == nil {
		return errors.New("database pool not configured")
	}
	return s.pool.Ping(ctx)
}

// ListResources returns every registered resource, grouped and sorted.
func (s *Service) ListResources() []ResourceInfo {
	defs := All()
	out := make([]ResourceInfo, len(defs))
	for i, def := range defs {
		out[i] = def.Info
	}
	return out
}

// Count returns the number of rows in a resource table.
func (s *Service) Count(ctx context.Context, resource string) (int64, error) {
	def, err := Resolve(resource)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+quoteIdentifier(def.Info.Key)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", def.Info.Key, err)
	}
	return n, nil
}

// inTx runs fn in a transaction, committing on nil and rolling back otherwise.
func (s *Service) inTx(ctx context.Context, fn func(pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, fn)
}
