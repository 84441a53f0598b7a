package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/solarerp/internal/logging"
)

// Overview computes the financial summary for p. The five source
// collections are loaded concurrently.
func (s *Service) Overview(ctx context.Context, p Period) (*Overview, error) {
	start := time.Now()
	data, err := s.loadFinanceData(ctx, p)
	if err != nil {
		return nil, err
	}
	o := ComputeOverview(p, s.env.TaxRate, data)

	logging.FromContext(ctx).Debug("finance overview computed",
		"from", o.Period.From,
		"to", o.Period.To,
		"payments", len(data.Payments),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return o, nil
}

func (s *Service) loadFinanceData(ctx context.Context, p Period) (FinanceData, error) {
	var data FinanceData
	g, gctx := errgroup.WithContext(ctx)
	args := []any{p.From, p.To}

	g.Go(func() (err error) {
		data.Payments, err = collectFinance(gctx, s, `
			SELECT amount, COALESCE(method, ''), status, COALESCE(paid_on, created_at::date)
			FROM payments
			WHERE COALESCE(paid_on, created_at::date) BETWEEN $1 AND $2`, args,
			func(row pgx.CollectableRow) (PaymentRow, error) {
				var (
					r      PaymentRow
					amount pgtype.Numeric
				)
				err := row.Scan(&amount, &r.Method, &r.Status, &r.On)
				r.Amount = numericOrZero(amount)
				return r, err
			})
		return err
	})
	g.Go(func() (err error) {
		data.Salaries, err = collectFinance(gctx, s, `
			SELECT net_salary, status, COALESCE(paid_on, to_date(pay_month, 'YYYY-MM'))
			FROM salaries
			WHERE COALESCE(paid_on, to_date(pay_month, 'YYYY-MM')) BETWEEN $1 AND $2`, args,
			func(row pgx.CollectableRow) (SalaryRow, error) {
				var (
					r      SalaryRow
					amount pgtype.Numeric
				)
				err := row.Scan(&amount, &r.Status, &r.On)
				r.NetSalary = numericOrZero(amount)
				return r, err
			})
		return err
	})
	g.Go(func() (err error) {
		data.Purchases, err = collectFinance(gctx, s, `
			SELECT total_cost, status, COALESCE(requested_on, created_at::date)
			FROM supply_requests
			WHERE COALESCE(requested_on, created_at::date) BETWEEN $1 AND $2`, args,
			func(row pgx.CollectableRow) (PurchaseRow, error) {
				var (
					r      PurchaseRow
					amount pgtype.Numeric
				)
				err := row.Scan(&amount, &r.Status, &r.On)
				r.TotalCost = numericOrZero(amount)
				return r, err
			})
		return err
	})
	g.Go(func() (err error) {
		data.Expenses, err = collectFinance(gctx, s, `
			SELECT amount, COALESCE(category, ''), spent_on
			FROM expenses
			WHERE spent_on BETWEEN $1 AND $2`, args,
			func(row pgx.CollectableRow) (ExpenseRow, error) {
				var (
					r      ExpenseRow
					amount pgtype.Numeric
				)
				err := row.Scan(&amount, &r.Category, &r.On)
				r.Amount = numericOrZero(amount)
				return r, err
			})
		return err
	})
	g.Go(func() (err error) {
		data.Taxes, err = collectFinance(gctx, s, `
			SELECT tax_amount, status, COALESCE(paid_on, due_on, created_at::date)
			FROM taxes
			WHERE COALESCE(paid_on, due_on, created_at::date) BETWEEN $1 AND $2`, args,
			func(row pgx.CollectableRow) (TaxRow, error) {
				var (
					r      TaxRow
					amount pgtype.Numeric
				)
				err := row.Scan(&amount, &r.Status, &r.On)
				r.TaxAmount = numericOrZero(amount)
				return r, err
			})
		return err
	})

	if err := g.Wait(); err != nil {
		return FinanceData{}, fmt.Errorf("load finance data: %w", err)
	}
	return data, nil
}

func collectFinance[T any](ctx context.Context, s *Service, query string, args []any, scan pgx.RowToFunc[T]) ([]T, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, scan)
}

// Dashboard is the landing-page summary: headline counts plus the
// year-to-date overview.
type Dashboard struct {
	InventoryItems        int64           `json:"inventoryItems"`
	LowStockItems         int64           `json:"lowStockItems"`
	PendingSupplyRequests int64           `json:"pendingSupplyRequests"`
	ActiveEmployees       int64           `json:"activeEmployees"`
	Users                 int64           `json:"users"`
	PendingPayments       int64           `json:"pendingPayments"`
	OpenFeedback          int64           `json:"openFeedback"`
	AverageRating         decimal.Decimal `json:"averageRating"`
	YearToDate            *Overview       `json:"yearToDate"`
}

// Dashboard gathers the headline counts and the year-to-date overview.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	var d Dashboard
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var avg pgtype.Numeric
		err := s.pool.QueryRow(gctx, `
			SELECT
				(SELECT COUNT(*) FROM inventory_items),
				(SELECT COUNT(*) FROM inventory_items WHERE quantity <= reorder_level),
				(SELECT COUNT(*) FROM supply_requests WHERE status = 'pending'),
				(SELECT COUNT(*) FROM employees WHERE status = 'active'),
				(SELECT COUNT(*) FROM users),
				(SELECT COUNT(*) FROM payments WHERE status = 'pending'),
				(SELECT COUNT(*) FROM feedback WHERE status <> 'resolved'),
				(SELECT COALESCE(ROUND(AVG(rating)::numeric, 2), 0) FROM feedback)`,
		).Scan(&d.InventoryItems, &d.LowStockItems, &d.PendingSupplyRequests, &d.ActiveEmployees,
			&d.Users, &d.PendingPayments, &d.OpenFeedback, &avg)
		if err != nil {
			return fmt.Errorf("dashboard counts: %w", err)
		}
		d.AverageRating = numericOrZero(avg)
		return nil
	})
	g.Go(func() error {
		o, err := s.Overview(gctx, YearToDate(s.env.Now()))
		if err != nil {
			return err
		}
		d.YearToDate = o
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &d, nil
}

// ParsePeriodNow is ParsePeriod relative to the service clock.
func (s *Service) ParsePeriodNow(from, to string) (Period, error) {
	return ParsePeriod(from, to, s.env.Now())
}
