package core

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// MaxPeriodMonths bounds the monthly series of an overview.
const MaxPeriodMonths = 120

// MonthLayout formats a calendar month key.
const MonthLayout = "2006-01"

// Period is an inclusive date range at day precision.
type Period struct {
	From time.Time `json:"-"`
	To   time.Time `json:"-"`
}

// ParsePeriod builds a period from optional from/to strings. Missing bounds
// default to the calendar year of the other bound, or of now.
func ParsePeriod(from, to string, now time.Time) (Period, error) {
	f, t, err := ValidateDateRange(from, to)
	if err != nil {
		return Period{}, err
	}

	var p Period
	if f != "" {
		p.From, _ = ParseDate(f)
	}
	if t != "" {
		p.To, _ = ParseDate(t)
	}

	switch {
	case p.From.IsZero() && p.To.IsZero():
		p.From = yearStart(now.Year())
		p.To = yearEnd(now.Year())
	case p.From.IsZero():
		p.From = yearStart(p.To.Year())
	case p.To.IsZero():
		p.To = yearEnd(p.From.Year())
	}

	if n := len(p.Months()); n > MaxPeriodMonths {
		return Period{}, invalid("to", "period must not exceed %d months", MaxPeriodMonths)
	}
	return p, nil
}

// YearToDate returns the period from January 1 of now's year through now.
func YearToDate(now time.Time) Period {
	return Period{From: yearStart(now.Year()), To: truncateDate(now)}
}

func yearStart(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func yearEnd(year int) time.Time {
	return time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)
}

// Contains reports whether t falls on a day inside the period.
func (p Period) Contains(t time.Time) bool {
	if t.IsZero() {
		return false
	}
	d := truncateDate(t)
	return !d.Before(p.From) && !d.After(p.To)
}

// Months lists every calendar month the period touches, as MonthLayout keys.
func (p Period) Months() []string {
	var out []string
	cur := time.Date(p.From.Year(), p.From.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cur.After(p.To) {
		out = append(out, cur.Format(MonthLayout))
		cur = cur.AddDate(0, 1, 0)
		if len(out) > MaxPeriodMonths {
			break
		}
	}
	return out
}

// PeriodRange is the JSON form of a Period.
type PeriodRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Range returns the period as DateLayout strings.
func (p Period) Range() PeriodRange {
	return PeriodRange{From: p.From.Format(DateLayout), To: p.To.Format(DateLayout)}
}

// Rows fed to the overview computation. On is the date that places the row
// in a period.
type (
	PaymentRow struct {
		Amount decimal.Decimal
		Method string
		Status string
		On     time.Time
	}
	SalaryRow struct {
		NetSalary decimal.Decimal
		Status    string
		On        time.Time
	}
	PurchaseRow struct {
		TotalCost decimal.Decimal
		Status    string
		On        time.Time
	}
	ExpenseRow struct {
		Amount   decimal.Decimal
		Category string
		On       time.Time
	}
	TaxRow struct {
		TaxAmount decimal.Decimal
		Status    string
		On        time.Time
	}
)

// FinanceData holds the raw rows an overview is computed from.
type FinanceData struct {
	Payments  []PaymentRow
	Salaries  []SalaryRow
	Purchases []PurchaseRow
	Expenses  []ExpenseRow
	Taxes     []TaxRow
}

// Breakdown is one slice of a grouped total.
type Breakdown struct {
	Key    string          `json:"key"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// MonthlyPoint is one month of the revenue/cost series.
type MonthlyPoint struct {
	Month   string          `json:"month"`
	Revenue decimal.Decimal `json:"revenue"`
	Costs   decimal.Decimal `json:"costs"`
	Net     decimal.Decimal `json:"net"`
}

// Overview is the financial summary for a period.
type Overview struct {
	Period       PeriodRange     `json:"period"`
	TaxRate      decimal.Decimal `json:"taxRate"`
	Revenue      decimal.Decimal `json:"revenue"`
	Refunds      decimal.Decimal `json:"refunds"`
	Salaries     decimal.Decimal `json:"salaries"`
	Purchases    decimal.Decimal `json:"purchases"`
	Expenses     decimal.Decimal `json:"expenses"`
	TotalCosts   decimal.Decimal `json:"totalCosts"`
	GrossProfit  decimal.Decimal `json:"grossProfit"`
	EstimatedTax decimal.Decimal `json:"estimatedTax"`
	NetIncome    decimal.Decimal `json:"netIncome"`
	TaxesPaid    decimal.Decimal `json:"taxesPaid"`

	PaymentsByStatus   []Breakdown    `json:"paymentsByStatus"`
	PaymentsByMethod   []Breakdown    `json:"paymentsByMethod"`
	ExpensesByCategory []Breakdown    `json:"expensesByCategory"`
	Monthly            []MonthlyPoint `json:"monthly"`
}

// Status values that count toward the overview.
const (
	paymentCompleted = "completed"
	paymentRefunded  = "refunded"
	salaryPaid       = "paid"
	taxPaid          = "paid"
)

// purchaseCounts reports whether a supply request status is a committed cost.
func purchaseCounts(status string) bool {
	return status == "approved" || status == "delivered"
}

// EstimateTax applies rate to a positive gross profit, rounded to 2 places.
// Losses carry no tax.
func EstimateTax(grossProfit, rate decimal.Decimal) decimal.Decimal {
	if !grossProfit.IsPositive() {
		return decimal.Zero
	}
	return grossProfit.Mul(rate).Round(2)
}

// ComputeOverview aggregates data for period. Rows outside the period are
// ignored; empty data yields an all-zero overview.
func ComputeOverview(p Period, rate decimal.Decimal, data FinanceData) *Overview {
	o := &Overview{
		Period:       p.Range(),
		TaxRate:      rate,
		Revenue:      decimal.Zero,
		Refunds:      decimal.Zero,
		Salaries:     decimal.Zero,
		Purchases:    decimal.Zero,
		Expenses:     decimal.Zero,
		TaxesPaid:    decimal.Zero,
		EstimatedTax: decimal.Zero,
	}

	monthly := make(map[string]*MonthlyPoint)
	months := p.Months()
	for _, m := range months {
		monthly[m] = &MonthlyPoint{Month: m, Revenue: decimal.Zero, Costs: decimal.Zero, Net: decimal.Zero}
	}
	addCost := func(on time.Time, amount decimal.Decimal) {
		if pt, ok := monthly[on.Format(MonthLayout)]; ok {
			pt.Costs = pt.Costs.Add(amount)
		}
	}

	byStatus := newGrouper()
	byMethod := newGrouper()
	for _, pay := range data.Payments {
		if !p.Contains(pay.On) {
			continue
		}
		byStatus.add(pay.Status, pay.Amount)
		switch pay.Status {
		case paymentCompleted:
			o.Revenue = o.Revenue.Add(pay.Amount)
			byMethod.add(pay.Method, pay.Amount)
			if pt, ok := monthly[pay.On.Format(MonthLayout)]; ok {
				pt.Revenue = pt.Revenue.Add(pay.Amount)
			}
		case paymentRefunded:
			o.Refunds = o.Refunds.Add(pay.Amount)
		}
	}

	for _, sal := range data.Salaries {
		if sal.Status != salaryPaid || !p.Contains(sal.On) {
			continue
		}
		o.Salaries = o.Salaries.Add(sal.NetSalary)
		addCost(sal.On, sal.NetSalary)
	}

	for _, pr := range data.Purchases {
		if !purchaseCounts(pr.Status) || !p.Contains(pr.On) {
			continue
		}
		o.Purchases = o.Purchases.Add(pr.TotalCost)
		addCost(pr.On, pr.TotalCost)
	}

	byCategory := newGrouper()
	for _, ex := range data.Expenses {
		if !p.Contains(ex.On) {
			continue
		}
		o.Expenses = o.Expenses.Add(ex.Amount)
		byCategory.add(ex.Category, ex.Amount)
		addCost(ex.On, ex.Amount)
	}

	for _, tx := range data.Taxes {
		if tx.Status == taxPaid && p.Contains(tx.On) {
			o.TaxesPaid = o.TaxesPaid.Add(tx.TaxAmount)
		}
	}

	o.TotalCosts = o.Salaries.Add(o.Purchases).Add(o.Expenses)
	o.GrossProfit = o.Revenue.Sub(o.TotalCosts)
	o.EstimatedTax = EstimateTax(o.GrossProfit, rate)
	o.NetIncome = o.GrossProfit.Sub(o.EstimatedTax)

	o.PaymentsByStatus = byStatus.result()
	o.PaymentsByMethod = byMethod.result()
	o.ExpensesByCategory = byCategory.result()

	o.Monthly = make([]MonthlyPoint, len(months))
	for i, m := range months {
		pt := monthly[m]
		pt.Net = pt.Revenue.Sub(pt.Costs)
		o.Monthly[i] = *pt
	}
	return o
}

// grouper accumulates Breakdowns keyed by a category string.
type grouper map[string]*Breakdown

func newGrouper() grouper { return make(grouper) }

func (g grouper) add(key string, amount decimal.Decimal) {
	if key == "" {
		key = "unspecified"
	}
	b, ok := g[key]
	if !ok {
		b = &Breakdown{Key: key, Amount: decimal.Zero}
		g[key] = b
	}
	b.Count++
	b.Amount = b.Amount.Add(amount)
}

// result returns the groups ordered by key.
func (g grouper) result() []Breakdown {
	out := make([]Breakdown, 0, len(g))
	for _, b := range g {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// SumBreakdown totals the amounts of bs.
func SumBreakdown(bs []Breakdown) decimal.Decimal {
	total := decimal.Zero
	for _, b := range bs {
		total = total.Add(b.Amount)
	}
	return total
}
