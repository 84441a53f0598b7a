package report

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/solarerp/internal/core"
)

// wideFields get extra width in PDF and XLSX output.
var wideFields = map[string]bool{
	"name":        true,
	"full_name":   true,
	"title":       true,
	"description": true,
	"notes":       true,
	"message":     true,
	"address":     true,
	"email":       true,
	"subject":     true,
}

// isMoney reports whether a field holds a currency amount. Bounded numerics
// such as tax rates are ratios, not money.
func isMoney(spec core.FieldSpec) bool {
	return spec.Type == core.FieldNumeric && spec.Max == nil
}

// ColumnFor returns the report column for a resource field.
func ColumnFor(spec core.FieldSpec) Column {
	c := Column{Header: spec.DisplayLabel(), Align: AlignLeft, Weight: 1}
	switch spec.Type {
	case core.FieldNumeric, core.FieldInteger:
		c.Align = AlignRight
		c.Money = isMoney(spec)
	case core.FieldBool, core.FieldDate:
		c.Align = AlignCenter
		c.Weight = 0.8
	}
	if wideFields[spec.Name] {
		c.Weight = 1.8
	}
	return c
}

// FromRows builds a listing of rows for any resource. Money columns are
// summed into a totals row.
func FromRows(def core.ResourceDefinition, rows []core.Record) *Table {
	fields := def.VisibleFields()

	t := &Table{
		Title:       def.Info.Label,
		Subtitle:    fmt.Sprintf("%d records", len(rows)),
		Columns:     make([]Column, len(fields)),
		Rows:        make([][]any, len(rows)),
		GeneratedAt: time.Now(),
	}
	for i, spec := range fields {
		t.Columns[i] = ColumnFor(spec)
	}

	sums := make([]decimal.Decimal, len(fields))
	hasMoney := false
	for r, rec := range rows {
		row := make([]any, len(fields))
		for i, spec := range fields {
			row[i] = rec[spec.Name]
			if t.Columns[i].Money {
				sums[i] = sums[i].Add(core.DecimalValue(rec, spec.Name))
				hasMoney = true
			}
		}
		t.Rows[r] = row
	}

	if hasMoney {
		t.Totals = make([]any, len(fields))
		for i := range fields {
			if t.Columns[i].Money {
				t.Totals[i] = sums[i]
			}
		}
		if !t.Columns[0].Money {
			t.Totals[0] = "Total"
		}
	}
	return t
}

// FinanceTable lays out an overview as a four-column statement: the summary
// lines first, then each breakdown and the monthly series.
func FinanceTable(ov *core.Overview) *Table {
	t := &Table{
		Title:    "Financial Overview",
		Subtitle: fmt.Sprintf("%s to %s", ov.Period.From, ov.Period.To),
		Columns: []Column{
			{Header: "Section", Align: AlignLeft, Weight: 1.2},
			{Header: "Item", Align: AlignLeft, Weight: 1.6},
			{Header: "Count", Align: AlignRight, Weight: 0.6},
			{Header: "Amount", Align: AlignRight, Weight: 1.2, Money: true},
		},
		GeneratedAt: time.Now(),
	}

	add := func(section, item string, count any, amount decimal.Decimal) {
		t.Rows = append(t.Rows, []any{section, item, count, amount})
	}

	rate := ov.TaxRate.Mul(decimal.NewFromInt(100)).String() + "%"
	add("Summary", "Revenue", nil, ov.Revenue)
	add("Summary", "Refunds", nil, ov.Refunds)
	add("Summary", "Salaries", nil, ov.Salaries)
	add("Summary", "Purchases", nil, ov.Purchases)
	add("Summary", "Expenses", nil, ov.Expenses)
	add("Summary", "Total costs", nil, ov.TotalCosts)
	add("Summary", "Gross profit", nil, ov.GrossProfit)
	add("Summary", "Estimated tax ("+rate+")", nil, ov.EstimatedTax)
	add("Summary", "Net income", nil, ov.NetIncome)
	add("Summary", "Taxes paid", nil, ov.TaxesPaid)

	breakdowns := []struct {
		section string
		items   []core.Breakdown
	}{
		{"Payments by status", ov.PaymentsByStatus},
		{"Payments by method", ov.PaymentsByMethod},
		{"Expenses by category", ov.ExpensesByCategory},
	}
	for _, b := range breakdowns {
		for _, item := range b.items {
			add(b.section, item.Key, item.Count, item.Amount)
		}
	}

	for _, m := range ov.Monthly {
		add("Monthly net", m.Month, nil, m.Net)
	}

	t.Totals = []any{"Net income", nil, nil, ov.NetIncome}
	return t
}
