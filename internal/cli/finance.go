package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/solarerp/internal/core"
	"github.com/JonMunkholm/solarerp/internal/report"
)

func (a *app) newFinanceCmd() *cobra.Command {
	var from, to, out, format string

	cmd := &cobra.Command{
		Use:   "finance",
		Short: "Show the finance overview for a period",
		Long: "Show revenue, costs, estimated tax and net income for --from/--to " +
			"(default: the current calendar year). With --out the overview is also written as a report.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			period, err := core.ParsePeriod(from, to, time.Now())
			if err != nil {
				return err
			}
			var rf report.Format
			if out != "" {
				if rf, err = formatFor(format, out); err != nil {
					return err
				}
			}

			svc, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			ov, err := svc.Overview(cmd.Context(), period)
			if err != nil {
				return err
			}

			fmt.Fprint(a.out, RenderOverview(ov, a.formatter()))

			if out != "" {
				t := report.FinanceTable(ov)
				if err := a.writeReportFile(cmd, out, rf, t); err != nil {
					return err
				}
				fmt.Fprintln(a.out, Good("wrote %s", out))
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&from, "from", "", "Period start (YYYY-MM-DD)")
	flags.StringVar(&to, "to", "", "Period end (YYYY-MM-DD)")
	flags.StringVarP(&out, "out", "o", "", "Also write the overview to this file")
	flags.StringVar(&format, "format", "", "Report format for --out (pdf, xlsx, csv, html); default from the file extension")
	return cmd
}

// RenderOverview renders an overview as terminal tables.
func RenderOverview(ov *core.Overview, f *report.Formatter) string {
	var b strings.Builder
	money := f.Money
	rate := ov.TaxRate.Mul(decimal.NewFromInt(100)).String() + "%"

	b.WriteString("\n")
	b.WriteString(RenderTitle(fmt.Sprintf("FINANCIAL OVERVIEW  %s to %s", ov.Period.From, ov.Period.To)))
	b.WriteString("\n\n")

	b.WriteString(RenderTable(Table{
		Title:   "Summary",
		Headers: []string{"Item", "Amount"},
		Rows: [][]string{
			{"Revenue", money(ov.Revenue)},
			{"Refunds", money(ov.Refunds)},
			Separator,
			{"Salaries", money(ov.Salaries)},
			{"Purchases", money(ov.Purchases)},
			{"Expenses", money(ov.Expenses)},
			{"Total costs", money(ov.TotalCosts)},
			Separator,
			{"Gross profit", money(ov.GrossProfit)},
			{"Estimated tax (" + rate + ")", money(ov.EstimatedTax)},
			{"Net income", money(ov.NetIncome)},
			{"Taxes paid", money(ov.TaxesPaid)},
		},
	}))

	breakdown := func(title, label string, items []core.Breakdown) {
		if len(items) == 0 {
			return
		}
		rows := make([][]string, 0, len(items)+2)
		var count int64
		for _, it := range items {
			rows = append(rows, []string{it.Key, f.Integer(it.Count), money(it.Amount)})
			count += it.Count
		}
		rows = append(rows, Separator, []string{"TOTAL", f.Integer(count), money(core.SumBreakdown(items))})
		b.WriteString("\n")
		b.WriteString(RenderTable(Table{
			Title:   title,
			Headers: []string{label, "Count", "Amount"},
			Rows:    rows,
		}))
	}
	breakdown("Payments by status", "Status", ov.PaymentsByStatus)
	breakdown("Payments by method", "Method", ov.PaymentsByMethod)
	breakdown("Expenses by category", "Category", ov.ExpensesByCategory)

	if len(ov.Monthly) > 0 {
		rows := make([][]string, 0, len(ov.Monthly))
		for _, m := range ov.Monthly {
			net := money(m.Net)
			if m.Net.IsNegative() {
				net = Bad("%s", net)
			}
			rows = append(rows, []string{m.Month, money(m.Revenue), money(m.Costs), net})
		}
		b.WriteString("\n")
		b.WriteString(RenderTable(Table{
			Title:   "Monthly",
			Headers: []string{"Month", "Revenue", "Costs", "Net"},
			Rows:    rows,
		}))
	}
	return b.String()
}

// formatter returns the report formatter for the configured currency.
func (a *app) formatter() *report.Formatter {
	if a.cfg != nil {
		if f, err := report.NewFormatter("en", a.cfg.Finance.Currency); err == nil {
			return f
		}
	}
	return report.DefaultFormatter()
}

// formatFor resolves --format, falling back to the output file's extension.
func formatFor(name, path string) (report.Format, error) {
	if name == "" {
		name = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	return report.ParseFormat(name)
}

// writeReportFile renders t to path, or to stdout when path is "-".
func (a *app) writeReportFile(cmd *cobra.Command, path string, format report.Format, t *report.Table) error {
	if a.cfg != nil {
		t.Company = a.cfg.Report.CompanyName
	}
	t.Formatter = a.formatter()

	return a.writeFile(path, func(w io.Writer) error {
		return report.Write(cmd.Context(), w, format, t)
	})
}

// writeFile runs write against path, or stdout when path is "-".
func (a *app) writeFile(path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(a.out)
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return strconv.Itoa(n) + " " + word + "s"
}
