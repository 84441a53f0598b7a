// Package report renders tabular reports for resources and finance summaries.
//
// A Table is built once (FromRows, FinanceTable) and written in any Format:
//
//	t := report.FromRows(def, rows)
//	err := report.Write(ctx, w, report.FormatPDF, t)
//
// Cells hold canonical record values. Writers that produce text format them
// through the table's Formatter; the XLSX writer keeps numbers numeric.
package report

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/JonMunkholm/solarerp/internal/core"
)

// Format is an output format for a report.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
)

// Formats lists the supported formats in display order.
var Formats = []Format{FormatPDF, FormatXLSX, FormatCSV, FormatHTML}

// ParseFormat resolves a format name. Empty defaults to CSV.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return FormatCSV, nil
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", unsupported(s)
}

func unsupported(name string) error {
	var errs core.ValidationErrors
	errs.Add("format", "unsupported report format %q", name)
	return errs.Err()
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	switch f {
	case FormatPDF:
		return "application/pdf"
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatHTML:
		return "text/html; charset=utf-8"
	default:
		return "text/csv; charset=utf-8"
	}
}

// Filename returns base with the format's extension.
func (f Format) Filename(base string) string {
	return base + "." + string(f)
}

// Align is a column's horizontal alignment. The values are fpdf's codes.
type Align string

const (
	AlignLeft   Align = "L"
	AlignCenter Align = "C"
	AlignRight  Align = "R"
)

// Column describes one report column.
// Weight is the relative width; zero counts as 1.
type Column struct {
	Header string
	Align  Align
	Weight float64
	Money  bool
}

// Table is a report ready to be written.
type Table struct {
	Title       string
	Subtitle    string
	Company     string
	Columns     []Column
	Rows        [][]any
	Totals      []any // optional; same length as Columns
	GeneratedAt time.Time

	Formatter *Formatter
}

// Text returns the display text of a cell in column col.
func (t *Table) Text(col int, v any) string {
	f := t.Formatter
	if f == nil {
		f = DefaultFormatter()
	}
	money := col < len(t.Columns) && t.Columns[col].Money
	return f.Cell(v, money)
}

// Headers returns the column headers.
func (t *Table) Headers() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Header
	}
	return out
}

// HasTotals reports whether the table carries a totals row.
func (t *Table) HasTotals() bool {
	return len(t.Totals) > 0
}

// generatedLabel renders the generation time shown in headers.
func (t *Table) generatedLabel() string {
	at := t.GeneratedAt
	if at.IsZero() {
		at = time.Now()
	}
	return "Generated " + at.Format("2006-01-02 15:04")
}

// weights returns normalized column weights summing to 1.
func (t *Table) weights() []float64 {
	out := make([]float64, len(t.Columns))
	var total float64
	for i, c := range t.Columns {
		w := c.Weight
		if w <= 0 {
			w = 1
		}
		out[i] = w
		total += w
	}
	for i := range out {
		out[i] /= total
	}
	return out
}

// Write renders t to w in the given format.
func Write(ctx context.Context, w io.Writer, format Format, t *Table) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("report %q has no columns", t.Title)
	}
	switch format {
	case FormatPDF:
		return WritePDF(w, t)
	case FormatXLSX:
		return WriteXLSX(w, t)
	case FormatCSV:
		return WriteCSV(w, t)
	case FormatHTML:
		return HTML(t).Render(ctx, w)
	default:
		return unsupported(string(format))
	}
}
