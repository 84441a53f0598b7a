package report

import (
	"encoding/csv"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/solarerp/internal/core"
)

// WriteCSV writes the header, rows and totals as CSV.
// Numbers are written plain so the file re-imports cleanly.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(t.Headers()); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, row := range t.Rows {
		if err := cw.Write(plainRow(row)); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	if t.HasTotals() {
		if err := cw.Write(plainRow(t.Totals)); err != nil {
			return fmt.Errorf("write csv totals: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// CSVStream writes a CSV export row by row without holding the table.
type CSVStream struct {
	cw *csv.Writer
}

// NewCSVStream writes headers and returns a stream for the rows.
func NewCSVStream(w io.Writer, headers []string) (*CSVStream, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(headers); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return &CSVStream{cw: cw}, nil
}

// Row writes one row of canonical values.
func (s *CSVStream) Row(row []any) error {
	if err := s.cw.Write(plainRow(row)); err != nil {
		return fmt.Errorf("write csv row: %w", err)
	}
	return nil
}

// Close flushes buffered rows.
func (s *CSVStream) Close() error {
	s.cw.Flush()
	return s.cw.Error()
}

func plainRow(row []any) []string {
	out := make([]string, len(row))
	for i, v := range row {
		if d, ok := v.(decimal.Decimal); ok {
			out[i] = d.String()
			continue
		}
		out[i] = core.FormatCell(v)
	}
	return out
}
