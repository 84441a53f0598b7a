package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/JonMunkholm/solarerp/internal/core"
)

// maxSheetName is Excel's limit on worksheet name length.
const maxSheetName = 31

// WriteXLSX renders t as a single-sheet workbook with a bold, frozen header
// row and an optional totals row. Numbers and dates stay typed.
func WriteXLSX(w io.Writer, t *Table) error {
	f := excelize.NewFile()
	defer f.Close()

	sheet := sheetName(t.Title)
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	styles, err := newXLSXStyles(f)
	if err != nil {
		return err
	}

	for i, c := range t.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, c.Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		width := 12 * c.Weight
		if width < 10 {
			width = 10
		}
		if err := f.SetColWidth(sheet, col, col, width); err != nil {
			return fmt.Errorf("set column width: %w", err)
		}
	}
	last, _ := excelize.CoordinatesToCellName(len(t.Columns), 1)
	if err := f.SetCellStyle(sheet, "A1", last, styles.header); err != nil {
		return fmt.Errorf("style header: %w", err)
	}

	for r, row := range t.Rows {
		if err := writeXLSXRow(f, sheet, r+2, row, styles, false); err != nil {
			return err
		}
	}
	if t.HasTotals() {
		if err := writeXLSXRow(f, sheet, len(t.Rows)+2, t.Totals, styles, true); err != nil {
			return err
		}
	}

	if err := f.SetPanes(sheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freeze header: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

type xlsxStyles struct {
	header, number, date, totals, totalsNumber int
}

func newXLSXStyles(f *excelize.File) (xlsxStyles, error) {
	var s xlsxStyles
	var err error
	numFmt := "#,##0.00"

	if s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"21409A"}},
	}); err != nil {
		return s, fmt.Errorf("create header style: %w", err)
	}
	if s.number, err = f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt}); err != nil {
		return s, fmt.Errorf("create number style: %w", err)
	}
	if s.date, err = f.NewStyle(&excelize.Style{NumFmt: 14}); err != nil {
		return s, fmt.Errorf("create date style: %w", err)
	}
	if s.totals, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return s, fmt.Errorf("create totals style: %w", err)
	}
	if s.totalsNumber, err = f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true},
		CustomNumFmt: &numFmt,
	}); err != nil {
		return s, fmt.Errorf("create totals style: %w", err)
	}
	return s, nil
}

func writeXLSXRow(f *excelize.File, sheet string, rowNum int, row []any, styles xlsxStyles, totals bool) error {
	for i, v := range row {
		cell, _ := excelize.CoordinatesToCellName(i+1, rowNum)

		var style int
		switch val := v.(type) {
		case decimal.Decimal:
			v = val.InexactFloat64()
			style = styles.number
			if totals {
				style = styles.totalsNumber
			}
		case time.Time:
			style = styles.date
		case bool, nil:
			v = core.FormatCell(val)
		}
		if totals && style == 0 {
			style = styles.totals
		}

		if err := f.SetCellValue(sheet, cell, v); err != nil {
			return fmt.Errorf("write cell %s: %w", cell, err)
		}
		if style != 0 {
			if err := f.SetCellStyle(sheet, cell, cell, style); err != nil {
				return fmt.Errorf("style cell %s: %w", cell, err)
			}
		}
	}
	return nil
}

// sheetName strips characters Excel rejects and truncates to the limit.
func sheetName(title string) string {
	name := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`:\/?*[]`, r) {
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	if name == "" {
		name = "Report"
	}
	if runes := []rune(name); len(runes) > maxSheetName {
		name = string(runes[:maxSheetName])
	}
	return name
}
