package report

import (
	"fmt"
	"io"

	"github.com/go-pdf/fpdf"
)

// Page layout in millimetres.
const (
	pdfMargin      = 12.0
	pdfRowHeight   = 6.5
	pdfHeaderRow   = 7.5
	pdfFooterSpace = 14.0

	// LandscapeColumns is the column count above which pages turn landscape.
	LandscapeColumns = 6
)

var (
	pdfHeaderFill = [3]int{33, 64, 154}
	pdfZebraFill  = [3]int{241, 244, 250}
	pdfTotalsFill = [3]int{222, 229, 243}
)

// pdfWriter holds the state of one PDF render.
type pdfWriter struct {
	pdf    *fpdf.Fpdf
	t      *Table
	tr     func(string) string
	widths []float64
}

// WritePDF renders t as an A4 document. The column header repeats on every
// page and each page carries a "Page n of N" footer.
func WritePDF(w io.Writer, t *Table) error {
	orientation := "P"
	if len(t.Columns) > LandscapeColumns {
		orientation = "L"
	}

	pdf := fpdf.New(orientation, "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(false, pdfFooterSpace)
	pdf.AliasNbPages("")
	pdf.SetTitle(t.Title, true)
	pdf.SetAuthor(t.Company, true)
	pdf.SetCreator("solarerp", true)

	pw := &pdfWriter{
		pdf: pdf,
		t:   t,
		tr:  pdf.UnicodeTranslatorFromDescriptor(""),
	}
	pw.widths = pw.columnWidths()

	pdf.SetHeaderFunc(pw.header)
	pdf.SetFooterFunc(pw.footer)
	pdf.AddPage()

	for i, row := range t.Rows {
		pw.ensureSpace(pdfRowHeight)
		pw.row(row, i%2 == 1, false)
	}
	if t.HasTotals() {
		pw.ensureSpace(pdfRowHeight)
		pw.row(t.Totals, false, true)
	}
	if len(t.Rows) == 0 {
		pdf.SetFont("Helvetica", "I", 9)
		pdf.SetTextColor(110, 110, 110)
		pdf.CellFormat(0, pdfRowHeight, "No records", "", 1, "C", false, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return pdf.Output(w)
}

// columnWidths splits the printable width by column weight.
func (pw *pdfWriter) columnWidths() []float64 {
	pageW, _ := pw.pdf.GetPageSize()
	usable := pageW - 2*pdfMargin
	weights := pw.t.weights()
	out := make([]float64, len(weights))
	for i, wt := range weights {
		out[i] = usable * wt
	}
	return out
}

// header draws the company line, title, subtitle and the column header.
func (pw *pdfWriter) header() {
	pdf := pw.pdf
	t := pw.t

	pageW, _ := pdf.GetPageSize()
	half := (pageW - 2*pdfMargin) / 2

	pdf.SetTextColor(90, 90, 90)
	pdf.SetFont("Helvetica", "", 8)
	pdf.CellFormat(half, 4, pw.tr(t.Company), "", 0, "L", false, 0, "")
	pdf.CellFormat(half, 4, t.generatedLabel(), "", 1, "R", false, 0, "")

	pdf.SetTextColor(20, 20, 20)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 8, pw.tr(t.Title), "", 1, "L", false, 0, "")
	if t.Subtitle != "" {
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 5, pw.tr(t.Subtitle), "", 1, "L", false, 0, "")
	}
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 8.5)
	pdf.SetFillColor(pdfHeaderFill[0], pdfHeaderFill[1], pdfHeaderFill[2])
	pdf.SetTextColor(255, 255, 255)
	pdf.SetDrawColor(200, 200, 200)
	for i, c := range t.Columns {
		pdf.CellFormat(pw.widths[i], pdfHeaderRow, pw.fit(c.Header, pw.widths[i]), "1", 0, string(c.Align), true, 0, "")
	}
	pdf.Ln(-1)
}

func (pw *pdfWriter) footer() {
	pdf := pw.pdf
	pdf.SetY(-pdfFooterSpace + 4)
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(120, 120, 120)
	pdf.CellFormat(0, 5, fmt.Sprintf("Page %d of {nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
}

// ensureSpace starts a new page when fewer than h millimetres remain above
// the footer.
func (pw *pdfWriter) ensureSpace(h float64) {
	_, pageH := pw.pdf.GetPageSize()
	if pw.pdf.GetY()+h > pageH-pdfFooterSpace {
		pw.pdf.AddPage()
	}
}

func (pw *pdfWriter) row(values []any, zebra, totals bool) {
	pdf := pw.pdf
	style := ""
	fill := zebra
	switch {
	case totals:
		style = "B"
		fill = true
		pdf.SetFillColor(pdfTotalsFill[0], pdfTotalsFill[1], pdfTotalsFill[2])
	case zebra:
		pdf.SetFillColor(pdfZebraFill[0], pdfZebraFill[1], pdfZebraFill[2])
	}
	pdf.SetFont("Helvetica", style, 8)
	pdf.SetTextColor(30, 30, 30)

	for i, c := range pw.t.Columns {
		text := pw.fit(pw.t.Text(i, at(values, i)), pw.widths[i])
		pdf.CellFormat(pw.widths[i], pdfRowHeight, text, "1", 0, string(c.Align), fill, 0, "")
	}
	pdf.Ln(-1)
}

// fit translates s for the core fonts and shortens it with "..." until it
// fits width w.
func (pw *pdfWriter) fit(s string, w float64) string {
	limit := w - 2*pw.pdf.GetCellMargin()
	if out := pw.tr(s); pw.pdf.GetStringWidth(out) <= limit {
		return out
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		if out := pw.tr(string(runes) + "..."); pw.pdf.GetStringWidth(out) <= limit {
			return out
		}
	}
	return ""
}
