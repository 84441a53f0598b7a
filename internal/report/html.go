package report

import (
	"context"
	"fmt"
	"io"

	"github.com/a-h/templ"
)

const reportCSS = `
body{font-family:Helvetica,Arial,sans-serif;color:#1e1e1e;margin:24px}
header .company{color:#5a5a5a;font-size:12px;display:flex;justify-content:space-between}
h1{font-size:20px;margin:6px 0 2px}
.subtitle{font-size:13px;margin:0 0 12px}
table{border-collapse:collapse;width:100%;font-size:12px}
th{background:#21409a;color:#fff;padding:6px;border:1px solid #c8c8c8}
td{padding:5px 6px;border:1px solid #c8c8c8}
tbody tr:nth-child(even){background:#f1f4fa}
tfoot td{font-weight:bold;background:#dee5f3}
.L{text-align:left}.C{text-align:center}.R{text-align:right}
.empty{text-align:center;font-style:italic;color:#6e6e6e}
@media print{body{margin:0}thead{display:table-header-group}tr{page-break-inside:avoid}}
`

// HTML returns a printable HTML document for t. Browsers repeat the thead on
// every printed page.
func HTML(t *Table) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		hw := &htmlWriter{w: w}

		hw.raw("<!DOCTYPE html>\n<html lang=\"en\"><head><meta charset=\"utf-8\">")
		hw.raw("<title>")
		hw.text(t.Title)
		hw.raw("</title><style>" + reportCSS + "</style></head><body>")

		hw.raw(`<header><div class="company"><span>`)
		hw.text(t.Company)
		hw.raw("</span><span>")
		hw.text(t.generatedLabel())
		hw.raw("</span></div><h1>")
		hw.text(t.Title)
		hw.raw("</h1>")
		if t.Subtitle != "" {
			hw.raw(`<p class="subtitle">`)
			hw.text(t.Subtitle)
			hw.raw("</p>")
		}
		hw.raw("</header>")

		hw.raw("<table><thead><tr>")
		for _, c := range t.Columns {
			hw.cell("th", c.Align, c.Header)
		}
		hw.raw("</tr></thead><tbody>")
		for _, row := range t.Rows {
			if err := ctx.Err(); err != nil {
				return err
			}
			hw.raw("<tr>")
			for i, c := range t.Columns {
				hw.cell("td", c.Align, t.Text(i, at(row, i)))
			}
			hw.raw("</tr>")
		}
		if len(t.Rows) == 0 {
			hw.raw(fmt.Sprintf(`<tr><td class="empty" colspan="%d">No records</td></tr>`, len(t.Columns)))
		}
		hw.raw("</tbody>")
		if t.HasTotals() {
			hw.raw("<tfoot><tr>")
			for i, c := range t.Columns {
				hw.cell("td", c.Align, t.Text(i, at(t.Totals, i)))
			}
			hw.raw("</tr></tfoot>")
		}
		hw.raw("</table></body></html>\n")

		return hw.err
	})
}

// htmlWriter keeps the first write error so rendering reads linearly.
type htmlWriter struct {
	w   io.Writer
	err error
}

func (h *htmlWriter) raw(s string) {
	if h.err != nil {
		return
	}
	_, h.err = io.WriteString(h.w, s)
}

func (h *htmlWriter) text(s string) {
	h.raw(templ.EscapeString(s))
}

func (h *htmlWriter) cell(tag string, align Align, s string) {
	if align == "" {
		align = AlignLeft
	}
	h.raw("<" + tag + ` class="` + string(align) + `">`)
	h.text(s)
	h.raw("</" + tag + ">")
}

func at(row []any, i int) any {
	if i < len(row) {
		return row[i]
	}
	return nil
}
