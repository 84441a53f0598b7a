package report

import (
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"github.com/JonMunkholm/solarerp/internal/core"
)

// DefaultCurrency is used when no currency code is configured.
const DefaultCurrency = "LKR"

// Formatter renders cell values as display text with locale-aware digit
// grouping.
type Formatter struct {
	printer  *message.Printer
	currency string
}

// NewFormatter creates a formatter for the given BCP 47 locale and ISO 4217
// currency code. Empty values fall back to English and DefaultCurrency.
func NewFormatter(locale, currencyCode string) (*Formatter, error) {
	tag := language.English
	if locale != "" {
		t, err := language.Parse(locale)
		if err != nil {
			return nil, fmt.Errorf("parse locale %q: %w", locale, err)
		}
		tag = t
	}

	if currencyCode == "" {
		currencyCode = DefaultCurrency
	}
	unit, err := currency.ParseISO(strings.ToUpper(currencyCode))
	if err != nil {
		return nil, fmt.Errorf("parse currency %q: %w", currencyCode, err)
	}

	return &Formatter{
		printer:  message.NewPrinter(tag),
		currency: unit.String(),
	}, nil
}

var (
	defaultFormatter     *Formatter
	defaultFormatterOnce sync.Once
)

// DefaultFormatter returns an English formatter using DefaultCurrency.
func DefaultFormatter() *Formatter {
	defaultFormatterOnce.Do(func() {
		defaultFormatter, _ = NewFormatter("", DefaultCurrency)
	})
	return defaultFormatter
}

// Currency returns the ISO code prefixed to money values.
func (f *Formatter) Currency() string {
	return f.currency
}

// Number formats d with grouping and two decimals: 1,234.50.
func (f *Formatter) Number(d decimal.Decimal) string {
	return f.printer.Sprint(number.Decimal(d.InexactFloat64(), number.Scale(2)))
}

// Money formats d as an amount in the formatter's currency: LKR 1,234.50.
func (f *Formatter) Money(d decimal.Decimal) string {
	return f.currency + " " + f.Number(d)
}

// Integer formats n with grouping.
func (f *Formatter) Integer(n int64) string {
	return f.printer.Sprint(number.Decimal(n))
}

// Cell renders a canonical value. Decimals in money columns carry the
// currency code.
func (f *Formatter) Cell(v any, money bool) string {
	switch val := v.(type) {
	case decimal.Decimal:
		if money {
			return f.Money(val)
		}
		return f.Number(val)
	case int64:
		return f.Integer(val)
	case int:
		return f.Integer(int64(val))
	default:
		return core.FormatCell(v)
	}
}
