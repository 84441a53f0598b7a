package core

// convert.go turns loosely typed input into the canonical Go values a Record holds.
//
// Input arrives either as decoded JSON (string, json.Number, float64, bool, nil)
// or as CSV cells. Both paths accept the same forgiving formats:
//   - Multiple date formats (ISO, US, EU, "Jan 2, 2006")
//   - Currency symbols and thousand separators in numbers
//   - Various boolean representations (yes/no, true/false, 1/0)
//   - Excel formula prefixes (="value")

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical wire format for date fields.
const DateLayout = "2006-01-02"

// numericRegex validates that a string is a valid numeric format after cleanup.
var numericRegex = regexp.MustCompile(`^[+-]?(\d+(\.\d*)?|\.\d+)([eE][+-]?\d+)?$`)

// TwoDigitYearPivot defines how 2-digit years are interpreted.
var TwoDigitYearPivot = 20

var (
	twoDigitYearLayouts = []string{
		"1/2/06", "01/02/06", "1-2-06", "1.2.06", "01.02.06",
	}
	fourDigitYearLayouts = []string{
		DateLayout, time.RFC3339, "2006-01-02T15:04:05", "2006/01/02", "2006.01.02",
		"1/2/2006", "01/02/2006", "1-2-2006", "01-02-2006", "1.2.2006", "01.02.2006",
		"Jan 2, 2006", "2 Jan 2006",
		"20060102",
	}
)

// ParseDate parses a date in any supported layout, truncated to midnight UTC.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	for _, layout := range fourDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return truncateDate(t), true
		}
	}

	pivotYear := time.Now().Year() + TwoDigitYearPivot
	for _, layout := range twoDigitYearLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			if t.Year() > pivotYear {
				t = t.AddDate(-100, 0, 0)
			}
			return truncateDate(t), true
		}
	}

	return time.Time{}, false
}

// DateOf returns the calendar day of t as a UTC midnight, the canonical
// form of date fields.
func DateOf(t time.Time) time.Time {
	return truncateDate(t)
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDecimal parses a number, tolerating currency symbols, thousands
// separators and accounting negatives "(123.45)".
func ParseDecimal(s string) (decimal.Decimal, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, false
	}

	isNegative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		isNegative = true
		s = strings.TrimSpace(s[1 : len(s)-1])
	}

	for _, sym := range []string{"LKR", "Rs.", "Rs", "$", "€", "£", ","} {
		s = strings.ReplaceAll(s, sym, "")
	}
	s = strings.TrimSpace(s)

	if isNegative {
		s = "-" + s
	}

	if !numericRegex.MatchString(s) {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseBool accepts true/false, yes/no, t/f, y/n, 1/0.
func ParseBool(s string) (value bool, ok bool) {
	switch strings.TrimSpace(strings.ToLower(s)) {
	case "true", "t", "yes", "y", "1":
		return true, true
	case "false", "f", "no", "n", "0":
		return false, true
	default:
		return false, false
	}
}

// ParseInteger parses a whole number. "12.0" is accepted, "12.5" is not.
func ParseInteger(s string) (int64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}
	d, ok := ParseDecimal(s)
	if !ok || !d.Equal(d.Truncate(0)) {
		return 0, false
	}
	return d.IntPart(), true
}

// inputString flattens a decoded JSON value to its string form.
// The second result is false for nil and blank strings.
func inputString(raw any) (string, bool) {
	switch v := raw.(type) {
	case nil:
		return "", false
	case string:
		v = strings.TrimSpace(v)
		return v, v != ""
	case json.Number:
		return v.String(), true
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), true
	case int:
		return strconv.Itoa(v), true
	case int32:
		return strconv.FormatInt(int64(v), 10), true
	case int64:
		return strconv.FormatInt(v, 10), true
	case bool:
		return strconv.FormatBool(v), true
	case decimal.Decimal:
		return v.String(), true
	case time.Time:
		return v.Format(DateLayout), true
	default:
		return fmt.Sprint(v), true
	}
}

// Coerce converts raw input to the canonical value for spec.
// Empty input returns (nil, nil); callers decide whether that is allowed.
func Coerce(spec FieldSpec, raw any) (any, error) {
	if b, ok := raw.(bool); ok && spec.Type == FieldBool {
		return b, nil
	}

	s, present := inputString(raw)
	if !present {
		return nil, nil
	}

	switch spec.Type {
	case FieldNumeric:
		d, ok := ParseDecimal(s)
		if !ok {
			return nil, fmt.Errorf("invalid number format")
		}
		return d.Round(spec.NumericScale()), nil
	case FieldInteger:
		n, ok := ParseInteger(s)
		if !ok {
			return nil, fmt.Errorf("must be a whole number")
		}
		return n, nil
	case FieldDate:
		t, ok := ParseDate(s)
		if !ok {
			return nil, fmt.Errorf("invalid date format (use YYYY-MM-DD)")
		}
		return t, nil
	case FieldBool:
		b, ok := ParseBool(s)
		if !ok {
			return nil, fmt.Errorf("must be yes/no, true/false, or 1/0")
		}
		return b, nil
	case FieldEnum:
		for _, ev := range spec.EnumValues {
			if strings.EqualFold(ev, s) {
				return ev, nil
			}
		}
		return nil, fmt.Errorf("value must be one of: %s", strings.Join(spec.EnumValues, ", "))
	default:
		return s, nil
	}
}

// OutputValue renders a canonical value for JSON responses.
// Decimals become exact JSON numbers and dates use DateLayout.
func OutputValue(spec FieldSpec, v any) any {
	switch val := v.(type) {
	case nil:
		return nil
	case decimal.Decimal:
		return json.Number(val.String())
	case time.Time:
		if spec.Type == FieldDate {
			return val.Format(DateLayout)
		}
		return val.UTC().Format(time.RFC3339)
	default:
		return val
	}
}

// FormatCell renders a canonical value as text for CSV and reports.
func FormatCell(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case decimal.Decimal:
		return val.StringFixed(2)
	case time.Time:
		if val.Hour() == 0 && val.Minute() == 0 && val.Second() == 0 && val.Nanosecond() == 0 {
			return val.Format(DateLayout)
		}
		return val.UTC().Format("2006-01-02 15:04")
	case bool:
		if val {
			return "yes"
		}
		return "no"
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprint(val)
	}
}

// DecimalValue reads a decimal from a record field, treating NULL as zero.
func DecimalValue(rec Record, field string) decimal.Decimal {
	switch v := rec[field].(type) {
	case decimal.Decimal:
		return v
	case int64:
		return decimal.NewFromInt(v)
	case nil:
		return decimal.Zero
	default:
		d, _ := ParseDecimal(fmt.Sprint(v))
		return d
	}
}

// IntValue reads an integer from a record field, treating NULL as zero.
func IntValue(rec Record, field string) int64 {
	switch v := rec[field].(type) {
	case int64:
		return v
	case decimal.Decimal:
		return v.IntPart()
	default:
		return 0
	}
}

// StringValue reads a string from a record field.
func StringValue(rec Record, field string) string {
	if s, ok := rec[field].(string); ok {
		return s
	}
	return ""
}

// HeaderIndex maps lowercase CSV header names to column positions.
type HeaderIndex map[string]int

// MakeHeaderIndex creates a HeaderIndex from a CSV header row.
// Keys are lowercased and spaces become underscores so "Item Code" matches item_code.
func MakeHeaderIndex(header []string) HeaderIndex {
	idx := make(HeaderIndex, len(header))
	for i, h := range header {
		key := toDBColumnName(CleanCell(strings.TrimPrefix(h, "\ufeff")))
		idx[key] = i
	}
	return idx
}

// CleanCell removes common CSV artifacts from a cell value:
// - Trims whitespace
// - Removes Excel formula prefix (="...")
// - Removes surrounding quotes
func CleanCell(s string) string {
	s = strings.TrimSpace(s)

	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") {
		s = s[2 : len(s)-1]
	} else if strings.HasPrefix(s, "=") {
		s = s[1:]
	}

	return strings.Trim(s, `"'`)
}
