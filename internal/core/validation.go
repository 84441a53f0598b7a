package core

// validation.go checks client input against a resource's field specifications.
//
// Validation collects every problem in one pass so the caller can report
// them together. Create and update differ only in how absent fields are
// treated: a create fills defaults and enforces Required, an update leaves
// absent fields untouched.

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidateInput coerces input into a Record of writable fields.
// Unknown keys and read-only fields are ignored.
func ValidateInput(def ResourceDefinition, input map[string]any, create bool) (Record, error) {
	rec := make(Record)
	var errs ValidationErrors

	lookup := make(map[string]any, len(input))
	for k, v := range input {
		lookup[toDBColumnName(k)] = v
	}

	for _, spec := range def.FieldSpecs {
		if !spec.Writable() {
			continue
		}

		raw, present := lookup[spec.Name]
		if !present && !create {
			continue
		}

		value, err := Coerce(spec, raw)
		if err != nil {
			errs.Add(spec.Name, "%s", err.Error())
			continue
		}

		if value == nil && create && spec.Default != nil {
			value = spec.Default
		}

		if value == nil {
			if spec.Required {
				errs.Add(spec.Name, "required field is empty")
				continue
			}
			if spec.WriteOnly {
				continue
			}
			rec[spec.Name] = nil
			continue
		}

		if err := checkBounds(spec, value); err != nil {
			errs.Add(spec.Name, "%s", err.Error())
			continue
		}

		rec[spec.Name] = value
	}

	if err := errs.Err(); err != nil {
		return nil, err
	}
	return rec, nil
}

// ValidateCell validates a single CSV cell against a field specification.
func ValidateCell(value string, spec FieldSpec) error {
	v, err := Coerce(spec, value)
	if err != nil || v == nil {
		return err
	}
	return checkBounds(spec, v)
}

// checkBounds enforces Min and Max for numeric and integer fields.
func checkBounds(spec FieldSpec, value any) error {
	var d decimal.Decimal
	switch v := value.(type) {
	case decimal.Decimal:
		d = v
	case int64:
		d = decimal.NewFromInt(v)
	default:
		return nil
	}

	if spec.Min != nil && d.LessThan(decimal.NewFromFloat(*spec.Min)) {
		return fmt.Errorf("must be at least %s", trimFloat(*spec.Min))
	}
	if spec.Max != nil && d.GreaterThan(decimal.NewFromFloat(*spec.Max)) {
		return fmt.Errorf("must be at most %s", trimFloat(*spec.Max))
	}
	return nil
}

func trimFloat(f float64) string {
	return decimal.NewFromFloat(f).String()
}

// ValidateHeaders checks that every required writable column exists in a CSV header.
func ValidateHeaders(headers []string, specs []FieldSpec) (HeaderIndex, error) {
	idx := MakeHeaderIndex(headers)
	var missing []string

	for _, spec := range specs {
		if spec.Required && spec.Writable() && spec.Default == nil {
			if _, ok := idx[spec.Name]; !ok {
				missing = append(missing, spec.Name)
			}
		}
	}

	if len(missing) > 0 {
		return nil, invalid("file", "missing required columns: %s", strings.Join(missing, ", "))
	}

	return idx, nil
}

// ResolveFilters checks each filter against the definition, fills in the
// column type and normalizes the value so the database receives a valid literal.
func ResolveFilters(def ResourceDefinition, filters FilterSet) (FilterSet, error) {
	var errs ValidationErrors
	out := FilterSet{Filters: make([]ColumnFilter, 0, len(filters.Filters))}

	for _, f := range filters.Filters {
		spec, ok := def.Field(f.Column)
		if !ok || !spec.Visible() {
			if sys, isSys := systemField(f.Column); isSys {
				spec = sys
			} else {
				errs.Add(f.Column, "unknown filter column")
				continue
			}
		}
		f.Column = spec.Name
		f.Type = spec.Type

		switch f.Operator {
		case OpContains, OpStartsWith, OpEndsWith:
			// pattern match on the text form, any value is fine
		case OpIn:
			var parts []string
			for _, v := range strings.Split(f.Value, ",") {
				norm, err := normalizeFilterValue(spec, v)
				if err != nil {
					errs.Add(spec.Name, "%s", err.Error())
					break
				}
				if norm != "" {
					parts = append(parts, norm)
				}
			}
			f.Value = strings.Join(parts, ",")
		default:
			norm, err := normalizeFilterValue(spec, f.Value)
			if err != nil {
				errs.Add(spec.Name, "%s", err.Error())
				continue
			}
			f.Value = norm
		}
		out.Filters = append(out.Filters, f)
	}

	if err := errs.Err(); err != nil {
		return FilterSet{}, err
	}
	return out, nil
}

// normalizeFilterValue returns the literal text Postgres parses for spec's type.
func normalizeFilterValue(spec FieldSpec, raw string) (string, error) {
	if spec.Type == FieldText {
		return strings.TrimSpace(raw), nil
	}
	v, err := Coerce(spec, raw)
	if err != nil {
		return "", err
	}
	if v == nil {
		return "", nil
	}
	return FormatFilterLiteral(v), nil
}

// FormatFilterLiteral renders a canonical value without display rounding.
func FormatFilterLiteral(v any) string {
	if d, ok := v.(decimal.Decimal); ok {
		return d.String()
	}
	return FormatCell(v)
}

// systemField describes the columns every table carries.
func systemField(name string) (FieldSpec, bool) {
	switch toDBColumnName(name) {
	case ColID:
		return FieldSpec{Name: ColID, Label: "ID", Type: FieldText}, true
	case ColCreatedAt:
		return FieldSpec{Name: ColCreatedAt, Label: "Created", Type: FieldDate}, true
	case ColUpdatedAt:
		return FieldSpec{Name: ColUpdatedAt, Label: "Updated", Type: FieldDate}, true
	}
	return FieldSpec{}, false
}

// ValidateDateRange parses optional from/to bounds and rejects from > to.
func ValidateDateRange(from, to string) (string, string, error) {
	var errs ValidationErrors
	var f, t string

	if from != "" {
		d, ok := ParseDate(from)
		if !ok {
			errs.Add("from", "invalid date format (use YYYY-MM-DD)")
		} else {
			f = d.Format(DateLayout)
		}
	}
	if to != "" {
		d, ok := ParseDate(to)
		if !ok {
			errs.Add("to", "invalid date format (use YYYY-MM-DD)")
		} else {
			t = d.Format(DateLayout)
		}
	}
	if f != "" && t != "" && f > t {
		errs.Add("from", "must not be after to")
	}

	if err := errs.Err(); err != nil {
		return "", "", err
	}
	return f, t, nil
}
