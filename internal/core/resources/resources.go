// Package resources registers every ERP resource with the core registry.
// Import it for side effects:
//
//	import _ "github.com/JonMunkholm/solarerp/internal/core/resources"
//
// Each file registers one group of resources from init().
package resources

import (
	"strings"

	"github.com/JonMunkholm/solarerp/internal/core"
)

// bound returns a pointer for FieldSpec.Min and FieldSpec.Max.
func bound(v float64) *float64 { return &v }

var (
	nonNegative = bound(0)
	positive    = bound(0.01)
)

// requireMonth checks that rec[field] is a YYYY-MM month and stores the
// normalized form.
func requireMonth(rec core.Record, field string, errs *core.ValidationErrors) {
	raw := core.StringValue(rec, field)
	if raw == "" {
		return
	}
	month, ok := NormalizeMonth(raw)
	if !ok {
		errs.Add(field, "must be a month in YYYY-MM format")
		return
	}
	rec[field] = month
}

// lower trims and lower-cases a text field in place.
func lower(rec core.Record, field string) {
	if s, ok := rec[field].(string); ok {
		rec[field] = strings.ToLower(strings.TrimSpace(s))
	}
}

// upper trims and upper-cases a text field in place.
func upper(rec core.Record, field string) {
	if s, ok := rec[field].(string); ok {
		rec[field] = strings.ToUpper(strings.TrimSpace(s))
	}
}

// checkEmail rejects a malformed address in rec[field]. Empty is allowed.
func checkEmail(rec core.Record, field string) error {
	if email := core.StringValue(rec, field); email != "" && !ValidEmail(email) {
		var errs core.ValidationErrors
		errs.Add(field, "invalid email address")
		return errs.Err()
	}
	return nil
}
