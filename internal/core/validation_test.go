package core

import (
	"testing"
	"time"
)

func minOf(v float64) *float64 { return &v }

// expenseDef mirrors the shape of a registered finance resource.
func expenseDef() ResourceDefinition {
	return ResourceDefinition{
		Info: ResourceInfo{Key: "expenses", Group: "Finance", DateField: "spent_on"},
		FieldSpecs: []FieldSpec{
			{Name: "title", Label: "Title", Type: FieldText, Required: true, Searchable: true},
			{Name: "category", Label: "Category", Type: FieldEnum, EnumValues: []string{"rent", "utilities", "other"}, Default: "other"},
			{Name: "amount", Label: "Amount", Type: FieldNumeric, Required: true, Min: minOf(0.01)},
			{Name: "units", Label: "Units", Type: FieldInteger, Min: minOf(0), Max: minOf(100)},
			{Name: "spent_on", Label: "Spent On", Type: FieldDate, Required: true},
			{Name: "reimbursed", Label: "Reimbursed", Type: FieldBool},
			{Name: "total", Label: "Total", Type: FieldNumeric, ReadOnly: true},
			{Name: "secret", Type: FieldText, WriteOnly: true},
			{Name: "secret_hash", Type: FieldText, Hidden: true},
		},
	}
}

func TestValidateInput_Create(t *testing.T) {
	rec, err := ValidateInput(expenseDef(), map[string]any{
		"Title":      "  Office rent ",
		"amount":     "Rs. 45,000.00",
		"spent_on":   "03/01/2025",
		"reimbursed": "yes",
		"total":      "999",
		"unknown":    "ignored",
	}, true)
	if err != nil {
		t.Fatalf("ValidateInput: %v", err)
	}

	if rec["title"] != "Office rent" {
		t.Errorf("title = %q", rec["title"])
	}
	if rec["category"] != "other" {
		t.Errorf("category default = %v", rec["category"])
	}
	if !DecimalValue(rec, "amount").Equal(d("45000")) {
		t.Errorf("amount = %v", rec["amount"])
	}
	if rec["spent_on"] != time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC) {
		t.Errorf("spent_on = %v", rec["spent_on"])
	}
	if rec["reimbursed"] != true {
		t.Errorf("reimbursed = %v", rec["reimbursed"])
	}
	if _, ok := rec["total"]; ok {
		t.Error("read-only field accepted from input")
	}
	if _, ok := rec["secret"]; ok {
		t.Error("absent write-only field should be skipped")
	}
	if _, ok := rec["unknown"]; ok {
		t.Error("unknown key copied")
	}
}

func TestValidateInput_CollectsAllErrors(t *testing.T) {
	_, err := ValidateInput(expenseDef(), map[string]any{
		"category": "travel",
		"amount":   "0",
		"units":    "2.5",
		"spent_on": "someday",
	}, true)

	ve, ok := AsValidation(err)
	if !ok {
		t.Fatalf("err = %v, want ValidationErrors", err)
	}
	want := map[string]string{
		"amount":   "must be at least 0.01",
		"category": "value must be one of: rent, utilities, other",
		"spent_on": "invalid date format (use YYYY-MM-DD)",
		"title":    "required field is empty",
		"units":    "must be a whole number",
	}
	if len(ve) != len(want) {
		t.Fatalf("got %d errors: %v", len(ve), ve)
	}
	for _, fe := range ve {
		if want[fe.Field] != fe.Message {
			t.Errorf("%s: %q, want %q", fe.Field, fe.Message, want[fe.Field])
		}
	}
	if ve[0].Field != "amount" {
		t.Errorf("errors not sorted: %v", ve)
	}
}

func TestValidateInput_Update(t *testing.T) {
	rec, err := ValidateInput(expenseDef(), map[string]any{"amount": 120.5, "category": "RENT"}, false)
	if err != nil {
		t.Fatalf("ValidateInput: %v", err)
	}
	if len(rec) != 2 {
		t.Errorf("partial update touched %d fields: %v", len(rec), rec)
	}
	if rec["category"] != "rent" {
		t.Errorf("enum not canonicalized: %v", rec["category"])
	}

	_, err = ValidateInput(expenseDef(), map[string]any{"title": ""}, false)
	if ve, ok := AsValidation(err); !ok || ve[0].Field != "title" {
		t.Errorf("clearing a required field: err = %v", err)
	}

	rec, err = ValidateInput(expenseDef(), map[string]any{"units": nil}, false)
	if err != nil {
		t.Fatalf("clearing optional field: %v", err)
	}
	if v, ok := rec["units"]; !ok || v != nil {
		t.Errorf("units = %v, %v; want explicit nil", v, ok)
	}
}

func TestValidateInput_Bounds(t *testing.T) {
	_, err := ValidateInput(expenseDef(), map[string]any{
		"title": "x", "amount": "10", "spent_on": "2025-01-01", "units": 101,
	}, true)
	if ve, ok := AsValidation(err); !ok || ve[0].Message != "must be at most 100" {
		t.Errorf("err = %v", err)
	}
}

func TestValidateHeaders(t *testing.T) {
	specs := expenseDef().FieldSpecs

	idx, err := ValidateHeaders([]string{"Title", "Amount", "Spent On", "Notes"}, specs)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx["spent_on"] != 2 {
		t.Errorf("spent_on index = %d", idx["spent_on"])
	}

	_, err = ValidateHeaders([]string{"title"}, specs)
	ve, ok := AsValidation(err)
	if !ok || len(ve) != 1 || ve[0].Message != "missing required columns: amount, spent_on" {
		t.Errorf("err = %v, want a validation error on the file", err)
	}
}

func TestResolveFilters(t *testing.T) {
	def := expenseDef()

	got, err := ResolveFilters(def, FilterSet{Filters: []ColumnFilter{
		{Column: "Amount", Operator: OpGreaterEq, Value: "1,000"},
		{Column: "category", Operator: OpIn, Value: "RENT, utilities,"},
		{Column: "created_at", Operator: OpGreaterEq, Value: "01/15/2025"},
		{Column: "title", Operator: OpContains, Value: "rent"},
	}})
	if err != nil {
		t.Fatalf("ResolveFilters: %v", err)
	}
	want := []ColumnFilter{
		{Column: "amount", Operator: OpGreaterEq, Value: "1000", Type: FieldNumeric},
		{Column: "category", Operator: OpIn, Value: "rent,utilities", Type: FieldEnum},
		{Column: "created_at", Operator: OpGreaterEq, Value: "2025-01-15", Type: FieldDate},
		{Column: "title", Operator: OpContains, Value: "rent", Type: FieldText},
	}
	for i := range want {
		if got.Filters[i] != want[i] {
			t.Errorf("filter %d = %+v, want %+v", i, got.Filters[i], want[i])
		}
	}

	_, err = ResolveFilters(def, FilterSet{Filters: []ColumnFilter{
		{Column: "secret_hash", Operator: OpEquals, Value: "x"},
		{Column: "amount", Operator: OpEquals, Value: "lots"},
	}})
	ve, ok := AsValidation(err)
	if !ok || len(ve) != 2 {
		t.Fatalf("err = %v, want 2 validation errors", err)
	}
}

func TestValidateDateRange(t *testing.T) {
	from, to, err := ValidateDateRange("2025/01/01", "")
	if err != nil || from != "2025-01-01" || to != "" {
		t.Errorf("got %q %q %v", from, to, err)
	}
	if _, _, err := ValidateDateRange("2025-02-01", "2025-01-01"); err == nil {
		t.Error("from after to should fail")
	}
	if _, _, err := ValidateDateRange("x", "y"); err == nil {
		t.Error("invalid dates should fail")
	}
}
