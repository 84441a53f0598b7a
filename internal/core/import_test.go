package core

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestMapHeader(t *testing.T) {
	def := expenseDef()

	positions, err := mapHeader(def, []string{"\ufeffTitle", "AMOUNT", "Spent On", "Total", "Comment", "secret_hash"})
	if err != nil {
		t.Fatalf("mapHeader: %v", err)
	}
	want := map[string]int{"title": 0, "amount": 1, "spent_on": 2}
	if len(positions) != len(want) {
		t.Fatalf("positions = %v, want %v", positions, want)
	}
	for name, pos := range want {
		if positions[name] != pos {
			t.Errorf("%s at %d, want %d", name, positions[name], pos)
		}
	}
}

func TestMapHeader_Labels(t *testing.T) {
	def := ResourceDefinition{
		Info: ResourceInfo{Key: "supply_products"},
		FieldSpecs: []FieldSpec{
			{Name: "product_code", Label: "Product Code", Type: FieldText, Required: true},
			{Name: "supplier_name", Label: "Supplier", Type: FieldText, Required: true},
			{Name: "lead_time_days", Label: "Lead Time (days)", Type: FieldInteger},
		},
	}
	positions, err := mapHeader(def, []string{"Supplier", "product code", "Lead Time (Days)"})
	if err != nil {
		t.Fatalf("mapHeader: %v", err)
	}
	if positions["supplier_name"] != 0 || positions["product_code"] != 1 || positions["lead_time_days"] != 2 {
		t.Errorf("positions = %v", positions)
	}
}

func TestMapHeader_MissingRequired(t *testing.T) {
	_, err := mapHeader(expenseDef(), []string{"title", "amount"})
	if err == nil || !strings.Contains(err.Error(), "missing required columns: spent_on") {
		t.Errorf("err = %v", err)
	}
	if msg := MapError(err); msg.Code != "VAL004" {
		t.Errorf("code = %s, want VAL004", msg.Code)
	}
}

func TestIsEmptyRow(t *testing.T) {
	tests := []struct {
		row  []string
		want bool
	}{
		{nil, true},
		{[]string{"", "  ", "\t"}, true},
		{[]string{"", "x"}, false},
	}
	for _, tt := range tests {
		if got := isEmptyRow(tt.row); got != tt.want {
			t.Errorf("isEmptyRow(%q) = %v, want %v", tt.row, got, tt.want)
		}
	}
}

func TestFailedFrom(t *testing.T) {
	ve := ValidationErrors{{Field: "amount", Message: "invalid number format"}}
	fr := failedFrom(ve)
	if fr.Reason != "validation failed" || len(fr.Fields) != 1 {
		t.Errorf("validation row = %+v", fr)
	}

	fr = failedFrom(fmt.Errorf("%w: expenses_pkey", ErrConflict))
	if fr.Reason == "" || len(fr.Fields) != 0 {
		t.Errorf("conflict row = %+v", fr)
	}

	fr = failedFrom(errors.New("boom"))
	if fr.Reason != "boom" {
		t.Errorf("plain error row = %+v", fr)
	}
}
