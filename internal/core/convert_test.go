package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"2024-03-15", "2024-03-15", true},
		{"2024/03/15", "2024-03-15", true},
		{"3/15/2024", "2024-03-15", true},
		{"03/15/2024", "2024-03-15", true},
		{"Mar 15, 2024", "2024-03-15", true},
		{"15 Mar 2024", "2024-03-15", true},
		{"20240315", "2024-03-15", true},
		{"2024-03-15T10:30:00Z", "2024-03-15", true},
		{"3/15/24", "2024-03-15", true},
		{"", "", false},
		{"not a date", "", false},
		{"2024-13-45", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDate(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseDate(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && got.Format(DateLayout) != tt.want {
				t.Errorf("ParseDate(%q) = %s, want %s", tt.in, got.Format(DateLayout), tt.want)
			}
		})
	}
}

func TestParseDate_TwoDigitYearPivot(t *testing.T) {
	farFuture := (time.Now().Year() + TwoDigitYearPivot + 5) % 100
	in := "1/1/" + pad2(farFuture)
	got, ok := ParseDate(in)
	if !ok {
		t.Fatalf("ParseDate(%q) failed", in)
	}
	if got.Year() > time.Now().Year()+TwoDigitYearPivot {
		t.Errorf("year %d should have been pushed back a century", got.Year())
	}
}

func pad2(n int) string {
	if n < 10 {
		return "0" + string(rune('0'+n))
	}
	return string(rune('0'+n/10)) + string(rune('0'+n%10))
}

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"1250.50", "1250.5", true},
		{"1,250.50", "1250.5", true},
		{"$1,250.50", "1250.5", true},
		{"LKR 45,000", "45000", true},
		{"Rs. 99.99", "99.99", true},
		{"(300.25)", "-300.25", true},
		{"-12", "-12", true},
		{"1e3", "1000", true},
		{".5", "0.5", true},
		{"", "", false},
		{"abc", "", false},
		{"12.3.4", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := ParseDecimal(tt.in)
			if ok != tt.wantOK {
				t.Fatalf("ParseDecimal(%q) ok = %v, want %v", tt.in, ok, tt.wantOK)
			}
			if ok && !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParseDecimal(%q) = %s, want %s", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseBool(t *testing.T) {
	for _, s := range []string{"true", "T", "yes", "Y", "1"} {
		if v, ok := ParseBool(s); !ok || !v {
			t.Errorf("ParseBool(%q) = %v, %v; want true", s, v, ok)
		}
	}
	for _, s := range []string{"false", "f", "NO", "n", "0"} {
		if v, ok := ParseBool(s); !ok || v {
			t.Errorf("ParseBool(%q) = %v, %v; want false", s, v, ok)
		}
	}
	if _, ok := ParseBool("maybe"); ok {
		t.Error("ParseBool(maybe) should fail")
	}
}

func TestParseInteger(t *testing.T) {
	tests := []struct {
		in     string
		want   int64
		wantOK bool
	}{
		{"42", 42, true},
		{"1,200", 1200, true},
		{"12.0", 12, true},
		{"12.5", 0, false},
		{"", 0, false},
		{"x", 0, false},
	}

	for _, tt := range tests {
		got, ok := ParseInteger(tt.in)
		if ok != tt.wantOK || got != tt.want {
			t.Errorf("ParseInteger(%q) = %d, %v; want %d, %v", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestCoerce(t *testing.T) {
	status := FieldSpec{Name: "status", Type: FieldEnum, EnumValues: []string{"pending", "completed"}}

	tests := []struct {
		name    string
		spec    FieldSpec
		raw     any
		want    any
		wantErr bool
	}{
		{"nil is empty", FieldSpec{Type: FieldText}, nil, nil, false},
		{"blank is empty", FieldSpec{Type: FieldText}, "   ", nil, false},
		{"text trimmed", FieldSpec{Type: FieldText}, "  Solar Panel ", "Solar Panel", false},
		{"json number", FieldSpec{Type: FieldNumeric}, json.Number("12.50"), decimal.RequireFromString("12.5"), false},
		{"float", FieldSpec{Type: FieldNumeric}, 3.25, decimal.RequireFromString("3.25"), false},
		{"numeric string", FieldSpec{Type: FieldNumeric}, "1,000", decimal.NewFromInt(1000), false},
		{"numeric rounded to cents", FieldSpec{Type: FieldNumeric}, "1.005", decimal.RequireFromString("1.01"), false},
		{"numeric keeps its scale", FieldSpec{Type: FieldNumeric, Scale: 4}, "0.08555", decimal.RequireFromString("0.0856"), false},
		{"bad numeric", FieldSpec{Type: FieldNumeric}, "ten", nil, true},
		{"integer", FieldSpec{Type: FieldInteger}, json.Number("7"), int64(7), false},
		{"fractional integer", FieldSpec{Type: FieldInteger}, 7.5, nil, true},
		{"bool native", FieldSpec{Type: FieldBool}, true, true, false},
		{"bool string", FieldSpec{Type: FieldBool}, "no", false, false},
		{"enum canonical case", status, "COMPLETED", "completed", false},
		{"enum rejected", status, "shipped", nil, true},
		{"date", FieldSpec{Type: FieldDate}, "2024-02-29", time.Date(2024, 2, 29, 0, 0, 0, 0, time.UTC), false},
		{"bad date", FieldSpec{Type: FieldDate}, "2024-02-30", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.spec, tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Coerce() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			switch want := tt.want.(type) {
			case decimal.Decimal:
				if d, ok := got.(decimal.Decimal); !ok || !d.Equal(want) {
					t.Errorf("Coerce() = %v, want %v", got, want)
				}
			case time.Time:
				if d, ok := got.(time.Time); !ok || !d.Equal(want) {
					t.Errorf("Coerce() = %v, want %v", got, want)
				}
			default:
				if got != tt.want {
					t.Errorf("Coerce() = %#v, want %#v", got, tt.want)
				}
			}
		})
	}
}

func TestOutputValue(t *testing.T) {
	d := OutputValue(FieldSpec{Type: FieldNumeric}, decimal.RequireFromString("1250.50"))
	if n, ok := d.(json.Number); !ok || n.String() != "1250.5" {
		t.Errorf("decimal output = %#v", d)
	}

	day := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if got := OutputValue(FieldSpec{Type: FieldDate}, day); got != "2024-05-01" {
		t.Errorf("date output = %v", got)
	}

	ts := time.Date(2024, 5, 1, 8, 30, 0, 0, time.UTC)
	if got := OutputValue(FieldSpec{Name: ColCreatedAt}, ts); got != "2024-05-01T08:30:00Z" {
		t.Errorf("timestamp output = %v", got)
	}

	if got := OutputValue(FieldSpec{}, nil); got != nil {
		t.Errorf("nil output = %v", got)
	}
}

func TestFormatCell(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"abc", "abc"},
		{decimal.RequireFromString("12.5"), "12.50"},
		{int64(3), "3"},
		{true, "yes"},
		{false, "no"},
		{time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), "2024-01-02"},
		{time.Date(2024, 1, 2, 9, 5, 0, 0, time.UTC), "2024-01-02 09:05"},
	}

	for _, tt := range tests {
		if got := FormatCell(tt.in); got != tt.want {
			t.Errorf("FormatCell(%#v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRecordAccessors(t *testing.T) {
	rec := Record{
		"amount":   decimal.RequireFromString("10.25"),
		"quantity": int64(4),
		"name":     "Inverter",
		"empty":    nil,
	}

	if got := DecimalValue(rec, "amount"); !got.Equal(decimal.RequireFromString("10.25")) {
		t.Errorf("DecimalValue(amount) = %s", got)
	}
	if got := DecimalValue(rec, "quantity"); !got.Equal(decimal.NewFromInt(4)) {
		t.Errorf("DecimalValue(quantity) = %s", got)
	}
	if got := DecimalValue(rec, "empty"); !got.IsZero() {
		t.Errorf("DecimalValue(empty) = %s", got)
	}
	if got := IntValue(rec, "quantity"); got != 4 {
		t.Errorf("IntValue = %d", got)
	}
	if got := StringValue(rec, "name"); got != "Inverter" {
		t.Errorf("StringValue = %q", got)
	}
	if got := StringValue(rec, "quantity"); got != "" {
		t.Errorf("StringValue(non-string) = %q", got)
	}
}

func TestCleanCell(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  value  ", "value"},
		{`="00123"`, "00123"},
		{"=SUM", "SUM"},
		{`"quoted"`, "quoted"},
		{"'single'", "single"},
	}

	for _, tt := range tests {
		if got := CleanCell(tt.in); got != tt.want {
			t.Errorf("CleanCell(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMakeHeaderIndex(t *testing.T) {
	idx := MakeHeaderIndex([]string{"\ufeffItem Code", " Name ", "UNIT_PRICE"})

	for key, want := range map[string]int{"item_code": 0, "name": 1, "unit_price": 2} {
		if got, ok := idx[key]; !ok || got != want {
			t.Errorf("idx[%q] = %d, %v; want %d", key, got, ok, want)
		}
	}
}
