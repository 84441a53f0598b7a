package cli

import (
	"bytes"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/solarerp/internal/core"
	"github.com/JonMunkholm/solarerp/internal/report"
)

var ansi = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func plain(s string) string {
	return ansi.ReplaceAllString(s, "")
}

// run executes erpctl with args and returns stdout and the error.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("DATABASE_URL", "")

	var out, errOut bytes.Buffer
	root := NewRootCmd(&out, &errOut)
	root.SetArgs(append([]string{"--env-file", "testdata-missing.env", "-q"}, args...))
	err := root.Execute()
	return plain(out.String()), err
}

func TestParseSeed_Default(t *testing.T) {
	seed, err := ParseSeed(defaultSeed)
	if err != nil {
		t.Fatalf("ParseSeed: %v", err)
	}
	if len(seed) != len(seedOrder) {
		t.Errorf("seed has %d resources, want %d", len(seed), len(seedOrder))
	}

	for name, rows := range seed {
		def, err := core.Resolve(name)
		if err != nil {
			t.Fatalf("resolve %s: %v", name, err)
		}
		fields := make(map[string]bool, len(def.FieldSpecs))
		for _, spec := range def.FieldSpecs {
			fields[spec.Name] = true
		}
		for i, row := range rows {
			for key := range row {
				if !fields[key] {
					t.Errorf("%s row %d: unknown field %q", name, i+1, key)
				}
			}
			if _, err := core.ValidateInput(def, row, true); err != nil {
				t.Errorf("%s row %d: %v", name, i+1, err)
			}
		}
	}
}

func TestParseSeed_UnknownResource(t *testing.T) {
	_, err := ParseSeed([]byte("[[widgets]]\nname = \"sprocket\"\n"))
	if !errors.Is(err, core.ErrUnknownResource) {
		t.Fatalf("err = %v, want ErrUnknownResource", err)
	}
}

func TestParseSeed_InvalidTOML(t *testing.T) {
	if _, err := ParseSeed([]byte("[[inventory]\n")); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestOrderedResources(t *testing.T) {
	seed := SeedData{
		"feedback":  {{}},
		"payments":  {{}},
		"inventory": {{}},
	}
	got := seed.orderedResources()
	want := []string{"inventory", "payments", "feedback"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("orderedResources() = %v, want %v", got, want)
	}
}

func TestRenderTable(t *testing.T) {
	out := plain(RenderTable(Table{
		Title:   "Stock",
		Headers: []string{"Item", "Qty"},
		Rows: [][]string{
			{"panel", "1"},
			Separator,
			{"battery", "22"},
		},
	}))

	for _, want := range []string{"Stock", "Item", "Qty", "battery", "├"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	// Second column is right-aligned by default.
	if !strings.Contains(out, "│   1 │") {
		t.Errorf("quantity not right-aligned:\n%s", out)
	}
	if !strings.Contains(out, "│ panel   │") {
		t.Errorf("item not left-aligned:\n%s", out)
	}
}

func TestRenderTable_Empty(t *testing.T) {
	if got := RenderTable(Table{}); got != "" {
		t.Errorf("RenderTable(empty) = %q, want empty", got)
	}
}

func TestRenderOverview(t *testing.T) {
	f, err := report.NewFormatter("en", "LKR")
	if err != nil {
		t.Fatalf("NewFormatter: %v", err)
	}
	ov := &core.Overview{
		Period:      core.PeriodRange{From: "2025-01-01", To: "2025-12-31"},
		TaxRate:     decimal.RequireFromString("0.15"),
		Revenue:     decimal.NewFromInt(1000),
		NetIncome:   decimal.NewFromInt(-250),
		GrossProfit: decimal.NewFromInt(-250),
		PaymentsByStatus: []core.Breakdown{
			{Key: "completed", Count: 2, Amount: decimal.NewFromInt(1000)},
		},
		Monthly: []core.MonthlyPoint{
			{Month: "2025-01", Revenue: decimal.NewFromInt(1000), Costs: decimal.NewFromInt(1250), Net: decimal.NewFromInt(-250)},
		},
	}

	out := plain(RenderOverview(ov, f))
	for _, want := range []string{"2025-01-01 to 2025-12-31", "Net income", "Estimated tax (15%)", "Payments by status", "TOTAL", "Monthly", "2025-01", "LKR"} {
		if !strings.Contains(out, want) {
			t.Errorf("overview missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "Expenses by category") {
		t.Error("empty breakdown should be omitted")
	}
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		name, path string
		want       report.Format
		wantErr    bool
	}{
		{"", "out.pdf", report.FormatPDF, false},
		{"", "REPORT.XLSX", report.FormatXLSX, false},
		{"csv", "out.pdf", report.FormatCSV, false},
		{"html", "-", report.FormatHTML, false},
		{"", "out.txt", "", true},
	}
	for _, tt := range tests {
		got, err := formatFor(tt.name, tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("formatFor(%q, %q) err = %v, wantErr %v", tt.name, tt.path, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got != tt.want {
			t.Errorf("formatFor(%q, %q) = %q, want %q", tt.name, tt.path, got, tt.want)
		}
	}
}

func TestPlural(t *testing.T) {
	if got := plural(1, "row"); got != "1 row" {
		t.Errorf("plural(1) = %q", got)
	}
	if got := plural(3, "row"); got != "3 rows" {
		t.Errorf("plural(3) = %q", got)
	}
}

func TestRootCommands(t *testing.T) {
	root := NewRootCmd(&bytes.Buffer{}, &bytes.Buffer{})
	have := make(map[string]bool)
	for _, c := range root.Commands() {
		have[c.Name()] = true
	}
	for _, name := range []string{"migrate", "seed", "finance", "export", "import", "resources", "reset", "audit"} {
		if !have[name] {
			t.Errorf("missing command %q", name)
		}
	}
}

func TestResourcesCommand(t *testing.T) {
	out, err := run(t, "resources")
	if err != nil {
		t.Fatalf("resources: %v", err)
	}
	for _, want := range []string{"supply-products", "inventory", "payments", "employees"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if strings.Contains(out, "password_hash") {
		t.Error("hidden field listed")
	}
}

// Each of these fails on argument checks before a database is needed.
func TestCommandsRejectBadInput(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		wantErr string
	}{
		{"reset without target", []string{"reset"}, "at least one resource"},
		{"reset all with names", []string{"reset", "--all", "payments"}, "cannot be combined"},
		{"reset unknown", []string{"reset", "widgets", "--yes"}, "unknown resource"},
		{"reset unconfirmed", []string{"reset", "payments"}, "--yes"},
		{"export unknown", []string{"export", "widgets"}, "unknown resource"},
		{"export binary to stdout", []string{"export", "payments", "--format", "pdf"}, "binary"},
		{"export bad format", []string{"export", "payments", "--format", "doc"}, "format"},
		{"import unknown", []string{"import", "widgets", "rows.csv"}, "unknown resource"},
		{"finance reversed", []string{"finance", "--from", "2025-06-01", "--to", "2025-01-01"}, "must not be after"},
		{"audit list unknown resource", []string{"audit", "list", "--resource", "widgets"}, "unknown resource"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}
