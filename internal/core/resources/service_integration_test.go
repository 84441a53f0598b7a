package resources_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/solarerp/internal/core"
	_ "github.com/JonMunkholm/solarerp/internal/core/resources"
	"github.com/JonMunkholm/solarerp/internal/schema"
)

// setupTestDB connects to TEST_DATABASE_URL, applies migrations and empties
// every table. Tests skip when the variable is unset.
func setupTestDB(t *testing.T) (*core.Service, *pgxpool.Pool, context.Context) {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(pool.Close)

	// Other packages may be migrating the same database.
	for attempt := 0; ; attempt++ {
		_, err = schema.Migrate(ctx, pool)
		if !errors.Is(err, schema.ErrLocked) || attempt == 40 {
			break
		}
		time.Sleep(250 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc := core.NewService(pool, core.Options{})
	if _, err := svc.Reset(ctx, nil); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := pool.Exec(ctx, `DELETE FROM audit_log; DELETE FROM audit_log_archive`); err != nil {
		t.Fatalf("clear audit log: %v", err)
	}
	return svc, pool, ctx
}

func mustCreate(t *testing.T, ctx context.Context, svc *core.Service, resource string, input map[string]any) core.Record {
	t.Helper()
	rec, err := svc.Create(ctx, resource, input)
	if err != nil {
		t.Fatalf("create %s: %v", resource, err)
	}
	return rec
}

func stockOf(t *testing.T, ctx context.Context, svc *core.Service, itemCode string) int64 {
	t.Helper()
	rec, err := svc.FindBy(ctx, "inventory", "item_code", itemCode)
	if err != nil {
		t.Fatalf("find %s: %v", itemCode, err)
	}
	return core.IntValue(rec, "quantity")
}

func seedItem(t *testing.T, ctx context.Context, svc *core.Service, code, price string, qty int) core.Record {
	t.Helper()
	return mustCreate(t, ctx, svc, "inventory", map[string]any{
		"item_code":  code,
		"name":       "Item " + code,
		"category":   "panel",
		"quantity":   qty,
		"unit_price": price,
	})
}

// ── Cart and checkout ─────────────────────────────────────────────────────────

func TestCheckout_DecrementsStockAndRecordsPayment(t *testing.T) {
	svc, _, ctx := setupTestDB(t)
	seedItem(t, ctx, svc, "PNL-1", "100.50", 10)
	seedItem(t, ctx, svc, "BAT-1", "2000", 5)

	if _, err := svc.AddToCart(ctx, "cust-1", "PNL-1", 3); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	if _, err := svc.AddToCart(ctx, "cust-1", "BAT-1", 1); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}

	order, err := svc.Checkout(ctx, "cust-1", core.CheckoutRequest{CustomerName: "Nimal Perera", Method: "card"})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if !order.Total.Equal(decimal.RequireFromString("2301.5")) {
		t.Errorf("Total = %s, want 2301.5", order.Total)
	}
	if order.Status != "completed" || order.ItemCount != 4 {
		t.Errorf("order = %+v", order)
	}

	if got := stockOf(t, ctx, svc, "PNL-1"); got != 7 {
		t.Errorf("PNL-1 stock = %d, want 7", got)
	}
	if got := stockOf(t, ctx, svc, "BAT-1"); got != 4 {
		t.Errorf("BAT-1 stock = %d, want 4", got)
	}

	payment, err := svc.FindBy(ctx, "payments", "order_ref", order.OrderRef)
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if got := core.DecimalValue(payment, "amount"); !got.Equal(order.Total) {
		t.Errorf("payment amount = %s, want %s", got, order.Total)
	}
	if got := core.StringValue(payment, "status"); got != "completed" {
		t.Errorf("payment status = %q, want completed", got)
	}

	cart, err := svc.GetCart(ctx, "cust-1")
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(cart.Lines) != 0 {
		t.Errorf("cart still has %d lines", len(cart.Lines))
	}
}

func TestCheckout_CashPaymentIsPending(t *testing.T) {
	svc, _, ctx := setupTestDB(t)
	seedItem(t, ctx, svc, "CBL-6", "350.25", 100)

	if _, err := svc.AddToCart(ctx, "cust-2", "CBL-6", 2); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	order, err := svc.Checkout(ctx, "cust-2", core.CheckoutRequest{CustomerName: "Kamal", Method: "cash"})
	if err != nil {
		t.Fatalf("Checkout: %v", err)
	}
	if order.Status != "pending" {
		t.Errorf("Status = %q, want pending", order.Status)
	}
}

func TestCheckout_InsufficientStockRollsBack(t *testing.T) {
	svc, _, ctx := setupTestDB(t)
	pnl := seedItem(t, ctx, svc, "PNL-2", "100", 10)
	seedItem(t, ctx, svc, "INV-2", "500", 10)

	for code, qty := range map[string]int64{"INV-2": 1, "PNL-2": 5} {
		if _, err := svc.AddToCart(ctx, "cust-3", code, qty); err != nil {
			t.Fatalf("AddToCart %s: %v", code, err)
		}
	}
	if _, err := svc.Update(ctx, "inventory", core.StringValue(pnl, core.ColID), map[string]any{"quantity": "2"}); err != nil {
		t.Fatalf("Update: %v", err)
	}

	_, err := svc.Checkout(ctx, "cust-3", core.CheckoutRequest{CustomerName: "Kamal", Method: "card"})
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}
	if got := stockOf(t, ctx, svc, "INV-2"); got != 10 {
		t.Errorf("INV-2 stock = %d, want 10 after rollback", got)
	}
	cart, err := svc.GetCart(ctx, "cust-3")
	if err != nil {
		t.Fatalf("GetCart: %v", err)
	}
	if len(cart.Lines) != 2 {
		t.Errorf("cart lines = %d, want 2", len(cart.Lines))
	}
}

func TestCheckout_EmptyCart(t *testing.T) {
	svc, _, ctx := setupTestDB(t)
	_, err := svc.Checkout(ctx, "nobody", core.CheckoutRequest{CustomerName: "Kamal", Method: "cash"})
	if !errors.Is(err, core.ErrEmptyCart) {
		t.Fatalf("err = %v, want ErrEmptyCart", err)
	}
}

func TestCheckout_ZeroTotalRejected(t *testing.T) {
	svc, _, ctx := setupTestDB(t)
	seedItem(t, ctx, svc, "ACC-0", "0", 5)

	if _, err := svc.AddToCart(ctx, "cust-4", "ACC-0", 1); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	_, err := svc.Checkout(ctx, "cust-4", core.CheckoutRequest{CustomerName: "Kamal", Method: "cash"})
	ve, ok := core.AsValidation(err)
	if !ok || ve[0].Field != "cart" {
		t.Fatalf("err = %v, want cart validation error", err)
	}
	if got := stockOf(t, ctx, svc, "ACC-0"); got != 5 {
		t.Errorf("stock = %d, want 5", got)
	}
}

// Carts holding the same items in opposite order must both check out.
func TestCheckout_ConcurrentOppositeOrder(t *testing.T) {
	svc, _, ctx := setupTestDB(t)
	seedItem(t, ctx, svc, "AAA-1", "10", 100)
	seedItem(t, ctx, svc, "ZZZ-1", "20", 100)

	carts := map[string][]string{
		"cust-a": {"AAA-1", "ZZZ-1"},
		"cust-z": {"ZZZ-1", "AAA-1"},
	}
	for customer, codes := range carts {
		for _, code := range codes {
			if _, err := svc.AddToCart(ctx, customer, code, 1); err != nil {
				t.Fatalf("AddToCart: %v", err)
			}
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	for customer := range carts {
		g.Go(func() error {
			_, err := svc.Checkout(gctx, customer, core.CheckoutRequest{CustomerName: customer, Method: "card"})
			return err
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatalf("Checkout: %v", err)
	}

	for _, code := range []string{"AAA-1", "ZZZ-1"} {
		if got := stockOf(t, ctx, svc, code); got != 98 {
			t.Errorf("%s stock = %d, want 98", code, got)
		}
	}
}

func TestAddToCart_KeepsPriceSnapshot(t *testing.T) {
	svc, _, ctx := setupTestDB(t)
	item := seedItem(t, ctx, svc, "PNL-3", "45000.50", 10)

	if _, err := svc.AddToCart(ctx, "cust-5", "PNL-3", 2); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}
	if _, err := svc.Update(ctx, "inventory", core.StringValue(item, core.ColID), map[string]any{"unit_price": "50000"}); err != nil {
		t.Fatalf("Update: %v", err)
	}
	cart, err := svc.AddToCart(ctx, "cust-5", "PNL-3", 1)
	if err != nil {
		t.Fatalf("AddToCart: %v", err)
	}

	if len(cart.Lines) != 1 {
		t.Fatalf("lines = %d, want 1", len(cart.Lines))
	}
	line := cart.Lines[0]
	if line.Quantity != 3 || !line.UnitPrice.Equal(decimal.RequireFromString("45000.5")) {
		t.Errorf("line = %+v, want 3 at 45000.50", line)
	}

	_, err = svc.AddToCart(ctx, "cust-5", "PNL-3", 8)
	if !errors.Is(err, core.ErrInsufficientStock) {
		t.Errorf("err = %v, want ErrInsufficientStock", err)
	}
}

// ── Records ───────────────────────────────────────────────────────────────────

func TestSupplyRequest_DeliveryAddsStockOnce(t *testing.T) {
	svc, _, ctx := setupTestDB(t)
	seedItem(t, ctx, svc, "BAT-9", "1000", 5)

	req := mustCreate(t, ctx, svc, "supply-requests", map[string]any{
		"request_no":    "SR-100",
		"product_code":  "bat-9",
		"supplier_name": "SunSource",
		"quantity":      "4",
		"unit_price":    "900",
	})
	id := core.StringValue(req, core.ColID)

	if got := stockOf(t, ctx, svc, "BAT-9"); got != 5 {
		t.Fatalf("stock = %d before delivery, want 5", got)
	}
	if _, err := svc.Update(ctx, "supply-requests", id, map[string]any{"status": "delivered"}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if got := stockOf(t, ctx, svc, "BAT-9"); got != 9 {
		t.Errorf("stock = %d after delivery, want 9", got)
	}
	if _, err := svc.Update(ctx, "supply-requests", id, map[string]any{"notes": "signed for"}); err != nil {
		t.Fatalf("update notes: %v", err)
	}
	if got := stockOf(t, ctx, svc, "BAT-9"); got != 9 {
		t.Errorf("stock = %d after second update, want 9", got)
	}
}

func TestUpdate_RecomputesDerivedFields(t *testing.T) {
	svc, _, ctx := setupTestDB(t)
	req := mustCreate(t, ctx, svc, "supply-requests", map[string]any{
		"request_no":    "SR-200",
		"product_code":  "PNL-1",
		"supplier_name": "SunSource",
		"quantity":      "3",
		"unit_price":    "1.005",
	})
	if got := core.DecimalValue(req, "total_cost"); !got.Equal(decimal.RequireFromString("3.03")) {
		t.Errorf("total_cost = %s, want 3.03", got)
	}

	updated, err := svc.Update(ctx, "supply-requests", core.StringValue(req, core.ColID), map[string]any{"quantity": "10"})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got := core.DecimalValue(updated, "total_cost"); !got.Equal(decimal.RequireFromString("10.1")) {
		t.Errorf("total_cost = %s, want 10.10", got)
	}
	if got := core.StringValue(updated, "supplier_name"); got != "SunSource" {
		t.Errorf("supplier_name = %q, untouched field changed", got)
	}
}

func TestTax_ZeroRateHonored(t *testing.T) {
	_, pool, ctx := setupTestDB(t)
	zero := decimal.Zero
	svc := core.NewService(pool, core.Options{TaxRate: &zero})

	rec := mustCreate(t, ctx, svc, "taxes", map[string]any{
		"tax_ref":        "VAT-0",
		"period":         "2025-01",
		"taxable_amount": "1000",
	})
	if got := core.DecimalValue(rec, "rate"); !got.IsZero() {
		t.Errorf("rate = %s, want 0", got)
	}
	if got := core.DecimalValue(rec, "tax_amount"); !got.IsZero() {
		t.Errorf("tax_amount = %s, want 0", got)
	}
}

func TestCreate_DuplicateKeyConflict(t *testing.T) {
	svc, _, ctx := setupTestDB(t)
	seedItem(t, ctx, svc, "DUP-1", "1", 1)

	_, err := svc.Create(ctx, "inventory", map[string]any{"item_code": "dup-1", "name": "Again"})
	if !errors.Is(err, core.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
}

// ── Import and listing ────────────────────────────────────────────────────────

func TestImport_KeepsGoodRows(t *testing.T) {
	svc, _, ctx := setupTestDB(t)

	csv := "Title,Amount,Spent On\n" +
		"Rent,1500,2025-01-05\n" +
		"Broken,abc,2025-01-06\n" +
		"\n" +
		"Power,250.75,01/07/2025\n"
	res, err := svc.Import(ctx, "expenses", strings.NewReader(csv))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.TotalRows != 3 || res.Inserted != 2 {
		t.Errorf("result = %d of %d inserted, want 2 of 3", res.Inserted, res.TotalRows)
	}
	if len(res.Failed) != 1 || res.Failed[0].Line != 3 {
		t.Fatalf("failed = %+v, want line 3", res.Failed)
	}

	list, err := svc.List(ctx, "expenses", core.ListQuery{})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list.TotalRows != 2 {
		t.Errorf("TotalRows = %d, want 2", list.TotalRows)
	}
	amount := list.Aggregations["amount"]
	if amount == nil {
		t.Fatal("no amount aggregation")
	}
	if !amount.Sum.Equal(decimal.RequireFromString("1750.75")) || amount.Count != 2 {
		t.Errorf("amount aggregation = %+v", amount)
	}
	if !amount.Max.Equal(decimal.NewFromInt(1500)) || !amount.Min.Equal(decimal.RequireFromString("250.75")) {
		t.Errorf("amount min/max = %s/%s", amount.Min, amount.Max)
	}

	page, err := svc.ListAudit(ctx, core.AuditFilter{Resource: "expenses", Action: core.ActionImport})
	if err != nil {
		t.Fatalf("ListAudit: %v", err)
	}
	if page.Total != 1 || page.Entries[0].RowsAffected != 2 {
		t.Errorf("import audit = %+v", page.Entries)
	}
}

func TestList_FiltersAndDateRange(t *testing.T) {
	svc, _, ctx := setupTestDB(t)
	for _, row := range []map[string]any{
		{"title": "Rent", "amount": "1500", "spent_on": "2025-01-05", "category": "rent"},
		{"title": "Fuel", "amount": "80", "spent_on": "2025-02-10", "category": "transport"},
		{"title": "Power", "amount": "250.75", "spent_on": "2025-03-07", "category": "utilities"},
	} {
		mustCreate(t, ctx, svc, "expenses", row)
	}

	list, err := svc.List(ctx, "expenses", core.ListQuery{
		From: "2025-02-01",
		To:   "2025-03-31",
		Filters: core.FilterSet{Filters: []core.ColumnFilter{
			{Column: "amount", Operator: core.OpGreaterEq, Value: "100"},
		}},
	})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if list.TotalRows != 1 || core.StringValue(list.Rows[0], "title") != "Power" {
		t.Errorf("rows = %v, want only Power", list.Rows)
	}
}

// ── Audit and reset ───────────────────────────────────────────────────────────

func TestArchiveAuditLog_MovesOldEntries(t *testing.T) {
	svc, pool, ctx := setupTestDB(t)

	old, err := core.LogAudit(ctx, pool, core.AuditLogParams{Action: core.ActionCreate, Resource: "expenses", Reason: "old"})
	if err != nil {
		t.Fatalf("LogAudit: %v", err)
	}
	if _, err := core.LogAudit(ctx, pool, core.AuditLogParams{Action: core.ActionCreate, Resource: "expenses", Reason: "fresh"}); err != nil {
		t.Fatalf("LogAudit: %v", err)
	}
	if _, err := pool.Exec(ctx, `UPDATE audit_log SET created_at = now() - interval '200 days' WHERE id = $1`, old.ID); err != nil {
		t.Fatalf("age entry: %v", err)
	}

	res, err := svc.ArchiveAuditLog(ctx, core.ArchiveConfig{HotRetentionDays: 90, BatchSize: 10})
	if err != nil {
		t.Fatalf("ArchiveAuditLog: %v", err)
	}
	if res.Archived != 1 || res.Purged != 0 {
		t.Errorf("result = %+v, want 1 archived", res)
	}

	var live, archived int
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM audit_log`).Scan(&live); err != nil {
		t.Fatal(err)
	}
	if err := pool.QueryRow(ctx, `SELECT count(*) FROM audit_log_archive WHERE id = $1`, old.ID).Scan(&archived); err != nil {
		t.Fatal(err)
	}
	if live != 1 || archived != 1 {
		t.Errorf("live = %d, archived = %d, want 1 and 1", live, archived)
	}
}

func TestReset_EmptiesTablesAndKeepsAudit(t *testing.T) {
	svc, pool, ctx := setupTestDB(t)
	seedItem(t, ctx, svc, "RST-1", "5", 1)
	mustCreate(t, ctx, svc, "expenses", map[string]any{"title": "Rent", "amount": "10", "spent_on": "2025-01-01"})
	if _, err := svc.AddToCart(ctx, "cust-r", "RST-1", 1); err != nil {
		t.Fatalf("AddToCart: %v", err)
	}

	res, err := svc.Reset(ctx, []string{"inventory"})
	if err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if res.Tables["inventory_items"] != 1 || res.Carts {
		t.Errorf("result = %+v", res)
	}
	if n, err := svc.Count(ctx, "expenses"); err != nil || n != 1 {
		t.Errorf("expenses = %d, %v; want untouched", n, err)
	}

	var resets int
	if err := pool.QueryRow(ctx,
		`SELECT count(*) FROM audit_log WHERE action = 'reset' AND resource = 'inventory_items'`).Scan(&resets); err != nil {
		t.Fatal(err)
	}
	if resets != 1 {
		t.Errorf("reset audit entries = %d, want 1", resets)
	}
}
