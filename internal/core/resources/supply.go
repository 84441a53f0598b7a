package resources

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/JonMunkholm/solarerp/internal/core"
	"github.com/JonMunkholm/solarerp/internal/logging"
)

// SupplyRequestStatuses is the lifecycle of a purchase request.
var SupplyRequestStatuses = []string{"pending", "approved", "rejected", "delivered"}

const statusDelivered = "delivered"

var decimalZero = decimal.Zero

func init() {
	registerSupplyProducts()
	registerSupplyRequests()
}

func registerSupplyProducts() {
	core.Register(core.ResourceDefinition{
		Info: core.ResourceInfo{
			Key:         "supply_products",
			Path:        "supply-products",
			Group:       "Supply",
			Label:       "Supply Products",
			UniqueKey:   []string{"product_code", "supplier_name"},
			DefaultSort: core.SortSpec{Column: "product_code", Dir: "asc"},
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "product_code", Label: "Product Code", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "name", Label: "Name", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "supplier_name", Label: "Supplier", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "category", Label: "Category", Type: core.FieldEnum, EnumValues: InventoryCategories},
			{Name: "unit_price", Label: "Unit Price", Type: core.FieldNumeric, Min: nonNegative, Default: decimalZero},
			{Name: "lead_time_days", Label: "Lead Time (days)", Type: core.FieldInteger, Min: nonNegative},
			{Name: "description", Label: "Description", Type: core.FieldText},
		},
		Derive: func(rec core.Record, _ core.HookEnv) error {
			upper(rec, "product_code")
			return nil
		},
	})
}

func registerSupplyRequests() {
	core.Register(core.ResourceDefinition{
		Info: core.ResourceInfo{
			Key:       "supply_requests",
			Path:      "supply-requests",
			Group:     "Supply",
			Label:     "Supply Requests",
			UniqueKey: []string{"request_no"},
			DateField: "requested_on",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "request_no", Label: "Request No", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "product_code", Label: "Product Code", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "supplier_name", Label: "Supplier", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "quantity", Label: "Quantity", Type: core.FieldInteger, Required: true, Min: bound(1)},
			{Name: "unit_price", Label: "Unit Price", Type: core.FieldNumeric, Min: nonNegative, Default: decimalZero},
			{Name: "total_cost", Label: "Total Cost", Type: core.FieldNumeric, ReadOnly: true},
			{Name: "status", Label: "Status", Type: core.FieldEnum, EnumValues: SupplyRequestStatuses, Default: "pending"},
			{Name: "requested_on", Label: "Requested On", Type: core.FieldDate},
			{Name: "expected_on", Label: "Expected On", Type: core.FieldDate},
			{Name: "notes", Label: "Notes", Type: core.FieldText},
		},
		Derive:     deriveSupplyRequest,
		AfterWrite: receiveDeliveredStock,
	})
}

// deriveSupplyRequest computes total_cost, defaults requested_on to today
// and rejects an expected date before the request date.
func deriveSupplyRequest(rec core.Record, env core.HookEnv) error {
	upper(rec, "product_code")
	qty := decimal.NewFromInt(core.IntValue(rec, "quantity"))
	rec["total_cost"] = core.DecimalValue(rec, "unit_price").Mul(qty).Round(2)

	if rec["requested_on"] == nil && env.Now != nil {
		rec["requested_on"] = core.DateOf(env.Now())
	}

	requested, ok1 := rec["requested_on"].(time.Time)
	expected, ok2 := rec["expected_on"].(time.Time)
	if ok1 && ok2 && expected.Before(requested) {
		var errs core.ValidationErrors
		errs.Add("expected_on", "must not be before requested_on")
		return errs.Err()
	}
	return nil
}

// receiveDeliveredStock adds a request's quantity to inventory when it moves
// into the delivered state.
func receiveDeliveredStock(ctx context.Context, tx pgx.Tx, before, after core.Record) error {
	if core.StringValue(after, "status") != statusDelivered {
		return nil
	}
	if before != nil && core.StringValue(before, "status") == statusDelivered {
		return nil
	}

	code := core.StringValue(after, "product_code")
	qty := core.IntValue(after, "quantity")
	tag, err := tx.Exec(ctx, `
		UPDATE inventory_items SET quantity = quantity + $2, updated_at = now()
		WHERE item_code = $1`, code, qty)
	if err != nil {
		return fmt.Errorf("receive stock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var errs core.ValidationErrors
		errs.Add("product_code", "no inventory item with code %s to receive stock into", code)
		return errs.Err()
	}

	logging.FromContext(ctx).Info("stock received",
		"item_code", code, "quantity", qty, "request_no", core.StringValue(after, "request_no"))
	return nil
}
