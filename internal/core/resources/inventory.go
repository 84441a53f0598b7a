package resources

import "github.com/JonMunkholm/solarerp/internal/core"

// InventoryCategories are the product families stocked by the company.
var InventoryCategories = []string{"panel", "inverter", "battery", "mounting", "cable", "accessory"}

func init() {
	registerInventoryItems()
}

func registerInventoryItems() {
	core.Register(core.ResourceDefinition{
		Info: core.ResourceInfo{
			Key:         "inventory_items",
			Path:        "inventory",
			Group:       "Inventory",
			Label:       "Inventory Items",
			UniqueKey:   []string{"item_code"},
			DefaultSort: core.SortSpec{Column: "item_code", Dir: "asc"},
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "item_code", Label: "Item Code", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "name", Label: "Name", Type: core.FieldText, Required: true, Searchable: true},
			{Name: "category", Label: "Category", Type: core.FieldEnum, EnumValues: InventoryCategories},
			{Name: "quantity", Label: "Quantity", Type: core.FieldInteger, Min: nonNegative, Default: int64(0)},
			{Name: "unit_price", Label: "Unit Price", Type: core.FieldNumeric, Min: nonNegative, Default: decimalZero},
			{Name: "reorder_level", Label: "Reorder Level", Type: core.FieldInteger, Min: nonNegative, Default: int64(0)},
			{Name: "supplier", Label: "Supplier", Type: core.FieldText, Searchable: true},
			{Name: "description", Label: "Description", Type: core.FieldText, Searchable: true},
			{Name: "listed", Label: "Listed", Type: core.FieldBool, Default: true},
		},
		Derive: func(rec core.Record, _ core.HookEnv) error {
			upper(rec, "item_code")
			return nil
		},
	})
}
