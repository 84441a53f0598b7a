// Package core provides the business logic of the solar ERP backend.
//
// It is independent of any transport: the HTTP server, the erpctl admin
// CLI and tests all drive the same [Service].
//
// # Resources
//
// Every CRUD resource (inventory, supply, people, finance, feedback) is a
// [ResourceDefinition] registered at init time with [Register]. The
// definition lists its fields and optional hooks; the generic engine does
// the rest:
//
//	core.Register(core.ResourceDefinition{
//	    Info: core.ResourceInfo{Key: "expenses", Group: "Finance", Label: "Expenses", DateField: "spent_on"},
//	    FieldSpecs: []core.FieldSpec{
//	        {Name: "title", Type: core.FieldText, Required: true},
//	        {Name: "amount", Type: core.FieldNumeric, Required: true, Min: &minAmount},
//	    },
//	})
//
// Records travel as [Record] maps holding canonical Go values (string,
// decimal.Decimal, int64, bool, time.Time). [ResourceDefinition.Output]
// renders them for JSON.
//
// # Mutations
//
// Create, Update, Delete, Import and Checkout each run in one transaction
// together with the resource's AfterWrite hook and an audit entry, so a
// failed hook or audit write leaves no partial change behind.
//
// # Finance
//
// [Service.Overview] loads payments, salaries, supply requests, expenses
// and taxes concurrently and hands them to [ComputeOverview], a pure
// function over decimal amounts.
//
// # Error Handling
//
// Technical errors are mapped to user-friendly messages using [MapError].
// Each error category has a unique code for support reference:
//
//   - DB001-DB008: Database errors (duplicates, constraints, connections)
//   - VAL000-VAL007: Validation errors (formats, bounds, missing columns)
//   - RES001-RES002: Unknown resources and report formats
//   - CART001-CART002: Stock and empty-cart errors
//   - RPT001: Report render capacity
//   - RATE001: Rate limiting
package core
