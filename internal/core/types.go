package core

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

// DBTX is the interface for database operations.
// Satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

// FieldType represents the expected data type for a resource field.
type FieldType int

const (
	FieldText FieldType = iota
	FieldEnum
	FieldDate
	FieldNumeric
	FieldInteger
	FieldBool
)

// String returns the lowercase name used in API metadata.
func (ft FieldType) String() string {
	switch ft {
	case FieldEnum:
		return "enum"
	case FieldDate:
		return "date"
	case FieldNumeric:
		return "numeric"
	case FieldInteger:
		return "integer"
	case FieldBool:
		return "bool"
	default:
		return "text"
	}
}

// FieldSpec defines the storage and validation rules for one resource field.
// Name is the database column and the JSON key.
type FieldSpec struct {
	Name       string
	Label      string
	Type       FieldType
	Required   bool
	EnumValues []string
	Min        *float64
	Max        *float64
	Default    any
	Scale      int32 // decimal places kept for FieldNumeric; 0 means DefaultScale

	ReadOnly   bool // derived by a hook, ignored on input
	WriteOnly  bool // accepted on input, never stored as-is or returned
	Hidden     bool // stored but never accepted or returned
	Searchable bool // included in free-text search
}

// DisplayLabel returns Label, falling back to Name.
func (f FieldSpec) DisplayLabel() string {
	if f.Label != "" {
		return f.Label
	}
	return f.Name
}

// DefaultScale matches the NUMERIC(_, 2) money columns.
const DefaultScale int32 = 2

// NumericScale returns the number of decimal places a numeric field keeps.
func (f FieldSpec) NumericScale() int32 {
	if f.Scale > 0 {
		return f.Scale
	}
	return DefaultScale
}

// Stored reports whether the field has a database column.
func (f FieldSpec) Stored() bool { return !f.WriteOnly }

// Visible reports whether the field is returned to clients.
func (f FieldSpec) Visible() bool { return !f.WriteOnly && !f.Hidden }

// Writable reports whether clients may supply the field.
func (f FieldSpec) Writable() bool { return !f.ReadOnly && !f.Hidden }

// ResourceInfo contains identifying and display information about a resource.
type ResourceInfo struct {
	Key         string   // Table name: "inventory_items"
	Path        string   // URL slug: "inventory"
	Group       string   // Module: "Inventory", "Supply", "People", "Finance", "Customer"
	Label       string   // Display name: "Inventory Items"
	UniqueKey   []string // Field(s) that must be unique
	DateField   string   // Field used by from/to range filters
	DefaultSort SortSpec
}

// Record holds one resource row keyed by field name.
// Values use canonical Go types: string, decimal.Decimal, int64, bool,
// time.Time, or nil for NULL.
type Record map[string]any

// HookEnv carries runtime settings that resource hooks depend on.
type HookEnv struct {
	TaxRate decimal.Decimal
	Now     func() time.Time
}

// DeriveFunc computes derived (read-only) fields from the merged record.
// It may return ValidationErrors when the combination of fields is invalid.
type DeriveFunc func(rec Record, env HookEnv) error

// PrepareFunc transforms write-only input into stored fields (e.g. hashing).
// create is true for inserts.
type PrepareFunc func(rec Record, create bool) error

// AfterWriteFunc runs inside the mutation transaction after the row is written.
// before is nil for inserts.
type AfterWriteFunc func(ctx context.Context, tx pgx.Tx, before, after Record) error

// ResourceDefinition contains everything needed to serve one resource.
type ResourceDefinition struct {
	Info       ResourceInfo
	FieldSpecs []FieldSpec
	Derive     DeriveFunc
	Prepare    PrepareFunc
	AfterWrite AfterWriteFunc
}

// Field returns the spec with the given name (case-insensitive).
func (d ResourceDefinition) Field(name string) (FieldSpec, bool) {
	for _, spec := range d.FieldSpecs {
		if equalFold(spec.Name, name) {
			return spec, true
		}
	}
	return FieldSpec{}, false
}

// VisibleFields returns the fields returned to clients, in declaration order.
func (d ResourceDefinition) VisibleFields() []FieldSpec {
	out := make([]FieldSpec, 0, len(d.FieldSpecs))
	for _, spec := range d.FieldSpecs {
		if spec.Visible() {
			out = append(out, spec)
		}
	}
	return out
}

// StoredFields returns the fields backed by a database column.
func (d ResourceDefinition) StoredFields() []FieldSpec {
	out := make([]FieldSpec, 0, len(d.FieldSpecs))
	for _, spec := range d.FieldSpecs {
		if spec.Stored() {
			out = append(out, spec)
		}
	}
	return out
}

// System columns present on every resource table.
const (
	ColID        = "id"
	ColCreatedAt = "created_at"
	ColUpdatedAt = "updated_at"
)

// FilterOperator represents a comparison operator for column filters.
type FilterOperator string

const (
	OpContains   FilterOperator = "contains"
	OpEquals     FilterOperator = "eq"
	OpStartsWith FilterOperator = "starts"
	OpEndsWith   FilterOperator = "ends"
	OpGreaterEq  FilterOperator = "gte"
	OpLessEq     FilterOperator = "lte"
	OpGreater    FilterOperator = "gt"
	OpLess       FilterOperator = "lt"
	OpIn         FilterOperator = "in"
)

// ColumnFilter represents a single filter condition on a column.
type ColumnFilter struct {
	Column   string
	Operator FilterOperator
	Value    string // comma-separated for OpIn
	Type     FieldType
}

// FilterSet represents all active filters (combined with AND logic).
type FilterSet struct {
	Filters []ColumnFilter
}

// SortSpec represents a single sort column and direction.
type SortSpec struct {
	Column string `json:"column"`
	Dir    string `json:"dir"` // "asc" or "desc"
}

// ListQuery describes a paginated, filtered listing.
type ListQuery struct {
	Page     int
	PageSize int
	Sorts    []SortSpec
	Search   string
	Filters  FilterSet
	From     string // inclusive, on ResourceInfo.DateField
	To       string // inclusive
}

// Pagination limits.
const (
	DefaultPageSize = 25
	MaxPageSize     = 500
)

// ColumnAggregation holds aggregated values for a single numeric column.
type ColumnAggregation struct {
	Sum   decimal.Decimal `json:"sum"`
	Avg   decimal.Decimal `json:"avg"`
	Min   decimal.Decimal `json:"min"`
	Max   decimal.Decimal `json:"max"`
	Count int64           `json:"count"`
}

// Aggregations maps column names to their aggregation results.
type Aggregations map[string]*ColumnAggregation

// ListResult contains one page of records.
type ListResult struct {
	Rows         []Record     `json:"rows"`
	TotalRows    int64        `json:"totalRows"`
	Page         int          `json:"page"`
	PageSize     int          `json:"pageSize"`
	TotalPages   int          `json:"totalPages"`
	Sorts        []SortSpec   `json:"sorts"`
	Aggregations Aggregations `json:"aggregations,omitempty"`
}
