package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// MaxSortLevels is the number of sort columns a listing honours.
const MaxSortLevels = 2

// listPlan holds the pieces shared by List, aggregations and Stream.
type listPlan struct {
	def     ResourceDefinition
	cols    []column
	where   string
	args    []any
	next    int
	orderBy string
	sorts   []SortSpec
}

// planList validates q against def and builds WHERE and ORDER BY clauses.
func planList(def ResourceDefinition, q ListQuery) (*listPlan, error) {
	filters, err := ResolveFilters(def, q.Filters)
	if err != nil {
		return nil, err
	}
	from, to, err := ValidateDateRange(q.From, q.To)
	if err != nil {
		return nil, err
	}

	wb := NewWhereBuilder()
	wb.AddSearch(q.Search, def.FieldSpecs)
	wb.AddFilters(filters)
	if def.Info.DateField != "" {
		wb.AddTimestampRange(quoteIdentifier(def.Info.DateField), from, to)
	}
	where, args := wb.Build()

	orderBy, sorts := buildOrderBy(def, q.Sorts)

	return &listPlan{
		def:     def,
		cols:    readColumns(def),
		where:   where,
		args:    args,
		next:    wb.NextArgIndex(),
		orderBy: orderBy,
		sorts:   sorts,
	}, nil
}

// buildOrderBy keeps up to MaxSortLevels known columns, falling back to the
// resource default. id is appended so paging is stable.
func buildOrderBy(def ResourceDefinition, requested []SortSpec) (string, []SortSpec) {
	var parts []string
	var valid []SortSpec

	for _, s := range requested {
		col, ok := sortableColumn(def, s.Column)
		if !ok {
			continue
		}
		dir := strings.ToLower(s.Dir)
		if dir != "asc" && dir != "desc" {
			dir = "asc"
		}
		parts = append(parts, fmt.Sprintf("%s %s", quoteIdentifier(col), dir))
		valid = append(valid, SortSpec{Column: col, Dir: dir})
		if len(valid) >= MaxSortLevels {
			break
		}
	}

	if len(parts) == 0 {
		ds := def.Info.DefaultSort
		if ds.Column == "" {
			ds = SortSpec{Column: ColCreatedAt, Dir: "desc"}
		}
		parts = append(parts, fmt.Sprintf("%s %s", quoteIdentifier(ds.Column), ds.Dir))
		valid = append(valid, ds)
	}

	parts = append(parts, quoteIdentifier(ColID))
	return strings.Join(parts, ", "), valid
}

func sortableColumn(def ResourceDefinition, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	if spec, ok := def.Field(name); ok && spec.Visible() {
		return spec.Name, true
	}
	if sys, ok := systemField(name); ok {
		return sys.Name, true
	}
	return "", false
}

// List fetches one page of a resource with search, filters, sorting and
// numeric aggregations over the whole filtered set.
func (s *Service) List(ctx context.Context, resource string, q ListQuery) (*ListResult, error) {
	def, err := Resolve(resource)
	if err != nil {
		return nil, err
	}
	plan, err := planList(def, q)
	if err != nil {
		return nil, err
	}
	table := quoteIdentifier(def.Info.Key)

	var totalRows int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %s%s", table, plan.where)
	if err := s.pool.QueryRow(ctx, countQuery, plan.args...).Scan(&totalRows); err != nil {
		return nil, fmt.Errorf("count rows: %w", err)
	}

	page, pageSize := normalizePaging(q.Page, q.PageSize)
	pages := totalPages(totalRows, pageSize)
	if page > pages {
		page = pages
	}
	offset := (page - 1) * pageSize

	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s LIMIT $%d OFFSET $%d",
		selectList(plan.cols), table, plan.where, plan.orderBy, plan.next, plan.next+1)
	args := append(append([]any{}, plan.args...), pageSize, offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query rows: %w", err)
	}
	records, err := collectRecords(rows, plan.cols)
	if err != nil {
		return nil, err
	}

	aggs, err := s.aggregate(ctx, plan)
	if err != nil {
		return nil, err
	}

	return &ListResult{
		Rows:         records,
		TotalRows:    totalRows,
		Page:         page,
		PageSize:     pageSize,
		TotalPages:   pages,
		Sorts:        plan.sorts,
		Aggregations: aggs,
	}, nil
}

func collectRecords(rows pgx.Rows, cols []column) ([]Record, error) {
	defer rows.Close()

	records := make([]Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows, cols)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return records, nil
}

// aggregate calculates Sum, Avg, Min, Max and Count for numeric columns
// using the listing's WHERE clause.
func (s *Service) aggregate(ctx context.Context, plan *listPlan) (Aggregations, error) {
	var names []string
	for _, spec := range plan.def.VisibleFields() {
		if spec.Type == FieldNumeric || spec.Type == FieldInteger {
			names = append(names, spec.Name)
		}
	}
	if len(names) == 0 {
		return nil, nil
	}

	var exprs []string
	for _, name := range names {
		q := quoteIdentifier(name)
		exprs = append(exprs,
			fmt.Sprintf("SUM(%s)::numeric", q),
			fmt.Sprintf("ROUND(AVG(%s)::numeric, 2)", q),
			fmt.Sprintf("MIN(%s)::numeric", q),
			fmt.Sprintf("MAX(%s)::numeric", q),
			fmt.Sprintf("COUNT(%s)", q),
		)
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s",
		strings.Join(exprs, ", "), quoteIdentifier(plan.def.Info.Key), plan.where)

	nums := make([]pgtype.Numeric, len(names)*4)
	counts := make([]int64, len(names))
	dest := make([]any, 0, len(names)*5)
	for i := range names {
		base := i * 4
		dest = append(dest, &nums[base], &nums[base+1], &nums[base+2], &nums[base+3], &counts[i])
	}

	if err := s.pool.QueryRow(ctx, query, plan.args...).Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan aggregations: %w", err)
	}

	result := make(Aggregations, len(names))
	for i, name := range names {
		base := i * 4
		result[name] = &ColumnAggregation{
			Sum:   numericOrZero(nums[base]),
			Avg:   numericOrZero(nums[base+1]),
			Min:   numericOrZero(nums[base+2]),
			Max:   numericOrZero(nums[base+3]),
			Count: counts[i],
		}
	}
	return result, nil
}

// GetByID fetches one record. Malformed ids are reported as not found.
func (s *Service) GetByID(ctx context.Context, resource, id string) (Record, error) {
	def, err := Resolve(resource)
	if err != nil {
		return nil, err
	}
	return getRecord(ctx, s.pool, def, id, false)
}

func getRecord(ctx context.Context, q DBTX, def ResourceDefinition, id string, forUpdate bool) (Record, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	cols := readColumns(def)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1",
		selectList(cols), quoteIdentifier(def.Info.Key), quoteIdentifier(ColID))
	if forUpdate {
		query += " FOR UPDATE"
	}
	rec, err := scanRecord(q.QueryRow(ctx, query, id), cols)
	if err != nil {
		return nil, translateDBError(err)
	}
	return rec, nil
}

// FindBy returns the first record whose field equals value.
func (s *Service) FindBy(ctx context.Context, resource, field string, value any) (Record, error) {
	def, err := Resolve(resource)
	if err != nil {
		return nil, err
	}
	spec, ok := def.Field(field)
	if !ok {
		return nil, invalid(field, "unknown field")
	}
	cols := readColumns(def)
	query := fmt.Sprintf("SELECT %s FROM %s WHERE %s = $1 LIMIT 1",
		selectList(cols), quoteIdentifier(def.Info.Key), quoteIdentifier(spec.Name))
	rec, err := scanRecord(s.pool.QueryRow(ctx, query, value), cols)
	if err != nil {
		return nil, translateDBError(err)
	}
	return rec, nil
}

// Stream calls fn for every record matching q, in listing order, without
// paging. Used by exports and reports.
func (s *Service) Stream(ctx context.Context, resource string, q ListQuery, fn func(Record) error) error {
	def, err := Resolve(resource)
	if err != nil {
		return err
	}
	plan, err := planList(def, q)
	if err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s ORDER BY %s",
		selectList(plan.cols), quoteIdentifier(def.Info.Key), plan.where, plan.orderBy)

	rows, err := s.pool.Query(ctx, query, plan.args...)
	if err != nil {
		return fmt.Errorf("query rows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		rec, err := scanRecord(rows, plan.cols)
		if err != nil {
			return fmt.Errorf("scan row: %w", err)
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// All collects every record matching q. Exports use it when the writer needs
// the full table up front.
func (s *Service) All(ctx context.Context, resource string, q ListQuery) ([]Record, error) {
	var out []Record
	err := s.Stream(ctx, resource, q, func(rec Record) error {
		out = append(out, rec)
		return nil
	})
	return out, err
}
