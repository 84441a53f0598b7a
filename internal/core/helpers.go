package core

import (
	"fmt"
	"strings"
)

// WhereBuilder accumulates AND-joined conditions with positional arguments.
type WhereBuilder struct {
	conditions []string
	args       []interface{}
	argIndex   int
}

// NewWhereBuilder returns an empty builder whose first placeholder is $1.
func NewWhereBuilder() *WhereBuilder {
	return &WhereBuilder{argIndex: 1}
}

// Add appends "col = $n". Empty values are skipped.
func (wb *WhereBuilder) Add(col string, value string) {
	if value == "" {
		return
	}
	wb.AddValue(col, "=", value)
}

// AddValue appends "col op $n" for an already typed value.
func (wb *WhereBuilder) AddValue(col, op string, value interface{}) {
	wb.conditions = append(wb.conditions, fmt.Sprintf("%s %s $%d", col, op, wb.argIndex))
	wb.args = append(wb.args, value)
	wb.argIndex++
}

// AddTimestampRange bounds col inclusively. Either side may be empty.
func (wb *WhereBuilder) AddTimestampRange(col, from, to string) {
	if from != "" {
		wb.AddValue(col, ">=", from)
	}
	if to != "" {
		wb.AddValue(col, "<=", to)
	}
}

// AddSearch matches query against every searchable column with ILIKE.
// When no field is marked Searchable, all text fields are used.
func (wb *WhereBuilder) AddSearch(query string, specs []FieldSpec) {
	cols := searchColumns(specs)
	for i, col := range cols {
		cols[i] = quoteIdentifier(col)
	}
	wb.AddILikeAny(query, cols...)
}

// AddILikeAny appends "(c1 ILIKE $n OR c2 ILIKE $n ...)" with a single
// escaped substring argument. Column expressions are used as given.
func (wb *WhereBuilder) AddILikeAny(query string, cols ...string) {
	query = strings.TrimSpace(query)
	if query == "" || len(cols) == 0 {
		return
	}

	parts := make([]string, len(cols))
	for i, col := range cols {
		parts[i] = fmt.Sprintf("%s ILIKE $%d", col, wb.argIndex)
	}
	wb.conditions = append(wb.conditions, "("+strings.Join(parts, " OR ")+")")
	wb.args = append(wb.args, "%"+escapeLike(query)+"%")
	wb.argIndex++
}

// AddFilters appends one condition per column filter.
func (wb *WhereBuilder) AddFilters(filters FilterSet) {
	for _, f := range filters.Filters {
		condition, filterArgs, next := buildSingleFilter(f, wb.argIndex)
		if condition == "" {
			continue
		}
		wb.conditions = append(wb.conditions, condition)
		wb.args = append(wb.args, filterArgs...)
		wb.argIndex = next
	}
}

// Build returns " WHERE ..." (or "") and the collected arguments.
func (wb *WhereBuilder) Build() (string, []interface{}) {
	if len(wb.conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(wb.conditions, " AND "), wb.args
}

// NextArgIndex returns the next free placeholder number.
func (wb *WhereBuilder) NextArgIndex() int {
	return wb.argIndex
}

func searchColumns(specs []FieldSpec) []string {
	var marked, text []string
	for _, spec := range specs {
		if !spec.Visible() {
			continue
		}
		col := toDBColumnName(spec.Name)
		if spec.Searchable {
			marked = append(marked, col)
		}
		if spec.Type == FieldText {
			text = append(text, col)
		}
	}
	if len(marked) > 0 {
		return marked
	}
	return text
}

// buildSingleFilter generates SQL for a single filter.
// Pattern operators compare the text form so they work on any column type.
func buildSingleFilter(f ColumnFilter, argIdx int) (string, []interface{}, int) {
	col := quoteIdentifier(toDBColumnName(f.Column))
	textCol := col
	if f.Type != FieldText && f.Type != FieldEnum {
		textCol = col + "::text"
	}

	switch f.Operator {
	case OpContains:
		return fmt.Sprintf("%s ILIKE $%d", textCol, argIdx),
			[]interface{}{"%" + escapeLike(f.Value) + "%"}, argIdx + 1

	case OpEquals:
		return fmt.Sprintf("%s = $%d", col, argIdx),
			[]interface{}{f.Value}, argIdx + 1

	case OpStartsWith:
		return fmt.Sprintf("%s ILIKE $%d", textCol, argIdx),
			[]interface{}{escapeLike(f.Value) + "%"}, argIdx + 1

	case OpEndsWith:
		return fmt.Sprintf("%s ILIKE $%d", textCol, argIdx),
			[]interface{}{"%" + escapeLike(f.Value)}, argIdx + 1

	case OpGreaterEq:
		return fmt.Sprintf("%s >= $%d", col, argIdx),
			[]interface{}{f.Value}, argIdx + 1

	case OpLessEq:
		return fmt.Sprintf("%s <= $%d", col, argIdx),
			[]interface{}{f.Value}, argIdx + 1

	case OpGreater:
		return fmt.Sprintf("%s > $%d", col, argIdx),
			[]interface{}{f.Value}, argIdx + 1

	case OpLess:
		return fmt.Sprintf("%s < $%d", col, argIdx),
			[]interface{}{f.Value}, argIdx + 1

	case OpIn:
		var values []string
		for _, v := range strings.Split(f.Value, ",") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return "", nil, argIdx
		}
		placeholders := make([]string, len(values))
		filterArgs := make([]interface{}, len(values))
		for i, v := range values {
			placeholders[i] = fmt.Sprintf("$%d", argIdx+i)
			filterArgs[i] = v
		}
		return fmt.Sprintf("%s IN (%s)", col, strings.Join(placeholders, ", ")),
			filterArgs, argIdx + len(values)

	default:
		return "", nil, argIdx
	}
}

// ParseOperator maps a query-string operator to a FilterOperator.
func ParseOperator(op string) (FilterOperator, bool) {
	switch FilterOperator(strings.ToLower(strings.TrimSpace(op))) {
	case OpContains:
		return OpContains, true
	case OpEquals:
		return OpEquals, true
	case OpStartsWith:
		return OpStartsWith, true
	case OpEndsWith:
		return OpEndsWith, true
	case OpGreaterEq:
		return OpGreaterEq, true
	case OpLessEq:
		return OpLessEq, true
	case OpGreater:
		return OpGreater, true
	case OpLess:
		return OpLess, true
	case OpIn:
		return OpIn, true
	}
	return "", false
}

// escapeLike escapes LIKE wildcards in user input.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

// quoteIdentifier quotes a SQL identifier to prevent injection.
func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// quoteColumns quotes every identifier in cols.
func quoteColumns(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = quoteIdentifier(c)
	}
	return out
}

// toDBColumnName converts a display name to a database column name.
// "Item Code" -> "item_code"
// "item_code" -> "item_code"
func toDBColumnName(name string) string {
	return strings.ToLower(strings.ReplaceAll(strings.TrimSpace(name), " ", "_"))
}

// placeholders returns "$start, $start+1, ..." for n arguments.
func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", start+i)
	}
	return strings.Join(parts, ", ")
}

func equalFold(a, b string) bool {
	return strings.EqualFold(a, b)
}
