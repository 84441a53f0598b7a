package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// column pairs a database column with the spec that decodes it.
type column struct {
	name string
	spec FieldSpec
}

// readColumns returns the columns selected for a resource: id, every stored
// field, then the timestamps.
func readColumns(def ResourceDefinition) []column {
	cols := []column{{name: ColID, spec: FieldSpec{Name: ColID, Type: FieldText}}}
	for _, spec := range def.StoredFields() {
		cols = append(cols, column{name: spec.Name, spec: spec})
	}
	cols = append(cols,
		column{name: ColCreatedAt, spec: FieldSpec{Name: ColCreatedAt, Type: FieldText}},
		column{name: ColUpdatedAt, spec: FieldSpec{Name: ColUpdatedAt, Type: FieldText}},
	)
	return cols
}

// selectList renders the quoted SELECT list for cols.
func selectList(cols []column) string {
	parts := make([]string, len(cols))
	for i, c := range cols {
		if c.name == ColID {
			parts[i] = quoteIdentifier(c.name) + "::text"
			continue
		}
		parts[i] = quoteIdentifier(c.name)
	}
	return strings.Join(parts, ", ")
}

// scanRecord reads one row selected with selectList into a Record.
func scanRecord(row pgx.Row, cols []column) (Record, error) {
	targets := make([]any, len(cols))
	for i, c := range cols {
		targets[i] = scanTarget(c)
	}
	if err := row.Scan(targets...); err != nil {
		return nil, err
	}

	rec := make(Record, len(cols))
	for i, c := range cols {
		rec[c.name] = fromTarget(targets[i])
	}
	return rec, nil
}

func scanTarget(c column) any {
	switch c.name {
	case ColID:
		return new(string)
	case ColCreatedAt, ColUpdatedAt:
		return new(time.Time)
	}
	switch c.spec.Type {
	case FieldNumeric:
		return new(pgtype.Numeric)
	case FieldInteger:
		return new(pgtype.Int8)
	case FieldBool:
		return new(pgtype.Bool)
	case FieldDate:
		return new(pgtype.Date)
	default:
		return new(pgtype.Text)
	}
}

func fromTarget(target any) any {
	switch v := target.(type) {
	case *string:
		return *v
	case *time.Time:
		return *v
	case *pgtype.Numeric:
		return numericToDecimal(*v)
	case *pgtype.Int8:
		if v.Valid {
			return v.Int64
		}
	case *pgtype.Bool:
		if v.Valid {
			return v.Bool
		}
	case *pgtype.Date:
		if v.Valid {
			return v.Time
		}
	case *pgtype.Text:
		if v.Valid {
			return v.String
		}
	}
	return nil
}

// numericToDecimal converts a pgtype.Numeric, returning nil for NULL or NaN.
func numericToDecimal(n pgtype.Numeric) any {
	if !n.Valid || n.NaN || n.Int == nil {
		return nil
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}

// numericOrZero is numericToDecimal with NULL mapped to zero.
func numericOrZero(n pgtype.Numeric) decimal.Decimal {
	if d, ok := numericToDecimal(n).(decimal.Decimal); ok {
		return d
	}
	return decimal.Zero
}

// Output renders rec for clients: system columns plus visible fields, with
// JSON-ready values.
func (d ResourceDefinition) Output(rec Record) map[string]any {
	if rec == nil {
		return nil
	}
	out := make(map[string]any, len(d.FieldSpecs)+3)
	out[ColID] = rec[ColID]
	for _, spec := range d.VisibleFields() {
		out[spec.Name] = OutputValue(spec, rec[spec.Name])
	}
	for _, name := range []string{ColCreatedAt, ColUpdatedAt} {
		if v, ok := rec[name]; ok {
			out[name] = OutputValue(FieldSpec{Name: name}, v)
		}
	}
	return out
}

// OutputRows renders a slice of records with Output.
func (d ResourceDefinition) OutputRows(rows []Record) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, rec := range rows {
		out[i] = d.Output(rec)
	}
	return out
}

// insertRecord inserts rec and returns the stored row.
func insertRecord(ctx context.Context, q DBTX, def ResourceDefinition, rec Record) (Record, error) {
	var names []string
	var args []any
	for _, spec := range def.StoredFields() {
		v, ok := rec[spec.Name]
		if !ok {
			continue
		}
		names = append(names, spec.Name)
		args = append(args, v)
	}
	if id, ok := rec[ColID]; ok {
		names = append([]string{ColID}, names...)
		args = append([]any{id}, args...)
	}

	cols := readColumns(def)
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
		quoteIdentifier(def.Info.Key),
		strings.Join(quoteColumns(names), ", "),
		placeholders(1, len(names)),
		selectList(cols),
	)

	return scanRecord(q.QueryRow(ctx, query, args...), cols)
}

// updateRecord writes changes to the row with id and returns the stored row.
func updateRecord(ctx context.Context, q DBTX, def ResourceDefinition, id string, changes Record) (Record, error) {
	var sets []string
	var args []any
	for _, spec := range def.StoredFields() {
		v, ok := changes[spec.Name]
		if !ok {
			continue
		}
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", quoteIdentifier(spec.Name), len(args)))
	}
	sets = append(sets, quoteIdentifier(ColUpdatedAt)+" = now()")
	args = append(args, id)

	cols := readColumns(def)
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d RETURNING %s",
		quoteIdentifier(def.Info.Key),
		strings.Join(sets, ", "),
		quoteIdentifier(ColID),
		len(args),
		selectList(cols),
	)

	return scanRecord(q.QueryRow(ctx, query, args...), cols)
}
