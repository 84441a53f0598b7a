package core

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"github.com/JonMunkholm/solarerp/internal/logging"
)

// MaxImportRows caps the data rows accepted in one CSV import.
var MaxImportRows = 50000

// ContextCheckInterval is how often (in rows) an import checks for cancellation.
var ContextCheckInterval = 100

// FailedRow describes an imported row that was not inserted.
type FailedRow struct {
	Line   int          `json:"line"`
	Reason string       `json:"reason"`
	Fields []FieldError `json:"fields,omitempty"`
	Values []string     `json:"values"`
}

// ImportResult summarises a CSV import.
type ImportResult struct {
	Resource  string        `json:"resource"`
	TotalRows int           `json:"totalRows"`
	Inserted  int           `json:"inserted"`
	Failed    []FailedRow   `json:"failed"`
	Duration  time.Duration `json:"durationMs"`
}

// Import reads a CSV whose header row names fields (by name or label) and
// inserts every valid row in one transaction. Rows failing validation or a
// constraint are reported in Failed and skipped.
func (s *Service) Import(ctx context.Context, resource string, r io.Reader) (*ImportResult, error) {
	start := time.Now()
	def, err := Resolve(resource)
	if err != nil {
		return nil, err
	}

	reader := csv.NewReader(transform.NewReader(r, unicode.BOMOverride(unicode.UTF8.NewDecoder())))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, invalid("file", "invalid csv: empty file")
	}
	if err != nil {
		return nil, invalid("file", "invalid csv: %s", err)
	}
	positions, err := mapHeader(def, header)
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Resource: def.Info.Key, Failed: []FailedRow{}}
	line := 1

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		for {
			row, err := reader.Read()
			if errors.Is(err, io.EOF) {
				break
			}
			line++
			if err != nil {
				result.TotalRows++
				result.Failed = append(result.Failed, FailedRow{Line: line, Reason: "invalid csv: " + err.Error(), Values: row})
				continue
			}
			if isEmptyRow(row) {
				continue
			}
			result.TotalRows++
			if result.TotalRows > MaxImportRows {
				return invalid("file", "invalid csv: more than %d rows", MaxImportRows)
			}
			if result.TotalRows%ContextCheckInterval == 0 {
				if err := ctx.Err(); err != nil {
					return err
				}
			}

			if failed := s.importRow(ctx, tx, def, positions, row); failed != nil {
				failed.Line = line
				failed.Values = row
				result.Failed = append(result.Failed, *failed)
				continue
			}
			result.Inserted++
		}

		if result.Inserted == 0 {
			return nil
		}
		_, err := LogAudit(ctx, tx, AuditLogParams{
			Action:       ActionImport,
			Resource:     def.Info.Key,
			RowsAffected: result.Inserted,
			Reason:       fmt.Sprintf("%d of %d rows imported", result.Inserted, result.TotalRows),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("import %s: %w", def.Info.Key, err)
	}

	result.Duration = time.Since(start)
	logging.FromContext(ctx).Info("import completed",
		"resource", def.Info.Key,
		"total_rows", result.TotalRows,
		"inserted", result.Inserted,
		"failed", len(result.Failed),
		"duration_ms", result.Duration.Milliseconds(),
	)
	return result, nil
}

// importRow validates and inserts one row inside a savepoint so a constraint
// failure only discards that row.
func (s *Service) importRow(ctx context.Context, tx pgx.Tx, def ResourceDefinition, positions map[string]int, row []string) *FailedRow {
	input := make(map[string]any, len(positions))
	for name, pos := range positions {
		if pos < len(row) {
			input[name] = CleanCell(row[pos])
		}
	}

	rec, err := s.prepareCreate(def, input)
	if err != nil {
		return failedFrom(err)
	}

	sp, err := tx.Begin(ctx)
	if err != nil {
		return failedFrom(err)
	}
	created, err := insertRecord(ctx, sp, def, rec)
	if err == nil && def.AfterWrite != nil {
		err = def.AfterWrite(ctx, sp, nil, created)
	}
	if err != nil {
		_ = sp.Rollback(ctx)
		return failedFrom(translateDBError(err))
	}
	if err := sp.Commit(ctx); err != nil {
		return failedFrom(err)
	}
	return nil
}

func failedFrom(err error) *FailedRow {
	fr := &FailedRow{Reason: err.Error()}
	if ve, ok := AsValidation(err); ok {
		fr.Fields = ve
		fr.Reason = "validation failed"
	} else if IsUserFacing(err) {
		fr.Reason = FormatUserError(err)
	}
	return fr
}

// mapHeader resolves header cells to writable field names. Labels match too,
// so "Unit Price" and "unit_price" both land on unit_price.
func mapHeader(def ResourceDefinition, header []string) (map[string]int, error) {
	idx, err := ValidateHeaders(withLabels(def, header), def.FieldSpecs)
	if err != nil {
		return nil, err
	}

	positions := make(map[string]int)
	for _, spec := range def.FieldSpecs {
		if !spec.Writable() {
			continue
		}
		if pos, ok := idx[spec.Name]; ok {
			positions[spec.Name] = pos
		}
	}
	if len(positions) == 0 {
		return nil, invalid("file", "invalid csv: no known columns in header")
	}
	return positions, nil
}

// withLabels rewrites header cells that match a field label to the field name.
func withLabels(def ResourceDefinition, header []string) []string {
	out := make([]string, len(header))
	for i, h := range header {
		out[i] = h
		cell := toDBColumnName(CleanCell(h))
		for _, spec := range def.FieldSpecs {
			if spec.Label != "" && toDBColumnName(spec.Label) == cell {
				out[i] = spec.Name
				break
			}
		}
	}
	return out
}

func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
