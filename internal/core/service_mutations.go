package core

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/JonMunkholm/solarerp/internal/logging"
)

// Create validates input, derives computed fields and inserts a record.
// The AfterWrite hook and the audit entry share the insert's transaction.
func (s *Service) Create(ctx context.Context, resource string, input map[string]any) (Record, error) {
	def, err := Resolve(resource)
	if err != nil {
		return nil, err
	}

	rec, err := s.prepareCreate(def, input)
	if err != nil {
		return nil, err
	}

	var created Record
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		created, err = insertRecord(ctx, tx, def, rec)
		if err != nil {
			return err
		}
		if def.AfterWrite != nil {
			if err := def.AfterWrite(ctx, tx, nil, created); err != nil {
				return err
			}
		}
		_, err = LogAudit(ctx, tx, AuditLogParams{
			Action:   ActionCreate,
			Resource: def.Info.Key,
			RecordID: StringValue(created, ColID),
			After:    def.Output(created),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", def.Info.Key, translateDBError(err))
	}

	logging.FromContext(ctx).Info("record created",
		"resource", def.Info.Key, "id", created[ColID])
	return created, nil
}

// prepareCreate runs validation and the Derive and Prepare hooks for an insert.
func (s *Service) prepareCreate(def ResourceDefinition, input map[string]any) (Record, error) {
	rec, err := ValidateInput(def, input, true)
	if err != nil {
		return nil, err
	}
	if def.Derive != nil {
		if err := def.Derive(rec, s.env); err != nil {
			return nil, err
		}
	}
	if def.Prepare != nil {
		if err := def.Prepare(rec, true); err != nil {
			return nil, err
		}
	}
	stripWriteOnly(def, rec)
	rec[ColID] = uuid.NewString()
	return rec, nil
}

// Update applies a partial change: only supplied fields change and derived
// fields are recomputed from the merged record.
func (s *Service) Update(ctx context.Context, resource, id string, input map[string]any) (Record, error) {
	def, err := Resolve(resource)
	if err != nil {
		return nil, err
	}

	changes, err := ValidateInput(def, input, false)
	if err != nil {
		return nil, err
	}

	var updated Record
	err = s.inTx(ctx, func(tx pgx.Tx) error {
		before, err := getRecord(ctx, tx, def, id, true)
		if err != nil {
			return err
		}

		if err := s.mergeChanges(def, before, changes); err != nil {
			return err
		}
		if len(changes) == 0 {
			updated = before
			return nil
		}

		updated, err = updateRecord(ctx, tx, def, id, changes)
		if err != nil {
			return err
		}
		if def.AfterWrite != nil {
			if err := def.AfterWrite(ctx, tx, before, updated); err != nil {
				return err
			}
		}
		_, err = LogAudit(ctx, tx, AuditLogParams{
			Action:   ActionUpdate,
			Resource: def.Info.Key,
			RecordID: id,
			Before:   def.Output(before),
			After:    def.Output(updated),
		})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("update %s: %w", def.Info.Key, translateDBError(err))
	}

	logging.FromContext(ctx).Info("record updated",
		"resource", def.Info.Key, "id", id, "fields", len(changes))
	return updated, nil
}

// mergeChanges overlays changes on before, reruns Derive and adds every
// derived field that moved to changes. Prepare runs on changes only.
func (s *Service) mergeChanges(def ResourceDefinition, before, changes Record) error {
	merged := make(Record, len(before)+len(changes))
	for k, v := range before {
		merged[k] = v
	}
	for k, v := range changes {
		merged[k] = v
	}

	if def.Derive != nil {
		if err := def.Derive(merged, s.env); err != nil {
			return err
		}
		for k := range changes {
			changes[k] = merged[k]
		}
		for _, spec := range def.FieldSpecs {
			if spec.ReadOnly && spec.Stored() {
				if FormatFilterLiteral(merged[spec.Name]) != FormatFilterLiteral(before[spec.Name]) {
					changes[spec.Name] = merged[spec.Name]
				}
			}
		}
	}

	if def.Prepare != nil {
		if err := def.Prepare(changes, false); err != nil {
			return err
		}
	}
	stripWriteOnly(def, changes)
	return nil
}

// Delete removes a record and audits its last state.
func (s *Service) Delete(ctx context.Context, resource, id string) error {
	def, err := Resolve(resource)
	if err != nil {
		return err
	}

	err = s.inTx(ctx, func(tx pgx.Tx) error {
		before, err := getRecord(ctx, tx, def, id, true)
		if err != nil {
			return err
		}
		query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1",
			quoteIdentifier(def.Info.Key), quoteIdentifier(ColID))
		if _, err := tx.Exec(ctx, query, id); err != nil {
			return err
		}
		_, err = LogAudit(ctx, tx, AuditLogParams{
			Action:       ActionDelete,
			Resource:     def.Info.Key,
			RecordID:     id,
			Before:       def.Output(before),
			RowsAffected: 1,
		})
		return err
	})
	if err != nil {
		return fmt.Errorf("delete %s: %w", def.Info.Key, translateDBError(err))
	}

	logging.FromContext(ctx).Info("record deleted", "resource", def.Info.Key, "id", id)
	return nil
}

func stripWriteOnly(def ResourceDefinition, rec Record) {
	for _, spec := range def.FieldSpecs {
		if spec.WriteOnly {
			delete(rec, spec.Name)
		}
	}
}
