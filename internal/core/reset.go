package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
)

// ResetTimeout is the maximum duration for a reset.
const ResetTimeout = 30 * time.Second

// ResetResult reports the rows removed per table.
type ResetResult struct {
	Tables map[string]int64 `json:"tables"`
	Carts  bool             `json:"carts"`
}

// Reset deletes every row of the named resources in one transaction and
// records one audit entry per table. An empty list resets every resource and
// all carts. Audit history is kept.
func (s *Service) Reset(ctx context.Context, resources []string) (*ResetResult, error) {
	ctx, cancel := context.WithTimeout(ctx, ResetTimeout)
	defer cancel()

	var defs []ResourceDefinition
	if len(resources) == 0 {
		defs = All()
	} else {
		for _, name := range resources {
			def, err := Resolve(name)
			if err != nil {
				return nil, err
			}
			defs = append(defs, def)
		}
	}

	result := &ResetResult{Tables: make(map[string]int64, len(defs))}
	err := s.inTx(ctx, func(tx pgx.Tx) error {
		if len(resources) == 0 {
			for _, table := range []string{"cart_items", "carts"} {
				if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
					return fmt.Errorf("reset %s: %w", table, err)
				}
			}
			result.Carts = true
		}

		for _, def := range defs {
			tag, err := tx.Exec(ctx, "DELETE FROM "+quoteIdentifier(def.Info.Key))
			if err != nil {
				return fmt.Errorf("reset %s: %w", def.Info.Key, err)
			}
			n := tag.RowsAffected()
			result.Tables[def.Info.Key] = n

			if _, err := LogAudit(ctx, tx, AuditLogParams{
				Action:       ActionReset,
				Resource:     def.Info.Key,
				RowsAffected: int(n),
				Reason:       "reset " + strings.ToLower(def.Info.Label),
			}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
