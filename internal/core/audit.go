package core

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// AuditAction represents the type of action being audited.
type AuditAction string

const (
	ActionCreate   AuditAction = "create"
	ActionUpdate   AuditAction = "update"
	ActionDelete   AuditAction = "delete"
	ActionImport   AuditAction = "import"
	ActionCheckout AuditAction = "checkout"
	ActionReset    AuditAction = "reset"
)

// AuditSeverity represents the severity level of an audit entry.
type AuditSeverity string

const (
	SeverityLow    AuditSeverity = "low"
	SeverityMedium AuditSeverity = "medium"
	SeverityHigh   AuditSeverity = "high"
)

// AuditEntry represents a single audit log entry.
type AuditEntry struct {
	ID            string         `json:"id"`
	Action        AuditAction    `json:"action"`
	Severity      AuditSeverity  `json:"severity"`
	Resource      string         `json:"resource"`
	RecordID      string         `json:"recordId,omitempty"`
	IPAddress     string         `json:"ipAddress,omitempty"`
	UserAgent     string         `json:"userAgent,omitempty"`
	ChangedFields []string       `json:"changedFields,omitempty"`
	OldData       map[string]any `json:"oldData,omitempty"`
	NewData       map[string]any `json:"newData,omitempty"`
	RowsAffected  int            `json:"rowsAffected,omitempty"`
	Reason        string         `json:"reason,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// AuditLogParams contains parameters for creating an audit log entry.
// The client IP and User-Agent come from the context's Origin.
type AuditLogParams struct {
	Action       AuditAction
	Resource     string
	RecordID     string
	Before       map[string]any
	After        map[string]any
	RowsAffected int
	Reason       string
}

// determineSeverity returns the appropriate severity for an action.
func determineSeverity(action AuditAction) AuditSeverity {
	switch action {
	case ActionDelete, ActionImport, ActionCheckout, ActionReset:
		return SeverityHigh
	case ActionCreate, ActionUpdate:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// changedFields lists keys whose values differ between before and after.
// For inserts (before == nil) every key of after is reported.
func changedFields(before, after map[string]any) []string {
	var out []string
	for k, v := range after {
		if before == nil {
			out = append(out, k)
			continue
		}
		if fmt.Sprint(before[k]) != fmt.Sprint(v) {
			out = append(out, k)
		}
	}
	if after == nil {
		for k := range before {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

const auditColumns = `id, action, severity, resource, record_id, ip_address, user_agent,
	changed_fields, old_data, new_data, rows_affected, reason, created_at`

// LogAudit writes an audit entry using q, normally the mutation's transaction.
func LogAudit(ctx context.Context, q DBTX, params AuditLogParams) (*AuditEntry, error) {
	origin := OriginFrom(ctx)
	entry := &AuditEntry{
		ID:            uuid.NewString(),
		Action:        params.Action,
		Severity:      determineSeverity(params.Action),
		Resource:      params.Resource,
		RecordID:      params.RecordID,
		IPAddress:     origin.IPAddress,
		UserAgent:     origin.UserAgent,
		ChangedFields: changedFields(params.Before, params.After),
		OldData:       params.Before,
		NewData:       params.After,
		RowsAffected:  params.RowsAffected,
		Reason:        params.Reason,
	}

	err := q.QueryRow(ctx, `
		INSERT INTO audit_log (id, action, severity, resource, record_id, ip_address, user_agent,
			changed_fields, old_data, new_data, rows_affected, reason)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8, $9, $10, $11, NULLIF($12, ''))
		RETURNING created_at`,
		entry.ID, string(entry.Action), string(entry.Severity), entry.Resource, entry.RecordID,
		entry.IPAddress, entry.UserAgent, entry.ChangedFields, jsonOrNull(entry.OldData), jsonOrNull(entry.NewData),
		entry.RowsAffected, entry.Reason,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insert audit log: %w", err)
	}

	return entry, nil
}

// AuditFilter contains filtering options for querying audit logs.
type AuditFilter struct {
	Resource string
	Action   AuditAction
	From     string // inclusive date
	To       string // inclusive date
	Page     int
	PageSize int
}

// AuditPage is one page of audit entries.
type AuditPage struct {
	Entries    []AuditEntry `json:"entries"`
	Total      int64        `json:"total"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
	TotalPages int          `json:"totalPages"`
}

// ListAudit retrieves audit log entries, newest first.
func (s *Service) ListAudit(ctx context.Context, filter AuditFilter) (*AuditPage, error) {
	from, to, err := ValidateDateRange(filter.From, filter.To)
	if err != nil {
		return nil, err
	}
	page, pageSize := normalizePaging(filter.Page, filter.PageSize)

	wb := NewWhereBuilder()
	wb.Add("resource", filter.Resource)
	wb.Add("action", string(filter.Action))
	if from != "" {
		wb.AddValue("created_at", ">=", from)
	}
	if to != "" {
		wb.AddValue("created_at", "<", nextDay(to))
	}
	where, args := wb.Build()

	var total int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM audit_log"+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count audit log: %w", err)
	}

	idx := wb.NextArgIndex()
	query := fmt.Sprintf("SELECT %s FROM audit_log%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d",
		auditColumns, where, idx, idx+1)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit log: %w", err)
	}
	entries, err := pgx.CollectRows(rows, scanAuditEntry)
	if err != nil {
		return nil, fmt.Errorf("scan audit log: %w", err)
	}

	return &AuditPage{
		Entries:    entries,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages(total, pageSize),
	}, nil
}

// GetAudit retrieves a single audit log entry by ID.
func (s *Service) GetAudit(ctx context.Context, id string) (*AuditEntry, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	rows, err := s.pool.Query(ctx, "SELECT "+auditColumns+" FROM audit_log WHERE id = $1", id)
	if err != nil {
		return nil, fmt.Errorf("query audit entry: %w", err)
	}
	entry, err := pgx.CollectExactlyOneRow(rows, scanAuditEntry)
	if err != nil {
		return nil, translateDBError(err)
	}
	return &entry, nil
}

func scanAuditEntry(row pgx.CollectableRow) (AuditEntry, error) {
	var (
		e                        AuditEntry
		action, severity         string
		recordID, ip, ua, reason *string
		rowsAffected             *int32
	)
	err := row.Scan(&e.ID, &action, &severity, &e.Resource, &recordID, &ip, &ua,
		&e.ChangedFields, &e.OldData, &e.NewData, &rowsAffected, &reason, &e.CreatedAt)
	if err != nil {
		return e, err
	}
	e.Action = AuditAction(action)
	e.Severity = AuditSeverity(severity)
	e.RecordID = deref(recordID)
	e.IPAddress = deref(ip)
	e.UserAgent = deref(ua)
	e.Reason = deref(reason)
	if rowsAffected != nil {
		e.RowsAffected = int(*rowsAffected)
	}
	return e, nil
}

// jsonOrNull keeps an absent snapshot NULL instead of the JSON literal null.
func jsonOrNull(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}

// nextDay returns the day after a DateLayout date, for exclusive upper bounds
// on timestamp columns.
func nextDay(date string) string {
	t, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return t.AddDate(0, 0, 1).Format(DateLayout)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// normalizePaging applies the default and maximum page size.
func normalizePaging(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}
	return page, pageSize
}

func totalPages(total int64, pageSize int) int {
	n := int((total + int64(pageSize) - 1) / int64(pageSize))
	if n < 1 {
		n = 1
	}
	return n
}
