package core

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound is returned when a record, cart line, or audit entry does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a write would violate a unique key.
	ErrConflict = errors.New("duplicate key conflict")

	// ErrUnknownResource is returned for a resource path that is not registered.
	ErrUnknownResource = errors.New("unknown resource")

	// ErrInsufficientStock is returned when a cart or checkout asks for more than is on hand.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrEmptyCart is returned when checking out a cart without lines.
	ErrEmptyCart = errors.New("cart is empty")
)

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// ValidationErrors collects every field problem found in one input.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	parts := make([]string, len(v))
	for i, fe := range v {
		parts[i] = fe.Error()
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add appends a field error.
func (v *ValidationErrors) Add(field, format string, args ...any) {
	*v = append(*v, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

// Err returns nil when empty, otherwise the sorted errors.
func (v ValidationErrors) Err() error {
	if len(v) == 0 {
		return nil
	}
	sort.SliceStable(v, func(i, j int) bool { return v[i].Field < v[j].Field })
	return v
}

// AsValidation extracts ValidationErrors from err.
func AsValidation(err error) (ValidationErrors, bool) {
	var ve ValidationErrors
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// invalid builds a single-field validation error.
func invalid(field, format string, args ...any) error {
	var ve ValidationErrors
	ve.Add(field, format, args...)
	return ve
}

// SQLSTATE codes translated into package errors.
const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// checkField derives the column from a default check constraint name such
// as "payments_amount_check".
func checkField(pgErr *pgconn.PgError) string {
	name := strings.TrimPrefix(pgErr.ConstraintName, pgErr.TableName+"_")
	if field, ok := strings.CutSuffix(name, "_check"); ok && field != "" {
		return field
	}
	return pgErr.TableName
}

// translateDBError converts driver errors into package sentinels.
func translateDBError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
		case pgCheckViolation:
			return invalid(checkField(pgErr), "value violates check %s", pgErr.ConstraintName)
		}
	}
	return err
}
