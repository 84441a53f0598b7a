package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "nil error returns empty",
			err:         nil,
			wantCode:    "",
			wantMessage: "",
		},
		{
			name:        "duplicate key maps correctly",
			err:         errors.New("ERROR: duplicate key value violates unique constraint"),
			wantCode:    "DB001",
			wantMessage: "A record with this key already exists",
		},
		{
			name:        "conflict sentinel maps to duplicate key",
			err:         fmt.Errorf("create payments: %w", ErrConflict),
			wantCode:    "DB001",
			wantMessage: "A record with this key already exists",
		},
		{
			name:        "unique constraint maps correctly",
			err:         errors.New("ERROR: unique constraint violated"),
			wantCode:    "DB002",
			wantMessage: "This value must be unique but already exists",
		},
		{
			name:        "connection refused maps correctly",
			err:         errors.New("dial tcp: connection refused"),
			wantCode:    "DB004",
			wantMessage: "Unable to connect to database",
		},
		{
			name:        "not found sentinel",
			err:         fmt.Errorf("get employees: %w", ErrNotFound),
			wantCode:    "DB008",
			wantMessage: "The record does not exist",
		},
		{
			name:        "insufficient stock",
			err:         fmt.Errorf("add to cart: %w", ErrInsufficientStock),
			wantCode:    "CART001",
			wantMessage: "Not enough stock for this item",
		},
		{
			name:        "empty cart",
			err:         ErrEmptyCart,
			wantCode:    "CART002",
			wantMessage: "The cart is empty",
		},
		{
			name:        "unknown resource",
			err:         fmt.Errorf("%w: widgets", ErrUnknownResource),
			wantCode:    "RES001",
			wantMessage: "Unknown resource",
		},
		{
			name:        "too many reports",
			err:         ErrTooManyReports,
			wantCode:    "RPT001",
			wantMessage: "Too many reports are being generated",
		},
		{
			name:        "validation error uses first field message",
			err:         invalid("spent_on", "invalid date format (use YYYY-MM-DD)"),
			wantCode:    "VAL001",
			wantMessage: "Invalid date format detected",
		},
		{
			name:        "validation error without specific pattern",
			err:         invalid("net_salary", "deductions exceed earnings"),
			wantCode:    "VAL000",
			wantMessage: "Some fields are invalid",
		},
		{
			name:        "rate limit maps correctly",
			err:         errors.New("rate limit exceeded"),
			wantCode:    "RATE001",
			wantMessage: "Too many requests",
		},
		{
			name:        "unknown error returns default",
			err:         errors.New("some random internal error"),
			wantCode:    "ERR000",
			wantMessage: "An unexpected error occurred",
		},
		{
			name:        "case insensitive matching",
			err:         errors.New("DUPLICATE KEY value violates"),
			wantCode:    "DB001",
			wantMessage: "A record with this key already exists",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if got.Message != tt.wantMessage {
				t.Errorf("MapError() message = %q, want %q", got.Message, tt.wantMessage)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrEmptyCart)

	expected := "The cart is empty (Code: CART002). Add items before checking out"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil error is not user facing", nil, false},
		{"known error is user facing", errors.New("duplicate key"), true},
		{"unknown error is not user facing", errors.New("random internal error xyz"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUserFacing(tt.err); got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := fmt.Errorf("checkout: %w", ErrInsufficientStock)
		userErr := NewUserError(techErr)

		if userErr.Error() != "Not enough stock for this item" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}

		if !errors.Is(userErr, ErrInsufficientStock) {
			t.Error("Unwrap() should expose the sentinel")
		}
	})
}
