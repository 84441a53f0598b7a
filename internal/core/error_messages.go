package core

// # Error Codes Reference
//
// User-facing errors carry a short code support staff can search the logs for.
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key: A record with this key already exists
//	        Patterns: "duplicate key"
//	DB002 - Unique constraint: This value must be unique but already exists
//	        Patterns: "unique constraint", "violates unique"
//	DB003 - Foreign key: Referenced record does not exist
//	        Patterns: "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused: Unable to connect to database
//	DB005 - Connection reset: Database connection was interrupted
//	DB006 - Timeout: Operation timed out
//	DB007 - Deadlock: Database was busy with conflicting operations
//	DB008 - Not found: The record does not exist
//	        Patterns: "record not found"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid date
//	VAL002 - Invalid number
//	VAL003 - Required field is empty
//	VAL004 - Missing column in an imported CSV
//	VAL005 - Value not in the allowed list
//	VAL006 - Out of range (min/max)
//	VAL007 - Invalid CSV
//	VAL000 - Any other validation failure
//
// # Resource Errors (RES001-RES099)
//
//	RES001 - Unknown resource
//	RES002 - Unsupported report format
//
// # Cart Errors (CART001-CART099)
//
//	CART001 - Insufficient stock
//	CART002 - Empty cart
//
// # Report Errors (RPT001-RPT099)
//
//	RPT001 - Too many report renders in progress
//
// # Rate Limiting (RATE001)
//
//	RATE001 - Too many requests
//
// # Fallback (ERR000)
//
//	ERR000 - Unexpected error; check logs for the technical cause.

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so specific patterns come before general ones.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Domain sentinels
	// =========================================================================
	{
		pattern: "insufficient stock",
		msg: UserMessage{
			Message: "Not enough stock for this item",
			Action:  "Reduce the quantity or choose another item",
			Code:    "CART001",
		},
	},
	{
		pattern: "cart is empty",
		msg: UserMessage{
			Message: "The cart is empty",
			Action:  "Add items before checking out",
			Code:    "CART002",
		},
	},
	{
		pattern: "unknown resource",
		msg: UserMessage{
			Message: "Unknown resource",
			Action:  "Check the resource name in the URL",
			Code:    "RES001",
		},
	},
	{
		pattern: "unsupported report format",
		msg: UserMessage{
			Message: "Unsupported report format",
			Action:  "Use pdf, xlsx, csv or html",
			Code:    "RES002",
		},
	},
	{
		pattern: "too many reports",
		msg: UserMessage{
			Message: "Too many reports are being generated",
			Action:  "Please wait a moment and try again",
			Code:    "RPT001",
		},
	},
	{
		pattern: "record not found",
		msg: UserMessage{
			Message: "The record does not exist",
			Action:  "It may have been deleted. Refresh and try again",
			Code:    "DB008",
		},
	},

	// =========================================================================
	// Database Constraint Errors (DB001-DB003)
	// =========================================================================
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Use a different code or edit the existing record",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Create the referenced record first",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Create the referenced record first",
			Code:    "DB003",
		},
	},

	// =========================================================================
	// Database Connection Errors (DB004-DB007)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Narrow the date range or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Narrow the date range or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL099)
	// =========================================================================
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "Invalid date format detected",
			Action:  "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid number",
		msg: UserMessage{
			Message: "Invalid number format detected",
			Action:  "Use a plain decimal number such as 1250.50",
			Code:    "VAL002",
		},
	},
	{
		pattern: "required field",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Fill in every required field",
			Code:    "VAL003",
		},
	},
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "Required column is missing from CSV",
			Action:  "Check that all required columns are present in your file",
			Code:    "VAL004",
		},
	},
	{
		pattern: "must be one of",
		msg: UserMessage{
			Message: "Value is not in the allowed list",
			Action:  "Check the allowed values for this field",
			Code:    "VAL005",
		},
	},
	{
		pattern: "must be at",
		msg: UserMessage{
			Message: "Value is out of range",
			Action:  "Check the minimum and maximum for this field",
			Code:    "VAL006",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure the file is comma-separated with a header row",
			Code:    "VAL007",
		},
	},
	{
		pattern: "validation failed",
		msg: UserMessage{
			Message: "Some fields are invalid",
			Action:  "Correct the highlighted fields and try again",
			Code:    "VAL000",
		},
	},

	// =========================================================================
	// Rate Limiting (RATE001)
	// =========================================================================
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Field validation errors map by their first field message so a single bad
// date reports VAL001 rather than the generic VAL000.
//
//	msg := MapError(fmt.Errorf("insert: %w", ErrInsufficientStock))
//	// msg.Code == "CART001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	if ve, ok := AsValidation(err); ok && len(ve) > 0 {
		if msg, ok := matchPattern(ve[0].Message); ok {
			return msg
		}
		return matchOrDefault("validation failed")
	}

	return matchOrDefault(err.Error())
}

func matchOrDefault(s string) UserMessage {
	if msg, ok := matchPattern(s); ok {
		return msg
	}
	return defaultMessage
}

func matchPattern(s string) (UserMessage, bool) {
	s = strings.ToLower(s)
	for _, ep := range errorPatterns {
		if strings.Contains(s, ep.pattern) {
			return ep.msg, true
		}
	}
	return UserMessage{}, false
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a known pattern.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError pairs a technical error with its user-facing message.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
