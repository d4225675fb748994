// Package core provides the curve matching and classification engine.
//
// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// The CLI prints them on failure and the report server returns them in JSON errors.
//
// Error codes are grouped by category:
//
// # Pipeline Errors (ALN, STA, CFG, RES)
//
//	ALN001 - Grid mismatch: Training and ideal data do not share the same x values
//	         Action: Make both files cover the same x grid in the same order
//	         Patterns: "grid alignment mismatch"
//
//	STA001 - Stage order: A pipeline stage ran before its prerequisite
//	         Action: Run matching before thresholds and classification
//	         Patterns: "stage not yet computed"
//
//	CFG001 - Missing input: A required pipeline input is missing or empty
//	         Action: Check the training series list and input files
//	         Patterns: "missing configuration"
//
//	CFG002 - Threshold collision: Two training series selected the same ideal function
//	         Action: Use MATCH_COLLISION_POLICY=last-write-wins or the global policy
//	         Patterns: "threshold collision"
//
//	RES001 - Empty result: No test point was assigned to an ideal function
//	         Action: Check the test data or set MATCH_ALLOW_EMPTY_RESULT=true
//	         Patterns: "empty result table"
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Missing column: Required column is missing from CSV
//	         Action: Check that all required columns are present in your file
//	         Patterns: "missing required column"
//
//	VAL002 - Invalid number: A cell is not a finite number
//	         Action: Remove text and empty cells from numeric columns
//	         Patterns: "invalid number"
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File not found: An input file does not exist
//	          Action: Check TRAINING_CSV, IDEAL_CSV and TEST_CSV
//	          Patterns: "no such file", "file does not exist"
//
//	FILE002 - Invalid CSV: File is not a valid CSV
//	          Action: Ensure file is comma-separated with consistent columns
//	          Patterns: "invalid csv"
//
//	FILE003 - Empty file: The file has no header or no data rows
//	          Action: Provide a CSV file with a header and data rows
//	          Patterns: "empty file"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Connection refused: Unable to connect to database
//	DB002 - Cannot open: Database file cannot be opened
//	DB003 - Timeout: Operation timed out
//	DB004 - Invalid table name: Table name is not a plain identifier
//	DB005 - Table not found: The requested table does not exist
//
// # Run Errors (RUN001-RUN099)
//
//	RUN001 - Cancelled: The run was cancelled
//	RUN002 - Deadline: The run timed out
//	RUN003 - Unknown dataset: Dataset is not registered
//
// # Default Error (ERR000)
//
// Fallback when no specific pattern matches:
//
//	ERR000 - Unknown error: An unexpected error occurred
//	         Action: Please try again or contact support
//
// # Pattern Matching
//
// Error patterns are matched case-insensitively using strings.Contains.
// The first matching pattern wins, so more specific patterns should be
// defined before general ones.
package core

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
// Patterns are matched using strings.Contains, so partial matches work.
// The first matching pattern wins, so order matters.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Pipeline Errors
	// =========================================================================
	{
		pattern: "grid alignment mismatch",
		msg: UserMessage{
			Message: "Training and ideal data do not share the same x values",
			Action:  "Make both files cover the same x grid in the same order",
			Code:    "ALN001",
		},
	},
	{
		pattern: "stage not yet computed",
		msg: UserMessage{
			Message: "A pipeline stage ran before its prerequisite",
			Action:  "Run matching before thresholds and classification",
			Code:    "STA001",
		},
	},
	{
		pattern: "threshold collision",
		msg: UserMessage{
			Message: "Two training series selected the same ideal function",
			Action:  "Use MATCH_COLLISION_POLICY=last-write-wins or the global policy",
			Code:    "CFG002",
		},
	},
	{
		pattern: "missing configuration",
		msg: UserMessage{
			Message: "A required pipeline input is missing or empty",
			Action:  "Check the training series list and input files",
			Code:    "CFG001",
		},
	},
	{
		pattern: "empty result table",
		msg: UserMessage{
			Message: "No test point was assigned to an ideal function",
			Action:  "Check the test data or set MATCH_ALLOW_EMPTY_RESULT=true",
			Code:    "RES001",
		},
	},

	// =========================================================================
	// Validation Errors (VAL001-VAL002)
	// =========================================================================
	{
		pattern: "missing required column",
		msg: UserMessage{
			Message: "Required column is missing from CSV",
			Action:  "Check that all required columns are present in your file",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid number",
		msg: UserMessage{
			Message: "A cell is not a finite number",
			Action:  "Remove text and empty cells from numeric columns",
			Code:    "VAL002",
		},
	},

	// =========================================================================
	// File Errors (FILE001-FILE003)
	// =========================================================================
	{
		pattern: "no such file",
		msg: UserMessage{
			Message: "An input file does not exist",
			Action:  "Check TRAINING_CSV, IDEAL_CSV and TEST_CSV",
			Code:    "FILE001",
		},
	},
	{
		pattern: "file does not exist",
		msg: UserMessage{
			Message: "An input file does not exist",
			Action:  "Check TRAINING_CSV, IDEAL_CSV and TEST_CSV",
			Code:    "FILE001",
		},
	},
	{
		pattern: "invalid csv",
		msg: UserMessage{
			Message: "File is not a valid CSV",
			Action:  "Ensure file is comma-separated with consistent columns",
			Code:    "FILE002",
		},
	},
	{
		pattern: "empty file",
		msg: UserMessage{
			Message: "The file has no header or no data rows",
			Action:  "Provide a CSV file with a header and data rows",
			Code:    "FILE003",
		},
	},

	// =========================================================================
	// Database Errors (DB001-DB005)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Check DATABASE_URL and that the database is running",
			Code:    "DB001",
		},
	},
	{
		pattern: "unable to open database",
		msg: UserMessage{
			Message: "Database file cannot be opened",
			Action:  "Check that the directory of DATABASE_URL exists and is writable",
			Code:    "DB002",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try again later or raise DB_WRITE_TIMEOUT",
			Code:    "DB003",
		},
	},
	{
		pattern: "invalid table name",
		msg: UserMessage{
			Message: "Table name is not a plain identifier",
			Action:  "Use letters, digits and underscores only",
			Code:    "DB004",
		},
	},
	{
		pattern: "table not found",
		msg: UserMessage{
			Message: "The requested table does not exist",
			Action:  "Run the pipeline before reading its tables",
			Code:    "DB005",
		},
	},

	// =========================================================================
	// Run Errors (RUN001-RUN003)
	// =========================================================================
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "The run was cancelled",
			Action:  "Start the run again",
			Code:    "RUN001",
		},
	},
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "The run timed out",
			Action:  "Try again with smaller inputs",
			Code:    "RUN002",
		},
	},
	{
		pattern: "unknown dataset",
		msg: UserMessage{
			Message: "Unknown dataset",
			Action:  "This dataset is not configured",
			Code:    "RUN003",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// This is the fallback for unexpected errors. Support staff should check
// application logs for the original technical error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It searches through known error patterns (case-insensitive) and returns
// the first match. If no pattern matches, a generic fallback message with
// code ERR000 is returned.
//
// Example:
//
//	msg := MapError(err) // err wraps ErrAlignment
//	// msg.Code == "ALN001"
//	// msg.Message == "Training and ideal data do not share the same x values"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
//
// This is the primary function for displaying errors to end users.
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing checks if an error matches a known pattern and should be shown to users.
// Returns true if the error matches a specific pattern (not the generic ERR000 fallback).
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	msg := MapError(err)
	return msg.Code != defaultMessage.Code
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

// NewUserError creates a UserError by mapping a technical error to a user-friendly message.
// The returned UserError preserves the original technical error for logging via Unwrap(),
// while providing a clean user message via Error().
//
// Returns nil if err is nil.
//
// Example:
//
//	ue := NewUserError(err)
//	slog.Error("run failed", "error", ue.Technical)
//	fmt.Fprintln(os.Stderr, ue.Error(), ue.User.Code)
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
