package core

// error_messages.go maps import failures to operator-facing messages with a
// stable code, printed by the CLI and returned by the HTTP API.
//
// # Error Codes Reference
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - File not found: The input path does not exist
//	         Action: Check the path and try again
//	IMP002 - Already imported: A file with this name was imported before
//	         Action: Nothing to do; each filename is imported once
//	IMP003 - File too large: File exceeds the configured size limit
//	         Action: Check the file is a D0010 flow file
//	IMP004 - Not a file: The path names a directory or device
//	         Action: Pass flow file paths, not directories
//	IMP005 - System busy: Another import is running
//	         Action: Wait for it to finish and try again
//	IMP006 - Timed out: The import exceeded its time limit
//	         Action: Import fewer files per batch
//	IMP007 - Cancelled: The import was cancelled
//	         Action: Run the import again
//
// # Parse Errors (PRS001-PRS099)
//
//	PRS001 - Invalid record: A record field is malformed
//	PRS002 - Out of sequence: A record appears before its MPAN/meter context
//	PRS003 - No readings: The file contains no 030 reading records
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Storage failure: The database rejected the import (rolled back)
//	DB002 - Connection refused: Unable to connect to database
//
// # Default Error (ERR000)
//
//	ERR000 - Unknown error: An unexpected error occurred
//
// # Matching
//
// Typed errors are matched first with errors.As / errors.Is, in table order.
// Remaining errors fall back to case-insensitive substring patterns, which
// catch driver errors that were not wrapped in a StorageError.

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/flowimport/internal/d0010"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string `json:"message"` // What happened
	Action  string `json:"action"`  // What to do about it
	Code    string `json:"code"`    // Error code for support reference
}

// errorMatcher maps an error class to its message.
type errorMatcher struct {
	match func(error) bool
	msg   UserMessage
}

func as[T error](err error) bool {
	var target T
	return errors.As(err, &target)
}

// errorMatchers are checked in order; the first match wins. Parse errors come
// before FileError because FileError wraps them.
var errorMatchers = []errorMatcher{
	{
		match: as[*NotFoundError],
		msg: UserMessage{
			Message: "File not found",
			Action:  "Check the path and try again",
			Code:    "IMP001",
		},
	},
	{
		match: as[*DuplicateError],
		msg: UserMessage{
			Message: "File has already been imported",
			Action:  "Nothing to do; each filename is imported once",
			Code:    "IMP002",
		},
	},
	{
		match: func(err error) bool { return errors.Is(err, ErrFileTooLarge) },
		msg: UserMessage{
			Message: "File exceeds the configured size limit",
			Action:  "Check the file is a D0010 flow file",
			Code:    "IMP003",
		},
	},
	{
		match: func(err error) bool { return errors.Is(err, ErrNotRegularFile) },
		msg: UserMessage{
			Message: "Path is not a regular file",
			Action:  "Pass flow file paths, not directories",
			Code:    "IMP004",
		},
	},
	{
		match: func(err error) bool { return errors.Is(err, ErrTooManyImports) },
		msg: UserMessage{
			Message: "Another import is running",
			Action:  "Wait for it to finish and try again",
			Code:    "IMP005",
		},
	},
	{
		match: as[*d0010.FormatError],
		msg: UserMessage{
			Message: "File contains an invalid record",
			Action:  "Fix the record at the reported line",
			Code:    "PRS001",
		},
	},
	{
		match: as[*d0010.SequenceError],
		msg: UserMessage{
			Message: "Record appears out of sequence",
			Action:  "Each 030 reading must follow a 026 MPAN and a 028 meter record",
			Code:    "PRS002",
		},
	},
	{
		match: as[*d0010.EmptyResultError],
		msg: UserMessage{
			Message: "File contains no readings",
			Action:  "Check the file has 030 reading records",
			Code:    "PRS003",
		},
	},
	{
		match: func(err error) bool { return errors.Is(err, context.DeadlineExceeded) },
		msg: UserMessage{
			Message: "Import timed out",
			Action:  "Import fewer files per batch",
			Code:    "IMP006",
		},
	},
	{
		match: func(err error) bool { return errors.Is(err, context.Canceled) },
		msg: UserMessage{
			Message: "Import was cancelled",
			Action:  "Run the import again",
			Code:    "IMP007",
		},
	},
	{
		match: as[*StorageError],
		msg: UserMessage{
			Message: "Database rejected the import; nothing was saved",
			Action:  "Check database logs and run the import again",
			Code:    "DB001",
		},
	},
}

// errorPattern defines a substring to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB002",
		},
	},
	{
		pattern: "no such file or directory",
		msg: UserMessage{
			Message: "File not found",
			Action:  "Check the path and try again",
			Code:    "IMP001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000). Operators should
// check the logs for the technical error.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the logs for details",
	Code:    "ERR000",
}

// MapError converts a technical error to an operator-facing message. It
// returns the zero UserMessage for a nil error.
//
//	msg := MapError(&DuplicateError{Filename: "a.uff"})
//	// msg.Code == "IMP002"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, m := range errorMatchers {
		if m.match(err) {
			return m.msg
		}
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
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
