package d0010

import "fmt"

// FormatError reports a record whose fields violate the structural rules of
// its record type: a malformed MPAN, an empty meter serial, a date that is not
// 14 characters, a non-numeric reading value, or too few fields.
type FormatError struct {
	Field  string // What was being parsed: "MPAN", "meter serial", "reading date"...
	Value  string // The offending raw value
	Reason string
}

func (e *FormatError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

// SequenceError reports a record that appears where the file grammar does not
// allow it, such as a reading before any MPAN/meter context.
type SequenceError struct {
	Reason string
}

func (e *SequenceError) Error() string {
	return "out of sequence: " + e.Reason
}

// EmptyResultError is returned when a file parses cleanly but carries no
// reading records.
type EmptyResultError struct{}

func (e *EmptyResultError) Error() string {
	return "no readings found in file"
}

// LineError attaches the 1-based line number and raw line text to a record
// failure. Use errors.As to reach the FormatError or SequenceError inside.
type LineError struct {
	Line int
	Text string
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %v (line: %q)", e.Line, e.Err, e.Text)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

func fieldCountError(tag string, want int, fields []string) *FormatError {
	return &FormatError{
		Field:  tag + " record",
		Value:  joinFields(fields),
		Reason: fmt.Sprintf("expected at least %d fields, got %d", want, len(fields)),
	}
}
