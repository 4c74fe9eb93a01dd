package core

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/JonMunkholm/flowimport/internal/d0010"
)

func TestMapError(t *testing.T) {
	lineErr := func(inner error) error {
		return &FileError{Path: "f.uff", Err: &d0010.LineError{Line: 3, Text: "x", Err: inner}}
	}

	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "nil error returns empty", err: nil, wantCode: ""},
		{name: "not found", err: &NotFoundError{Path: "a.uff"}, wantCode: "IMP001"},
		{name: "duplicate", err: &DuplicateError{Filename: "a.uff"}, wantCode: "IMP002"},
		{name: "wrapped duplicate", err: fmt.Errorf("import: %w", &DuplicateError{Filename: "a.uff"}), wantCode: "IMP002"},
		{name: "too large", err: &FileError{Path: "a.uff", Err: ErrFileTooLarge}, wantCode: "IMP003"},
		{name: "directory", err: &FileError{Path: "dir", Err: ErrNotRegularFile}, wantCode: "IMP004"},
		{name: "busy", err: ErrTooManyImports, wantCode: "IMP005"},
		{name: "format", err: lineErr(&d0010.FormatError{Field: "MPAN", Value: "1"}), wantCode: "PRS001"},
		{name: "sequence", err: lineErr(&d0010.SequenceError{Reason: "x"}), wantCode: "PRS002"},
		{name: "empty", err: &FileError{Path: "f.uff", Err: &d0010.EmptyResultError{}}, wantCode: "PRS003"},
		{name: "storage", err: &StorageError{Op: "commit", Err: errors.New("disk full")}, wantCode: "DB001"},
		{name: "storage timeout", err: &StorageError{Op: "commit", Err: context.DeadlineExceeded}, wantCode: "IMP006"},
		{name: "cancelled", err: context.Canceled, wantCode: "IMP007"},
		{name: "raw connection refused", err: errors.New("dial tcp: connection refused"), wantCode: "DB002"},
		{name: "case insensitive pattern", err: errors.New("Connection Refused"), wantCode: "DB002"},
		{name: "unknown", err: errors.New("some random internal error"), wantCode: "ERR000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError(%v).Code = %q, want %q", tt.err, got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Errorf("MapError(%v) has empty message", tt.err)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}

	got := FormatUserError(&DuplicateError{Filename: "a.uff"})
	want := "File has already been imported (Code: IMP002). Nothing to do; each filename is imported once"
	if got != want {
		t.Errorf("FormatUserError = %q, want %q", got, want)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{&NotFoundError{Path: "x"}, true},
		{errors.New("mystery"), false},
	}

	for _, tt := range tests {
		if got := IsUserFacing(tt.err); got != tt.want {
			t.Errorf("IsUserFacing(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}

func TestErrorStrings(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&NotFoundError{Path: "/in/a.uff"}, "file not found: /in/a.uff"},
		{&DuplicateError{Filename: "a.uff"}, "file a.uff has already been imported"},
		{&StorageError{Op: "commit", Err: errors.New("boom")}, "storage: commit: boom"},
		{&FileError{Path: "a.uff", Err: ErrFileTooLarge}, "a.uff: file too large"},
	}

	for _, tt := range tests {
		if got := tt.err.Error(); got != tt.want {
			t.Errorf("Error() = %q, want %q", got, tt.want)
		}
	}
}
