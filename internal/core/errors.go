package core

import (
	"errors"
	"fmt"
)

var (
	// ErrFileTooLarge is wrapped in a *FileError when a file exceeds the
	// configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrNotRegularFile is wrapped in a *FileError when the path names a
	// directory or device.
	ErrNotRegularFile = errors.New("not a regular file")
)

// NotFoundError is returned when an input path does not exist.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return "file not found: " + e.Path
}

// DuplicateError is returned when a filename has already been imported. It
// comes either from the pre-parse check or from the unique constraint on
// flow file names when two imports race.
type DuplicateError struct {
	Filename string
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("file %s has already been imported", e.Filename)
}

// StorageError wraps a failure of the underlying store. Any StorageError
// during a write means the file's transaction was rolled back.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// FileError attaches the input path to a read or parse failure.
type FileError struct {
	Path string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}
