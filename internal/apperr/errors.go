// Package apperr defines the error taxonomy shared by the engine and its surfaces.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrConflict      = errors.New("conflict")
	ErrAlreadyExists = errors.New("already exists")
	ErrBadPath       = errors.New("bad path")
	ErrDirNotEmpty   = errors.New("directory not empty")
	ErrInvalid       = errors.New("invalid input")
)

// Wire codes reported to callers.
const (
	CodeBadPath       = "BAD_PATH"
	CodeNotFound      = "NOT_FOUND"
	CodeDirNotEmpty   = "DIR_NOT_EMPTY"
	CodeAlreadyExists = "ALREADY_EXISTS"
	CodeConflict      = "CONFLICT"
	CodeInvalid       = "INVALID"
	CodeInternal      = "INTERNAL"
)

// Error carries a wire code and a human message on top of a sentinel.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// BadPath reports a path that failed normalization.
func BadPath(format string, args ...any) error {
	return &Error{Code: CodeBadPath, Message: fmt.Sprintf(format, args...), Err: ErrBadPath}
}

// NotFound reports a missing project, file or directory.
func NotFound(what string) error {
	return &Error{Code: CodeNotFound, Message: what, Err: ErrNotFound}
}

// AlreadyExists reports a uniqueness violation on (project, path) or slug.
func AlreadyExists(format string, args ...any) error {
	return &Error{Code: CodeAlreadyExists, Message: fmt.Sprintf(format, args...), Err: ErrAlreadyExists}
}

// DirNotEmpty reports a guarded directory delete.
func DirNotEmpty(path string) error {
	return &Error{Code: CodeDirNotEmpty, Message: path, Err: ErrDirNotEmpty}
}

// Invalid reports malformed input that is not a path problem.
func Invalid(format string, args ...any) error {
	return &Error{Code: CodeInvalid, Message: fmt.Sprintf(format, args...), Err: ErrInvalid}
}

// Code maps any error to its wire code.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrBadPath):
		return CodeBadPath
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrDirNotEmpty):
		return CodeDirNotEmpty
	case errors.Is(err, ErrAlreadyExists):
		return CodeAlreadyExists
	case errors.Is(err, ErrConflict):
		return CodeConflict
	case errors.Is(err, ErrInvalid):
		return CodeInvalid
	default:
		return CodeInternal
	}
}
