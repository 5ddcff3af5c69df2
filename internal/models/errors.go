package models

import (
	"errors"
	"fmt"
	"strings"
)

// PatternCompileError reports an invalid search pattern. It is raised before
// any traversal starts.
type PatternCompileError struct {
	Pattern string // Pattern as given by the user
	Err     error  // Underlying regexp error
}

// Error implements the error interface for PatternCompileError.
func (e *PatternCompileError) Error() string {
	return fmt.Sprintf("invalid regex pattern %q: %v", e.Pattern, e.Err)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *PatternCompileError) Unwrap() error {
	return e.Err
}

// TraversalError reports an entry the enumerator could not resolve.
type TraversalError struct {
	Path string // Offending path
	Err  error  // Underlying filesystem error
}

// Error implements the error interface for TraversalError.
func (e *TraversalError) Error() string {
	return fmt.Sprintf("failed to read entry %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *TraversalError) Unwrap() error {
	return e.Err
}

// FileOpenError reports a file selected for content search that could not be opened.
type FileOpenError struct {
	Path string
	Err  error
}

// Error implements the error interface for FileOpenError.
func (e *FileOpenError) Error() string {
	return fmt.Sprintf("failed to open file %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error for error wrapping support.
func (e *FileOpenError) Unwrap() error {
	return e.Err
}

// LineReadError reports a line that could not be read or decoded as text.
type LineReadError struct {
	Path string
	Line int // 1-based line index
	Err  error
}

// Error implements the error interface for LineReadError.
func (e *LineReadError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("failed to read line %d in %s", e.Line, e.Path))
	if e.Err != nil {
		sb.WriteString(fmt.Sprintf(": %v", e.Err))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error wrapping support.
func (e *LineReadError) Unwrap() error {
	return e.Err
}

// ErrInvalidUTF8 is the cause attached to a LineReadError for lines that are not valid text.
var ErrInvalidUTF8 = errors.New("stream did not contain valid UTF-8")

// IsFatal reports whether err belongs to the run-terminating error taxonomy.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var (
		pce *PatternCompileError
		te  *TraversalError
		foe *FileOpenError
		lre *LineReadError
	)
	return errors.As(err, &pce) || errors.As(err, &te) || errors.As(err, &foe) || errors.As(err, &lre)
}

// ErrorPath extracts the filesystem path carried by a taxonomy error, if any.
func ErrorPath(err error) (string, bool) {
	var (
		te  *TraversalError
		foe *FileOpenError
		lre *LineReadError
	)
	switch {
	case errors.As(err, &te):
		return te.Path, true
	case errors.As(err, &foe):
		return foe.Path, true
	case errors.As(err, &lre):
		return lre.Path, true
	}
	return "", false
}

// ExitCode maps a run outcome to a process exit status.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	return 1
}
