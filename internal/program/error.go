package program

import (
	"errors"
	"fmt"
)

// Error kinds reported by ReadOutput. Only ErrErrorInOutput is fatal to a
// drain; the rest mean "not finished yet" unless the job turns out lost.
var (
	// ErrFileNotFound indicates the output file has not been created yet
	ErrFileNotFound = errors.New("output file not found")

	// ErrErrorInOutput indicates the program reported a failure in its output
	ErrErrorInOutput = errors.New("error reported in output")

	// ErrResultNotFound indicates the output exists but holds no result yet
	ErrResultNotFound = errors.New("result not found in output")

	// ErrResultParse indicates a result was found but failed to parse
	ErrResultParse = errors.New("failed to parse result")

	// ErrUnsupportedProcedure indicates the program cannot run a procedure
	ErrUnsupportedProcedure = errors.New("procedure not supported")
)

// Error is the failure payload of ReadOutput: one of the kinds above plus the
// file that produced it.
type Error struct {
	Kind error  // One of ErrFileNotFound, ErrErrorInOutput, ErrResultNotFound, ErrResultParse
	Path string // Offending file
	Err  error  // Underlying error (optional)
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v in %s: %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("%v in %s", e.Kind, e.Path)
}

func (e *Error) Unwrap() error {
	return e.Kind
}

// Is allows errors.Is to match on the kind as well as on *Error itself.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return t.Kind == nil || t.Kind == e.Kind
	}
	return target == e.Kind
}

// Helper functions for creating errors

func NewFileNotFoundError(path string) error {
	return &Error{Kind: ErrFileNotFound, Path: path}
}

func NewErrorInOutputError(path string) error {
	return &Error{Kind: ErrErrorInOutput, Path: path}
}

func NewResultNotFoundError(path string) error {
	return &Error{Kind: ErrResultNotFound, Path: path}
}

func NewResultParseError(path string, err error) error {
	return &Error{Kind: ErrResultParse, Path: path, Err: err}
}

// IsTransient reports whether err is one of the kinds a drain absorbs by
// waiting or resubmitting.
func IsTransient(err error) bool {
	return errors.Is(err, ErrFileNotFound) ||
		errors.Is(err, ErrResultNotFound) ||
		errors.Is(err, ErrResultParse)
}

// IsFatal reports whether err is an error reported by the program itself.
func IsFatal(err error) bool {
	return errors.Is(err, ErrErrorInOutput)
}

// PathOf returns the offending file of a program error, or "" for any other
// error.
func PathOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Path
	}
	return ""
}
