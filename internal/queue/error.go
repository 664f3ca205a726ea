package queue

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Common errors
var (
	// ErrUnknownQueue indicates an unsupported queue type
	ErrUnknownQueue = errors.New("unknown queue type")

	// ErrInvalidOptions indicates unusable queue options
	ErrInvalidOptions = errors.New("invalid queue options")

	// ErrJobSubmissionFailed indicates job submission failed
	ErrJobSubmissionFailed = errors.New("job submission failed")

	// ErrJobIDParseFailed indicates parsing job ID from output failed
	ErrJobIDParseFailed = errors.New("failed to parse job ID from scheduler output")

	// ErrStatusFailed indicates the status command failed
	ErrStatusFailed = errors.New("failed to query scheduler status")
)

// ParseError represents an error parsing status command output
type ParseError struct {
	Scheduler string // Scheduler name (e.g., "SLURM", "PBS")
	Line      int    // Line number where error occurred
	Content   string // Line content
	Reason    string // Reason for parse failure
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s parse error at line %d (%s): %s",
			e.Scheduler, e.Line, e.Content, e.Reason)
	}
	return fmt.Sprintf("%s parse error: %s", e.Scheduler, e.Reason)
}

// SubmissionError represents an error during job submission
type SubmissionError struct {
	Scheduler string // Scheduler name
	Script    string // Script path
	Output    string // Scheduler output
	Err       error  // Underlying error
}

func (e *SubmissionError) Error() string {
	if e.Output != "" {
		return fmt.Sprintf("%s submission failed for %s: %v\nOutput: %s",
			e.Scheduler, e.Script, e.Err, e.Output)
	}
	return fmt.Sprintf("%s submission failed for %s: %v",
		e.Scheduler, e.Script, e.Err)
}

func (e *SubmissionError) Unwrap() error {
	return e.Err
}

// Is allows errors.Is to match ErrJobSubmissionFailed
func (e *SubmissionError) Is(target error) bool {
	return target == ErrJobSubmissionFailed
}

// ScriptCreationError represents an error creating a batch script
type ScriptCreationError struct {
	Path string // Script path
	Err  error  // Underlying error
}

func (e *ScriptCreationError) Error() string {
	return fmt.Sprintf("failed to create script %s: %v", e.Path, e.Err)
}

func (e *ScriptCreationError) Unwrap() error {
	return e.Err
}

// Helper functions for creating errors

// NewParseError creates a new ParseError
func NewParseError(scheduler string, line int, content string, reason string) *ParseError {
	return &ParseError{
		Scheduler: scheduler,
		Line:      line,
		Content:   content,
		Reason:    reason,
	}
}

// NewSubmissionError creates a new SubmissionError. Stderr of a failed
// command is folded into Output.
func NewSubmissionError(scheduler string, script string, output string, err error) *SubmissionError {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		output = strings.TrimSpace(output + "\n" + string(exitErr.Stderr))
	}
	return &SubmissionError{
		Scheduler: scheduler,
		Script:    script,
		Output:    output,
		Err:       err,
	}
}

// NewScriptCreationError creates a new ScriptCreationError
func NewScriptCreationError(path string, err error) *ScriptCreationError {
	return &ScriptCreationError{
		Path: path,
		Err:  err,
	}
}

// IsParseError checks if an error is a ParseError
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsSubmissionError checks if an error is a SubmissionError
func IsSubmissionError(err error) bool {
	var se *SubmissionError
	return errors.As(err, &se)
}
