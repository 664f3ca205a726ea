package drain

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrResubmitDisabled indicates a job was lost while resubmission is off
	ErrResubmitDisabled = errors.New("job lost and resubmission is disabled (NO_RESUB)")

	// ErrParseRetriesExceeded indicates a job kept producing unparsable output
	ErrParseRetriesExceeded = errors.New("result parse retries exceeded")

	// ErrIndexOutOfRange indicates a job targets a slot past the destination
	ErrIndexOutOfRange = errors.New("job index out of destination range")

	// ErrCheckpointNotFound indicates the checkpoint file does not exist
	ErrCheckpointNotFound = errors.New("checkpoint not found")

	// ErrCheckpointMalformed indicates the checkpoint could not be decoded
	ErrCheckpointMalformed = errors.New("malformed checkpoint")

	// ErrCheckpointVersion indicates an incompatible checkpoint format
	ErrCheckpointVersion = errors.New("incompatible checkpoint version")

	// ErrNoGeometry indicates an optimization finished without a geometry
	ErrNoGeometry = errors.New("optimization output has no geometry")
)

// EnvironmentError is a filesystem or scheduler failure outside the job
// error taxonomy. It always ends the drain.
type EnvironmentError struct {
	Op   string // Operation that failed (e.g., "write input", "submit")
	Path string // File involved
	Err  error  // Underlying error
}

func (e *EnvironmentError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *EnvironmentError) Unwrap() error {
	return e.Err
}

// NewEnvironmentError creates a new EnvironmentError
func NewEnvironmentError(op string, path string, err error) *EnvironmentError {
	return &EnvironmentError{
		Op:   op,
		Path: path,
		Err:  err,
	}
}

// IsEnvironmentError checks if an error is an EnvironmentError
func IsEnvironmentError(err error) bool {
	var ee *EnvironmentError
	return errors.As(err, &ee)
}
