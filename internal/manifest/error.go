package manifest

import "errors"

// Common errors
var (
	// ErrInvalidManifest indicates a manifest failed validation
	ErrInvalidManifest = errors.New("invalid manifest")

	// ErrWrongProgram indicates jobs were requested for a program the
	// manifest does not describe
	ErrWrongProgram = errors.New("manifest describes a different program")
)
