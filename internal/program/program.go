// Package program adapts external quantum-chemistry programs to the drain
// engine: writing inputs, reading outputs, and naming the files a job leaves
// behind.
package program

import (
	"fmt"
	"strings"
)

// Procedure is the kind of calculation requested from a program.
type Procedure int

const (
	SinglePt Procedure = iota
	Opt
	Freq
)

func (p Procedure) String() string {
	switch p {
	case SinglePt:
		return "single-point"
	case Opt:
		return "opt"
	case Freq:
		return "freq"
	default:
		return fmt.Sprintf("Procedure(%d)", int(p))
	}
}

// ParseProcedure parses "opt", "freq" or "single-point" (also "sp", "single").
func ParseProcedure(s string) (Procedure, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "opt", "optimize", "optimization":
		return Opt, nil
	case "freq", "frequency", "frequencies":
		return Freq, nil
	case "sp", "single", "singlept", "single-point", "":
		return SinglePt, nil
	}
	return SinglePt, fmt.Errorf("unknown procedure %q", s)
}

// Result is the success payload of ReadOutput.
type Result struct {
	Energy float64 `json:"energy"`
	Geom   *Geom   `json:"geom,omitempty"` // nil when the output carries no geometry
	Time   float64 `json:"time"`           // wall time in seconds reported by the program
}

// Program is the per-job capability the drain engine needs. Filename is the
// job's base name without extension; Infile and Outfile append the
// program's extensions.
type Program interface {
	Filename() string
	SetFilename(name string)
	Extension() string
	Infile() string
	Outfile() string

	// WriteInput writes the input file for proc. Errors are filesystem
	// failures, not job errors.
	WriteInput(proc Procedure) error

	// ReadOutput is safe to call before the program has finished; it then
	// returns one of the transient *Error kinds.
	ReadOutput() (*Result, error)

	// AssociatedFiles lists every file the job creates, for cleanup.
	AssociatedFiles() []string
}

// Kind names the supported programs in manifests and config.
type Kind string

const (
	KindMolpro Kind = "molpro"
	KindMopac  Kind = "mopac"
)

// ParseKind validates a program name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindMolpro, KindMopac:
		return k, nil
	}
	return "", fmt.Errorf("unknown program %q (want molpro or mopac)", s)
}
