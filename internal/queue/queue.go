// Package queue provides a unified interface for the batch schedulers jobs
// are drained through: Slurm, PBS and a local bash runner.
package queue

import (
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"
)

// Type represents the type of job scheduler
type Type string

const (
	TypeSlurm Type = "slurm"
	TypePbs   Type = "pbs"
	TypeLocal Type = "local"
)

// ParseType validates a queue type name.
func ParseType(s string) (Type, error) {
	switch t := Type(strings.ToLower(strings.TrimSpace(s))); t {
	case TypeSlurm, TypePbs, TypeLocal:
		return t, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownQueue, s)
}

// Queue is what the drain engine needs from a scheduler backend.
type Queue interface {
	// WriteSubmitScript writes one script at scriptPath that runs the
	// program on every input file.
	WriteSubmitScript(infiles []string, scriptPath string) error

	// Submit submits scriptPath and returns the scheduler job id.
	Submit(scriptPath string) (string, error)

	// Status returns the set of job ids the scheduler reports as active.
	Status() (map[string]struct{}, error)

	ChunkSize() int
	JobLimit() int
	SleepInterval() time.Duration
	ScriptExt() string
	NoDelete() bool
}

// Options are the knobs shared by every backend.
type Options struct {
	ChunkSize     int
	JobLimit      int
	SleepInterval time.Duration
	NoDelete      bool

	// Header overrides the backend's default script header. "{{.Filename}}"
	// (or the older "{{.filename}}") is replaced by the script path.
	Header string

	// Command is run once per input file; "{{.Input}}" is replaced by the
	// input path.
	Command string
}

// base implements the knob half of Queue for every backend.
type base struct {
	opts   Options
	script *scriptWriter
	run    runFunc
}

func (b *base) ChunkSize() int               { return b.opts.ChunkSize }
func (b *base) JobLimit() int                { return b.opts.JobLimit }
func (b *base) SleepInterval() time.Duration { return b.opts.SleepInterval }
func (b *base) NoDelete() bool               { return b.opts.NoDelete }

func (b *base) WriteSubmitScript(infiles []string, scriptPath string) error {
	return b.script.write(infiles, scriptPath)
}

// runFunc runs a command and returns its stdout. Tests replace it.
type runFunc func(name string, args ...string) ([]byte, error)

func execRun(name string, args ...string) ([]byte, error) {
	return exec.Command(name, args...).Output()
}

// currentUser is the user whose jobs the status commands list.
func currentUser() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return os.Getenv("LOGNAME")
}

// New builds the backend named by t.
func New(t Type, opts Options) (Queue, error) {
	if opts.ChunkSize <= 0 {
		return nil, fmt.Errorf("%w: chunk size must be positive, got %d", ErrInvalidOptions, opts.ChunkSize)
	}
	if opts.JobLimit <= 0 {
		return nil, fmt.Errorf("%w: job limit must be positive, got %d", ErrInvalidOptions, opts.JobLimit)
	}
	if opts.Command == "" {
		return nil, fmt.Errorf("%w: no program command configured", ErrInvalidOptions)
	}

	switch t {
	case TypeSlurm:
		return NewSlurm(opts)
	case TypePbs:
		return NewPbs(opts)
	case TypeLocal:
		return NewLocal(opts)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownQueue, t)
}
