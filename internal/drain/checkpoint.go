package drain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/ntBre/psqs/internal/program"
	"github.com/ntBre/psqs/internal/utils"
	"golang.org/x/mod/semver"
)

// CheckpointVersion is the format version written into checkpoints. Files
// with a different major version are rejected.
const CheckpointVersion = "v1.1.0"

// CheckpointFile is the checkpoint filename inside the check directory.
const CheckpointFile = "chk.json"

// Checkpoint is the crash-recovery snapshot of a drain: the destination so
// far and every job that has not completed.
type Checkpoint[T any, P program.Program] struct {
	Version     string    `json:"version"`
	Destination []T       `json:"destination"`
	Jobs        []*Job[P] `json:"jobs"`
	NextChunk   int       `json:"next_chunk"`
}

// WriteCheckpoint atomically replaces path with a snapshot of dst and jobs.
// nextChunk is the first chunk number a resumed drain should use.
func WriteCheckpoint[T any, P program.Program](path string, dst []T, jobs []*Job[P], nextChunk int) error {
	chk := Checkpoint[T, P]{
		Version:     CheckpointVersion,
		Destination: dst,
		Jobs:        jobs,
		NextChunk:   nextChunk,
	}
	if chk.Jobs == nil {
		chk.Jobs = []*Job[P]{}
	}
	data, err := json.Marshal(chk)
	if err != nil {
		return fmt.Errorf("failed to encode checkpoint: %w", err)
	}
	if err := utils.WriteFileAtomic(path, data); err != nil {
		return NewEnvironmentError("write checkpoint", path, err)
	}
	return nil
}

// LoadCheckpoint reads a checkpoint written by WriteCheckpoint. A missing
// or malformed file is an error; there is no fallback to a fresh start.
func LoadCheckpoint[T any, P program.Program](path string) (*Checkpoint[T, P], error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrCheckpointNotFound, path)
		}
		return nil, NewEnvironmentError("read checkpoint", path, err)
	}

	var chk Checkpoint[T, P]
	if err := json.Unmarshal(data, &chk); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCheckpointMalformed, path, err)
	}
	if !semver.IsValid(chk.Version) {
		return nil, fmt.Errorf("%w: %s: missing or invalid version %q", ErrCheckpointMalformed, path, chk.Version)
	}
	if semver.Major(chk.Version) != semver.Major(CheckpointVersion) {
		return nil, fmt.Errorf("%w: %s has %s, want %s", ErrCheckpointVersion, path, chk.Version, semver.Major(CheckpointVersion))
	}
	if chk.Destination == nil {
		return nil, fmt.Errorf("%w: %s: no destination", ErrCheckpointMalformed, path)
	}
	for i, job := range chk.Jobs {
		if job == nil {
			return nil, fmt.Errorf("%w: %s: job %d is null", ErrCheckpointMalformed, path, i)
		}
		if job.Index < 0 || job.Index >= len(chk.Destination) {
			return nil, fmt.Errorf("%w: %s: job %d index %d", ErrCheckpointMalformed, path, i, job.Index)
		}
	}
	if chk.NextChunk < 0 {
		chk.NextChunk = 0
	}
	return &chk, nil
}
