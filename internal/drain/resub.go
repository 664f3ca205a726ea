package drain

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/ntBre/psqs/internal/program"
	"github.com/ntBre/psqs/internal/queue"
	"github.com/ntBre/psqs/internal/utils"
	"golang.org/x/sync/errgroup"
)

// redoSuffix distinguishes a resubmitted input from the one it copies.
const redoSuffix = "_redo"

// Resubmission is the new identity of a lost job.
type Resubmission struct {
	Input  string // new logical input base name, without extension
	Script string
	JobID  string
}

// Resubmitter re-dispatches lost jobs as single-job submissions.
type Resubmitter struct {
	q           queue.Queue
	parallelism int
}

func NewResubmitter(q queue.Queue, parallelism int) *Resubmitter {
	if parallelism < 1 {
		parallelism = 1
	}
	return &Resubmitter{q: q, parallelism: parallelism}
}

// Resubmit copies infile ("dir/base.ext") byte for byte to
// "dir/base_redo.ext", writes "dir/base_redo.<script ext>" for the copy and
// submits it.
func (r *Resubmitter) Resubmit(infile string) (Resubmission, error) {
	dir := filepath.Dir(infile)
	base, ext := utils.SplitExt(filepath.Base(infile))
	if ext == "" {
		return Resubmission{}, NewEnvironmentError("resubmit", infile, fmt.Errorf("input has no extension"))
	}

	input := filepath.Join(dir, base+redoSuffix)
	redoFile := input + "." + ext
	if err := utils.CopyFile(infile, redoFile); err != nil {
		return Resubmission{}, NewEnvironmentError("copy input", infile, err)
	}

	script := input + "." + r.q.ScriptExt()
	if err := r.q.WriteSubmitScript([]string{redoFile}, script); err != nil {
		return Resubmission{}, NewEnvironmentError("write script", script, err)
	}
	jobID, err := r.q.Submit(script)
	if err != nil {
		return Resubmission{}, NewEnvironmentError("submit", script, err)
	}
	return Resubmission{Input: input, Script: script, JobID: jobID}, nil
}

// resubmitAll resubmits a batch concurrently. The returned slice lines up
// with jobs. Jobs are not modified.
func resubmitAll[P program.Program](r *Resubmitter, jobs []*Job[P]) ([]Resubmission, Timer, error) {
	var timer Timer
	start := time.Now()
	out := make([]Resubmission, len(jobs))

	g := new(errgroup.Group)
	g.SetLimit(r.parallelism)
	for i, job := range jobs {
		infile := job.Program.Infile()
		g.Go(func() error {
			res, err := r.Resubmit(infile)
			if err != nil {
				return err
			}
			out[i] = res
			return nil
		})
	}
	err := g.Wait()
	timer.Submitting = time.Since(start)
	return out, timer, err
}

// isRedo reports whether a filename already went through resubmission.
func isRedo(name string) bool {
	return strings.Contains(filepath.Base(name), redoSuffix)
}
