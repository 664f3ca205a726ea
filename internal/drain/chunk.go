package drain

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/ntBre/psqs/internal/program"
	"github.com/ntBre/psqs/internal/queue"
)

// chunk is a batch of jobs sharing one submit script.
type chunk[P program.Program] struct {
	num    int
	jobs   []*Job[P]
	script string
	jobID  string
	timer  Timer
}

// scriptPath names the script of chunk num: <dir>/main<num>.<ext>.
func scriptPath(dir string, num int, ext string) string {
	return filepath.Join(dir, fmt.Sprintf("main%d.%s", num, ext))
}

// buildChunk writes every job's input and one shared script, submits the
// script once and stamps the jobs with its path and job id. It only touches
// its own jobs, so chunks can be built concurrently.
func buildChunk[P program.Program](q queue.Queue, dir string, c *chunk[P], proc program.Procedure) error {
	c.script = scriptPath(dir, c.num, q.ScriptExt())

	start := time.Now()
	infiles := make([]string, 0, len(c.jobs))
	for _, job := range c.jobs {
		job.reset()
		if err := job.Program.WriteInput(proc); err != nil {
			return NewEnvironmentError("write input", job.Program.Infile(), err)
		}
		job.ScriptPath = c.script
		job.chunk = c.num
		infiles = append(infiles, job.Program.Infile())
	}
	c.timer.WritingInput = time.Since(start)

	start = time.Now()
	if err := q.WriteSubmitScript(infiles, c.script); err != nil {
		return NewEnvironmentError("write script", c.script, err)
	}
	c.timer.WritingScript = time.Since(start)

	start = time.Now()
	jobID, err := q.Submit(c.script)
	c.timer.Submitting = time.Since(start)
	if err != nil {
		return NewEnvironmentError("submit", c.script, err)
	}

	c.jobID = jobID
	for _, job := range c.jobs {
		job.JobID = jobID
	}
	return nil
}
