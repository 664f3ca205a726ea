package drain

import (
	"time"

	"github.com/ntBre/psqs/internal/program"
)

// Job is one unit of work. It is owned by exactly one of the pending list,
// the active set, a resubmission batch or a checkpoint at any time.
type Job[P program.Program] struct {
	Program    P         `json:"program"`
	ScriptPath string    `json:"script_path"`
	JobID      string    `json:"job_id"`
	Index      int       `json:"index"`
	Coeff      float64   `json:"coeff"`
	ModTime    time.Time `json:"mod_time"`

	// ParseRetries counts resubmissions caused by unparsable output.
	ParseRetries int `json:"parse_retries,omitempty"`

	chunk int
}

// NewJob returns a job writing into dst[index] with coefficient 1.
func NewJob[P program.Program](p P, index int) *Job[P] {
	return &Job[P]{Program: p, Index: index, Coeff: 1.0}
}

// reset clears the submission bookkeeping before a job is (re)chunked.
func (j *Job[P]) reset() {
	j.ScriptPath = ""
	j.JobID = ""
	j.ModTime = time.Time{}
}
