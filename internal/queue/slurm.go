package queue

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultSlurmHeader is written at the top of every Slurm script unless
// Options.Header overrides it.
const DefaultSlurmHeader = `#!/bin/bash
#SBATCH --job-name={{.Filename}}
#SBATCH --ntasks=1
#SBATCH --cpus-per-task=1
#SBATCH -o {{.Filename}}.out
#SBATCH --no-requeue
#SBATCH --mem=8gb
`

var slurmJobIDRe = regexp.MustCompile(`Submitted batch job (\d+)`)

// Slurm submits through sbatch and polls squeue.
type Slurm struct {
	base
	sbatchBin string
	squeueBin string
}

// NewSlurm creates a Slurm queue.
func NewSlurm(opts Options) (*Slurm, error) {
	header := opts.Header
	if header == "" {
		header = DefaultSlurmHeader
	}
	w, err := newScriptWriter(header, opts.Command, "")
	if err != nil {
		return nil, err
	}
	return &Slurm{
		base:      base{opts: opts, script: w, run: execRun},
		sbatchBin: "sbatch",
		squeueBin: "squeue",
	}, nil
}

func (s *Slurm) ScriptExt() string { return "slurm" }

// Submit runs sbatch and returns the job id.
func (s *Slurm) Submit(scriptPath string) (string, error) {
	output, err := s.run(s.sbatchBin, scriptPath)
	if err != nil {
		return "", NewSubmissionError("SLURM", scriptPath, string(output), err)
	}
	return parseSlurmJobID(string(output))
}

// parseSlurmJobID accepts "Submitted batch job 123" and, for --parsable
// wrappers, a bare trailing id.
func parseSlurmJobID(output string) (string, error) {
	if m := slurmJobIDRe.FindStringSubmatch(output); len(m) == 2 {
		return m[1], nil
	}
	fields := strings.Fields(output)
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: empty output", ErrJobIDParseFailed)
	}
	return strings.Split(fields[len(fields)-1], ";")[0], nil
}

// Status runs `squeue -u $USER`.
func (s *Slurm) Status() (map[string]struct{}, error) {
	output, err := s.run(s.squeueBin, "-u", currentUser())
	if err != nil {
		return nil, fmt.Errorf("%w: squeue: %v", ErrStatusFailed, err)
	}
	return parseSqueue(string(output))
}

// parseSqueue reads output of the form
//
//	   JOBID PARTITION   NAME     USER ST        TIME  NODES NODELIST(REASON)
//	30627992   compute  c3oh-   mdavis  R 46-17:12:23      1 node2
//
// Jobs in the CG (completing) state are left out: a job stuck completing
// has already finished its work.
func parseSqueue(output string) (map[string]struct{}, error) {
	ret := make(map[string]struct{})
	for i, line := range strings.Split(output, "\n") {
		if strings.TrimSpace(line) == "" || strings.Contains(line, "JOBID") {
			continue
		}
		fields := strings.Fields(line)
		// NODELIST(REASON) may contain spaces, so only require up to NODES
		if len(fields) < 7 {
			return nil, NewParseError("SLURM", i+1, line,
				fmt.Sprintf("want at least 7 fields, got %d", len(fields)))
		}
		if fields[4] == "CG" {
			continue
		}
		ret[fields[0]] = struct{}{}
	}
	return ret, nil
}
