package queue

import (
	"fmt"
	"strings"
)

// DefaultPbsHeader is written at the top of every PBS script unless
// Options.Header overrides it.
const DefaultPbsHeader = `#!/bin/sh
#PBS -N {{.Filename}}
#PBS -S /bin/bash
#PBS -j oe
#PBS -o {{.Filename}}.out
#PBS -W umask=022
#PBS -l walltime=9999:00:00
#PBS -l ncpus=1
#PBS -l mem=8gb
export WORKDIR=$PBS_O_WORKDIR
export TMPDIR=/tmp/$USER/$PBS_JOBID
cd $WORKDIR
mkdir -p $TMPDIR
`

const pbsFooter = "rm -rf $TMPDIR\n"

// Pbs submits through qsub and polls qstat.
type Pbs struct {
	base
	qsubBin  string
	qstatBin string
}

// NewPbs creates a PBS queue.
func NewPbs(opts Options) (*Pbs, error) {
	header := opts.Header
	footer := ""
	if header == "" {
		header = DefaultPbsHeader
		footer = pbsFooter
	}
	w, err := newScriptWriter(header, opts.Command, footer)
	if err != nil {
		return nil, err
	}
	return &Pbs{
		base:     base{opts: opts, script: w, run: execRun},
		qsubBin:  "qsub",
		qstatBin: "qstat",
	}, nil
}

func (p *Pbs) ScriptExt() string { return "pbs" }

// Submit runs qsub and returns the job id.
func (p *Pbs) Submit(scriptPath string) (string, error) {
	output, err := p.run(p.qsubBin, scriptPath)
	if err != nil {
		return "", NewSubmissionError("PBS", scriptPath, string(output), err)
	}
	fields := strings.Fields(string(output))
	if len(fields) == 0 {
		return "", fmt.Errorf("%w: empty qsub output", ErrJobIDParseFailed)
	}
	return normalizePbsJobID(fields[len(fields)-1]), nil
}

// normalizePbsJobID drops the server suffix ("819446.maple" -> "819446")
// because qstat -u truncates it.
func normalizePbsJobID(id string) string {
	if i := strings.IndexByte(id, '.'); i > 0 {
		return id[:i]
	}
	return id
}

// Status runs `qstat -u $USER`.
func (p *Pbs) Status() (map[string]struct{}, error) {
	output, err := p.run(p.qstatBin, "-u", currentUser())
	if err != nil {
		return nil, fmt.Errorf("%w: qstat: %v", ErrStatusFailed, err)
	}
	return parseQstat(string(output))
}

// parseQstat reads the rows after the dashed separator of
//
//	                                                            Req'd  Req'd   Elap
//	Job ID          Username Queue    Jobname    SessID NDS TSK Memory Time  S Time
//	--------------- -------- -------- ---------- ------ --- --- ------ ----- - -----
//	819446          user     queue    C6HNpts      5085   1   1    8gb 26784 R 00:00
func parseQstat(output string) (map[string]struct{}, error) {
	ret := make(map[string]struct{})
	inBody := false
	for i, line := range strings.Split(output, "\n") {
		if !inBody {
			inBody = strings.Contains(line, "-----------")
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 11 {
			return nil, NewParseError("PBS", i+1, line,
				fmt.Sprintf("want 11 fields, got %d", len(fields)))
		}
		ret[normalizePbsJobID(fields[0])] = struct{}{}
	}
	return ret, nil
}
