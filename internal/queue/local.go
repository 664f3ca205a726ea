package queue

import (
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/google/uuid"
	"github.com/ntBre/psqs/internal/utils"
)

// DefaultLocalHeader is written at the top of every local script unless
// Options.Header overrides it.
const DefaultLocalHeader = "#!/bin/bash\n"

// Local runs each script with bash in the background. Job ids are random
// UUIDs and a job is active until its bash process exits.
type Local struct {
	base
	shell string

	mu      sync.Mutex
	running map[string]*exec.Cmd
	wg      sync.WaitGroup
}

// NewLocal creates a local queue.
func NewLocal(opts Options) (*Local, error) {
	header := opts.Header
	if header == "" {
		header = DefaultLocalHeader
	}
	w, err := newScriptWriter(header, opts.Command, "")
	if err != nil {
		return nil, err
	}
	return &Local{
		base:    base{opts: opts, script: w, run: execRun},
		shell:   "bash",
		running: make(map[string]*exec.Cmd),
	}, nil
}

func (l *Local) ScriptExt() string { return "sh" }

// Submit starts `bash scriptPath` with stdout and stderr going to
// scriptPath.out and returns immediately.
func (l *Local) Submit(scriptPath string) (string, error) {
	logFile, err := os.OpenFile(scriptPath+".out", os.O_CREATE|os.O_WRONLY|os.O_TRUNC, utils.PermFile)
	if err != nil {
		return "", NewSubmissionError("LOCAL", scriptPath, "", err)
	}

	cmd := exec.Command(l.shell, scriptPath)
	cmd.Stdout = logFile
	cmd.Stderr = logFile
	if err := cmd.Start(); err != nil {
		logFile.Close()
		return "", NewSubmissionError("LOCAL", scriptPath, "", err)
	}

	id := uuid.NewString()
	l.mu.Lock()
	l.running[id] = cmd
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		if err := cmd.Wait(); err != nil {
			utils.PrintDebug("local job %s (%s) exited: %v", id, scriptPath, err)
		}
		logFile.Close()
		l.mu.Lock()
		delete(l.running, id)
		l.mu.Unlock()
	}()

	return id, nil
}

// Status returns the ids of scripts that are still running.
func (l *Local) Status() (map[string]struct{}, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ret := make(map[string]struct{}, len(l.running))
	for id := range l.running {
		ret[id] = struct{}{}
	}
	return ret, nil
}

// Wait blocks until every submitted script has exited.
func (l *Local) Wait() {
	l.wg.Wait()
}

// Kill stops every running script.
func (l *Local) Kill() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var firstErr error
	for id, cmd := range l.running {
		if cmd.Process == nil {
			continue
		}
		if err := cmd.Process.Kill(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("kill local job %s: %w", id, err)
		}
	}
	return firstErr
}
