package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ntBre/psqs/internal/config"
	"github.com/ntBre/psqs/internal/drain"
	"github.com/ntBre/psqs/internal/program"
	"github.com/ntBre/psqs/internal/queue"
)

func withConfig(t *testing.T) {
	t.Helper()
	saved := config.Global
	t.Cleanup(func() { config.Global = saved })
	config.LoadDefaults()
}

func TestDrainOptions(t *testing.T) {
	withConfig(t)
	config.Global.Queue.Dir = "jobs"
	config.Global.Queue.StatusInterval = time.Minute
	config.Global.Drain.CheckDir = "chk"
	config.Global.Drain.CheckInterval = 7
	config.Global.NoResubmit = true

	opts := drainOptions(nil)
	if opts.Dir != "jobs" || opts.CheckInterval != 7 || !opts.NoResubmit {
		t.Errorf("unexpected options %+v", opts)
	}
	if want := filepath.Join("chk", drain.CheckpointFile); opts.CheckPath != want {
		t.Errorf("CheckPath = %q, want %q", opts.CheckPath, want)
	}
	if opts.StatusInterval != time.Minute {
		t.Errorf("StatusInterval = %v", opts.StatusInterval)
	}
}

func TestNewQueueLocal(t *testing.T) {
	withConfig(t)
	config.Global.Queue.Type = "local"
	config.Global.Queue.ChunkSize = 3

	q, err := newQueue(program.KindMopac)
	if err != nil {
		t.Fatalf("newQueue failed: %v", err)
	}
	if _, ok := q.(*queue.Local); !ok {
		t.Errorf("want *queue.Local, got %T", q)
	}
	if q.ChunkSize() != 3 {
		t.Errorf("ChunkSize = %d, want 3", q.ChunkSize())
	}
}

func TestNewQueueCustomHeader(t *testing.T) {
	withConfig(t)
	dir := t.TempDir()
	header := filepath.Join(dir, "header.slurm")
	if err := os.WriteFile(header, []byte("#!/bin/bash\n#SBATCH --job-name={{.Filename}}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	config.Global.Queue.Template = header

	q, err := newQueue(program.KindMolpro)
	if err != nil {
		t.Fatalf("newQueue failed: %v", err)
	}
	script := filepath.Join(dir, "main0.slurm")
	if err := q.WriteSubmitScript([]string{"job.0.inp"}, script); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(script)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(data); !strings.Contains(got, "--job-name="+script) {
		t.Errorf("header not applied:\n%s", got)
	}

	config.Global.Queue.Template = filepath.Join(dir, "missing")
	if _, err := newQueue(program.KindMolpro); err == nil {
		t.Error("expected an error for a missing template")
	}
}

func TestWriteJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := writeJSON(path, []float64{1.5, -2}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if want := "[\n  1.5,\n  -2\n]\n"; string(data) != want {
		t.Errorf("got %q, want %q", data, want)
	}
}
