package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func resetViper(t *testing.T) {
	t.Helper()
	viper.Reset()
	t.Cleanup(viper.Reset)
	LoadDefaults()
}

func TestLoadFromViperDefaults(t *testing.T) {
	resetViper(t)
	setDefaults()

	if err := LoadFromViper(); err != nil {
		t.Fatalf("LoadFromViper failed: %v", err)
	}
	if Global.Queue.Type != "slurm" {
		t.Errorf("queue type = %q; want slurm", Global.Queue.Type)
	}
	if Global.Queue.SleepInterval != 5*time.Second {
		t.Errorf("sleep interval = %v; want 5s", Global.Queue.SleepInterval)
	}
	if Global.Drain.MaxParseRetries != 3 {
		t.Errorf("max parse retries = %d; want 3", Global.Drain.MaxParseRetries)
	}
	if Global.NoResubmit {
		t.Errorf("NoResubmit should default to false")
	}
	if got := ProgramCommand("molpro"); got != DefaultPrograms["molpro"].Command {
		t.Errorf("molpro command = %q", got)
	}
}

func TestLoadFromViperOverrides(t *testing.T) {
	resetViper(t)
	setDefaults()
	viper.Set("queue.type", "PBS")
	viper.Set("queue.chunk_size", 4)
	viper.Set("queue.sleep_interval", "00:00:02")
	viper.Set("drain.max_parse_retries", 0)
	viper.Set("programs.molpro.command", "molpro -n 4 {{.Input}}")

	if err := LoadFromViper(); err != nil {
		t.Fatalf("LoadFromViper failed: %v", err)
	}
	if Global.Queue.Type != "pbs" {
		t.Errorf("queue type = %q; want pbs", Global.Queue.Type)
	}
	if Global.Queue.ChunkSize != 4 {
		t.Errorf("chunk size = %d; want 4", Global.Queue.ChunkSize)
	}
	if Global.Queue.SleepInterval != 2*time.Second {
		t.Errorf("sleep interval = %v; want 2s", Global.Queue.SleepInterval)
	}
	if Global.Drain.MaxParseRetries != 0 {
		t.Errorf("max parse retries = %d; want 0", Global.Drain.MaxParseRetries)
	}
	if got := ProgramCommand("molpro"); got != "molpro -n 4 {{.Input}}" {
		t.Errorf("molpro command = %q", got)
	}
}

func TestLoadFromViperRejectsUnknownQueue(t *testing.T) {
	resetViper(t)
	setDefaults()
	viper.Set("queue.type", "lsf")
	if err := LoadFromViper(); err == nil {
		t.Errorf("expected error for unknown queue type")
	}
}

func TestNoResubFromEnvironment(t *testing.T) {
	resetViper(t)
	t.Setenv("NO_RESUB", "1")
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	if err := InitViper(); err != nil {
		t.Fatalf("InitViper failed: %v", err)
	}
	if err := LoadFromViper(); err != nil {
		t.Fatalf("LoadFromViper failed: %v", err)
	}
	if !Global.NoResubmit {
		t.Errorf("NO_RESUB=1 should disable resubmission")
	}
}

func TestFindTemplate(t *testing.T) {
	resetViper(t)
	dir := t.TempDir()
	t.Setenv("PSQS_TEMPLATE_DIRS", dir)
	path := filepath.Join(dir, "hf.tmpl")
	if err := os.WriteFile(path, []byte("geometry={{.geom}}"), 0o644); err != nil {
		t.Fatal(err)
	}

	got, err := FindTemplate("hf", "")
	if err != nil {
		t.Fatalf("FindTemplate failed: %v", err)
	}
	if got != path {
		t.Errorf("FindTemplate = %q; want %q", got, path)
	}

	if _, err := FindTemplate("missing", ""); err == nil {
		t.Errorf("expected error for missing template")
	}
}
