package config

import (
	"time"
)

const VERSION = "0.3.0"

// QueueConfig holds the scheduler-facing knobs of a drain.
type QueueConfig struct {
	Type           string // slurm, pbs or local
	ChunkSize      int
	JobLimit       int
	SleepInterval  time.Duration
	StatusInterval time.Duration
	NoDelete       bool
	Template       string // optional path to a custom submit-script header
	Dir            string // where chunk scripts and inputs are written
}

// DrainConfig holds the engine knobs that are not scheduler specific.
type DrainConfig struct {
	CheckInterval   int    // iterations between checkpoints, 0 disables
	CheckDir        string // directory of chk.json
	MaxParseRetries int
	Parallelism     int // bound for the errgroup fan-outs
}

// ProgramConfig is the per-program command line run for every input in a
// submit script. "{{.Input}}" is replaced by the input file.
type ProgramConfig struct {
	Command string
}

// Config holds global application settings
type Config struct {
	Debug      bool
	Quiet      bool
	Version    string
	NoResubmit bool

	Queue       QueueConfig
	Drain       DrainConfig
	Programs    map[string]ProgramConfig
	MetricsAddr string
}

// Global holds the singleton configuration instance
var Global Config

// DefaultPrograms are the command templates used when the config file does
// not override them.
var DefaultPrograms = map[string]ProgramConfig{
	"molpro": {Command: "molpro -t 1 --no-xml-output {{.Input}}"},
	"mopac":  {Command: "/opt/mopac/mopac {{.Input}}"},
}

func LoadDefaults() {
	programs := make(map[string]ProgramConfig, len(DefaultPrograms))
	for name, p := range DefaultPrograms {
		programs[name] = p
	}

	Global = Config{
		Debug:      false,
		Quiet:      false,
		Version:    VERSION,
		NoResubmit: false,
		Queue: QueueConfig{
			Type:           "slurm",
			ChunkSize:      128,
			JobLimit:       1024,
			SleepInterval:  5 * time.Second,
			StatusInterval: 30 * time.Second,
			NoDelete:       false,
			Dir:            "pts",
		},
		Drain: DrainConfig{
			CheckInterval:   100,
			CheckDir:        ".",
			MaxParseRetries: 3,
			Parallelism:     8,
		},
		Programs: programs,
	}
}

// ProgramCommand returns the command template for a program, falling back to
// the built-in default.
func ProgramCommand(name string) string {
	if p, ok := Global.Programs[name]; ok && p.Command != "" {
		return p.Command
	}
	return DefaultPrograms[name].Command
}
