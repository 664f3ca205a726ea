package config

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/ntBre/psqs/internal/utils"
	"github.com/spf13/viper"
)

// ConfigFilename is the name of the config file
const ConfigFilename = "config"

// ConfigType is the type of config file (yaml, json, toml)
const ConfigType = "yaml"

// InitViper initializes Viper with proper search paths and defaults
// Priority (highest to lowest):
// 1. Command-line flags (handled by cobra)
// 2. Environment variables (PSQS_*, plus the bare NO_RESUB switch)
// 3. User config file (~/.config/psqs/config.yaml)
// 4. System config file (/etc/psqs/config.yaml)
// 5. Defaults
func InitViper() error {
	viper.SetConfigName(ConfigFilename)
	viper.SetConfigType(ConfigType)

	// User config (highest priority)
	if userConfigDir, err := os.UserConfigDir(); err == nil {
		viper.AddConfigPath(filepath.Join(userConfigDir, "psqs"))
	}

	// Home directory fallback
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(filepath.Join(home, ".psqs"))
	}

	viper.AddConfigPath("/etc/psqs")

	// Current directory, next to the job directories
	viper.AddConfigPath(".")

	// Environment variables. Nested keys map "queue.chunk_size" to
	// PSQS_QUEUE_CHUNK_SIZE.
	viper.SetEnvPrefix("PSQS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()
	if err := viper.BindEnv("no_resub", "PSQS_NO_RESUB", "NO_RESUB"); err != nil {
		return fmt.Errorf("failed to bind NO_RESUB: %w", err)
	}

	setDefaults()

	// Read config file (non-fatal if not found)
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// setDefaults sets default values for all config keys
func setDefaults() {
	viper.SetDefault("no_resub", false)

	viper.SetDefault("queue.type", "slurm")
	viper.SetDefault("queue.chunk_size", 128)
	viper.SetDefault("queue.job_limit", 1024)
	viper.SetDefault("queue.sleep_interval", "5s")
	viper.SetDefault("queue.status_interval", "30s")
	viper.SetDefault("queue.no_delete", false)
	viper.SetDefault("queue.template", "")
	viper.SetDefault("queue.dir", "pts")

	viper.SetDefault("drain.check_interval", 100)
	viper.SetDefault("drain.check_dir", ".")
	viper.SetDefault("drain.max_parse_retries", 3)
	viper.SetDefault("drain.parallelism", 8)

	for name, p := range DefaultPrograms {
		viper.SetDefault("programs."+name+".command", p.Command)
	}

	viper.SetDefault("metrics.addr", "")
}

// GetUserConfigPath returns the path to the user config file
func GetUserConfigPath() (string, error) {
	userConfigDir, err := os.UserConfigDir()
	if err != nil {
		// Fallback to home directory
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".psqs", ConfigFilename+"."+ConfigType), nil
	}

	return filepath.Join(userConfigDir, "psqs", ConfigFilename+"."+ConfigType), nil
}

// SaveConfig saves current Viper config to user config file
func SaveConfig() error {
	configPath, err := GetUserConfigPath()
	if err != nil {
		return fmt.Errorf("failed to get config path: %w", err)
	}

	configDir := filepath.Dir(configPath)
	if err := utils.EnsureDir(configDir); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := viper.WriteConfigAs(configPath); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DetectQueueType reports the scheduler available on this host by looking
// for its submit binary. Falls back to "local".
func DetectQueueType() string {
	if _, err := exec.LookPath("sbatch"); err == nil {
		return "slurm"
	}
	if _, err := exec.LookPath("qsub"); err == nil {
		return "pbs"
	}
	return "local"
}

// ForceDetectAndSave re-detects the scheduler from the current PATH and
// always writes the user config file (used by `config init`).
func ForceDetectAndSave() (string, error) {
	detected := DetectQueueType()
	viper.Set("queue.type", detected)
	if err := SaveConfig(); err != nil {
		return "", err
	}
	return detected, nil
}

// LoadFromViper loads config from Viper into Global struct
func LoadFromViper() error {
	if t := strings.ToLower(viper.GetString("queue.type")); t != "" {
		switch t {
		case "slurm", "pbs", "local":
			Global.Queue.Type = t
		default:
			return fmt.Errorf("unknown queue.type %q (want slurm, pbs or local)", t)
		}
	}

	if n := viper.GetInt("queue.chunk_size"); n > 0 {
		Global.Queue.ChunkSize = n
	}
	if n := viper.GetInt("queue.job_limit"); n > 0 {
		Global.Queue.JobLimit = n
	}

	// Intervals accept "5s", "00:00:05" or a bare number of seconds
	if s := viper.GetString("queue.sleep_interval"); s != "" {
		dur, err := utils.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("queue.sleep_interval: %w", err)
		}
		Global.Queue.SleepInterval = dur
	}
	if s := viper.GetString("queue.status_interval"); s != "" {
		dur, err := utils.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("queue.status_interval: %w", err)
		}
		Global.Queue.StatusInterval = dur
	}

	Global.Queue.NoDelete = viper.GetBool("queue.no_delete")
	Global.Queue.Template = viper.GetString("queue.template")
	if dir := viper.GetString("queue.dir"); dir != "" {
		Global.Queue.Dir = dir
	}

	if n := viper.GetInt("drain.check_interval"); n >= 0 {
		Global.Drain.CheckInterval = n
	}
	if dir := viper.GetString("drain.check_dir"); dir != "" {
		Global.Drain.CheckDir = dir
	}
	if n := viper.GetInt("drain.max_parse_retries"); n >= 0 {
		Global.Drain.MaxParseRetries = n
	}
	if n := viper.GetInt("drain.parallelism"); n > 0 {
		Global.Drain.Parallelism = n
	}

	if Global.Programs == nil {
		Global.Programs = make(map[string]ProgramConfig)
	}
	for name := range viper.GetStringMap("programs") {
		if cmd := viper.GetString("programs." + name + ".command"); cmd != "" {
			Global.Programs[name] = ProgramConfig{Command: cmd}
		}
	}

	Global.MetricsAddr = viper.GetString("metrics.addr")

	// Read once here and handed down through drain.Options
	Global.NoResubmit = viper.GetBool("no_resub")

	return nil
}
