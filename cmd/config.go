package cmd

import (
	"fmt"
	"os"
	"os/exec"
	"sort"
	"strings"

	"github.com/ntBre/psqs/internal/config"
	"github.com/ntBre/psqs/internal/utils"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var showPath bool

// configKeys is the list of known configuration keys for shell completion
var configKeys = []string{
	"queue.type",
	"queue.chunk_size",
	"queue.job_limit",
	"queue.sleep_interval",
	"queue.status_interval",
	"queue.no_delete",
	"queue.template",
	"queue.dir",
	"drain.check_interval",
	"drain.check_dir",
	"drain.max_parse_retries",
	"drain.parallelism",
	"programs.molpro.command",
	"programs.mopac.command",
	"metrics.addr",
	"no_resub",
}

// durationKeys accept "5s", "1:30" or a bare number of seconds
var durationKeys = map[string]bool{
	"queue.sleep_interval":  true,
	"queue.status_interval": true,
}

// configKeysCompletion returns config keys for shell completion
func configKeysCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) == 0 {
		// First arg: complete config keys
		return configKeys, cobra.ShellCompDirectiveNoFileComp
	}
	if len(args) == 1 {
		// Second arg: complete values based on the key
		return configValueCompletion(args[0]), cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveNoFileComp
}

// configValueCompletion returns suggested values for a config key
func configValueCompletion(key string) []string {
	switch key {
	case "queue.type":
		return []string{"slurm", "pbs", "local"}
	case "queue.no_delete", "no_resub":
		return []string{"true", "false"}
	case "queue.chunk_size":
		return []string{"1", "8", "64", "128"}
	case "queue.job_limit":
		return []string{"128", "1024", "5000"}
	case "queue.sleep_interval":
		return []string{"1s", "5s", "30s", "1m"}
	case "queue.status_interval":
		return []string{"10s", "30s", "1m", "5m"}
	case "drain.check_interval":
		return []string{"0", "10", "100", "1000"}
	case "drain.max_parse_retries":
		return []string{"0", "1", "3", "10"}
	default:
		return nil
	}
}

// getConfigEnvVars returns the environment variables that override config
// keys, sorted.
func getConfigEnvVars() []string {
	vars := make([]string, 0, len(configKeys))
	for _, key := range configKeys {
		vars = append(vars, "PSQS_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")))
	}
	sort.Strings(vars)
	return vars
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage psqs configuration",
	Long: `Manage psqs configuration settings.

Configuration priority (highest to lowest):
  1. Command-line flags
  2. Environment variables (PSQS_*, and NO_RESUB)
  3. User config file (~/.config/psqs/config.yaml)
  4. Home config file (~/.psqs/config.yaml)
  5. System config file (/etc/psqs/config.yaml)
  6. ./config.yaml
  7. Defaults`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Run: func(cmd *cobra.Command, args []string) {
		if showPath {
			configPath, err := config.GetUserConfigPath()
			if err != nil {
				ExitWithError("Failed to get config path: %v", err)
			}
			fmt.Println(configPath)
			return
		}

		fmt.Println(utils.StyleTitle("Config File:"))
		if used := viper.ConfigFileUsed(); used != "" {
			fmt.Printf("  %s %s\n", used, utils.StyleSuccess("← in use"))
		} else {
			fmt.Printf("  %s (use 'psqs config init' to create)\n", utils.StyleWarning("No config file found"))
		}
		fmt.Println()

		q := config.Global.Queue
		fmt.Println(utils.StyleTitle("Queue:"))
		fmt.Printf("  type:            %s\n", q.Type)
		fmt.Printf("  chunk_size:      %d\n", q.ChunkSize)
		fmt.Printf("  job_limit:       %d\n", q.JobLimit)
		fmt.Printf("  sleep_interval:  %s\n", q.SleepInterval)
		fmt.Printf("  status_interval: %s\n", q.StatusInterval)
		fmt.Printf("  no_delete:       %v\n", q.NoDelete)
		if q.Template != "" {
			fmt.Printf("  template:        %s\n", q.Template)
		} else {
			fmt.Printf("  template:        %s\n", utils.StyleInfo("built-in"))
		}
		fmt.Printf("  dir:             %s\n", q.Dir)
		fmt.Println()

		d := config.Global.Drain
		fmt.Println(utils.StyleTitle("Drain:"))
		fmt.Printf("  check_interval:    %d\n", d.CheckInterval)
		fmt.Printf("  check_dir:         %s\n", d.CheckDir)
		fmt.Printf("  max_parse_retries: %d\n", d.MaxParseRetries)
		fmt.Printf("  parallelism:       %d\n", d.Parallelism)
		fmt.Printf("  no_resub:          %v\n", config.Global.NoResubmit)
		fmt.Println()

		fmt.Println(utils.StyleTitle("Programs:"))
		names := make([]string, 0, len(config.Global.Programs))
		for name := range config.Global.Programs {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Printf("  %-8s %s\n", name+":", config.Global.Programs[name].Command)
		}
		fmt.Println()

		fmt.Println(utils.StyleTitle("Metrics:"))
		if config.Global.MetricsAddr != "" {
			fmt.Printf("  addr: %s\n", config.Global.MetricsAddr)
		} else {
			fmt.Printf("  addr: %s\n", utils.StyleInfo("disabled"))
		}
		fmt.Println()

		// Show environment variable overrides
		fmt.Println(utils.StyleTitle("Environment Variable Overrides:"))
		hasEnvOverrides := false
		for _, envVar := range append(getConfigEnvVars(), "NO_RESUB") {
			if val, ok := os.LookupEnv(envVar); ok {
				fmt.Printf("  %s=%s\n", envVar, val)
				hasEnvOverrides = true
			}
		}
		if !hasEnvOverrides {
			fmt.Printf("  %s\n", utils.StyleInfo("none"))
		}
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Get a configuration value",
	Example: `  psqs config get queue.type
  psqs config get drain.check_interval`,
	Args:              cobra.ExactArgs(1),
	ValidArgsFunction: configKeysCompletion,
	Run: func(cmd *cobra.Command, args []string) {
		value := viper.Get(args[0])
		if value == nil {
			ExitWithError("Unknown config key: %s", args[0])
		}
		fmt.Println(value)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: `Set a configuration value and save to the user config file.

Interval format (queue.sleep_interval, queue.status_interval):
  Go style:  5s, 1m30s
  HPC style: 00:01:30, 1:30 (HH:MM:SS or HH:MM)
  Bare number of seconds: 5`,
	Example: `  psqs config set queue.type pbs
  psqs config set queue.chunk_size 64
  psqs config set queue.sleep_interval 30s`,
	Args:              cobra.ExactArgs(2),
	ValidArgsFunction: configKeysCompletion,
	Run: func(cmd *cobra.Command, args []string) {
		key, value := args[0], args[1]

		known := false
		for _, k := range configKeys {
			if k == key {
				known = true
				break
			}
		}
		if !known {
			utils.PrintWarning("Warning: '%s' is not a standard config key", key)
		}

		if durationKeys[key] {
			if _, err := utils.ParseDuration(value); err != nil {
				utils.PrintError("Invalid duration format: %s", value)
				utils.PrintHint("Use format like: 5s, 1m30s, or 00:01:30")
				os.Exit(ExitCodeError)
			}
		}

		viper.Set(key, value)
		if err := config.LoadFromViper(); err != nil {
			ExitWithError("Invalid value: %v", err)
		}
		if err := config.SaveConfig(); err != nil {
			ExitWithError("Failed to save config: %v", err)
		}

		configPath, _ := config.GetUserConfigPath()
		utils.PrintSuccess("Set %s = %s", utils.StyleInfo(key), utils.StyleInfo(value))
		utils.PrintNote("Config saved to: %s", configPath)
	},
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a config file with defaults",
	Long: `Create the user config file with default values and the queue type
detected from the scheduler binaries on PATH (sbatch, qsub, or neither).`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, err := config.GetUserConfigPath()
		if err != nil {
			ExitWithError("Failed to get config path: %v", err)
		}

		// Check if config already exists
		if _, err := os.Stat(configPath); err == nil {
			if !utils.IsInteractiveShell() {
				ExitWithError("Config file already exists: %s", configPath)
			}
			utils.PrintWarning("Config file already exists: %s", configPath)
			fmt.Print("Overwrite? [y/N]: ")
			var response string
			fmt.Scanln(&response)
			response = strings.ToLower(strings.TrimSpace(response))
			if response != "y" && response != "yes" {
				utils.PrintNote("Cancelled")
				return
			}
		}

		detected, err := config.ForceDetectAndSave()
		if err != nil {
			ExitWithError("Failed to save config: %v", err)
		}

		utils.PrintSuccess("Config file created")
		fmt.Printf("  Location: %s\n", utils.StylePath(configPath))
		fmt.Println()
		fmt.Println(utils.StyleTitle("Detected settings:"))
		if detected == "local" {
			fmt.Printf("  Queue: %s (%s)\n", detected, utils.StyleWarning("no scheduler found"))
		} else {
			fmt.Printf("  Queue: %s\n", detected)
		}
	},
}

var configEditCmd = &cobra.Command{
	Use:   "edit",
	Short: "Edit config file in default editor",
	Long:  "Open the configuration file in your default text editor ($EDITOR)",
	Run: func(cmd *cobra.Command, args []string) {
		configPath, err := config.GetUserConfigPath()
		if err != nil {
			ExitWithError("Failed to get config path: %v", err)
		}

		// Create config if it doesn't exist
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			utils.PrintNote("Config file doesn't exist, creating it first...")
			if err := config.SaveConfig(); err != nil {
				ExitWithError("Failed to create config: %v", err)
			}
		}

		editor := os.Getenv("EDITOR")
		if editor == "" {
			editor = "vi" // fallback to vi
		}

		editorCmd := exec.Command(editor, configPath)
		editorCmd.Stdin = os.Stdin
		editorCmd.Stdout = os.Stdout
		editorCmd.Stderr = os.Stderr
		if err := editorCmd.Run(); err != nil {
			ExitWithError("Failed to open editor: %v", err)
		}
	},
}

var configPathCmd = &cobra.Command{
	Use:     "path",
	Aliases: []string{"paths"},
	Short:   "Show config and template search paths",
	Long: `Show where psqs looks for its config file and for templates named in
manifests and queue.template.

Templates are searched in priority order (first match wins), after the
manifest's own directory:
  1. Extra template directories (PSQS_TEMPLATE_DIRS or template_dirs)
  2. User (~/.local/share/psqs/templates)
  3. System (/usr/share/psqs/templates)
  4. Current directory`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, err := config.GetUserConfigPath()
		if err != nil {
			ExitWithError("Failed to get config path: %v", err)
		}
		fmt.Println(utils.StyleTitle("Config File:"))
		status := ""
		if !utils.FileExists(configPath) {
			status = " " + utils.StyleWarning("(not found)")
		}
		fmt.Printf("  %s%s\n", configPath, status)
		fmt.Println()

		fmt.Println(utils.StyleTitle("Templates:"))
		for i, dir := range config.TemplateSearchPaths() {
			status := ""
			if !utils.DirExists(dir) {
				status = " " + utils.StyleWarning("(not found)")
			}
			fmt.Printf("  %d. %s%s\n", i+1, dir, status)
		}
	},
}

func init() {
	configShowCmd.Flags().BoolVar(&showPath, "path", false, "Show only the config file path")

	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configEditCmd)
	configCmd.AddCommand(configPathCmd)

	rootCmd.AddCommand(configCmd)
}
