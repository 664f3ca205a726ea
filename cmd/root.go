package cmd

import (
	"errors"
	"os"

	"github.com/ntBre/psqs/internal/config"
	"github.com/ntBre/psqs/internal/drain"
	"github.com/ntBre/psqs/internal/program"
	"github.com/ntBre/psqs/internal/utils"
	"github.com/spf13/cobra"
)

var (
	debugMode bool
	quietMode bool
)

var rootCmd = &cobra.Command{
	Use:           "psqs",
	Short:         "psqs: drain quantum chemistry jobs through Slurm, PBS or a local queue",
	Version:       config.VERSION,
	SilenceErrors: true,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		// Flags first so the steps below can log
		utils.DebugMode = debugMode
		utils.QuietMode = quietMode

		// Step 1: Load defaults
		config.LoadDefaults()

		// Step 2: Initialize Viper (read config file, env vars)
		if err := config.InitViper(); err != nil {
			utils.PrintDebug("Error reading config file: %v", err)
		}

		// Step 3: Load values from Viper into Global config
		if err := config.LoadFromViper(); err != nil {
			ExitWithError("Invalid configuration: %v", err)
		}

		config.Global.Debug = debugMode
		config.Global.Quiet = quietMode
		if debugMode {
			utils.PrintDebug("Debug mode enabled")
			utils.PrintDebug("psqs Version: %s", utils.StyleInfo(config.VERSION))
			utils.PrintDebug("Queue: %s (chunk size %d, job limit %d)",
				config.Global.Queue.Type, config.Global.Queue.ChunkSize, config.Global.Queue.JobLimit)
			utils.PrintDebug("Job Directory: %s", config.Global.Queue.Dir)
			if config.Global.NoResubmit {
				utils.PrintDebug("Resubmission disabled (NO_RESUB)")
			}
		}
	},
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		// Cobra's automatic error printing is silenced. Errors from a drain
		// get a hint pointing at the file or setting to look at.
		utils.PrintError("%v", err)
		switch {
		case errors.Is(err, program.ErrErrorInOutput):
			utils.PrintHint("Inspect %s", utils.StylePath(program.PathOf(err)))
		case errors.Is(err, drain.ErrResubmitDisabled):
			utils.PrintHint("Unset NO_RESUB to let psqs resubmit lost jobs")
		case errors.Is(err, drain.ErrParseRetriesExceeded):
			utils.PrintHint("Raise drain.max_parse_retries or set it to 0 for unlimited retries")
		case errors.Is(err, drain.ErrCheckpointNotFound):
			utils.PrintHint("Checkpoints are written every drain.check_interval iterations")
		case drain.IsEnvironmentError(err) && utils.FileExists(checkpointPath()):
			utils.PrintHint("Continue from the last checkpoint with %s", utils.StyleCommand("psqs resume <manifest>"))
		}
		os.Exit(ExitCodeError)
	}
}

func init() {
	// Subcommands are attached to rootCmd in their respective init() functions
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug mode with verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quietMode, "quiet", "q", false, "Only print warnings and errors")
}
