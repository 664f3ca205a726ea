package cmd

import (
	"fmt"

	"github.com/ntBre/psqs/internal/config"
	"github.com/ntBre/psqs/internal/drain"
	"github.com/ntBre/psqs/internal/manifest"
	"github.com/ntBre/psqs/internal/program"
	"github.com/ntBre/psqs/internal/utils"
	"github.com/spf13/cobra"
)

var writeInputProc string

var writeInputCmd = &cobra.Command{
	Use:   "write-input [flags] <manifest.yaml>",
	Short: "Write the program inputs of a manifest without submitting",
	Long: `Render every job's input file into queue.dir exactly as a drain would,
then stop. Useful to check a template before submitting thousands of jobs.`,
	Example: `  psqs write-input jobs.yaml
  psqs write-input --procedure opt jobs.yaml`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runWriteInput,
}

var readOutputCmd = &cobra.Command{
	Use:   "read-output <manifest.yaml>",
	Short: "Parse the outputs of a manifest's jobs",
	Long: `Read every job's output from queue.dir and report its energy, or why it
could not be read.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runReadOutput,
}

func init() {
	rootCmd.AddCommand(writeInputCmd)
	rootCmd.AddCommand(readOutputCmd)
	writeInputCmd.Flags().StringVarP(&writeInputProc, "procedure", "p", "", "Override the manifest procedure (sp or opt)")
	writeInputCmd.RegisterFlagCompletionFunc("procedure", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{"sp", "opt"}, cobra.ShellCompDirectiveNoFileComp
	})
}

func runWriteInput(cmd *cobra.Command, args []string) error {
	m, err := manifest.Load(args[0])
	if err != nil {
		return err
	}
	proc := m.Proc()
	if writeInputProc != "" {
		if proc, err = program.ParseProcedure(writeInputProc); err != nil {
			return err
		}
	}
	dir := config.Global.Queue.Dir
	if err := utils.EnsureDir(dir); err != nil {
		return err
	}

	switch m.Kind() {
	case program.KindMolpro:
		jobs, err := m.MolproJobs(dir)
		if err != nil {
			return err
		}
		return writeInputs(jobs, proc)
	case program.KindMopac:
		jobs, err := m.MopacJobs(dir)
		if err != nil {
			return err
		}
		return writeInputs(jobs, proc)
	}
	return fmt.Errorf("unsupported program %s", m.Kind())
}

func writeInputs[P program.Program](jobs []*drain.Job[P], proc program.Procedure) error {
	for _, job := range jobs {
		if err := job.Program.WriteInput(proc); err != nil {
			return err
		}
		utils.PrintDebug("Wrote %s", job.Program.Infile())
	}
	utils.PrintSuccess("Wrote %s %s inputs", utils.StyleNumber(len(jobs)), proc)
	return nil
}

func runReadOutput(cmd *cobra.Command, args []string) error {
	m, err := manifest.Load(args[0])
	if err != nil {
		return err
	}
	dir := config.Global.Queue.Dir

	switch m.Kind() {
	case program.KindMolpro:
		jobs, err := m.MolproJobs(dir)
		if err != nil {
			return err
		}
		readOutputs(jobs)
	case program.KindMopac:
		jobs, err := m.MopacJobs(dir)
		if err != nil {
			return err
		}
		readOutputs(jobs)
	}
	return nil
}

func readOutputs[P program.Program](jobs []*drain.Job[P]) {
	var done, pending, failed int
	for _, job := range jobs {
		res, err := job.Program.ReadOutput()
		name := utils.StyleName(job.Program.Filename())
		switch {
		case err == nil:
			done++
			fmt.Printf("  %s %20.12f %8.1f s\n", name, res.Energy, res.Time)
		case program.IsFatal(err):
			failed++
			fmt.Printf("  %s %s\n", name, utils.StyleError(err.Error()))
		default:
			pending++
			fmt.Printf("  %s %s\n", name, utils.StyleWarning(err.Error()))
		}
	}
	utils.PrintMessage("%s done, %s pending, %s failed",
		utils.StyleNumber(done), utils.StyleNumber(pending), utils.StyleNumber(failed))
}
