package cmd

import (
	"fmt"
	"time"

	"github.com/ntBre/psqs/internal/drain"
	"github.com/ntBre/psqs/internal/manifest"
	"github.com/ntBre/psqs/internal/program"
	"github.com/ntBre/psqs/internal/queue"
	"github.com/ntBre/psqs/internal/utils"
	"github.com/spf13/cobra"
)

var (
	runFlags    DrainFlags
	resumeFlags DrainFlags
)

var runCmd = &cobra.Command{
	Use:   "run [flags] <manifest.yaml>",
	Short: "Drain every job of a manifest through the queue",
	Long: `Write the inputs of every job in a manifest, submit them in chunks and
poll until all have finished.

Single-point manifests produce the coefficient-weighted energy sums, one per
destination slot. Optimization manifests produce the full results (energy,
geometry and timing).

Lost jobs are resubmitted unless NO_RESUB is set. A checkpoint is written to
<drain.check_dir>/chk.json every drain.check_interval iterations; continue an
interrupted drain with 'psqs resume'.`,
	Example: `  psqs run jobs.yaml                    # Drain and print results as JSON
  psqs run -o energies.json jobs.yaml   # Write results to a file
  psqs run --metrics-addr :9100 jobs.yaml
  NO_RESUB=1 psqs run jobs.yaml         # Fail instead of resubmitting lost jobs`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true, // Runtime errors should not show usage
	RunE:         runManifest,
}

var resumeCmd = &cobra.Command{
	Use:   "resume [flags] <manifest.yaml>",
	Short: "Continue a drain from its checkpoint",
	Long: `Reload <drain.check_dir>/chk.json and drain the jobs it lists into the
partial results it holds. The manifest supplies the program and procedure;
its job list is ignored. Chunk numbering continues where the interrupted
drain stopped.`,
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         resumeManifest,
}

func init() {
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	RegisterDrainFlags(runCmd.Flags(), &runFlags)
	RegisterDrainFlags(resumeCmd.Flags(), &resumeFlags)
}

func runManifest(cmd *cobra.Command, args []string) error {
	runFlags.routeMessages()
	m, err := manifest.Load(args[0])
	if err != nil {
		return err
	}
	lock, err := prepareDirs()
	if err != nil {
		return err
	}
	defer lock.Close()
	q, err := newQueue(m.Kind())
	if err != nil {
		return err
	}
	metrics, stop := startMetrics(runFlags.metricsAddr(cmd))
	defer stop()
	opts := drainOptions(metrics)

	utils.PrintMessage("Draining %s %s jobs (%s)", utils.StyleNumber(len(m.Jobs)), m.Kind(), m.Proc())
	switch m.Kind() {
	case program.KindMolpro:
		jobs, err := m.MolproJobs(opts.Dir)
		if err != nil {
			return err
		}
		return drainFresh(q, m.Proc(), jobs, m.Size, opts, runFlags.Output)
	case program.KindMopac:
		jobs, err := m.MopacJobs(opts.Dir)
		if err != nil {
			return err
		}
		return drainFresh(q, m.Proc(), jobs, m.Size, opts, runFlags.Output)
	}
	return fmt.Errorf("unsupported program %s", m.Kind())
}

func resumeManifest(cmd *cobra.Command, args []string) error {
	resumeFlags.routeMessages()
	m, err := manifest.Load(args[0])
	if err != nil {
		return err
	}
	lock, err := prepareDirs()
	if err != nil {
		return err
	}
	defer lock.Close()
	q, err := newQueue(m.Kind())
	if err != nil {
		return err
	}
	metrics, stop := startMetrics(resumeFlags.metricsAddr(cmd))
	defer stop()
	opts := drainOptions(metrics)

	switch m.Kind() {
	case program.KindMolpro:
		return drainCheckpoint[*program.Molpro](q, m.Proc(), opts, resumeFlags.Output)
	case program.KindMopac:
		return drainCheckpoint[*program.Mopac](q, m.Proc(), opts, resumeFlags.Output)
	}
	return fmt.Errorf("unsupported program %s", m.Kind())
}

// drainFresh picks the policy for proc.
func drainFresh[P program.Program](q queue.Queue, proc program.Procedure, jobs []*drain.Job[P], size int, opts drain.Options, output string) error {
	if proc == program.Opt {
		return drainAndReport[program.Result](q, drain.Both{}, jobs, make([]program.Result, size), opts, output)
	}
	return drainAndReport[float64](q, drain.Single{}, jobs, make([]float64, size), opts, output)
}

func drainCheckpoint[P program.Program](q queue.Queue, proc program.Procedure, opts drain.Options, output string) error {
	path := opts.CheckPath
	if proc == program.Opt {
		chk, err := drain.LoadCheckpoint[program.Result, P](path)
		if err != nil {
			return err
		}
		opts.FirstChunk = chk.NextChunk
		printResume(path, len(chk.Jobs), chk.NextChunk)
		return drainAndReport[program.Result](q, drain.Both{}, chk.Jobs, chk.Destination, opts, output)
	}
	chk, err := drain.LoadCheckpoint[float64, P](path)
	if err != nil {
		return err
	}
	opts.FirstChunk = chk.NextChunk
	printResume(path, len(chk.Jobs), chk.NextChunk)
	return drainAndReport[float64](q, drain.Single{}, chk.Jobs, chk.Destination, opts, output)
}

func printResume(path string, jobs, next int) {
	utils.PrintMessage("Resuming %s jobs from %s, next chunk %d",
		utils.StyleNumber(jobs), utils.StylePath(path), next)
}

func drainAndReport[T any, P program.Program](q queue.Queue, policy drain.Policy[T], jobs []*drain.Job[P], dst []T, opts drain.Options, output string) error {
	start := time.Now()
	total, err := drain.Drain[T](q, policy, jobs, dst, opts)
	if err != nil {
		killLocal(q)
		return err
	}
	utils.PrintSuccess("Drained %s jobs in %s (%s of program time)",
		utils.StyleNumber(len(jobs)), time.Since(start).Round(time.Second),
		utils.FormatSeconds(time.Duration(total*float64(time.Second))))
	return writeJSON(output, dst)
}

// killLocal stops the scripts a local queue still runs after a failed drain.
func killLocal(q queue.Queue) {
	l, ok := q.(*queue.Local)
	if !ok {
		return
	}
	if err := l.Kill(); err != nil {
		utils.PrintWarning("%v", err)
	}
}
