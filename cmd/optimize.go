package cmd

import (
	"fmt"

	"github.com/ntBre/psqs/internal/drain"
	"github.com/ntBre/psqs/internal/manifest"
	"github.com/ntBre/psqs/internal/program"
	"github.com/ntBre/psqs/internal/queue"
	"github.com/ntBre/psqs/internal/utils"
	"github.com/spf13/cobra"
)

var optimizeFlags DrainFlags

var optimizeCmd = &cobra.Command{
	Use:   "optimize [flags] <manifest.yaml>",
	Short: "Optimize a single geometry",
	Long: `Drain the single job of a manifest as a geometry optimization and print
the optimized geometry. The manifest procedure is ignored.`,
	Example: `  psqs optimize h2o.yaml
  psqs optimize -o geom.json h2o.yaml`,
	Aliases:      []string{"opt"},
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE:         runOptimize,
}

func init() {
	rootCmd.AddCommand(optimizeCmd)
	RegisterDrainFlags(optimizeCmd.Flags(), &optimizeFlags)
}

func runOptimize(cmd *cobra.Command, args []string) error {
	optimizeFlags.routeMessages()
	m, err := manifest.Load(args[0])
	if err != nil {
		return err
	}
	if len(m.Jobs) != 1 {
		return fmt.Errorf("%w: optimize needs exactly one job, %s has %d", manifest.ErrInvalidManifest, args[0], len(m.Jobs))
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
	metrics, stop := startMetrics(optimizeFlags.metricsAddr(cmd))
	defer stop()
	opts := drainOptions(metrics)
	// a single job has nothing worth checkpointing
	opts.CheckInterval = 0

	switch m.Kind() {
	case program.KindMolpro:
		jobs, err := m.MolproJobs(opts.Dir)
		if err != nil {
			return err
		}
		return optimizeJob(q, jobs[0], opts)
	case program.KindMopac:
		jobs, err := m.MopacJobs(opts.Dir)
		if err != nil {
			return err
		}
		return optimizeJob(q, jobs[0], opts)
	}
	return fmt.Errorf("unsupported program %s", m.Kind())
}

func optimizeJob[P program.Program](q queue.Queue, job *drain.Job[P], opts drain.Options) error {
	geom, err := drain.Optimize(q, job, opts)
	if err != nil {
		killLocal(q)
		return err
	}
	if optimizeFlags.Output != "" {
		return writeJSON(optimizeFlags.Output, geom)
	}
	utils.PrintSuccess("Optimized %s", utils.StyleName(job.Program.Filename()))
	fmt.Print(geom.String())
	return nil
}
