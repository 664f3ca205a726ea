package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/ntBre/psqs/internal/config"
	"github.com/ntBre/psqs/internal/drain"
	"github.com/ntBre/psqs/internal/program"
	"github.com/ntBre/psqs/internal/queue"
	"github.com/ntBre/psqs/internal/utils"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// Exit codes used by various commands
const (
	// Generic error code
	ExitCodeError = 1
)

// ExitWithError prints an error and exits with ExitCodeError
func ExitWithError(format string, a ...interface{}) {
	utils.PrintError(format, a...)
	os.Exit(ExitCodeError)
}

// DrainFlags are shared by run, resume and optimize.
type DrainFlags struct {
	Output      string
	MetricsAddr string
}

// RegisterDrainFlags registers the drain flags on a command's flag set
func RegisterDrainFlags(fs *pflag.FlagSet, flags *DrainFlags) {
	fs.StringVarP(&flags.Output, "output", "o", "", "Write results as JSON to this file (default: stdout)")
	fs.StringVar(&flags.MetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (default: metrics.addr)")
}

// routeMessages keeps stdout for the JSON results when no output file is
// given.
func (f *DrainFlags) routeMessages() {
	if f.Output == "" {
		utils.Stdout = os.Stderr
	}
}

// metricsAddr prefers the flag over the config file.
func (f *DrainFlags) metricsAddr(cmd *cobra.Command) string {
	if cmd.Flags().Changed("metrics-addr") {
		return f.MetricsAddr
	}
	return config.Global.MetricsAddr
}

// newQueue builds the configured backend for a program.
func newQueue(kind program.Kind) (queue.Queue, error) {
	t, err := queue.ParseType(config.Global.Queue.Type)
	if err != nil {
		return nil, err
	}
	opts := queue.Options{
		ChunkSize:     config.Global.Queue.ChunkSize,
		JobLimit:      config.Global.Queue.JobLimit,
		SleepInterval: config.Global.Queue.SleepInterval,
		NoDelete:      config.Global.Queue.NoDelete,
		Command:       config.ProgramCommand(string(kind)),
	}
	if name := config.Global.Queue.Template; name != "" {
		path, err := config.FindTemplate(name, "")
		if err != nil {
			return nil, fmt.Errorf("queue.template: %w", err)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("queue.template: %w", err)
		}
		opts.Header = string(data)
		utils.PrintDebug("Using submit script header %s", utils.StylePath(path))
	}
	return queue.New(t, opts)
}

// drainOptions maps the configuration onto the engine.
func drainOptions(m *drain.Metrics) drain.Options {
	return drain.Options{
		Dir:             config.Global.Queue.Dir,
		CheckInterval:   config.Global.Drain.CheckInterval,
		CheckPath:       checkpointPath(),
		NoResubmit:      config.Global.NoResubmit,
		MaxParseRetries: config.Global.Drain.MaxParseRetries,
		Parallelism:     config.Global.Drain.Parallelism,
		StatusInterval:  config.Global.Queue.StatusInterval,
		Metrics:         m,
	}
}

func checkpointPath() string {
	return filepath.Join(config.Global.Drain.CheckDir, drain.CheckpointFile)
}

// prepareDirs creates the checkpoint directory and locks the job
// directory, so two drains never write the same chunk scripts.
func prepareDirs() (*utils.Lock, error) {
	if err := utils.EnsureDir(config.Global.Drain.CheckDir); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", config.Global.Drain.CheckDir, err)
	}
	return utils.LockDir(config.Global.Queue.Dir)
}

// writeJSON writes v to path, or to stdout when path is empty.
func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := utils.WriteFileAtomic(path, data); err != nil {
		return err
	}
	utils.PrintSuccess("Results written to %s", utils.StylePath(path))
	return nil
}

// startMetrics serves the drain metrics on addr until the returned stop
// function is called. An empty addr returns unregistered metrics.
func startMetrics(addr string) (*drain.Metrics, func()) {
	if addr == "" {
		return drain.NewMetrics(nil), func() {}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := drain.NewMetrics(reg)

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		utils.PrintWarning("Metrics disabled: %v", err)
		return m, func() {}
	}

	mux := httprouter.New()
	h := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	mux.Handler("GET", "/metrics", h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			utils.PrintWarning("Metrics server stopped: %v", err)
		}
	}()
	utils.PrintNote("Serving metrics on http://%s/metrics", ln.Addr())

	return m, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
