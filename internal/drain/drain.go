// Package drain runs a pool of independent program jobs through a batch
// queue to completion: chunked submission under a concurrency cap, parallel
// output polling, resubmission of lost jobs, background artifact cleanup and
// periodic checkpoints.
package drain

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ntBre/psqs/internal/program"
	"github.com/ntBre/psqs/internal/queue"
	"github.com/ntBre/psqs/internal/utils"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Options configure a drain. Zero values fall back to defaults.
type Options struct {
	// Dir receives the chunk scripts main<N>.<ext>.
	Dir string

	// CheckInterval is the number of iterations between checkpoints written
	// to CheckPath. 0 disables checkpointing.
	CheckInterval int
	CheckPath     string

	// NoResubmit turns a lost job into a fatal error.
	NoResubmit bool

	// MaxParseRetries bounds resubmissions caused by unparsable output.
	// 0 means unlimited.
	MaxParseRetries int

	// Parallelism bounds the concurrent chunk builds, output reads and
	// resubmissions. Defaults to 8.
	Parallelism int

	// StatusInterval is the minimum time between scheduler status queries.
	StatusInterval time.Duration

	// FirstChunk is the first chunk number to use, from a checkpoint's
	// next_chunk when resuming.
	FirstChunk int

	Metrics *Metrics

	remove  func(string) error
	observe func(active, pending int)
}

const defaultParallelism = 8

type readResult struct {
	res     *program.Result
	err     error
	modTime time.Time
}

type engine[T any, P program.Program] struct {
	q       queue.Queue
	policy  Policy[T]
	dst     []T
	opts    Options
	metrics *Metrics

	chunkSize   int
	jobLimit    int
	parallelism int

	pending []*Job[P]
	active  []*Job[P]

	// slurmJobs counts the outstanding jobs of each script; qstat is the
	// last scheduler snapshot. Only the driver goroutine touches either.
	slurmJobs map[string]int
	qstat     map[string]struct{}

	cleaner *Cleaner
	resub   *Resubmitter
	limiter *rate.Limiter
	timer   Timer

	chunkNum int
	maxChunk int
	iter     int
	jobTime  float64
}

// Drain runs jobs through q until every one has completed, folding results
// into dst with policy. It returns the total wall time the programs
// reported, or the first fatal error: an error reported in a program
// output, an *EnvironmentError, ErrResubmitDisabled or
// ErrParseRetriesExceeded. Results folded before a fatal error stay in dst.
func Drain[T any, P program.Program](q queue.Queue, policy Policy[T], jobs []*Job[P], dst []T, opts Options) (float64, error) {
	for i, job := range jobs {
		if job.Index < 0 || job.Index >= len(dst) {
			return 0, fmt.Errorf("%w: job %d (%s) has index %d, destination has %d slots",
				ErrIndexOutOfRange, i, job.Program.Filename(), job.Index, len(dst))
		}
	}

	e := newEngine(q, policy, jobs, dst, opts)
	return e.run()
}

func newEngine[T any, P program.Program](q queue.Queue, policy Policy[T], jobs []*Job[P], dst []T, opts Options) *engine[T, P] {
	m := opts.Metrics
	if m == nil {
		m = NewMetrics(nil)
	}

	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = defaultParallelism
	}

	chunkSize, jobLimit := q.ChunkSize(), q.JobLimit()
	if jobLimit < 1 {
		jobLimit = 1
	}
	if chunkSize < 1 {
		chunkSize = 1
	}
	if chunkSize > jobLimit {
		utils.PrintWarning("chunk size %d exceeds job limit %d; using %d",
			chunkSize, jobLimit, jobLimit)
		chunkSize = jobLimit
	}

	limit := rate.Inf
	if opts.StatusInterval > 0 {
		limit = rate.Every(opts.StatusInterval)
	}

	remove := opts.remove
	if remove == nil {
		remove = os.Remove
	}

	pending := make([]*Job[P], len(jobs))
	copy(pending, jobs)

	return &engine[T, P]{
		q:           q,
		policy:      policy,
		dst:         dst,
		opts:        opts,
		metrics:     m,
		chunkSize:   chunkSize,
		jobLimit:    jobLimit,
		parallelism: parallelism,
		pending:     pending,
		slurmJobs:   make(map[string]int),
		qstat:       make(map[string]struct{}),
		cleaner:     newCleaner(chunkSize*5, q.NoDelete(), m, remove),
		resub:       NewResubmitter(q, parallelism),
		limiter:     rate.NewLimiter(limit, 1),
		chunkNum:    opts.FirstChunk,
		maxChunk:    opts.FirstChunk - 1,
	}
}

func (e *engine[T, P]) run() (float64, error) {
	for {
		if err := e.admit(); err != nil {
			return 0, e.abort(err)
		}
		e.metrics.activeJobs.Set(float64(len(e.active)))
		e.metrics.pendingJobs.Set(float64(len(e.pending)))
		if e.opts.observe != nil {
			e.opts.observe(len(e.active), len(e.pending))
		}

		finished, lost, err := e.collect()
		if err != nil {
			return 0, e.abort(err)
		}

		if len(lost) > 0 {
			if err := e.resubmit(lost); err != nil {
				return 0, e.abort(err)
			}
		}

		if len(e.active) == 0 && len(e.pending) == 0 {
			return e.finish(), nil
		}

		remaining := len(e.active) + len(e.pending)
		if finished == 0 {
			utils.PrintMessage("[iter %d %s %.1f CPU s] %s jobs remaining",
				e.iter, time.Now().Format("2006-01-02 15:04:05"),
				cpuTime().Seconds(), utils.StyleNumber(remaining))
			e.sleep()
			e.refreshStatus()
		} else if finished > remaining/10 {
			utils.PrintMessage("%s jobs remaining", utils.StyleNumber(remaining))
		}

		e.iter++
		e.metrics.iterations.Inc()
		if e.opts.CheckInterval > 0 && e.iter%e.opts.CheckInterval == 0 {
			if err := e.checkpoint(); err != nil {
				return 0, e.abort(err)
			}
		}
	}
}

// admit cuts whole chunks off the pending list while they fit under the
// job limit, builds them concurrently, then records them.
func (e *engine[T, P]) admit() error {
	var chunks []*chunk[P]
	admitted := 0
	for len(e.pending) > 0 {
		n := min(e.chunkSize, len(e.pending))
		if len(e.active)+admitted+n > e.jobLimit {
			break
		}
		chunks = append(chunks, &chunk[P]{num: e.chunkNum, jobs: e.pending[:n:n]})
		e.pending = e.pending[n:]
		e.chunkNum++
		admitted += n
	}
	if len(chunks) == 0 {
		return nil
	}

	proc := e.policy.Procedure()
	g := new(errgroup.Group)
	g.SetLimit(e.parallelism)
	for _, c := range chunks {
		g.Go(func() error {
			return buildChunk(e.q, e.opts.Dir, c, proc)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	// Build order is not submission order; track the largest chunk seen.
	for _, c := range chunks {
		e.timer.add(c.timer)
		e.slurmJobs[c.script] = len(c.jobs)
		e.qstat[c.jobID] = struct{}{}
		e.active = append(e.active, c.jobs...)
		if c.num > e.maxChunk {
			e.maxChunk = c.num
		}
		e.metrics.chunksSubmitted.Inc()
		e.metrics.jobsSubmitted.Add(float64(len(c.jobs)))
		utils.PrintDebug("submitted chunk %d (%s) as job %s", c.num, c.script, c.jobID)
	}
	return nil
}

// collect reads every active output concurrently and then reconciles the
// results on the driver goroutine. It returns the number of completed jobs
// and the jobs judged lost, which have left the active set.
func (e *engine[T, P]) collect() (int, []*Job[P], error) {
	start := time.Now()
	results := make([]readResult, len(e.active))
	g := new(errgroup.Group)
	g.SetLimit(e.parallelism)
	for i, job := range e.active {
		g.Go(func() error {
			res, err := job.Program.ReadOutput()
			r := readResult{res: res, err: err}
			if err != nil {
				r.modTime = utils.ModTime(job.Program.Outfile())
			}
			results[i] = r
			return nil
		})
	}
	_ = g.Wait()
	elapsed := time.Since(start)
	e.timer.Reading += elapsed
	e.metrics.pollSeconds.Observe(elapsed.Seconds())

	finished := 0
	var lost []*Job[P]
	kept := e.active[:0]
	for i, job := range e.active {
		r := results[i]
		switch {
		case r.err == nil:
			e.complete(job, r.res)
			finished++
		case program.IsFatal(r.err):
			return finished, nil, r.err
		case program.IsTransient(r.err):
			if _, running := e.qstat[job.JobID]; running {
				kept = append(kept, job)
				continue
			}
			// still being written
			if r.modTime.After(job.ModTime) {
				job.ModTime = r.modTime
				kept = append(kept, job)
				continue
			}
			if errors.Is(r.err, program.ErrResultParse) {
				if e.opts.MaxParseRetries > 0 && job.ParseRetries >= e.opts.MaxParseRetries {
					return finished, nil, fmt.Errorf("%w: %s resubmitted %d times: %w",
						ErrParseRetriesExceeded, job.Program.Filename(), job.ParseRetries, r.err)
				}
				job.ParseRetries++
			}
			utils.PrintDebug("%s lost: %v", job.Program.Filename(), r.err)
			lost = append(lost, job)
		default:
			return finished, nil, NewEnvironmentError("read output", job.Program.Outfile(), r.err)
		}
	}
	clear(e.active[len(kept):])
	e.active = kept
	return finished, lost, nil
}

// complete folds a result into the destination and hands the job's files to
// the cleaner. The script and its log go too once its last job is done.
func (e *engine[T, P]) complete(job *Job[P], res *program.Result) {
	e.policy.SetResult(e.dst, job.Index, job.Coeff, res)
	e.jobTime += res.Time
	e.cleaner.Add(job.Program.AssociatedFiles()...)
	e.metrics.jobsCompleted.Inc()

	count, ok := e.slurmJobs[job.ScriptPath]
	if !ok {
		utils.PrintWarning("failed to find %s in script table", utils.StylePath(job.ScriptPath))
		return
	}
	count--
	if count > 0 {
		e.slurmJobs[job.ScriptPath] = count
		return
	}
	delete(e.slurmJobs, job.ScriptPath)
	e.cleaner.Add(job.ScriptPath, job.ScriptPath+".out")
}

// resubmit sends every lost job back out as its own submission. The old
// script entries are dropped, not decremented.
func (e *engine[T, P]) resubmit(lost []*Job[P]) error {
	if e.opts.NoResubmit {
		names := make([]string, len(lost))
		for i, job := range lost {
			names[i] = job.Program.Filename()
		}
		return fmt.Errorf("%w: %s", ErrResubmitDisabled, strings.Join(names, ", "))
	}

	for _, job := range lost {
		if isRedo(job.Program.Filename()) {
			utils.PrintWarning("%s %s again", utils.StyleAction("resubmitting"), utils.StylePath(job.Program.Filename()))
		} else {
			utils.PrintWarning("%s %s", utils.StyleAction("resubmitting"), utils.StylePath(job.Program.Filename()))
		}
	}

	out, timer, err := resubmitAll(e.resub, lost)
	e.timer.add(timer)
	if err != nil {
		return err
	}

	for i, job := range lost {
		r := out[i]
		job.Program.SetFilename(r.Input)
		job.ScriptPath = r.Script
		job.JobID = r.JobID
		job.ModTime = time.Time{}
		e.slurmJobs[r.Script] = 1
		e.qstat[r.JobID] = struct{}{}
		e.active = append(e.active, job)
		e.metrics.jobsResubmitted.Inc()
		e.metrics.jobsSubmitted.Inc()
	}
	return nil
}

func (e *engine[T, P]) sleep() {
	d := e.q.SleepInterval()
	if d <= 0 {
		return
	}
	start := time.Now()
	time.Sleep(d)
	e.timer.Sleeping += time.Since(start)
}

// refreshStatus replaces the snapshot, at most once per StatusInterval. A
// failed query keeps the old snapshot.
func (e *engine[T, P]) refreshStatus() {
	if !e.limiter.Allow() {
		return
	}
	snap, err := e.q.Status()
	if err != nil {
		utils.PrintWarning("failed to refresh scheduler status: %v", err)
		return
	}
	e.metrics.statusRefreshes.Inc()
	e.qstat = snap
}

func (e *engine[T, P]) checkpoint() error {
	if e.opts.CheckPath == "" {
		return nil
	}
	jobs := make([]*Job[P], 0, len(e.active)+len(e.pending))
	jobs = append(jobs, e.active...)
	jobs = append(jobs, e.pending...)
	next := max(e.maxChunk+1, e.opts.FirstChunk)
	if err := WriteCheckpoint(e.opts.CheckPath, e.dst, jobs, next); err != nil {
		return err
	}
	utils.PrintDebug("wrote checkpoint %s (%d jobs)", e.opts.CheckPath, len(jobs))
	return nil
}

func (e *engine[T, P]) finish() float64 {
	stats := e.cleaner.Shutdown()
	e.timer.Removing = stats.Elapsed
	utils.PrintNote("%s", e.timer.String())
	if stats.Files > 0 {
		utils.PrintNote("cleaned up %s", stats.String())
	}
	return e.jobTime
}

// abort flushes the cleaner before a fatal error leaves the loop.
func (e *engine[T, P]) abort(err error) error {
	e.cleaner.Shutdown()
	return err
}

// Optimize drains a single job with the Opt policy and returns the
// geometry it converged to. The job is drained as a copy writing into slot
// 0, so the caller's Index is left alone.
func Optimize[P program.Program](q queue.Queue, job *Job[P], opts Options) (*program.Geom, error) {
	one := *job
	one.Index = 0
	dst := make([]program.Geom, 1)
	if _, err := Drain[program.Geom](q, Opt{}, []*Job[P]{&one}, dst, opts); err != nil {
		return nil, err
	}
	if len(dst[0].Atoms) == 0 && dst[0].Zmat == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoGeometry, job.Program.Outfile())
	}
	return &dst[0], nil
}
