package drain

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ntBre/psqs/internal/program"
	"github.com/ntBre/psqs/internal/utils"
)

// fakeProgram writes "energy <E>" as its input. The fake queue "runs" it by
// copying the input to the output. Fail replaces the input body, so "error"
// produces a fatal output and anything else a parse failure. For the first
// Grow reads the output is touched with a newer mtime and reported as
// unfinished, like a log the program is still appending to.
type fakeProgram struct {
	Name   string        `json:"name"`
	Energy float64       `json:"energy"`
	Fail   string        `json:"fail,omitempty"`
	Delay  int           `json:"delay,omitempty"`
	Grow   int           `json:"grow,omitempty"`
	Geom   *program.Geom `json:"geom,omitempty"`

	reads int
}

func newFake(dir, name string, energy float64) *fakeProgram {
	return &fakeProgram{Name: filepath.Join(dir, name), Energy: energy}
}

func (p *fakeProgram) Filename() string        { return p.Name }
func (p *fakeProgram) SetFilename(name string) { p.Name = name }
func (p *fakeProgram) Extension() string       { return "inp" }
func (p *fakeProgram) Infile() string          { return p.Name + ".inp" }
func (p *fakeProgram) Outfile() string         { return p.Name + ".out" }

func (p *fakeProgram) AssociatedFiles() []string {
	return []string{p.Infile(), p.Outfile()}
}

func (p *fakeProgram) WriteInput(proc program.Procedure) error {
	body := fmt.Sprintf("energy %.10f\n", p.Energy)
	if p.Fail != "" {
		body = p.Fail + "\n"
	}
	if proc == program.Opt {
		body += "opt\n"
	}
	return os.WriteFile(p.Infile(), []byte(body), utils.PermFile)
}

func (p *fakeProgram) ReadOutput() (*program.Result, error) {
	p.reads++
	data, err := os.ReadFile(p.Outfile())
	if err != nil {
		return nil, program.NewFileNotFoundError(p.Outfile())
	}
	if p.reads <= p.Grow {
		t := time.Now().Add(time.Duration(p.reads) * time.Minute)
		if err := os.Chtimes(p.Outfile(), t, t); err != nil {
			return nil, program.NewFileNotFoundError(p.Outfile())
		}
		return nil, program.NewResultNotFoundError(p.Outfile())
	}
	if p.reads <= p.Delay {
		return nil, program.NewResultNotFoundError(p.Outfile())
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	fields := strings.Fields(lines[0])
	if len(fields) > 0 && fields[0] == "error" {
		return nil, program.NewErrorInOutputError(p.Outfile())
	}
	if len(fields) != 2 || fields[0] != "energy" {
		return nil, program.NewResultParseError(p.Outfile(), fmt.Errorf("bad line %q", lines[0]))
	}
	e, err := strconv.ParseFloat(fields[1], 64)
	if err != nil {
		return nil, program.NewResultParseError(p.Outfile(), err)
	}
	res := &program.Result{Energy: e, Time: 1}
	if len(lines) > 1 && lines[1] == "opt" {
		res.Geom = p.Geom
	}
	return res, nil
}

// fakeQueue completes a job the moment it is submitted by copying each
// input to its output, unless the input is listed in drop.
type fakeQueue struct {
	chunkSize int
	jobLimit  int
	noDelete  bool

	// statusAll reports every submitted job as still queued.
	statusAll bool
	// failAfter makes every Submit past the first failAfter calls fail.
	failAfter int

	mu      sync.Mutex
	scripts map[string][]string
	drop    map[string]bool
	ids     []string
	submits []string
}

func newFakeQueue(chunkSize, jobLimit int) *fakeQueue {
	return &fakeQueue{
		chunkSize: chunkSize,
		jobLimit:  jobLimit,
		scripts:   make(map[string][]string),
		drop:      make(map[string]bool),
	}
}

func (q *fakeQueue) ChunkSize() int               { return q.chunkSize }
func (q *fakeQueue) JobLimit() int                { return q.jobLimit }
func (q *fakeQueue) SleepInterval() time.Duration { return 0 }
func (q *fakeQueue) ScriptExt() string            { return "sh" }
func (q *fakeQueue) NoDelete() bool               { return q.noDelete }

func (q *fakeQueue) WriteSubmitScript(infiles []string, scriptPath string) error {
	q.mu.Lock()
	q.scripts[scriptPath] = infiles
	q.mu.Unlock()
	return os.WriteFile(scriptPath, []byte(strings.Join(infiles, "\n")+"\n"), utils.PermFile)
}

func (q *fakeQueue) Submit(scriptPath string) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.failAfter > 0 && len(q.submits) >= q.failAfter {
		return "", fmt.Errorf("queue is down")
	}
	q.submits = append(q.submits, scriptPath)
	id := strconv.Itoa(len(q.submits))
	q.ids = append(q.ids, id)
	for _, in := range q.scripts[scriptPath] {
		if q.drop[in] {
			continue
		}
		base, _ := utils.SplitExt(in)
		if err := utils.CopyFile(in, base+".out"); err != nil {
			return "", err
		}
	}
	return id, nil
}

func (q *fakeQueue) Status() (map[string]struct{}, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make(map[string]struct{})
	if q.statusAll {
		for _, id := range q.ids {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

func (q *fakeQueue) submitted() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]string(nil), q.submits...)
}
