package drain

import (
	"errors"
	"io/fs"
	"os"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ntBre/psqs/internal/utils"
)

// CleanStats summarizes what a Cleaner did.
type CleanStats struct {
	Files   int
	Bytes   int64
	Elapsed time.Duration
}

func (s CleanStats) String() string {
	return humanize.Comma(int64(s.Files)) + " files, " + humanize.Bytes(uint64(s.Bytes)) + " reclaimed"
}

// Cleaner deletes finished job artifacts on a single background goroutine.
// Add must not be called after Shutdown.
type Cleaner struct {
	todo    chan string
	done    chan struct{}
	noop    bool
	remove  func(string) error
	metrics *Metrics

	stats CleanStats
	once  sync.Once
}

// NewCleaner starts the worker. With noop set every file is accepted and
// dropped without touching the filesystem.
func NewCleaner(buffer int, noop bool, m *Metrics) *Cleaner {
	return newCleaner(buffer, noop, m, os.Remove)
}

func newCleaner(buffer int, noop bool, m *Metrics, remove func(string) error) *Cleaner {
	if buffer < 1 {
		buffer = 1
	}
	if m == nil {
		m = NewMetrics(nil)
	}
	c := &Cleaner{
		todo:    make(chan string, buffer),
		done:    make(chan struct{}),
		noop:    noop,
		remove:  remove,
		metrics: m,
	}
	go c.run()
	return c
}

func (c *Cleaner) run() {
	defer close(c.done)
	for name := range c.todo {
		if c.noop {
			continue
		}
		start := time.Now()
		var size int64
		if info, err := os.Stat(name); err == nil {
			size = info.Size()
		}
		err := c.remove(name)
		c.stats.Elapsed += time.Since(start)
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				utils.PrintDebug("failed to remove %s: %v", name, err)
			}
			continue
		}
		c.stats.Files++
		c.stats.Bytes += size
		c.metrics.filesRemoved.Inc()
	}
}

// Add queues files for deletion. It blocks while the queue is full.
func (c *Cleaner) Add(files ...string) {
	for _, f := range files {
		c.todo <- f
	}
}

// Shutdown closes the queue and waits until everything already queued has
// been handled. Safe to call more than once.
func (c *Cleaner) Shutdown() CleanStats {
	c.once.Do(func() {
		close(c.todo)
	})
	<-c.done
	return c.stats
}
