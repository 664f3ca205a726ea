//go:build unix

package drain

import (
	"time"

	"golang.org/x/sys/unix"
)

// cpuTime returns the user plus system CPU time of this process.
func cpuTime() time.Duration {
	var ru unix.Rusage
	if err := unix.Getrusage(unix.RUSAGE_SELF, &ru); err != nil {
		return 0
	}
	return time.Duration(ru.Utime.Nano() + ru.Stime.Nano())
}
