package drain

import (
	"fmt"
	"time"
)

// Timer accumulates where a drain spent its wall time.
type Timer struct {
	Reading       time.Duration
	WritingInput  time.Duration
	WritingScript time.Duration
	Submitting    time.Duration
	Sleeping      time.Duration
	Removing      time.Duration
}

func (t Timer) String() string {
	return fmt.Sprintf("%.1f s reading, %.1f s writing input, %.1f s writing script, "+
		"%.1f s submitting, %.1f s sleeping, %.1f s removing",
		t.Reading.Seconds(), t.WritingInput.Seconds(), t.WritingScript.Seconds(),
		t.Submitting.Seconds(), t.Sleeping.Seconds(), t.Removing.Seconds())
}

// add merges the durations measured by a worker goroutine.
func (t *Timer) add(o Timer) {
	t.Reading += o.Reading
	t.WritingInput += o.WritingInput
	t.WritingScript += o.WritingScript
	t.Submitting += o.Submitting
	t.Sleeping += o.Sleeping
	t.Removing += o.Removing
}
