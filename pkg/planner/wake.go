package planner

import (
	"time"

	"github.com/benbjohnson/clock"
)

// wake interrupts the loop's sleep. The signal carries no payload: it only
// means "the queue changed, look again".
type wake struct {
	ch chan struct{}
}

func newWake() *wake {
	return &wake{ch: make(chan struct{}, 1)}
}

// notify never blocks. A signal sent while nobody waits stays buffered and
// costs the loop one extra check.
func (w *wake) notify() {
	select {
	case w.ch <- struct{}{}:
	default:
	}
}

// wait sleeps for d or until notify. It reports whether it was woken early.
func (w *wake) wait(clk clock.Clock, d time.Duration) bool {
	t := clk.Timer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return false
	case <-w.ch:
		return true
	}
}
