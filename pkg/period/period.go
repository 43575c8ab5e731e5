package period

import (
	"time"

	"github.com/benbjohnson/clock"
)

// Schedule yields due instants one at a time.
//
// Next returns false once the sequence is exhausted. A Schedule is owned by a
// single job and is never called concurrently.
type Schedule interface {
	Next() (time.Time, bool)
}

// Func adapts a plain function to Schedule.
type Func func() (time.Time, bool)

func (f Func) Next() (time.Time, bool) { return f() }

// Factory builds schedules whose reference instant comes from a clock.
// The zero value uses the wall clock.
type Factory struct {
	clk clock.Clock
}

// From returns a Factory reading "now" from clk.
func From(clk clock.Clock) Factory {
	return Factory{clk: clk}
}

var wall = From(clock.New())

func (f Factory) now() time.Time {
	if f.clk == nil {
		return time.Now()
	}
	return f.clk.Now()
}

// Interval is the infinite sequence start+step, start+2*step, ...
type Interval struct {
	step time.Duration
	last time.Time
}

// Every returns an Interval anchored at the factory's current time.
// It panics if step is not positive, like time.NewTicker.
func (f Factory) Every(step time.Duration) *Interval {
	return EveryFrom(f.now(), step)
}

// EveryFrom returns an Interval anchored at start.
func EveryFrom(start time.Time, step time.Duration) *Interval {
	if step <= 0 {
		panic("period: non-positive step for Every")
	}
	return &Interval{step: step, last: start}
}

func (s *Interval) Next() (time.Time, bool) {
	s.last = s.last.Add(s.step)
	return s.last, true
}

// Step reports the configured cadence.
func (s *Interval) Step() time.Duration { return s.step }

// Instants is a finite sequence consumed in caller order.
type Instants struct {
	at []time.Time
	i  int
}

// After returns a single-instant schedule due d after the factory's current time.
func (f Factory) After(d time.Duration) *Instants {
	return &Instants{at: []time.Time{f.now().Add(d)}}
}

// List resolves every duration against one captured "now". Durations are
// not cumulative: List(3s, 5s) fires at t0+3s and t0+5s.
func (f Factory) List(ds ...time.Duration) *Instants {
	now := f.now()
	at := make([]time.Time, len(ds))
	for i, d := range ds {
		at[i] = now.Add(d)
	}
	return &Instants{at: at}
}

// At returns a schedule over absolute instants.
func At(ts ...time.Time) *Instants {
	return &Instants{at: append([]time.Time(nil), ts...)}
}

func (s *Instants) Next() (time.Time, bool) {
	if s.i >= len(s.at) {
		return time.Time{}, false
	}
	t := s.at[s.i]
	s.i++
	return t, true
}

// Remaining reports how many instants have not been consumed yet.
func (s *Instants) Remaining() int { return len(s.at) - s.i }

// Every is Factory.Every on the wall clock.
func Every(step time.Duration) *Interval { return wall.Every(step) }

// After is Factory.After on the wall clock.
func After(d time.Duration) *Instants { return wall.After(d) }

// List is Factory.List on the wall clock.
func List(ds ...time.Duration) *Instants { return wall.List(ds...) }
