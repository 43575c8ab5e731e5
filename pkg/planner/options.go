package planner

import (
	"time"

	"github.com/benbjohnson/clock"

	"periodic/internal/eventbus"
	logx "periodic/pkg/logx"
)

const (
	defaultHistorySize   = 200
	defaultLateThreshold = 500 * time.Millisecond
	defaultLateWarnEvery = 5 * time.Second
)

type Option func(*Planner)

func WithLogger(log logx.Logger) Option {
	return func(p *Planner) { p.log = log }
}

// WithClock replaces the wall clock used for "now" and for the loop's timer.
// Schedules should be built from the same clock (period.From).
func WithClock(clk clock.Clock) Option {
	return func(p *Planner) { p.clk = clk }
}

// WithBus publishes job lifecycle events (eventbus.TypeJob*).
func WithBus(bus eventbus.Bus) Option {
	return func(p *Planner) { p.bus = bus }
}

// WithHistorySize bounds the number of recent firings kept for Snapshot.
func WithHistorySize(n int) Option {
	return func(p *Planner) { p.historySize = n }
}

// WithLateThreshold sets how late a firing may be before it counts as late.
func WithLateThreshold(d time.Duration) Option {
	return func(p *Planner) { p.lateAfter = d }
}

// WithLateWarnEvery throttles "job fired late" warnings to one per d.
func WithLateWarnEvery(d time.Duration) Option {
	return func(p *Planner) { p.lateWarnEvery = d }
}
