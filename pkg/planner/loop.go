package planner

import (
	"context"

	"periodic/internal/eventbus"
	logx "periodic/pkg/logx"
)

// callbackGoroutine names callback goroutines in the supervisor.
const callbackGoroutine = "job"

// run is the scheduling loop. It exits when the queue empties; the next Add
// starts a fresh one.
//
// The loop is not supervised: a queue invariant violation panics the process.
func (p *Planner) run(w *wake) {
	p.log.Debug("planner loop started")
	for {
		st := p.q.next(p.clk.Now)
		switch st.kind {
		case stepIdle:
			p.log.Debug("planner idle: queue empty")
			p.publish(eventbus.TypePlannerIdle, nil)
			return

		case stepFire:
			j := st.job
			p.fire(j, st)
			if next := j.advance(); next != nil {
				p.q.reinsert(next)
				continue
			}
			p.stats.noteExhausted()
			p.log.Debug("job exhausted", logx.String("job", j.name), logx.String("id", j.id), logx.Uint64("fired", j.fired))
			p.publish(eventbus.TypeJobExhausted, j.info())

		case stepWait:
			// Woken early or not, re-check from the queue: a signal only says
			// something changed.
			w.wait(p.clk, st.wait)
		}
	}
}

// fire hands the callback to its own goroutine and records the firing.
func (p *Planner) fire(j *job, st step) {
	fn, name := j.fn, j.name
	// All callbacks share one supervisor name so its stats stay bounded.
	p.supervisor().Go0(callbackGoroutine, func(context.Context) {
		defer func() {
			if r := recover(); r != nil {
				p.log.Error("job callback panicked", logx.String("job", name))
				panic(r)
			}
		}()
		fn()
	})

	f := Firing{
		ID:         j.id,
		Name:       j.name,
		Occurrence: j.fired + 1,
		Due:        j.due,
		Fired:      st.now,
		Late:       st.now.Sub(j.due),
	}
	late := f.Late > p.lateAfter
	p.stats.record(f, late, p.historySize)

	if late && p.lateWarn.Allow() {
		p.log.Warn("job fired late", logx.String("job", j.name), logx.Duration("late", f.Late), logx.Uint64("late_total", p.stats.lateTotal()))
	} else {
		p.log.Trace("job fired", logx.String("job", j.name), logx.Uint64("occurrence", f.Occurrence), logx.Duration("late", f.Late))
	}
	p.publish(eventbus.TypeJobFired, f)
}
