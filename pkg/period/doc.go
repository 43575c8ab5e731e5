// Package period describes when a job should run.
//
// A Schedule is a lazy, possibly infinite sequence of due instants. Every
// producer captures its reference "now" when it is constructed, so instants
// never drift with the moment Next happens to be called:
//   - Every(step): t0+step, t0+2*step, ... (infinite)
//   - After(d): t0+d (exactly once)
//   - List(d1, d2, ...): t0+d1, t0+d2, ... (caller order, may go backwards)
//   - At(t1, t2, ...): absolute instants in caller order
//   - Cron(expr): cron firings after t0 (robfig/cron syntax)
//
// Parse turns the textual forms used in config files into a Schedule.
package period
