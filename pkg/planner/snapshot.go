package planner

import (
	"sync"
	"time"

	rtsup "periodic/internal/runtime/supervisor"
)

// JobInfo describes a queued job.
type JobInfo struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Next  time.Time `json:"next"`
	Fired uint64    `json:"fired"`
}

// Firing records one dispatched callback.
type Firing struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Occurrence uint64        `json:"occurrence"`
	Due        time.Time     `json:"due"`
	Fired      time.Time     `json:"fired"`
	Late       time.Duration `json:"late"`
}

// Snapshot is a lightweight view for diagnostics.
type Snapshot struct {
	Started bool `json:"started"`
	// Running is false while the planner is dormant (queue drained).
	Running bool      `json:"running"`
	Queued  int       `json:"queued"`
	Jobs    []JobInfo `json:"jobs"`

	Fired     uint64 `json:"fired"`
	Late      uint64 `json:"late"`
	Exhausted uint64 `json:"exhausted"`

	// Callback goroutines.
	Goroutines rtsup.Counters `json:"goroutines"`

	History []Firing `json:"history,omitempty"`
}

type stats struct {
	mu        sync.Mutex
	fired     uint64
	late      uint64
	exhausted uint64
	history   []Firing
}

func (s *stats) record(f Firing, late bool, size int) {
	s.mu.Lock()
	s.fired++
	if late {
		s.late++
	}
	s.history = append(s.history, f)
	if len(s.history) > size {
		s.history = s.history[len(s.history)-size:]
	}
	s.mu.Unlock()
}

func (s *stats) noteExhausted() {
	s.mu.Lock()
	s.exhausted++
	s.mu.Unlock()
}

func (s *stats) lateTotal() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.late
}

func (p *Planner) Snapshot() Snapshot {
	p.mu.Lock()
	started := p.wake != nil
	sup := p.sup
	p.mu.Unlock()

	jobs := p.q.jobs()
	running := p.q.isRunning()

	p.stats.mu.Lock()
	h := make([]Firing, len(p.stats.history))
	copy(h, p.stats.history)
	snap := Snapshot{
		Started:   started,
		Running:   running,
		Queued:    len(jobs),
		Jobs:      jobs,
		Fired:     p.stats.fired,
		Late:      p.stats.late,
		Exhausted: p.stats.exhausted,
		History:   h,
	}
	p.stats.mu.Unlock()

	snap.Goroutines = sup.Counters()
	return snap
}
