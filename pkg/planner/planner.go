package planner

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"periodic/internal/eventbus"
	rtsup "periodic/internal/runtime/supervisor"
	logx "periodic/pkg/logx"
	"periodic/pkg/period"
)

// Planner schedules callbacks. The zero value is not usable; call New.
type Planner struct {
	mu   sync.Mutex
	wake *wake // nil until Start; its presence marks the planner started
	sup  *rtsup.Supervisor

	q queue

	log logx.Logger
	clk clock.Clock
	bus eventbus.Bus

	historySize   int
	lateAfter     time.Duration
	lateWarnEvery time.Duration
	lateWarn      *rate.Limiter

	stats stats
}

// New returns an empty, unstarted Planner.
func New(opts ...Option) *Planner {
	p := &Planner{
		historySize:   defaultHistorySize,
		lateAfter:     defaultLateThreshold,
		lateWarnEvery: defaultLateWarnEvery,
	}
	for _, o := range opts {
		o(p)
	}
	if p.log.IsZero() {
		p.log = logx.Nop()
	}
	if p.clk == nil {
		p.clk = clock.New()
	}
	if p.historySize <= 0 {
		p.historySize = defaultHistorySize
	}
	if p.lateAfter <= 0 {
		p.lateAfter = defaultLateThreshold
	}
	if p.lateWarnEvery <= 0 {
		p.lateWarnEvery = defaultLateWarnEvery
	}
	p.lateWarn = rate.NewLimiter(rate.Every(p.lateWarnEvery), 1)
	p.stats.history = make([]Firing, 0, p.historySize)
	return p
}

// Start readies the planner. It is idempotent; Add calls it too. The loop
// itself only runs while jobs are queued.
func (p *Planner) Start() {
	p.mu.Lock()
	if p.wake != nil {
		p.mu.Unlock()
		return
	}
	p.wake = newWake()
	p.sup = rtsup.New(context.Background(), rtsup.WithLogger(p.log.With(logx.String("comp", "planner"))))
	w := p.wake
	p.mu.Unlock()

	if p.q.claim() {
		go p.run(w)
	}
	p.log.Info("planner started", logx.Int("jobs", p.q.len()))
}

// Add registers callback to run at every instant of s and returns the job id.
//
// callback may run on any goroutine, concurrently with itself and with other
// callbacks. Add fails without touching the queue when s yields no instant.
func (p *Planner) Add(callback func(), s period.Schedule) (string, error) {
	return p.AddNamed("", callback, s)
}

// AddNamed is Add with a human-readable name used in logs, events and history.
func (p *Planner) AddNamed(name string, callback func(), s period.Schedule) (string, error) {
	if callback == nil {
		return "", ErrNilCallback
	}
	if s == nil {
		return "", ErrNilSchedule
	}
	id := uuid.NewString()
	name = strings.TrimSpace(name)
	if name == "" {
		name = "job-" + id[:8]
	}
	j := newJob(id, name, callback, s)
	if j == nil {
		p.log.Warn("job rejected: empty schedule", logx.String("job", name))
		return "", ErrEmptySchedule
	}

	p.Start()
	p.mu.Lock()
	w := p.wake
	p.mu.Unlock()

	// Published before the push so "added" always precedes the job's first "fired".
	info := j.info()
	p.publish(eventbus.TypeJobAdded, info)

	earliest, spawn := p.q.push(j)
	switch {
	case spawn:
		go p.run(w)
	case earliest:
		w.notify()
	}

	p.log.Debug("job added", logx.String("job", name), logx.String("id", id), logx.Time("next", info.Next), logx.Bool("earliest", earliest))
	return id, nil
}

// Len reports the number of queued jobs.
func (p *Planner) Len() int { return p.q.len() }

func (p *Planner) publish(typ string, data any) {
	if p.bus == nil {
		return
	}
	p.bus.Publish(eventbus.Event{Type: typ, Time: p.clk.Now(), Data: data})
}

func (p *Planner) supervisor() *rtsup.Supervisor {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sup
}
