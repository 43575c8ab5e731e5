package period

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// SecondOptional allows both 5-field and 6-field (with seconds) cron specs.
var cronParser = cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// CronSchedule walks a cron.Schedule forward from a reference instant.
type CronSchedule struct {
	expr  string
	sched cron.Schedule
	last  time.Time
	done  bool
}

// Cron parses expr ("*/5 * * * *", "0 30 * * * *", "@hourly", "@every 90s")
// and anchors it at the factory's current time.
func (f Factory) Cron(expr string) (*CronSchedule, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("cron schedule required")
	}
	sched, err := cronParser.Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron %q: %w", expr, err)
	}
	return &CronSchedule{expr: expr, sched: sched, last: f.now()}, nil
}

// Cron is Factory.Cron on the wall clock.
func Cron(expr string) (*CronSchedule, error) { return wall.Cron(expr) }

func (s *CronSchedule) Next() (time.Time, bool) {
	if s.done {
		return time.Time{}, false
	}
	t := s.sched.Next(s.last)
	if t.IsZero() {
		// robfig/cron gives up after five years without a match.
		s.done = true
		return time.Time{}, false
	}
	s.last = t
	return t, true
}

func (s *CronSchedule) String() string { return s.expr }
