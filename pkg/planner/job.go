package planner

import (
	"time"

	"periodic/pkg/period"
)

// job binds a callback to the unconsumed tail of its schedule.
//
// Only the loop mutates a job, and only while the job is outside the queue.
type job struct {
	id   string
	name string
	fn   func()
	rest period.Schedule

	due   time.Time
	fired uint64 // occurrences dispatched so far
}

// newJob pulls the first instant. It returns nil when the schedule is empty.
func newJob(id, name string, fn func(), s period.Schedule) *job {
	due, ok := s.Next()
	if !ok {
		return nil
	}
	return &job{id: id, name: name, fn: fn, rest: s, due: due}
}

// advance moves j to its next instant, or returns nil once the schedule is
// exhausted. The caller gives up j either way.
func (j *job) advance() *job {
	j.fired++
	due, ok := j.rest.Next()
	if !ok {
		return nil
	}
	j.due = due
	return j
}

func (j *job) info() JobInfo {
	return JobInfo{ID: j.id, Name: j.name, Next: j.due, Fired: j.fired}
}
