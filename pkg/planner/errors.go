package planner

import "errors"

var (
	// ErrEmptySchedule is returned by Add when the schedule yields no instant at all.
	ErrEmptySchedule = errors.New("planner: schedule yields no instants; a job must run at least once")
	ErrNilCallback   = errors.New("planner: callback is nil")
	ErrNilSchedule   = errors.New("planner: schedule is nil")
)
