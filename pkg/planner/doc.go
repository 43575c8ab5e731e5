// Package planner runs callbacks at the instants produced by period schedules.
//
// A Planner owns one time-ordered job queue and, while jobs are pending, one
// loop goroutine. The loop pops every due job, hands its callback to a fresh
// goroutine, puts the job back with its next instant, and otherwise sleeps
// until the earliest due instant. Add wakes the loop early when the new job
// becomes the soonest one.
//
// Callbacks run fire-and-forget: the loop never waits for them, and a
// panicking callback only affects its own goroutine. There is no job removal
// and no cap on concurrently running callbacks.
//
//	p := planner.New(planner.WithLogger(log))
//	p.Add(func() { fmt.Println("tick") }, period.Every(time.Second))
//	p.Add(func() { fmt.Println("once") }, period.After(3*time.Second))
package planner
