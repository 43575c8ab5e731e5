package planner

import (
	"container/heap"
	"fmt"
	"sort"
	"sync"
	"time"
)

// jobHeap is a min-heap on due. Ties are broken arbitrarily.
type jobHeap []*job

func (h jobHeap) Len() int           { return len(h) }
func (h jobHeap) Less(i, j int) bool { return h[i].due.Before(h[j].due) }
func (h jobHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *jobHeap) Push(x any) { *h = append(*h, x.(*job)) }

func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	j := old[n-1]
	old[n-1] = nil // allow GC
	*h = old[:n-1]
	return j
}

// queue is the only state shared between Add and the loop.
//
// mu also guards running, so the loop's decision to go dormant and Add's
// decision to respawn it can never interleave.
type queue struct {
	mu      sync.Mutex
	h       jobHeap
	running bool
}

type stepKind int

const (
	stepIdle stepKind = iota // queue empty, loop must exit
	stepFire                 // job popped and due
	stepWait                 // earliest job not due yet
)

type step struct {
	kind stepKind
	job  *job
	now  time.Time
	wait time.Duration
}

// push inserts a new job. earliest reports whether j is now the soonest job
// (ties count). spawn reports that no loop is running; the caller owns
// starting one.
func (q *queue) push(j *job) (earliest, spawn bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.h, j)
	earliest = !j.due.After(q.h[0].due)
	if !q.running {
		q.running = true
		spawn = true
	}
	return earliest, spawn
}

// reinsert puts back a job the loop has advanced.
func (q *queue) reinsert(j *job) {
	q.mu.Lock()
	heap.Push(&q.h, j)
	q.mu.Unlock()
}

// claim marks the loop as running unless one already is or there is nothing
// to run.
func (q *queue) claim() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running || len(q.h) == 0 {
		return false
	}
	q.running = true
	return true
}

// next is the loop's check step, done entirely under the lock.
func (q *queue) next(now func() time.Time) step {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.h) == 0 {
		q.running = false
		return step{kind: stepIdle}
	}
	root := q.h[0]
	t := now()
	if root.due.After(t) {
		return step{kind: stepWait, now: t, wait: root.due.Sub(t)}
	}
	popped := heap.Pop(&q.h).(*job)
	if popped != root {
		// A different job at the root means the heap was mutated outside the lock.
		panic(fmt.Sprintf("planner: queue corrupted: peeked %s, popped %s", root.id, popped.id))
	}
	return step{kind: stepFire, job: popped, now: t}
}

func (q *queue) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.h)
}

func (q *queue) isRunning() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// jobs returns the queued jobs ordered by next due instant.
func (q *queue) jobs() []JobInfo {
	q.mu.Lock()
	out := make([]JobInfo, 0, len(q.h))
	for _, j := range q.h {
		out = append(out, j.info())
	}
	q.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Next.Before(out[j].Next) })
	return out
}
