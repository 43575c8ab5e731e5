package planner

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"periodic/pkg/period"
)

var epoch = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

func jobAt(name string, due time.Time) *job {
	return &job{id: name, name: name, fn: func() {}, rest: period.At(), due: due}
}

func fixed(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestQueuePopsInDueOrder(t *testing.T) {
	var q queue
	offsets := []int{7, 3, 9, 1, 5, 3}
	for i, off := range offsets {
		q.push(jobAt(fmt.Sprintf("j%d", i), epoch.Add(time.Duration(off)*time.Second)))
	}
	require.Equal(t, len(offsets), q.len())

	var got []time.Time
	for {
		st := q.next(fixed(epoch.Add(time.Hour)))
		if st.kind == stepIdle {
			break
		}
		require.Equal(t, stepFire, st.kind)
		got = append(got, st.job.due)
	}
	require.Len(t, got, len(offsets))
	for i := 1; i < len(got); i++ {
		assert.False(t, got[i].Before(got[i-1]), "pop %d out of order", i)
	}
	assert.False(t, q.isRunning(), "draining the queue marks the loop idle")
}

func TestQueuePushReportsEarliestAndSpawn(t *testing.T) {
	var q queue

	earliest, spawn := q.push(jobAt("a", epoch.Add(5*time.Second)))
	assert.True(t, earliest)
	assert.True(t, spawn, "first push must start a loop")

	earliest, spawn = q.push(jobAt("b", epoch.Add(9*time.Second)))
	assert.False(t, earliest)
	assert.False(t, spawn)

	earliest, _ = q.push(jobAt("c", epoch.Add(5*time.Second)))
	assert.True(t, earliest, "a tie with the current root counts as earliest")

	earliest, _ = q.push(jobAt("d", epoch.Add(time.Second)))
	assert.True(t, earliest)
}

func TestQueueNextWaitsForFutureJob(t *testing.T) {
	var q queue
	q.push(jobAt("a", epoch.Add(3*time.Second)))

	st := q.next(fixed(epoch))
	assert.Equal(t, stepWait, st.kind)
	assert.Equal(t, 3*time.Second, st.wait)
	assert.Equal(t, 1, q.len(), "waiting must not pop")

	st = q.next(fixed(epoch.Add(3 * time.Second)))
	assert.Equal(t, stepFire, st.kind, "due exactly now fires")
	assert.Equal(t, "a", st.job.name)
}

func TestQueueClaim(t *testing.T) {
	var q queue
	assert.False(t, q.claim(), "nothing to run")

	q.h = append(q.h, jobAt("a", epoch))
	assert.True(t, q.claim())
	assert.False(t, q.claim(), "already running")

	q.next(fixed(epoch))
	st := q.next(fixed(epoch))
	assert.Equal(t, stepIdle, st.kind)

	q.h = append(q.h, jobAt("b", epoch))
	assert.True(t, q.claim(), "an idle queue can be claimed again")
}

func TestQueueJobsSnapshotSorted(t *testing.T) {
	var q queue
	q.push(jobAt("late", epoch.Add(time.Hour)))
	q.push(jobAt("soon", epoch.Add(time.Minute)))
	q.push(jobAt("mid", epoch.Add(10*time.Minute)))

	jobs := q.jobs()
	require.Len(t, jobs, 3)
	assert.Equal(t, []string{"soon", "mid", "late"}, []string{jobs[0].Name, jobs[1].Name, jobs[2].Name})
}

func TestJobAdvance(t *testing.T) {
	s := period.At(epoch.Add(time.Second), epoch.Add(2*time.Second))
	j := newJob("id", "name", func() {}, s)
	require.NotNil(t, j)
	assert.Equal(t, epoch.Add(time.Second), j.due)

	j = j.advance()
	require.NotNil(t, j)
	assert.Equal(t, epoch.Add(2*time.Second), j.due)
	assert.Equal(t, uint64(1), j.fired)

	assert.Nil(t, j.advance())
}

func TestNewJobEmptySchedule(t *testing.T) {
	assert.Nil(t, newJob("id", "name", func() {}, period.At()))
}
