package supervisor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPanicIsContained(t *testing.T) {
	t.Parallel()

	s := New(context.Background())
	s.Go0("boom", func(context.Context) { panic("kaboom") })
	s.Go0("ok", func(context.Context) {})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.Wait(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panic in boom")

	c := s.Counters()
	assert.Equal(t, uint64(2), c.Started)
	assert.Equal(t, uint64(1), c.Panics)
	assert.Equal(t, int64(0), c.Active)

	snap := s.Snapshot()
	require.Len(t, snap.Goroutines, 2)
	var boom GoroutineStats
	for _, g := range snap.Goroutines {
		if g.Name == "boom" {
			boom = g
		}
	}
	assert.Equal(t, uint64(1), boom.Panics)
	assert.Equal(t, "kaboom", boom.LastPanic)
}

func TestFirstErrorWins(t *testing.T) {
	t.Parallel()

	s := New(context.Background())
	first := errors.New("first")
	s.Go("a", func(context.Context) error { return first })
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.ErrorIs(t, s.Wait(ctx), first)

	s.Go("b", func(context.Context) error { return errors.New("second") })
	require.ErrorIs(t, s.Wait(ctx), first)
}

func TestCanceledIsNotAnError(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s := New(ctx)
	s.Go("loop", func(c context.Context) error {
		<-c.Done()
		return c.Err()
	})
	cancel()

	wctx, wcancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer wcancel()
	assert.NoError(t, s.Wait(wctx))
}

func TestWaitHonorsDeadline(t *testing.T) {
	t.Parallel()

	s := New(context.Background())
	release := make(chan struct{})
	defer close(release)
	s.Go0("stuck", func(context.Context) { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Wait(ctx), context.DeadlineExceeded)
}

func TestNilSupervisorCounters(t *testing.T) {
	t.Parallel()

	var s *Supervisor
	assert.Equal(t, Counters{}, s.Counters())
	assert.Equal(t, Snapshot{}, s.Snapshot())
}
