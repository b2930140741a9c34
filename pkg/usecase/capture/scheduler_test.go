package capture_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/glimpse/pkg/usecase/capture"
	"github.com/m-mizutani/gt"
)

type scriptedTicker struct {
	ticks  atomic.Int64
	resets atomic.Int64
	result func(n int64) (bool, error)
}

func (x *scriptedTicker) Tick(ctx context.Context) (bool, error) {
	n := x.ticks.Add(1)
	if x.result == nil {
		return true, nil
	}
	return x.result(n)
}

func (x *scriptedTicker) Reset() {
	x.resets.Add(1)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func waitDone(t *testing.T, s *capture.Scheduler) {
	t.Helper()
	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestSchedulerStartStop(t *testing.T) {
	s := capture.NewScheduler()
	ticker := &scriptedTicker{}

	gt.False(t, s.IsRunning())
	gt.NoError(t, s.Start(context.Background(), ticker, 10*time.Millisecond))
	gt.True(t, s.IsRunning())
	gt.Equal(t, ticker.resets.Load(), int64(1))

	waitFor(t, func() bool { return s.Count() >= 2 })

	s.Stop()
	gt.False(t, s.IsRunning())
	waitDone(t, s)

	stoppedAt := ticker.ticks.Load()
	time.Sleep(50 * time.Millisecond)
	gt.Equal(t, ticker.ticks.Load(), stoppedAt)
}

func TestSchedulerRejectsSecondStart(t *testing.T) {
	s := capture.NewScheduler()
	ticker := &scriptedTicker{}

	gt.NoError(t, s.Start(context.Background(), ticker, time.Hour))
	err := s.Start(context.Background(), ticker, time.Hour)
	gt.Error(t, err)
	gt.True(t, errors.Is(err, capture.ErrAlreadyRunning))

	s.Stop()
	waitDone(t, s)
}

func TestSchedulerRestartKeepsCounters(t *testing.T) {
	s := capture.NewScheduler()
	ticker := &scriptedTicker{}

	gt.NoError(t, s.Start(context.Background(), ticker, time.Hour))
	waitFor(t, func() bool { return s.Count() == 1 })
	s.Stop()

	gt.NoError(t, s.Start(context.Background(), ticker, time.Hour))
	waitFor(t, func() bool { return s.Count() == 2 })
	gt.Equal(t, ticker.resets.Load(), int64(2))

	s.Stop()
	waitDone(t, s)
}

func TestSchedulerCounters(t *testing.T) {
	s := capture.NewScheduler()
	ticker := &scriptedTicker{
		result: func(n int64) (bool, error) {
			switch n % 3 {
			case 1:
				return true, nil
			case 2:
				return false, nil
			default:
				return false, errors.New("boom")
			}
		},
	}

	gt.NoError(t, s.Start(context.Background(), ticker, 5*time.Millisecond))
	waitFor(t, func() bool { return ticker.ticks.Load() >= 6 })
	s.Stop()
	waitDone(t, s)

	total := ticker.ticks.Load()
	gt.Equal(t, s.Count()+s.SkipCount()+s.FailCount(), total)
	gt.Number(t, s.Count()).GreaterOrEqual(2)
	gt.Number(t, s.SkipCount()).GreaterOrEqual(2)
	gt.Number(t, s.FailCount()).GreaterOrEqual(2)
}

func TestSchedulerStopsOnContextCancel(t *testing.T) {
	s := capture.NewScheduler()
	ctx, cancel := context.WithCancel(context.Background())

	gt.NoError(t, s.Start(ctx, &scriptedTicker{}, time.Hour))
	waitFor(t, func() bool { return s.Count() == 1 })

	cancel()
	waitDone(t, s)
	gt.False(t, s.IsRunning())
}

func TestSchedulerStopBeforeStart(t *testing.T) {
	s := capture.NewScheduler()
	s.Stop()
	gt.False(t, s.IsRunning())
	gt.True(t, s.Done() == nil)
}

func TestSchedulerRestartWhileTickInFlight(t *testing.T) {
	s := capture.NewScheduler()
	entered := make(chan struct{})
	release := make(chan struct{})
	ticker := &scriptedTicker{
		result: func(n int64) (bool, error) {
			if n == 1 {
				close(entered)
				<-release
			}
			return true, nil
		},
	}

	gt.NoError(t, s.Start(context.Background(), ticker, time.Hour))
	<-entered
	s.Stop()

	started := make(chan error, 1)
	go func() {
		started <- s.Start(context.Background(), ticker, time.Hour)
	}()
	time.Sleep(50 * time.Millisecond)

	// the pending Start must not hold the scheduler while the old tick finishes
	queried := make(chan bool, 1)
	go func() {
		s.Stop()
		queried <- s.IsRunning()
	}()
	select {
	case running := <-queried:
		gt.False(t, running)
	case <-time.After(time.Second):
		t.Fatal("scheduler blocked while the previous tick was in flight")
	}

	close(release)
	select {
	case err := <-started:
		gt.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("second Start did not return")
	}
	gt.True(t, s.IsRunning())
	waitFor(t, func() bool { return ticker.ticks.Load() >= 2 })

	s.Stop()
	waitDone(t, s)
}
