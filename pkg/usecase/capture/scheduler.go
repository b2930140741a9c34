package capture

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/m-mizutani/glimpse/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

var ErrAlreadyRunning = goerr.New("capture is already running")

// Ticker is one sampling iteration. *Pipeline implements it.
type Ticker interface {
	Tick(ctx context.Context) (analyzed bool, err error)
	Reset()
}

type run struct {
	id      string
	stop    chan struct{}
	done    chan struct{}
	stopped atomic.Bool
	once    sync.Once
}

func (r *run) halt() {
	r.stopped.Store(true)
	r.once.Do(func() { close(r.stop) })
}

// Scheduler drives a Ticker at a fixed interval. At most one run is active at a time;
// counters accumulate across runs.
type Scheduler struct {
	mu  sync.Mutex
	cur *run

	count     atomic.Int64
	skipCount atomic.Int64
	failCount atomic.Int64
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Start launches the loop in a goroutine and returns immediately. The first tick runs
// right away. A tick in flight always completes before the loop observes a stop.
func (s *Scheduler) Start(ctx context.Context, t Ticker, interval time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for s.cur != nil {
		prev := s.cur
		if !prev.stopped.Load() {
			return goerr.Wrap(ErrAlreadyRunning, "refusing to start", goerr.V("run_id", prev.id))
		}

		// the previous loop may still be finishing a tick; Stop, IsRunning and Done
		// stay available meanwhile
		s.mu.Unlock()
		<-prev.done
		s.mu.Lock()

		if s.cur == prev {
			break
		}
	}

	r := &run{
		id:   uuid.NewString(),
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	s.cur = r

	t.Reset()
	logger := logging.From(ctx).With("run_id", r.id)
	go s.loop(logging.With(ctx, logger), t, interval, r)

	logger.Info("capture started", "interval", interval)
	return nil
}

func (s *Scheduler) loop(ctx context.Context, t Ticker, interval time.Duration, r *run) {
	defer close(r.done)
	logger := logging.From(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if r.stopped.Load() {
			break
		}

		analyzed, err := t.Tick(ctx)
		switch {
		case err != nil:
			s.failCount.Add(1)
			logger.Error("capture tick failed", "error", err)
		case analyzed:
			s.count.Add(1)
		default:
			s.skipCount.Add(1)
		}

		select {
		case <-r.stop:
		case <-ctx.Done():
			r.stopped.Store(true)
		case <-ticker.C:
		}
	}

	logger.Info("capture stopped",
		"count", s.count.Load(),
		"skip_count", s.skipCount.Load(),
		"fail_count", s.failCount.Load(),
	)
}

// Stop requests the active run to end. It does not wait; use Done for that.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur != nil {
		s.cur.halt()
	}
}

func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cur != nil && !s.cur.stopped.Load()
}

// Done is closed when the current run's loop has exited. It is nil before the first Start.
func (s *Scheduler) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cur == nil {
		return nil
	}
	return s.cur.done
}

// Count is the number of analyzed ticks.
func (s *Scheduler) Count() int64 { return s.count.Load() }

// SkipCount is the number of ticks skipped as unchanged.
func (s *Scheduler) SkipCount() int64 { return s.skipCount.Load() }

// FailCount is the number of ticks that ended with an error.
func (s *Scheduler) FailCount() int64 { return s.failCount.Load() }
