package alert_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/glimpse/pkg/usecase/alert"
	"github.com/m-mizutani/gt"
)

func TestShouldEmitCooldown(t *testing.T) {
	d := alert.NewDeduplicator()
	t0 := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)

	gt.True(t, d.ShouldEmit("k", t0, 60*time.Second))
	gt.False(t, d.ShouldEmit("k", t0.Add(30*time.Second), 60*time.Second))
	gt.True(t, d.ShouldEmit("k", t0.Add(61*time.Second), 60*time.Second))

	// other keys are independent
	gt.True(t, d.ShouldEmit("other", t0.Add(31*time.Second), 60*time.Second))
}

func TestShouldEmitCooldownFloor(t *testing.T) {
	d := alert.NewDeduplicator()
	t0 := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)

	gt.True(t, d.ShouldEmit("k", t0, 0))
	gt.False(t, d.ShouldEmit("k", t0.Add(4*time.Second), 0))
	gt.True(t, d.ShouldEmit("k", t0.Add(5*time.Second), 0))
}

func TestShouldEmitConcurrent(t *testing.T) {
	d := alert.NewDeduplicator()
	now := time.Now()

	var passed atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d.ShouldEmit("same", now, time.Minute) {
				passed.Add(1)
			}
		}()
	}
	wg.Wait()

	gt.V(t, passed.Load()).Equal(int32(1))
}

func TestForget(t *testing.T) {
	d := alert.NewDeduplicator()
	t0 := time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)
	d.ShouldEmit("old", t0, time.Minute)
	d.ShouldEmit("new", t0.Add(50*time.Minute), time.Minute)

	d.Forget(t0.Add(time.Hour), 30*time.Minute)
	gt.V(t, d.Len()).Equal(1)
	gt.True(t, d.ShouldEmit("old", t0.Add(time.Hour), time.Minute))
}

func TestLastKey(t *testing.T) {
	d := alert.NewDeduplicator()
	gt.False(t, d.SameAsLast("k"))

	d.SetLast("k")
	gt.True(t, d.SameAsLast("k"))
	gt.False(t, d.SameAsLast("j"))

	d.SetLast("")
	gt.False(t, d.SameAsLast("k"))
	gt.False(t, d.SameAsLast(""))
}
