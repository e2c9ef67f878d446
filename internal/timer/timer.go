// Package timer implements the cancellable countdown that precedes a recording.
package timer

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/observability"

	"github.com/kartoza/kartoza-portal-recorder/internal/recerr"
)

// UpdateInterval is how often the remaining seconds are refreshed
const UpdateInterval = 200 * time.Millisecond

// Timer counts down a fixed duration, publishing the whole seconds left.
// It completes exactly once, either normally or with a Cancelled error.
type Timer struct {
	clock    clock.Clock
	duration time.Duration

	ticks    chan uint64
	cancelCh chan struct{}
	done     chan struct{}

	started    atomic.Bool
	cancelOnce sync.Once
	finishOnce sync.Once
	err        error
}

// New creates a timer; nothing happens until Start
func New(clk clock.Clock, duration time.Duration) *Timer {
	if clk == nil {
		clk = clock.New()
	}
	if duration < 0 {
		duration = 0
	}
	return &Timer{
		clock:    clk,
		duration: duration,
		ticks:    make(chan uint64, 1),
		cancelCh: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Duration returns the configured countdown length
func (t *Timer) Duration() time.Duration {
	return t.duration
}

// Ticks delivers the latest whole seconds left. It is closed before the
// timer completes; a slow reader only misses stale values.
func (t *Timer) Ticks() <-chan uint64 {
	return t.ticks
}

// Done is closed once the timer completed or was cancelled
func (t *Timer) Done() <-chan struct{} {
	return t.done
}

// Err returns the completion error; only valid after Done is closed
func (t *Timer) Err() error {
	<-t.done
	return t.err
}

// Start begins the countdown. A zero duration completes immediately
// without publishing any tick. Calling Start twice, or after Cancel, is a no-op.
func (t *Timer) Start(ctx context.Context) {
	if !t.started.CompareAndSwap(false, true) {
		return
	}

	if t.duration == 0 {
		close(t.ticks)
		t.finish(nil)
		return
	}

	startedAt := t.clock.Now()
	ticker := t.clock.Ticker(UpdateInterval)
	deadline := t.clock.Timer(t.duration)
	t.publish(t.secsLeft(startedAt))

	observability.Go(ctx, func(ctx context.Context) {
		defer ticker.Stop()
		defer deadline.Stop()

		var err error
	loop:
		for {
			select {
			case <-ticker.C:
				t.publish(t.secsLeft(startedAt))
			case <-deadline.C:
				break loop
			case <-t.cancelCh:
				err = recerr.Cancelled("timer")
				break loop
			case <-ctx.Done():
				err = recerr.Wrap(ctx.Err(), recerr.KindCancelled, "timer")
				break loop
			}
		}

		logger.Tracef(ctx, "timer of %v finished: %v", t.duration, err)
		close(t.ticks)
		t.finish(err)
	})
}

// Wait blocks until the timer completes. It returns nil on normal
// completion and a Cancelled error otherwise.
func (t *Timer) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return recerr.Wrap(ctx.Err(), recerr.KindCancelled, "timer wait")
	}
}

// Cancel stops the countdown. It is safe to call any number of times.
func (t *Timer) Cancel() {
	t.cancelOnce.Do(func() {
		close(t.cancelCh)
	})
	if t.started.CompareAndSwap(false, true) {
		close(t.ticks)
		t.finish(recerr.Cancelled("timer"))
	}
}

func (t *Timer) secsLeft(startedAt time.Time) uint64 {
	elapsed := t.clock.Since(startedAt)
	left := int64(t.duration/time.Second) - int64(elapsed/time.Second)
	if left < 0 {
		return 0
	}
	return uint64(left)
}

func (t *Timer) publish(v uint64) {
	select {
	case t.ticks <- v:
		return
	default:
	}
	select {
	case <-t.ticks:
	default:
	}
	t.ticks <- v
}

func (t *Timer) finish(err error) {
	t.finishOnce.Do(func() {
		t.err = err
		close(t.done)
	})
}
