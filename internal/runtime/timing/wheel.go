// Package timing provides the hashed timing wheel driving periodic snapshot
// injection. The wheel has a fixed tick resolution; expiry is cooperative
// and drift accumulated between ExpireTimers calls is not corrected.
package timing

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Timeout states.
const (
	timeoutScheduled int32 = iota
	timeoutExpired
	timeoutCancelled
)

// Timeout is a one-shot scheduled task. The callback fires at most once.
type Timeout struct {
	deadline int64
	task     func()
	state    atomic.Int32
}

// Cancel prevents the callback from firing. It reports whether the timeout
// was still pending.
func (t *Timeout) Cancel() bool {
	return t.state.CompareAndSwap(timeoutScheduled, timeoutCancelled)
}

// IsExpired reports whether the callback has fired.
func (t *Timeout) IsExpired() bool {
	return t.state.Load() == timeoutExpired
}

// IsActive reports whether the timeout is still pending.
func (t *Timeout) IsActive() bool {
	return t.state.Load() == timeoutScheduled
}

// Wheel is a hashed timing wheel. Timeouts may be scheduled from any
// goroutine; ExpireTimers is meant to be driven by a single executor thread.
type Wheel struct {
	tickNanos     int64
	ticksPerWheel int64
	mask          int64
	clock         func() int64

	mu          sync.Mutex
	spokes      [][]*Timeout
	currentTick int64
	startNanos  int64
}

// NewWheel creates a wheel with the given tick duration and spoke count,
// which must be a power of two; it panics otherwise.
func NewWheel(tick time.Duration, ticksPerWheel int) *Wheel {
	return NewWheelWithClock(tick, ticksPerWheel, func() int64 { return time.Now().UnixNano() })
}

// NewWheelWithClock creates a wheel reading time from the supplied
// nanosecond clock. Tests inject a fake clock for deterministic expiry.
func NewWheelWithClock(tick time.Duration, ticksPerWheel int, clock func() int64) *Wheel {
	if tick <= 0 {
		panic(fmt.Sprintf("velostream: tick duration must be positive, got %v", tick))
	}
	if ticksPerWheel <= 0 || ticksPerWheel&(ticksPerWheel-1) != 0 {
		panic(fmt.Sprintf("velostream: ticks per wheel must be a positive power of two, got %d", ticksPerWheel))
	}
	w := &Wheel{
		tickNanos:     tick.Nanoseconds(),
		ticksPerWheel: int64(ticksPerWheel),
		mask:          int64(ticksPerWheel - 1),
		clock:         clock,
		spokes:        make([][]*Timeout, ticksPerWheel),
	}
	w.startNanos = clock()
	return w
}

// TickDuration returns the wheel resolution.
func (w *Wheel) TickDuration() time.Duration {
	return time.Duration(w.tickNanos)
}

// NewTimeout schedules task to fire once the delay has elapsed, with a
// resolution of one tick.
func (w *Wheel) NewTimeout(delay time.Duration, task func()) *Timeout {
	if task == nil {
		panic("velostream: timeout task cannot be nil")
	}
	t := &Timeout{
		deadline: w.clock() + delay.Nanoseconds(),
		task:     task,
	}

	w.mu.Lock()
	ticks := (t.deadline - w.startNanos) / w.tickNanos
	if ticks < w.currentTick {
		ticks = w.currentTick
	}
	spoke := ticks & w.mask
	w.spokes[spoke] = append(w.spokes[spoke], t)
	w.mu.Unlock()

	return t
}

// ExpireTimers fires every due timeout on the spokes the wheel has reached
// and returns the number fired. Callbacks run outside the wheel lock so they
// may schedule new timeouts.
func (w *Wheel) ExpireTimers() int {
	now := w.clock()

	var due []*Timeout
	w.mu.Lock()
	for {
		spoke := w.currentTick & w.mask
		pending := w.spokes[spoke]
		kept := pending[:0]
		for _, t := range pending {
			switch {
			case t.state.Load() == timeoutCancelled:
			case t.deadline <= now:
				due = append(due, t)
			default:
				kept = append(kept, t)
			}
		}
		w.spokes[spoke] = kept

		if w.startNanos+(w.currentTick+1)*w.tickNanos <= now {
			w.currentTick++
		} else {
			break
		}
	}
	w.mu.Unlock()

	fired := 0
	for _, t := range due {
		if t.state.CompareAndSwap(timeoutScheduled, timeoutExpired) {
			t.task()
			fired++
		}
	}
	return fired
}
