// Package worker provides the thread loop shared by every pipeline stage:
// one OS-locked goroutine driving a poll step under an idle strategy, with
// release-ordered read counters observable by reporting collaborators.
package worker

import (
	"runtime"
	"sync/atomic"

	errs "github.com/velostream/velostream/internal/runtime/errors"
	"github.com/velostream/velostream/internal/runtime/idle"
	"github.com/velostream/velostream/internal/runtime/logging"
)

// Worker lifecycle states.
type State int32

const (
	Constructed State = iota
	Running
	Stopping
	Joined
)

func (s State) String() string {
	switch s {
	case Constructed:
		return "constructed"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Joined:
		return "joined"
	}
	return "unknown"
}

// Option configures optional worker behaviour.
type Option func(*Worker)

// WithCloser attaches a resource closed after the thread has joined.
func WithCloser(closer func() error) Option {
	return func(w *Worker) { w.closer = closer }
}

// WithCPUAffinity pins the worker thread to a logical CPU on Linux. A no-op
// elsewhere and for negative cores.
func WithCPUAffinity(core int) Option {
	return func(w *Worker) { w.core = core }
}

// Worker owns one OS thread, a running flag, and one poll step. Start may be
// called exactly once; Close joins the thread, then closes the attached
// resource, and is idempotent after the first call completes.
type Worker struct {
	name   string
	poll   func() int
	idler  idle.Strategy
	logger logging.ServiceLogger
	closer func() error
	core   int

	running atomic.Bool
	state   atomic.Int32
	done    chan struct{}

	successfulReads atomic.Int64
	failedReads     atomic.Int64
}

// New constructs a worker around a stage poll step. The poll function
// returns the unitless work count of one iteration. A nil poll function or
// idle strategy is a usage error and panics; a nil logger falls back to a
// no-op logger.
func New(name string, poll func() int, idler idle.Strategy, logger logging.ServiceLogger, opts ...Option) *Worker {
	if poll == nil {
		panic(errs.ErrPollerRequired)
	}
	if idler == nil {
		panic(errs.ErrIdleStrategyRequired)
	}
	if logger == nil {
		logger = logging.Nop()
	}

	w := &Worker{
		name:   name,
		poll:   poll,
		idler:  idler,
		logger: logger,
		core:   -1,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Start launches the worker thread. Calling Start twice is a usage error and
// panics.
func (w *Worker) Start() {
	if !w.state.CompareAndSwap(int32(Constructed), int32(Running)) {
		panic(errs.ErrAlreadyStarted)
	}
	w.running.Store(true)
	go w.run()
}

func (w *Worker) run() {
	runtime.LockOSThread()
	setAffinity(w.core)
	defer func() {
		runtime.UnlockOSThread()
		close(w.done)
	}()

	for w.running.Load() {
		work := w.poll()
		if work == 0 {
			w.failedReads.Add(1)
		} else {
			w.successfulReads.Add(1)
		}
		w.idler.Idle(work)
	}

	failed := w.failedReads.Load()
	successful := w.successfulReads.Load()
	total := failed + successful
	ratio := 0.0
	if total > 0 {
		ratio = float64(failed) / float64(total)
	}
	w.logger.Info("worker stopped", logging.LogFields{
		"worker":             w.name,
		"read_failure_ratio": ratio,
	})
}

// Close clears the running flag, joins the thread, then closes the attached
// resource. Closing a worker that was never started is a usage error and
// panics; a second Close after the first completed is a no-op.
func (w *Worker) Close() error {
	switch {
	case w.state.CompareAndSwap(int32(Running), int32(Stopping)):
		w.running.Store(false)
		<-w.done
		w.state.Store(int32(Joined))

		if w.closer != nil {
			if err := w.closer(); err != nil {
				w.logger.Error("worker resource close failed", err, logging.LogFields{"worker": w.name})
			}
		}
		return nil
	case State(w.state.Load()) == Stopping:
		<-w.done
		return nil
	case State(w.state.Load()) == Joined:
		return nil
	default:
		panic(errs.ErrNotStarted)
	}
}

// RequestStop clears the running flag without joining. Stage handlers call
// it from the poll thread on fatal transport errors so the stage closes
// itself; the pipeline still joins via Close.
func (w *Worker) RequestStop() {
	w.running.Store(false)
}

// Name returns the worker thread name.
func (w *Worker) Name() string { return w.name }

// State returns the current lifecycle state.
func (w *Worker) State() State { return State(w.state.Load()) }

// Running reports whether the poll loop should keep iterating. Stage
// handlers consult it inside retry loops so shutdown stays prompt.
func (w *Worker) Running() bool { return w.running.Load() }

// SuccessfulReads returns the number of productive poll iterations.
func (w *Worker) SuccessfulReads() int64 { return w.successfulReads.Load() }

// FailedReads returns the number of empty poll iterations.
func (w *Worker) FailedReads() int64 { return w.failedReads.Load() }
