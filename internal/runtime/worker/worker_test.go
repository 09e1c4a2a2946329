package worker

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "github.com/velostream/velostream/internal/runtime/errors"
	"github.com/velostream/velostream/internal/runtime/idle"
	"github.com/velostream/velostream/internal/runtime/logging"
)

func TestWorkerCountsReads(t *testing.T) {
	var iterations atomic.Int64
	poll := func() int {
		n := iterations.Add(1)
		if n%2 == 0 {
			return 1
		}
		return 0
	}

	w := New("test-worker", poll, idle.NewYielding(), logging.Nop())
	w.Start()

	require.Eventually(t, func() bool {
		return w.SuccessfulReads() > 100 && w.FailedReads() > 100
	}, time.Second, time.Millisecond)

	require.NoError(t, w.Close())

	total := w.SuccessfulReads() + w.FailedReads()
	assert.Equal(t, iterations.Load(), total)
	assert.Equal(t, Joined, w.State())
}

func TestWorkerDoubleStartPanics(t *testing.T) {
	w := New("w", func() int { return 0 }, idle.NewYielding(), logging.Nop())
	w.Start()
	defer w.Close()

	assert.PanicsWithValue(t, errs.ErrAlreadyStarted, w.Start)
}

func TestWorkerCloseBeforeStartPanics(t *testing.T) {
	w := New("w", func() int { return 0 }, idle.NewYielding(), logging.Nop())

	assert.PanicsWithValue(t, errs.ErrNotStarted, func() { _ = w.Close() })
}

func TestWorkerCloseJoinsAndClosesResource(t *testing.T) {
	var closed atomic.Bool
	w := New("w", func() int { return 0 }, idle.NewYielding(), logging.Nop(),
		WithCloser(func() error {
			closed.Store(true)
			return nil
		}))
	w.Start()

	require.NoError(t, w.Close())
	assert.True(t, closed.Load())
	assert.Equal(t, Joined, w.State())

	// Idempotent after the first completed close.
	require.NoError(t, w.Close())
}

func TestWorkerRequestStopEndsLoop(t *testing.T) {
	w := New("w", func() int { return 0 }, idle.NewYielding(), logging.Nop())
	w.Start()

	w.RequestStop()
	require.Eventually(t, func() bool { return !w.Running() }, time.Second, time.Millisecond)

	require.NoError(t, w.Close())
}

func TestWorkerNilPollPanics(t *testing.T) {
	assert.PanicsWithValue(t, errs.ErrPollerRequired, func() {
		New("w", nil, idle.NewYielding(), logging.Nop())
	})
}

func TestWorkerNilIdlerPanics(t *testing.T) {
	assert.PanicsWithValue(t, errs.ErrIdleStrategyRequired, func() {
		New("w", func() int { return 0 }, nil, logging.Nop())
	})
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "constructed", Constructed.String())
	assert.Equal(t, "running", Running.String())
	assert.Equal(t, "stopping", Stopping.String())
	assert.Equal(t, "joined", Joined.String())
}
