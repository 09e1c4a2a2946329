package timing

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/velostream/velostream/internal/runtime/admin"
	errs "github.com/velostream/velostream/internal/runtime/errors"
	"github.com/velostream/velostream/internal/runtime/idle"
	"github.com/velostream/velostream/internal/runtime/ringbuffer"
)

// SnapshotTimer injects administrative snapshot markers into the ingress
// ring. Start writes one LOAD_SNAPSHOT record immediately, then a
// SAVE_SNAPSHOT record fires per interval, rescheduling itself on the wheel
// until Close.
type SnapshotTimer struct {
	wheel    *Wheel
	ring     *ringbuffer.RingBuffer
	interval time.Duration
	nodeID   uint16
	idler    idle.Strategy

	running atomic.Bool
	mu      sync.Mutex
	timeout *Timeout
}

// NewSnapshotTimer builds a snapshot timer. Nil arguments are usage errors
// and panic.
func NewSnapshotTimer(wheel *Wheel, ring *ringbuffer.RingBuffer, interval time.Duration, nodeID uint16) *SnapshotTimer {
	if wheel == nil {
		panic("velostream: timing wheel is required")
	}
	if ring == nil {
		panic(errs.ErrRingBufferRequired)
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &SnapshotTimer{
		wheel:    wheel,
		ring:     ring,
		interval: interval,
		nodeID:   nodeID,
		idler:    idle.NewBusySpin(),
	}
}

// Start writes the LOAD_SNAPSHOT record and schedules the first save marker.
func (s *SnapshotTimer) Start() {
	s.running.Store(true)

	admin.WriteLoadMessage(s.ring, s.idler, s.nodeID)

	s.mu.Lock()
	s.timeout = s.wheel.NewTimeout(s.interval, s.onExpiry)
	s.mu.Unlock()
}

func (s *SnapshotTimer) onExpiry() {
	if !s.running.Load() {
		return
	}

	// Retry under idle but bail out once the timer is stopped, so shutdown
	// is not held hostage by a full ingress ring.
	var buf [admin.MessageLength]byte
	admin.EncodeSnapshot(buf[:], admin.SaveSnapshotTemplateID, s.nodeID)
	for !s.ring.Write(admin.AdministrativeMsgID, buf[:]) {
		if !s.running.Load() {
			return
		}
		s.idler.Idle(0)
	}

	s.mu.Lock()
	if s.running.Load() {
		s.timeout = s.wheel.NewTimeout(s.interval, s.onExpiry)
	}
	s.mu.Unlock()
}

// Close stops the timer and cancels any pending timeout. Idempotent.
func (s *SnapshotTimer) Close() {
	s.running.Store(false)

	s.mu.Lock()
	if s.timeout != nil {
		s.timeout.Cancel()
		s.timeout = nil
	}
	s.mu.Unlock()
}
