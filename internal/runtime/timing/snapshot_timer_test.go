package timing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velostream/velostream/internal/runtime/admin"
	"github.com/velostream/velostream/internal/runtime/ringbuffer"
)

func drainSnapshots(rb *ringbuffer.RingBuffer) (loads, saves int) {
	for {
		consumed := rb.Read(func(msgTypeID int32, data []byte) {
			if !admin.IsAdministrative(msgTypeID) {
				return
			}
			switch admin.DecodeHeader(data).TemplateID {
			case admin.LoadSnapshotTemplateID:
				loads++
			case admin.SaveSnapshotTemplateID:
				saves++
			}
		}, 64)
		if consumed == 0 {
			return loads, saves
		}
	}
}

func TestSnapshotTimerWritesLoadOnStartAndPeriodicSaves(t *testing.T) {
	rb := ringbuffer.New(ringbuffer.DefaultCapacity)
	wheel := NewWheel(time.Millisecond, 64)
	timer := NewSnapshotTimer(wheel, rb, 5*time.Millisecond, 3)
	defer timer.Close()

	timer.Start()

	totalLoads, totalSaves := 0, 0
	deadline := time.Now().Add(time.Second)
	for totalSaves < 3 && time.Now().Before(deadline) {
		wheel.ExpireTimers()
		loads, saves := drainSnapshots(rb)
		totalLoads += loads
		totalSaves += saves
	}

	assert.Equal(t, 1, totalLoads, "exactly one LOAD_SNAPSHOT at start")
	require.GreaterOrEqual(t, totalSaves, 3, "periodic SAVE_SNAPSHOT records")
}

func TestSnapshotTimerCloseStopsInjection(t *testing.T) {
	rb := ringbuffer.New(ringbuffer.DefaultCapacity)
	wheel := NewWheel(time.Millisecond, 64)
	timer := NewSnapshotTimer(wheel, rb, 2*time.Millisecond, 0)

	timer.Start()
	timer.Close()
	drainSnapshots(rb)

	time.Sleep(20 * time.Millisecond)
	wheel.ExpireTimers()
	_, saves := drainSnapshots(rb)
	assert.Zero(t, saves)

	// Idempotent.
	timer.Close()
}

func TestSnapshotTimerNilGuards(t *testing.T) {
	rb := ringbuffer.New(ringbuffer.DefaultCapacity)
	wheel := NewWheel(time.Millisecond, 64)

	assert.Panics(t, func() { NewSnapshotTimer(nil, rb, time.Second, 0) })
	assert.Panics(t, func() { NewSnapshotTimer(wheel, nil, time.Second, 0) })
}
