package ringbuffer

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadInOrder(t *testing.T) {
	rb := New(1024)

	payloads := [][]byte{
		[]byte("alpha"),
		[]byte("bravo"),
		[]byte("charlie"),
	}
	for i, p := range payloads {
		require.True(t, rb.Write(int32(i+1), p))
	}

	var gotTypes []int32
	var gotPayloads []string
	consumed := rb.Read(func(msgTypeID int32, data []byte) {
		gotTypes = append(gotTypes, msgTypeID)
		gotPayloads = append(gotPayloads, string(data))
	}, 10)

	assert.Greater(t, consumed, 0)
	assert.Equal(t, []int32{1, 2, 3}, gotTypes)
	assert.Equal(t, []string{"alpha", "bravo", "charlie"}, gotPayloads)
	assert.Zero(t, rb.Size())
}

func TestReadHonoursLimit(t *testing.T) {
	rb := New(1024)
	for i := 0; i < 5; i++ {
		require.True(t, rb.Write(1, []byte{byte(i)}))
	}

	count := 0
	rb.Read(func(int32, []byte) { count++ }, 2)
	assert.Equal(t, 2, count)

	rb.Read(func(int32, []byte) { count++ }, 10)
	assert.Equal(t, 5, count)
}

func TestWriteRejectsReservedTypeIDs(t *testing.T) {
	rb := New(1024)

	assert.Panics(t, func() { rb.Write(0, []byte("x")) })
	assert.Panics(t, func() { rb.Write(-7, []byte("x")) })
}

func TestWriteRejectsZeroLength(t *testing.T) {
	rb := New(1024)

	assert.Panics(t, func() { rb.Write(1, nil) })
	assert.Panics(t, func() { rb.Write(1, []byte{}) })
}

func TestWriteRejectsOversizedRecord(t *testing.T) {
	rb := New(1024)

	assert.Panics(t, func() { rb.Write(1, make([]byte, rb.MaxMsgLength()+1)) })
	assert.True(t, rb.Write(1, make([]byte, rb.MaxMsgLength())))
}

func TestWriteReturnsFalseWhenFull(t *testing.T) {
	rb := New(256)

	payload := make([]byte, 24)
	writes := 0
	for rb.Write(1, payload) {
		writes++
		require.Less(t, writes, 100, "ring never filled")
	}
	assert.Greater(t, writes, 0)

	// Draining one record frees space for exactly one more write.
	rb.Read(func(int32, []byte) {}, 1)
	assert.True(t, rb.Write(1, payload))
	assert.False(t, rb.Write(1, payload))
}

func TestWrapAroundInsertsPadding(t *testing.T) {
	rb := New(256)

	// 40-byte records (32-byte payload, the maximum for this capacity) do
	// not divide 256, so records straddle the end of the buffer repeatedly;
	// sequence integrity proves the padding logic is sound.
	next := uint64(0)
	verified := uint64(0)
	payload := make([]byte, rb.MaxMsgLength())

	for round := 0; round < 500; round++ {
		for rb.Write(1, sequenced(payload, next)) {
			next++
		}
		rb.Read(func(_ int32, data []byte) {
			require.Equal(t, verified, binary.LittleEndian.Uint64(data))
			verified++
		}, 100)
	}

	assert.Greater(t, verified, uint64(100))
}

func TestNewRejectsNonPowerOfTwo(t *testing.T) {
	assert.Panics(t, func() { New(1000) })
	assert.Panics(t, func() { New(0) })
	assert.Panics(t, func() { New(-16) })
}

func TestSizeAndCapacity(t *testing.T) {
	rb := New(1024)
	assert.Equal(t, 1024, rb.Capacity())
	assert.Equal(t, 128, rb.MaxMsgLength())
	assert.Zero(t, rb.Size())

	require.True(t, rb.Write(1, make([]byte, 8)))
	assert.Equal(t, 16, rb.Size()) // header + payload, aligned

	rb.Read(func(int32, []byte) {}, 1)
	assert.Zero(t, rb.Size())
}

func TestConcurrentProducerConsumer(t *testing.T) {
	rb := New(4096)
	const total = 200_000

	done := make(chan struct{})
	go func() {
		defer close(done)
		payload := make([]byte, 8)
		for i := uint64(0); i < total; {
			binary.LittleEndian.PutUint64(payload, i)
			if rb.Write(1, payload) {
				i++
			}
		}
	}()

	expected := uint64(0)
	for expected < total {
		rb.Read(func(_ int32, data []byte) {
			if got := binary.LittleEndian.Uint64(data); got != expected {
				panic(fmt.Sprintf("out of order: got %d want %d", got, expected))
			}
			expected++
		}, 64)
	}
	<-done

	assert.Equal(t, uint64(total), expected)
	assert.Zero(t, rb.Size())
}

func sequenced(payload []byte, next uint64) []byte {
	binary.LittleEndian.PutUint64(payload, next)
	return payload
}
