package ringbuffer

import "github.com/velostream/velostream/transport"

// Pool holds the output and event rings of a pipeline, keyed by their
// destination stream. It is the single source of truth handed to the handler
// factory: endpoints registered later become visible to the handler through
// the iteration methods.
//
// Registration must complete before the pipeline starts; afterwards the pool
// is read-only and safe for concurrent readers.
type Pool struct {
	outputStreams []transport.Stream
	outputRings   []*RingBuffer
	outputByKey   map[streamKey]*RingBuffer

	eventStreams []transport.Stream
	eventRings   []*RingBuffer
	eventByKey   map[streamKey]*RingBuffer
}

type streamKey struct {
	channel  string
	streamID int32
}

// NewPool creates an empty pool.
func NewPool() *Pool {
	return &Pool{
		outputByKey: make(map[streamKey]*RingBuffer),
		eventByKey:  make(map[streamKey]*RingBuffer),
	}
}

// AddOutputRingBuffer registers the output ring bound to a response stream.
func (p *Pool) AddOutputRingBuffer(stream transport.Stream, rb *RingBuffer) {
	p.outputStreams = append(p.outputStreams, stream)
	p.outputRings = append(p.outputRings, rb)
	p.outputByKey[keyOf(stream)] = rb
}

// AddEventRingBuffer registers the event ring bound to an event stream.
func (p *Pool) AddEventRingBuffer(stream transport.Stream, rb *RingBuffer) {
	p.eventStreams = append(p.eventStreams, stream)
	p.eventRings = append(p.eventRings, rb)
	p.eventByKey[keyOf(stream)] = rb
}

// OutputRingBuffers returns the currently registered output rings in
// registration order.
func (p *Pool) OutputRingBuffers() []*RingBuffer {
	return p.outputRings
}

// EventRingBuffers returns the currently registered event rings in
// registration order.
func (p *Pool) EventRingBuffers() []*RingBuffer {
	return p.eventRings
}

// OutputRingBuffer looks up the output ring bound to a response stream.
func (p *Pool) OutputRingBuffer(stream transport.Stream) (*RingBuffer, bool) {
	rb, ok := p.outputByKey[keyOf(stream)]
	return rb, ok
}

// EventRingBuffer looks up the event ring bound to an event stream.
func (p *Pool) EventRingBuffer(stream transport.Stream) (*RingBuffer, bool) {
	rb, ok := p.eventByKey[keyOf(stream)]
	return rb, ok
}

func keyOf(stream transport.Stream) streamKey {
	return streamKey{channel: stream.Channel, streamID: stream.StreamID}
}
