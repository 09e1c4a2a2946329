package pipeline

import (
	"github.com/velostream/velostream/internal/runtime/idle"
	"github.com/velostream/velostream/internal/runtime/logging"
	"github.com/velostream/velostream/internal/runtime/ringbuffer"
	"github.com/velostream/velostream/internal/runtime/worker"
	"github.com/velostream/velostream/transport"
)

// InputProcessor drains one or more transport subscriptions into the
// ingress ring. Subscriptions registered through AddSubscription are
// multiplexed: order across subscriptions is unspecified, order within one
// stream is preserved.
//
// Fragment reassembly state is owned by the processor thread, one assembler
// per subscription keyed by session id, so fragment boundaries are
// preserved across streams.
type InputProcessor struct {
	ring            *ringbuffer.RingBuffer
	idler           idle.Strategy
	frameCountLimit int
	worker          *worker.Worker

	// Registered before Start; the poll thread reads them afterwards.
	subs []*subscriptionState

	// Forwarders into the pipeline's association hooks.
	onAvailableImage   transport.ImageHandler
	onUnavailableImage transport.ImageHandler
}

type subscriptionState struct {
	sub        transport.Subscription
	processor  *InputProcessor
	assemblers map[int32]*assembler
}

// assembler buffers the fragments of one in-flight record for one session.
type assembler struct {
	buf    []byte
	active bool
}

// NewInputProcessor builds the ingress consumer writing into ring.
func NewInputProcessor(ring *ringbuffer.RingBuffer, idler idle.Strategy, frameCountLimit int, name string, logger logging.ServiceLogger) *InputProcessor {
	p := &InputProcessor{
		ring:            ring,
		idler:           idler,
		frameCountLimit: frameCountLimit,
	}
	p.worker = worker.New(name, p.poll, idler, logger, worker.WithCloser(p.closeSubscriptions))
	return p
}

// SetImageHandlers installs the pipeline's association forwarders. Must be
// called before Start.
func (p *InputProcessor) SetImageHandlers(onAvailable, onUnavailable transport.ImageHandler) {
	p.onAvailableImage = onAvailable
	p.onUnavailableImage = onUnavailable
}

// AddSubscription registers an additional input stream and returns its
// subscription id. Must be called before Start.
func (p *InputProcessor) AddSubscription(stream transport.Stream) (int64, error) {
	sub, err := stream.Driver.AddSubscription(stream.Channel, stream.StreamID, p.handleAvailable, p.handleUnavailable)
	if err != nil {
		return 0, err
	}
	p.subs = append(p.subs, &subscriptionState{
		sub:        sub,
		processor:  p,
		assemblers: make(map[int32]*assembler),
	})
	return int64(len(p.subs) - 1), nil
}

func (p *InputProcessor) handleAvailable(image transport.Image) {
	if p.onAvailableImage != nil {
		p.onAvailableImage(image)
	}
}

func (p *InputProcessor) handleUnavailable(image transport.Image) {
	if p.onUnavailableImage != nil {
		p.onUnavailableImage(image)
	}
}

func (p *InputProcessor) poll() int {
	work := 0
	for _, state := range p.subs {
		work += state.sub.Poll(state.onFragment, p.frameCountLimit)
	}
	return work
}

// onFragment reassembles fragmented records and spin-writes each completed
// record into the ingress ring. The ring refusing a write is backpressure,
// not an error: the processor idles and retries, dropping only when the
// pipeline is shutting down.
func (s *subscriptionState) onFragment(fragment transport.Fragment) {
	p := s.processor

	var record []byte
	switch {
	case fragment.Flags&transport.FlagUnfragmented == transport.FlagUnfragmented:
		record = fragment.Data
	case fragment.Flags&transport.FlagBegin != 0:
		a := s.assemblerFor(fragment.SessionID)
		a.buf = append(a.buf[:0], fragment.Data...)
		a.active = true
		return
	default:
		a := s.assemblerFor(fragment.SessionID)
		if !a.active {
			return // tail of a record whose beginning was never seen
		}
		a.buf = append(a.buf, fragment.Data...)
		if fragment.Flags&transport.FlagEnd == 0 {
			return
		}
		a.active = false
		record = a.buf
	}

	for !p.ring.Write(fragment.TypeID, record) {
		if !p.worker.Running() {
			return
		}
		p.idler.Idle(0)
	}
}

func (s *subscriptionState) assemblerFor(sessionID int32) *assembler {
	a, ok := s.assemblers[sessionID]
	if !ok {
		a = &assembler{}
		s.assemblers[sessionID] = a
	}
	return a
}

func (p *InputProcessor) closeSubscriptions() error {
	var first error
	for _, state := range p.subs {
		if err := state.sub.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Start launches the ingress worker.
func (p *InputProcessor) Start() { p.worker.Start() }

// Close joins the worker and releases the subscriptions.
func (p *InputProcessor) Close() error { return p.worker.Close() }

// Name implements RateReport.
func (p *InputProcessor) Name() string { return p.worker.Name() }

// SuccessfulReads implements RateReport.
func (p *InputProcessor) SuccessfulReads() int64 { return p.worker.SuccessfulReads() }

// FailedReads implements RateReport.
func (p *InputProcessor) FailedReads() int64 { return p.worker.FailedReads() }
