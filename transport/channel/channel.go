// Package channel provides an in-memory transport driver. It is the default
// for tests and single-process deployments: publications fragment records at
// a configurable MTU and subscriptions poll them back, so the full ingress
// reassembly path is exercised without a broker.
package channel

import (
	"sync"
	"sync/atomic"

	"github.com/velostream/velostream/internal/runtime/ids"
	"github.com/velostream/velostream/internal/runtime/logging"
	"github.com/velostream/velostream/transport"
)

// TransportName is the name used to register this driver.
const TransportName = "channel"

// DefaultMTU is the fragment payload size publications split records at.
const DefaultMTU = 1408

// DefaultQueueDepth is the per-stream fragment queue capacity.
const DefaultQueueDepth = 4096

func init() {
	transport.Register(TransportName, Build)
}

// Build creates a new in-memory channel driver.
func Build(cfg transport.Config, logger logging.ServiceLogger) (transport.Driver, error) {
	return New(), nil
}

// Option configures the driver.
type Option func(*Driver)

// WithMTU overrides the fragmentation threshold.
func WithMTU(mtu int) Option {
	return func(d *Driver) {
		if mtu > 0 {
			d.mtu = mtu
		}
	}
}

// WithQueueDepth overrides the per-stream fragment queue capacity.
func WithQueueDepth(depth int) Option {
	return func(d *Driver) {
		if depth > 0 {
			d.queueDepth = depth
		}
	}
}

type streamKey struct {
	channel  string
	streamID int32
}

// Driver is the in-memory transport.
type Driver struct {
	mtu        int
	queueDepth int

	mu         sync.Mutex
	subs       map[streamKey][]*subscription
	pubs       map[streamKey][]*publication
	closed     bool
	sessionSeq atomic.Int32
}

// New creates an in-memory channel driver.
func New(opts ...Option) *Driver {
	d := &Driver{
		mtu:        DefaultMTU,
		queueDepth: DefaultQueueDepth,
		subs:       make(map[streamKey][]*subscription),
		pubs:       make(map[streamKey][]*publication),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// AddSubscription registers an inbound direction for (channel, streamID).
// Publications already connected to the stream are announced immediately via
// onAvailable.
func (d *Driver) AddSubscription(channel string, streamID int32, onAvailable, onUnavailable transport.ImageHandler) (transport.Subscription, error) {
	key := streamKey{channel: channel, streamID: streamID}

	sub := &subscription{
		driver:        d,
		key:           key,
		queue:         make(chan transport.Fragment, d.queueDepth),
		onAvailable:   onAvailable,
		onUnavailable: onUnavailable,
	}

	d.mu.Lock()
	d.subs[key] = append(d.subs[key], sub)
	existing := append([]*publication(nil), d.pubs[key]...)
	d.mu.Unlock()

	for _, pub := range existing {
		sub.notifyAvailable(pub.image)
	}
	return sub, nil
}

// AddPublication registers an outbound direction for (channel, streamID) and
// announces the new image to every subscription on the stream.
func (d *Driver) AddPublication(channel string, streamID int32) (transport.Publication, error) {
	key := streamKey{channel: channel, streamID: streamID}

	pub := &publication{
		driver: d,
		key:    key,
		image: transport.Image{
			SessionID:     d.sessionSeq.Add(1),
			CorrelationID: ids.CreateULID(),
			Source:        "channel:" + channel,
		},
	}

	d.mu.Lock()
	d.pubs[key] = append(d.pubs[key], pub)
	listeners := append([]*subscription(nil), d.subs[key]...)
	d.mu.Unlock()

	for _, sub := range listeners {
		sub.notifyAvailable(pub.image)
	}
	return pub, nil
}

// Close shuts the driver; outstanding publications report Closed from Offer.
func (d *Driver) Close() error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return nil
}

type subscription struct {
	driver        *Driver
	key           streamKey
	queue         chan transport.Fragment
	onAvailable   transport.ImageHandler
	onUnavailable transport.ImageHandler
	closed        atomic.Bool
}

func (s *subscription) notifyAvailable(image transport.Image) {
	if s.onAvailable != nil {
		s.onAvailable(image)
	}
}

func (s *subscription) notifyUnavailable(image transport.Image) {
	if s.onUnavailable != nil {
		s.onUnavailable(image)
	}
}

// Poll delivers up to limit queued fragments to the handler.
func (s *subscription) Poll(handler transport.FragmentHandler, limit int) int {
	count := 0
	for count < limit {
		select {
		case fragment := <-s.queue:
			handler(fragment)
			count++
		default:
			return count
		}
	}
	return count
}

func (s *subscription) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	d := s.driver
	d.mu.Lock()
	remaining := s.driver.subs[s.key][:0]
	for _, sub := range d.subs[s.key] {
		if sub != s {
			remaining = append(remaining, sub)
		}
	}
	d.subs[s.key] = remaining
	d.mu.Unlock()
	return nil
}

type publication struct {
	driver   *Driver
	key      streamKey
	image    transport.Image
	position atomic.Int64
	closed   atomic.Bool
}

// Offer fragments the payload at the driver MTU and enqueues all fragments
// of the record, or none: when any subscription queue lacks room the whole
// record is refused with BackPressured so a retry cannot duplicate
// fragments.
func (p *publication) Offer(typeID int32, payload []byte) int64 {
	if p.closed.Load() {
		return transport.Closed
	}
	d := p.driver

	fragments := (len(payload) + d.mtu - 1) / d.mtu
	if fragments == 0 {
		fragments = 1
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return transport.Closed
	}
	subs := d.subs[p.key]
	if len(subs) == 0 {
		d.mu.Unlock()
		return transport.NotConnected
	}
	for _, sub := range subs {
		if cap(sub.queue)-len(sub.queue) < fragments {
			d.mu.Unlock()
			return transport.BackPressured
		}
	}

	for i := 0; i < fragments; i++ {
		start := i * d.mtu
		end := start + d.mtu
		if end > len(payload) {
			end = len(payload)
		}
		var flags uint8
		if i == 0 {
			flags |= transport.FlagBegin
		}
		if i == fragments-1 {
			flags |= transport.FlagEnd
		}
		data := make([]byte, end-start)
		copy(data, payload[start:end])
		fragment := transport.Fragment{
			SessionID: p.image.SessionID,
			TypeID:    typeID,
			Flags:     flags,
			Data:      data,
		}
		for _, sub := range subs {
			sub.queue <- fragment
		}
	}
	d.mu.Unlock()

	return p.position.Add(int64(len(payload)))
}

func (p *publication) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	d := p.driver
	d.mu.Lock()
	remaining := d.pubs[p.key][:0]
	for _, pub := range d.pubs[p.key] {
		if pub != p {
			remaining = append(remaining, pub)
		}
	}
	d.pubs[p.key] = remaining
	listeners := append([]*subscription(nil), d.subs[p.key]...)
	d.mu.Unlock()

	for _, sub := range listeners {
		sub.notifyUnavailable(p.image)
	}
	return nil
}
