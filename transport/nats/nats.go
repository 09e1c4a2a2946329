// Package nats provides a transport driver over core NATS. Records travel
// unfragmented on subject "<channel>.<streamID>" with an 8-byte little-endian
// frame prefix carrying the message type id.
package nats

import (
	"encoding/binary"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/nats-io/nats.go"

	"github.com/velostream/velostream/internal/runtime/logging"
	"github.com/velostream/velostream/transport"
)

// TransportName is the name used to register this driver.
const TransportName = "nats"

const (
	frameHeaderLength = 8
	pendingLimit      = 8192
)

func init() {
	transport.Register(TransportName, Build)
}

// Build connects to the configured NATS URL and returns a driver owning the
// connection.
func Build(cfg transport.Config, logger logging.ServiceLogger) (transport.Driver, error) {
	nc, err := nats.Connect(cfg.GetNATSURL())
	if err != nil {
		return nil, fmt.Errorf("velostream: nats connect: %w", err)
	}
	return &Driver{nc: nc, logger: logger, owned: true}, nil
}

// New wraps an existing connection; Close leaves it open.
func New(nc *nats.Conn, logger logging.ServiceLogger) *Driver {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Driver{nc: nc, logger: logger}
}

// Driver is the NATS transport.
type Driver struct {
	nc     *nats.Conn
	logger logging.ServiceLogger
	owned  bool
}

func subject(channel string, streamID int32) string {
	return fmt.Sprintf("%s.%d", channel, streamID)
}

// AddSubscription subscribes to the stream subject. The connection itself is
// reported as the association: onAvailable fires once the subscription is
// live, onUnavailable when it closes.
func (d *Driver) AddSubscription(channel string, streamID int32, onAvailable, onUnavailable transport.ImageHandler) (transport.Subscription, error) {
	msgs := make(chan *nats.Msg, pendingLimit)
	inner, err := d.nc.ChanSubscribe(subject(channel, streamID), msgs)
	if err != nil {
		return nil, fmt.Errorf("velostream: nats subscribe: %w", err)
	}

	image := transport.Image{
		SessionID: streamID,
		Source:    "nats:" + d.nc.ConnectedUrl(),
	}
	if onAvailable != nil {
		onAvailable(image)
	}

	return &subscription{
		inner:         inner,
		msgs:          msgs,
		image:         image,
		onUnavailable: onUnavailable,
	}, nil
}

// AddPublication returns a publication on the stream subject.
func (d *Driver) AddPublication(channel string, streamID int32) (transport.Publication, error) {
	return &publication{nc: d.nc, subject: subject(channel, streamID)}, nil
}

// Close drains the connection when the driver owns it.
func (d *Driver) Close() error {
	if !d.owned {
		return nil
	}
	return d.nc.Drain()
}

type subscription struct {
	inner         *nats.Subscription
	msgs          chan *nats.Msg
	image         transport.Image
	onUnavailable transport.ImageHandler
	closed        atomic.Bool
}

func (s *subscription) Poll(handler transport.FragmentHandler, limit int) int {
	count := 0
	for count < limit {
		select {
		case msg := <-s.msgs:
			if len(msg.Data) < frameHeaderLength {
				continue
			}
			handler(transport.Fragment{
				SessionID: s.image.SessionID,
				TypeID:    int32(binary.LittleEndian.Uint32(msg.Data)),
				Flags:     transport.FlagUnfragmented,
				Data:      msg.Data[frameHeaderLength:],
			})
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
	err := s.inner.Unsubscribe()
	if s.onUnavailable != nil {
		s.onUnavailable(s.image)
	}
	return err
}

type publication struct {
	nc       *nats.Conn
	subject  string
	position atomic.Int64
	closed   atomic.Bool
}

func (p *publication) Offer(typeID int32, payload []byte) int64 {
	if p.closed.Load() {
		return transport.Closed
	}

	framed := make([]byte, frameHeaderLength+len(payload))
	binary.LittleEndian.PutUint32(framed, uint32(typeID))
	copy(framed[frameHeaderLength:], payload)

	err := p.nc.Publish(p.subject, framed)
	switch {
	case err == nil:
		return p.position.Add(int64(len(payload)))
	case errors.Is(err, nats.ErrConnectionClosed):
		return transport.Closed
	case errors.Is(err, nats.ErrReconnectBufExceeded):
		return transport.BackPressured
	default:
		return transport.NotConnected
	}
}

func (p *publication) Close() error {
	p.closed.Store(true)
	return nil
}
