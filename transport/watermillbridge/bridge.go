// Package watermillbridge exposes any Watermill publisher/subscriber pair as
// a velostream transport driver, so every broker with a Watermill pub/sub
// (kafka, amqp, SNS/SQS, ...) plugs into the pipeline through one adapter.
// The registered builder uses the in-process gochannel pub/sub.
//
// The bridge favours interoperability over latency: the message type id
// travels in metadata and records are never fragmented.
package watermillbridge

import (
	"context"
	"fmt"
	"strconv"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/velostream/velostream/internal/runtime/logging"
	"github.com/velostream/velostream/transport"
)

// TransportName is the name used to register this driver.
const TransportName = "watermill"

// MetadataKeyMsgType carries the record's message type id.
const MetadataKeyMsgType = "velostream_msg_type"

const pendingLimit = 4096

func init() {
	transport.Register(TransportName, Build)
}

// Build creates a bridge over an in-process gochannel pub/sub.
func Build(cfg transport.Config, logger logging.ServiceLogger) (transport.Driver, error) {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: pendingLimit},
		NewLoggerAdapter(logger),
	)
	return New(pubSub, pubSub, logger), nil
}

// New wraps an existing Watermill publisher/subscriber pair.
func New(pub message.Publisher, sub message.Subscriber, logger logging.ServiceLogger) *Driver {
	if logger == nil {
		logger = logging.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Driver{pub: pub, sub: sub, logger: logger, ctx: ctx, cancel: cancel}
}

// Driver bridges Watermill pub/subs into the transport contract.
type Driver struct {
	pub    message.Publisher
	sub    message.Subscriber
	logger logging.ServiceLogger
	ctx    context.Context
	cancel context.CancelFunc
}

func topic(channel string, streamID int32) string {
	return fmt.Sprintf("%s.%d", channel, streamID)
}

func (d *Driver) AddSubscription(channel string, streamID int32, onAvailable, onUnavailable transport.ImageHandler) (transport.Subscription, error) {
	msgs, err := d.sub.Subscribe(d.ctx, topic(channel, streamID))
	if err != nil {
		return nil, fmt.Errorf("velostream: watermill subscribe: %w", err)
	}

	image := transport.Image{SessionID: streamID, Source: "watermill:" + topic(channel, streamID)}
	if onAvailable != nil {
		onAvailable(image)
	}

	return &subscription{
		msgs:          msgs,
		image:         image,
		logger:        d.logger,
		onUnavailable: onUnavailable,
	}, nil
}

func (d *Driver) AddPublication(channel string, streamID int32) (transport.Publication, error) {
	return &publication{pub: d.pub, topic: topic(channel, streamID)}, nil
}

// Close cancels every subscription context and closes the publisher. This
// applies to a publisher supplied through New as well as to the gochannel
// pair from Build; the subscriber is not closed separately.
func (d *Driver) Close() error {
	d.cancel()
	if closer, ok := d.pub.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

type subscription struct {
	msgs          <-chan *message.Message
	image         transport.Image
	logger        logging.ServiceLogger
	onUnavailable transport.ImageHandler
	closed        atomic.Bool
}

func (s *subscription) Poll(handler transport.FragmentHandler, limit int) int {
	count := 0
	for count < limit {
		select {
		case msg, ok := <-s.msgs:
			if !ok {
				return count
			}
			typeID, err := strconv.Atoi(msg.Metadata.Get(MetadataKeyMsgType))
			if err != nil || typeID <= 0 {
				s.logger.Error("dropping message without a valid type id", err, logging.LogFields{"uuid": msg.UUID})
				msg.Ack()
				continue
			}
			handler(transport.Fragment{
				SessionID: s.image.SessionID,
				TypeID:    int32(typeID),
				Flags:     transport.FlagUnfragmented,
				Data:      msg.Payload,
			})
			msg.Ack()
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
	if s.onUnavailable != nil {
		s.onUnavailable(s.image)
	}
	return nil
}

type publication struct {
	pub      message.Publisher
	topic    string
	position atomic.Int64
	closed   atomic.Bool
}

func (p *publication) Offer(typeID int32, payload []byte) int64 {
	if p.closed.Load() {
		return transport.Closed
	}

	data := make([]byte, len(payload))
	copy(data, payload)
	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(MetadataKeyMsgType, strconv.Itoa(int(typeID)))

	if err := p.pub.Publish(p.topic, msg); err != nil {
		return transport.NotConnected
	}
	return p.position.Add(int64(len(payload)))
}

func (p *publication) Close() error {
	p.closed.Store(true)
	return nil
}
