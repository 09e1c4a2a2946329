// Package transport defines the contract between the velostream pipeline and
// the messaging layer underneath it. Each driver implementation (channel,
// nats, watermillbridge, ...) lives in its own sub-package and registers
// itself with the driver registry.
package transport

// Offer result codes. Non-negative values are stream positions; negative
// values signal why the publication could not accept the payload. All
// negative codes except Closed are retriable.
const (
	NotConnected  int64 = -1
	BackPressured int64 = -2
	AdminAction   int64 = -3
	Closed        int64 = -4
)

// Fragment flag bits. An unfragmented record carries both Begin and End.
const (
	FlagBegin uint8 = 1 << 0
	FlagEnd   uint8 = 1 << 1

	FlagUnfragmented = FlagBegin | FlagEnd
)

// Fragment is one transport-level piece of a record. Drivers are permitted
// to split a record across MTU-sized fragments; consumers reassemble per
// session using the flag bits.
type Fragment struct {
	SessionID int32
	TypeID    int32
	Flags     uint8
	Data      []byte
}

// FragmentHandler receives fragments from Subscription.Poll.
type FragmentHandler func(fragment Fragment)

// Subscription is one inbound direction of a stream. Poll never blocks and
// returns the number of fragments delivered to the handler.
type Subscription interface {
	Poll(handler FragmentHandler, limit int) int
	Close() error
}

// Publication is one outbound direction of a stream. Offer never blocks; a
// negative return is one of the result codes above.
type Publication interface {
	Offer(typeID int32, payload []byte) int64
	Close() error
}

// Image identifies one remote producer associated with a subscription.
type Image struct {
	SessionID     int32
	CorrelationID string
	Source        string
}

// ImageHandler is notified when an association with a remote endpoint comes
// up or goes down.
type ImageHandler func(image Image)

// Driver creates subscriptions and publications for (channel, stream id)
// endpoints. Close releases every resource the driver still owns.
type Driver interface {
	AddSubscription(channel string, streamID int32, onAvailable, onUnavailable ImageHandler) (Subscription, error)
	AddPublication(channel string, streamID int32) (Publication, error)
	Close() error
}

// Stream identifies one direction of a unicast message path on a driver.
type Stream struct {
	Driver   Driver
	Channel  string
	StreamID int32
}

// NewStream builds a Stream value for the given endpoint.
func NewStream(driver Driver, channel string, streamID int32) Stream {
	return Stream{Driver: driver, Channel: channel, StreamID: streamID}
}

// IsZero reports whether the stream has not been populated.
func (s Stream) IsZero() bool {
	return s.Driver == nil && s.Channel == "" && s.StreamID == 0
}
