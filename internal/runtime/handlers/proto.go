// Package handlers adapts typed callbacks onto the byte-level pipeline
// Handler contract. Decode failures panic and are absorbed by the service
// stage's fault recovery, so a poison record costs one logged fault and the
// pipeline moves on.
package handlers

import (
	"fmt"

	"google.golang.org/protobuf/proto"

	"github.com/velostream/velostream/internal/runtime/admin"
	"github.com/velostream/velostream/internal/runtime/ringbuffer"
)

// ProtoCallback processes one decoded application message. The pool gives
// access to the output and event rings.
type ProtoCallback[T proto.Message] func(pool *ringbuffer.Pool, msgTypeID int32, msg T)

// AdminCallback processes one raw administrative record.
type AdminCallback func(msgTypeID int32, data []byte)

// ProtoHandler decodes application payloads into T and hands administrative
// records through raw.
type ProtoHandler[T proto.Message] struct {
	pool    *ringbuffer.Pool
	onProto ProtoCallback[T]
	onAdmin AdminCallback
}

// NewProtoHandler builds a proto-typed handler. onAdmin may be nil, in which
// case administrative records are ignored.
func NewProtoHandler[T proto.Message](pool *ringbuffer.Pool, onProto ProtoCallback[T], onAdmin AdminCallback) *ProtoHandler[T] {
	if onProto == nil {
		panic("velostream: proto callback cannot be nil")
	}
	return &ProtoHandler[T]{pool: pool, onProto: onProto, onAdmin: onAdmin}
}

func (h *ProtoHandler[T]) OnMessage(msgTypeID int32, data []byte) {
	if admin.IsAdministrative(msgTypeID) {
		if h.onAdmin != nil {
			h.onAdmin(msgTypeID, data)
		}
		return
	}

	msg := NewProtoMessage[T]()
	if err := proto.Unmarshal(data, msg); err != nil {
		panic(fmt.Errorf("velostream: proto decode: %w", err))
	}
	h.onProto(h.pool, msgTypeID, msg)
}

func (h *ProtoHandler[T]) Close() error { return nil }

// NewProtoMessage allocates a fresh instance of the proto message type T.
func NewProtoMessage[T proto.Message]() T {
	var zero T
	return zero.ProtoReflect().Type().New().Interface().(T)
}
