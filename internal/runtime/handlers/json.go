package handlers

import (
	"fmt"

	"github.com/velostream/velostream/internal/runtime/admin"
	"github.com/velostream/velostream/internal/runtime/jsoncodec"
	"github.com/velostream/velostream/internal/runtime/ringbuffer"
)

// JSONCallback processes one decoded application message.
type JSONCallback[T any] func(pool *ringbuffer.Pool, msgTypeID int32, msg T)

// JSONHandler decodes application payloads into T and hands administrative
// records through raw.
type JSONHandler[T any] struct {
	pool    *ringbuffer.Pool
	onJSON  JSONCallback[T]
	onAdmin AdminCallback
}

// NewJSONHandler builds a JSON-typed handler. onAdmin may be nil, in which
// case administrative records are ignored.
func NewJSONHandler[T any](pool *ringbuffer.Pool, onJSON JSONCallback[T], onAdmin AdminCallback) *JSONHandler[T] {
	if onJSON == nil {
		panic("velostream: json callback cannot be nil")
	}
	return &JSONHandler[T]{pool: pool, onJSON: onJSON, onAdmin: onAdmin}
}

func (h *JSONHandler[T]) OnMessage(msgTypeID int32, data []byte) {
	if admin.IsAdministrative(msgTypeID) {
		if h.onAdmin != nil {
			h.onAdmin(msgTypeID, data)
		}
		return
	}

	var msg T
	if err := jsoncodec.Unmarshal(data, &msg); err != nil {
		panic(fmt.Errorf("velostream: json decode: %w", err))
	}
	h.onJSON(h.pool, msgTypeID, msg)
}

func (h *JSONHandler[T]) Close() error { return nil }
