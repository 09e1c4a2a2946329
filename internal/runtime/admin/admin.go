// Package admin defines the administrative message-type partition and the
// bit-exact little-endian codec for snapshot marker records.
//
// An administrative record is an 8-byte message header {block length,
// template id, schema id, version; uint16 each} followed by an MMB header
// carrying the node id.
package admin

import (
	"encoding/binary"

	errs "github.com/velostream/velostream/internal/runtime/errors"
	"github.com/velostream/velostream/internal/runtime/idle"
	"github.com/velostream/velostream/internal/runtime/ringbuffer"
)

// Message type identifiers. The administrative id is distinct from and
// non-overlapping with application ids.
const (
	ApplicationMsgID    int32 = 1
	AdministrativeMsgID int32 = 2
)

// Snapshot template identifiers.
const (
	LoadSnapshotTemplateID uint16 = 1
	SaveSnapshotTemplateID uint16 = 2
)

// Schema identity of administrative messages.
const (
	SchemaID      uint16 = 1
	SchemaVersion uint16 = 0
)

const (
	headerLength    = 8
	mmbHeaderLength = 2

	// MessageLength is the total encoded length of a snapshot record.
	MessageLength = headerLength + mmbHeaderLength
)

// MessageHeader is the decoded form of the 8-byte administrative header.
type MessageHeader struct {
	BlockLength uint16
	TemplateID  uint16
	SchemaID    uint16
	Version     uint16
}

// IsAdministrative reports whether a message type id falls in the
// administrative partition.
func IsAdministrative(msgTypeID int32) bool {
	return msgTypeID == AdministrativeMsgID
}

// EncodeSnapshot writes a snapshot record for the given template into dst,
// which must hold at least MessageLength bytes, and returns the encoded
// length.
func EncodeSnapshot(dst []byte, templateID uint16, nodeID uint16) int {
	binary.LittleEndian.PutUint16(dst[0:], mmbHeaderLength)
	binary.LittleEndian.PutUint16(dst[2:], templateID)
	binary.LittleEndian.PutUint16(dst[4:], SchemaID)
	binary.LittleEndian.PutUint16(dst[6:], SchemaVersion)
	binary.LittleEndian.PutUint16(dst[8:], nodeID)
	return MessageLength
}

// DecodeHeader reads the message header from the front of data.
func DecodeHeader(data []byte) MessageHeader {
	return MessageHeader{
		BlockLength: binary.LittleEndian.Uint16(data[0:]),
		TemplateID:  binary.LittleEndian.Uint16(data[2:]),
		SchemaID:    binary.LittleEndian.Uint16(data[4:]),
		Version:     binary.LittleEndian.Uint16(data[6:]),
	}
}

// DecodeNodeID reads the MMB header node id following the message header.
func DecodeNodeID(data []byte) uint16 {
	return binary.LittleEndian.Uint16(data[headerLength:])
}

// WriteLoadMessage spin-writes a LOAD_SNAPSHOT record into the ring under
// the idle strategy. Nil arguments are usage errors and panic.
func WriteLoadMessage(rb *ringbuffer.RingBuffer, idler idle.Strategy, nodeID uint16) {
	writeMessage(rb, idler, LoadSnapshotTemplateID, nodeID)
}

// WriteSaveMessage spin-writes a SAVE_SNAPSHOT record into the ring under
// the idle strategy. Nil arguments are usage errors and panic.
func WriteSaveMessage(rb *ringbuffer.RingBuffer, idler idle.Strategy, nodeID uint16) {
	writeMessage(rb, idler, SaveSnapshotTemplateID, nodeID)
}

func writeMessage(rb *ringbuffer.RingBuffer, idler idle.Strategy, templateID uint16, nodeID uint16) {
	if rb == nil {
		panic(errs.ErrRingBufferRequired)
	}
	if idler == nil {
		panic(errs.ErrIdleStrategyRequired)
	}

	var buf [MessageLength]byte
	EncodeSnapshot(buf[:], templateID, nodeID)

	for !rb.Write(AdministrativeMsgID, buf[:]) {
		idler.Idle(0)
	}
}
