package pipeline

import (
	"encoding/binary"

	"github.com/velostream/velostream/internal/runtime/idle"
	"github.com/velostream/velostream/internal/runtime/journal"
	"github.com/velostream/velostream/internal/runtime/logging"
	"github.com/velostream/velostream/internal/runtime/ringbuffer"
	"github.com/velostream/velostream/internal/runtime/worker"
)

// journalBatchLimit caps the records journalled per poll. When flushing is
// enabled the writer flushes once per productive batch.
const journalBatchLimit = 10

// JournalProcessor persists each record through the journal writer before
// forwarding it locally, preserving order. Records are written framed
// (header plus payload) and never parsed. An I/O fault stops the stage;
// other stages keep running.
type JournalProcessor struct {
	input  *ringbuffer.RingBuffer
	output *ringbuffer.RingBuffer
	writer *journal.Writer
	idler  idle.Strategy
	logger logging.ServiceLogger
	worker *worker.Worker

	frame []byte
}

// NewJournalProcessor builds the journal stage between input and output.
func NewJournalProcessor(input, output *ringbuffer.RingBuffer, writer *journal.Writer, idler idle.Strategy, name string, logger logging.ServiceLogger) *JournalProcessor {
	p := &JournalProcessor{
		input:  input,
		output: output,
		writer: writer,
		idler:  idler,
		logger: logger,
		frame:  make([]byte, 0, ringbuffer.HeaderLength+1024),
	}
	p.worker = worker.New(name, p.poll, idler, logger, worker.WithCloser(writer.Close))
	return p
}

func (p *JournalProcessor) poll() int {
	work := p.input.Read(p.onRecord, journalBatchLimit)
	if work > 0 {
		if err := p.writer.Flush(); err != nil {
			p.logger.Error("journal flush failed, stopping stage", err, logging.LogFields{"worker": p.worker.Name()})
			p.worker.RequestStop()
		}
	}
	return work
}

func (p *JournalProcessor) onRecord(msgTypeID int32, data []byte) {
	p.frame = p.frame[:0]
	p.frame = binary.LittleEndian.AppendUint32(p.frame, uint32(ringbuffer.HeaderLength+len(data)))
	p.frame = binary.LittleEndian.AppendUint32(p.frame, uint32(msgTypeID))
	p.frame = append(p.frame, data...)

	if err := p.writer.Write(p.frame); err != nil {
		p.logger.Error("journal write failed, stopping stage", err, logging.LogFields{"worker": p.worker.Name()})
		p.worker.RequestStop()
		return
	}

	for !p.output.Write(msgTypeID, data) {
		if !p.worker.Running() {
			return
		}
		p.idler.Idle(0)
	}
}

// Start launches the journal worker.
func (p *JournalProcessor) Start() { p.worker.Start() }

// Close joins the worker and releases the journal writer.
func (p *JournalProcessor) Close() error { return p.worker.Close() }

// Name implements RateReport.
func (p *JournalProcessor) Name() string { return p.worker.Name() }

// SuccessfulReads implements RateReport.
func (p *JournalProcessor) SuccessfulReads() int64 { return p.worker.SuccessfulReads() }

// FailedReads implements RateReport.
func (p *JournalProcessor) FailedReads() int64 { return p.worker.FailedReads() }
