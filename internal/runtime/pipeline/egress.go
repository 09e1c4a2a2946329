package pipeline

import (
	"github.com/velostream/velostream/internal/runtime/idle"
	"github.com/velostream/velostream/internal/runtime/logging"
	"github.com/velostream/velostream/internal/runtime/ringbuffer"
	"github.com/velostream/velostream/internal/runtime/worker"
	"github.com/velostream/velostream/transport"
)

// outputBatchLimit caps the records drained from an output ring per poll.
const outputBatchLimit = 10

// OutputProcessor drains one output ring and publishes its records onto one
// transport stream. Backpressure and transient offer results are retried
// under the idle strategy; a closed publication stops the stage.
type OutputProcessor struct {
	ring        *ringbuffer.RingBuffer
	publication transport.Publication
	idler       idle.Strategy
	logger      logging.ServiceLogger
	worker      *worker.Worker
}

// NewOutputProcessor binds ring to the stream and builds the egress worker.
func NewOutputProcessor(ring *ringbuffer.RingBuffer, stream transport.Stream, idler idle.Strategy, name string, logger logging.ServiceLogger) (*OutputProcessor, error) {
	publication, err := stream.Driver.AddPublication(stream.Channel, stream.StreamID)
	if err != nil {
		return nil, err
	}

	p := &OutputProcessor{
		ring:        ring,
		publication: publication,
		idler:       idler,
		logger:      logger,
	}
	p.worker = worker.New(name, p.poll, idler, logger, worker.WithCloser(publication.Close))
	return p, nil
}

func (p *OutputProcessor) poll() int {
	return p.ring.Read(p.onRecord, outputBatchLimit)
}

func (p *OutputProcessor) onRecord(msgTypeID int32, data []byte) {
	for {
		result := p.publication.Offer(msgTypeID, data)
		if result >= 0 {
			return
		}
		if result == transport.Closed {
			p.logger.Error("publication closed, stopping egress", nil, logging.LogFields{"worker": p.worker.Name()})
			p.worker.RequestStop()
			return
		}
		if !p.worker.Running() {
			return // shutdown: in-flight records may be dropped by design
		}
		p.idler.Idle(0)
	}
}

// Start launches the egress worker.
func (p *OutputProcessor) Start() { p.worker.Start() }

// Close joins the worker and releases the publication.
func (p *OutputProcessor) Close() error { return p.worker.Close() }

// Name implements RateReport.
func (p *OutputProcessor) Name() string { return p.worker.Name() }

// SuccessfulReads implements RateReport.
func (p *OutputProcessor) SuccessfulReads() int64 { return p.worker.SuccessfulReads() }

// FailedReads implements RateReport.
func (p *OutputProcessor) FailedReads() int64 { return p.worker.FailedReads() }
