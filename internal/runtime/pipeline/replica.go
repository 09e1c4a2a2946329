package pipeline

import (
	"github.com/velostream/velostream/internal/runtime/idle"
	"github.com/velostream/velostream/internal/runtime/logging"
	"github.com/velostream/velostream/internal/runtime/ringbuffer"
	"github.com/velostream/velostream/internal/runtime/worker"
	"github.com/velostream/velostream/transport"
)

// replicaBatchLimit caps the records copied per poll.
const replicaBatchLimit = 10

// ReplicaProcessor copies ingress records to the replica stream, then
// forwards each record locally. The publish and the forward are synchronous
// inside the stage thread, so a record reaches the replica stream before any
// downstream stage observes it. Order across the stage equals input order.
type ReplicaProcessor struct {
	input       *ringbuffer.RingBuffer
	output      *ringbuffer.RingBuffer
	publication transport.Publication
	idler       idle.Strategy
	logger      logging.ServiceLogger
	worker      *worker.Worker
}

// NewReplicaProcessor builds the replica stage between input and output.
func NewReplicaProcessor(input, output *ringbuffer.RingBuffer, stream transport.Stream, idler idle.Strategy, name string, logger logging.ServiceLogger) (*ReplicaProcessor, error) {
	publication, err := stream.Driver.AddPublication(stream.Channel, stream.StreamID)
	if err != nil {
		return nil, err
	}

	p := &ReplicaProcessor{
		input:       input,
		output:      output,
		publication: publication,
		idler:       idler,
		logger:      logger,
	}
	p.worker = worker.New(name, p.poll, idler, logger, worker.WithCloser(publication.Close))
	return p, nil
}

func (p *ReplicaProcessor) poll() int {
	return p.input.Read(p.onRecord, replicaBatchLimit)
}

func (p *ReplicaProcessor) onRecord(msgTypeID int32, data []byte) {
	for {
		result := p.publication.Offer(msgTypeID, data)
		if result >= 0 {
			break
		}
		if result == transport.Closed {
			p.logger.Error("replica publication closed, stopping stage", nil, logging.LogFields{"worker": p.worker.Name()})
			p.worker.RequestStop()
			return
		}
		if !p.worker.Running() {
			return
		}
		p.idler.Idle(0)
	}

	for !p.output.Write(msgTypeID, data) {
		if !p.worker.Running() {
			return
		}
		p.idler.Idle(0)
	}
}

// Start launches the replica worker.
func (p *ReplicaProcessor) Start() { p.worker.Start() }

// Close joins the worker and releases the replica publication.
func (p *ReplicaProcessor) Close() error { return p.worker.Close() }

// Name implements RateReport.
func (p *ReplicaProcessor) Name() string { return p.worker.Name() }

// SuccessfulReads implements RateReport.
func (p *ReplicaProcessor) SuccessfulReads() int64 { return p.worker.SuccessfulReads() }

// FailedReads implements RateReport.
func (p *ReplicaProcessor) FailedReads() int64 { return p.worker.FailedReads() }
