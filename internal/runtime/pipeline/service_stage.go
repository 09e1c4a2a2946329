package pipeline

import (
	"fmt"

	"github.com/velostream/velostream/internal/runtime/idle"
	"github.com/velostream/velostream/internal/runtime/logging"
	"github.com/velostream/velostream/internal/runtime/ringbuffer"
	"github.com/velostream/velostream/internal/runtime/worker"
)

// serviceBatchLimit caps the records delivered to the handler per poll.
const serviceBatchLimit = 64

// Handler is the user-supplied processing contract. OnMessage is invoked
// exactly once per record in arrival order from the service stage thread;
// the data slice is only valid for the duration of the call. Blocking
// indefinitely stalls the whole pipeline.
type Handler interface {
	OnMessage(msgTypeID int32, data []byte)
	Close() error
}

// HandlerFactory builds the handler around the ring-buffer pool. The pool is
// constructed before the handler and populated as endpoints are registered,
// so the factory must not snapshot its contents.
type HandlerFactory func(pool *ringbuffer.Pool) Handler

// ServiceProcessor invokes the user handler on records from the terminal
// input ring. Handler panics are recovered and logged once per occurrence;
// the stage then continues with the next record.
type ServiceProcessor struct {
	ring    *ringbuffer.RingBuffer
	handler Handler
	logger  logging.ServiceLogger
	worker  *worker.Worker
	onFault func(error)
}

// NewServiceProcessor builds the service stage over the terminal ring.
func NewServiceProcessor(ring *ringbuffer.RingBuffer, handler Handler, idler idle.Strategy, name string, logger logging.ServiceLogger) *ServiceProcessor {
	p := &ServiceProcessor{
		ring:    ring,
		handler: handler,
		logger:  logger,
	}
	p.worker = worker.New(name, p.poll, idler, logger, worker.WithCloser(handler.Close))
	return p
}

// SetFaultHandler installs a callback fired on handler faults, in addition
// to logging. Must be called before Start.
func (p *ServiceProcessor) SetFaultHandler(onFault func(error)) {
	p.onFault = onFault
}

func (p *ServiceProcessor) poll() int {
	return p.ring.Read(p.invoke, serviceBatchLimit)
}

func (p *ServiceProcessor) invoke(msgTypeID int32, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			err, ok := r.(error)
			if !ok {
				err = fmt.Errorf("%v", r)
			}
			p.logger.Error("handler fault, continuing with next record", err, logging.LogFields{
				"worker":      p.worker.Name(),
				"msg_type_id": msgTypeID,
			})
			if p.onFault != nil {
				p.onFault(err)
			}
		}
	}()
	p.handler.OnMessage(msgTypeID, data)
}

// Handler returns the user handler.
func (p *ServiceProcessor) Handler() Handler { return p.handler }

// Start launches the service worker.
func (p *ServiceProcessor) Start() { p.worker.Start() }

// Close joins the worker and closes the user handler.
func (p *ServiceProcessor) Close() error { return p.worker.Close() }

// Name implements RateReport.
func (p *ServiceProcessor) Name() string { return p.worker.Name() }

// SuccessfulReads implements RateReport.
func (p *ServiceProcessor) SuccessfulReads() int64 { return p.worker.SuccessfulReads() }

// FailedReads implements RateReport.
func (p *ServiceProcessor) FailedReads() int64 { return p.worker.FailedReads() }
