// Package pipeline assembles the fixed-stage processing graph: ingress
// consumer, optional replica and journal stages, the service stage, and the
// egress/event producers, all wired from SPSC ring buffers and driven by
// dedicated workers, plus the timing wheel injecting snapshot markers.
package pipeline

import (
	"fmt"
	"sync/atomic"

	"github.com/velostream/velostream/internal/runtime/config"
	errs "github.com/velostream/velostream/internal/runtime/errors"
	"github.com/velostream/velostream/internal/runtime/idle"
	"github.com/velostream/velostream/internal/runtime/journal"
	"github.com/velostream/velostream/internal/runtime/logging"
	"github.com/velostream/velostream/internal/runtime/metrics"
	"github.com/velostream/velostream/internal/runtime/ringbuffer"
	"github.com/velostream/velostream/internal/runtime/timing"
	"github.com/velostream/velostream/transport"
)

// Option configures optional pipeline behaviour.
type Option func(*Pipeline)

// WithHooks merges lifecycle hooks into the pipeline.
func WithHooks(hooks LifecycleHooks) Option {
	return func(p *Pipeline) { p.hooks = p.hooks.Merge(hooks) }
}

// Pipeline is the composed stage graph for one service instance. It owns
// every ring, subscription, publication, worker thread, the timing wheel,
// the timer executor, and the user handler. Lifecycle: construct →
// registration → Start → Close. Close joins every worker before returning
// and is idempotent.
type Pipeline struct {
	cfg    *config.Config
	logger logging.ServiceLogger
	driver transport.Driver

	pool        *ringbuffer.Pool
	ingressRing *ringbuffer.RingBuffer

	input        *InputProcessor
	replica      *ReplicaProcessor
	journalStage *JournalProcessor
	service      *ServiceProcessor

	responseProcessors []*OutputProcessor
	eventProcessors    []*OutputProcessor
	reports            []*ServiceReport

	wheel         *timing.Wheel
	snapshotTimer *timing.SnapshotTimer
	timerRunning  atomic.Bool
	timerDone     chan struct{}

	writeIdle func() idle.Strategy

	collector     *metrics.Collector
	metricsServer *metrics.Server

	hooks LifecycleHooks

	// Set once during assembly; notifications are no-ops while nil.
	availableAssociation   transport.ImageHandler
	unavailableAssociation transport.ImageHandler

	started atomic.Bool
	closed  atomic.Bool
}

// New assembles a pipeline from the configuration, wiring the replica and
// journal stages only when enabled. A nil config, driver, factory or
// factory-built handler is a usage error and panics; a nil logger falls back
// to a no-op logger. An invalid configuration is returned as an error.
func New(cfg *config.Config, logger logging.ServiceLogger, driver transport.Driver, factory HandlerFactory, opts ...Option) (*Pipeline, error) {
	if cfg == nil {
		panic(errs.ErrConfigRequired)
	}
	if driver == nil {
		panic(errs.ErrDriverRequired)
	}
	if factory == nil {
		panic(errs.ErrHandlerFactoryNeeded)
	}
	if logger == nil {
		logger = logging.Nop()
	}

	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	p := &Pipeline{
		cfg:       cfg,
		logger:    logger,
		driver:    driver,
		pool:      ringbuffer.NewPool(),
		timerDone: make(chan struct{}),
		writeIdle: func() idle.Strategy { return idle.ByName(cfg.WriteIdleStrategy) },
	}
	for _, opt := range opts {
		opt(p)
	}

	p.ingressRing = ringbuffer.New(cfg.RingCapacity)
	p.wheel = timing.NewWheel(cfg.TickDuration, cfg.TicksPerWheel)
	p.snapshotTimer = timing.NewSnapshotTimer(p.wheel, p.ingressRing, cfg.SnapshotInterval, cfg.NodeID)

	terminal := p.ingressRing

	if cfg.ReplicaEnabled {
		replicaRing := ringbuffer.New(cfg.RingCapacity)
		replicaStream := transport.NewStream(driver, cfg.ReplicaChannel, cfg.ReplicaStreamID)
		replica, err := NewReplicaProcessor(terminal, replicaRing, replicaStream, idle.NewBusySpin(), "replica-processor", logger)
		if err != nil {
			return nil, fmt.Errorf("velostream: replica stage: %w", err)
		}
		p.replica = replica
		terminal = replicaRing
	}

	if cfg.JournalEnabled {
		strategy, err := journal.ByName(cfg)
		if err != nil {
			return nil, err
		}
		if err := strategy.Open(); err != nil {
			return nil, fmt.Errorf("velostream: journal open: %w", err)
		}
		writer := journal.NewWriter(strategy, cfg.JournalFlushingEnabled)

		journalRing := ringbuffer.New(cfg.RingCapacity)
		p.journalStage = NewJournalProcessor(terminal, journalRing, writer, idle.NewBusySpin(), "journal-processor", logger)
		terminal = journalRing
	}

	handler := factory(p.pool)
	if handler == nil {
		panic(errs.ErrHandlerRequired)
	}
	p.service = NewServiceProcessor(terminal, handler, idle.NewBusySpin(), "service-processor", logger)
	p.service.SetFaultHandler(func(err error) {
		if p.hooks.OnHandlerError != nil {
			p.hooks.OnHandlerError(err)
		}
	})

	p.input = NewInputProcessor(p.ingressRing, idle.ByName(cfg.SubscriberIdleStrategy), cfg.FrameCountLimit, "gw-request-processor", logger)
	p.input.SetImageHandlers(p.onAvailableImage, p.onUnavailableImage)

	if cfg.MetricsEnabled {
		p.collector = metrics.NewCollector()
		p.registerMetrics(p.input, p.ingressRing, "ingress")
	}

	return p, nil
}

func (p *Pipeline) registerMetrics(report RateReport, ring *ringbuffer.RingBuffer, ringName string) {
	if p.collector == nil {
		return
	}
	if err := p.collector.RegisterWorker(report.Name(), report.SuccessfulReads, report.FailedReads); err != nil {
		p.logger.Error("worker metrics registration failed", err, logging.LogFields{"worker": report.Name()})
	}
	if ring != nil {
		if err := p.collector.RegisterRing(ringName, ring.Size); err != nil {
			p.logger.Error("ring metrics registration failed", err, logging.LogFields{"ring": ringName})
		}
	}
}

// AddEndPoint registers a request/response stream pair: the request stream
// is multiplexed into the ingress consumer and a fresh output ring plus
// egress producer is bound to the response stream. A ServiceReport pairing
// the ingress and the new egress counters is recorded. Must be called
// before Start.
func (p *Pipeline) AddEndPoint(requestStream, responseStream transport.Stream) *Pipeline {
	if requestStream.IsZero() {
		panic(errs.ErrRequestStreamNeeded)
	}
	if responseStream.IsZero() {
		panic(errs.ErrResponseStreamNeeded)
	}

	if _, err := p.input.AddSubscription(requestStream); err != nil {
		panic(fmt.Errorf("velostream: add endpoint subscription: %w", err))
	}

	outputRing := ringbuffer.New(p.cfg.RingCapacity)
	p.pool.AddOutputRingBuffer(responseStream, outputRing)

	name := fmt.Sprintf("gw-response-processor-%d", len(p.responseProcessors))
	out, err := NewOutputProcessor(outputRing, responseStream, p.writeIdle(), name, p.logger)
	if err != nil {
		panic(fmt.Errorf("velostream: add endpoint publication: %w", err))
	}

	p.responseProcessors = append(p.responseProcessors, out)
	p.reports = append(p.reports, NewServiceReport(p.input, out))
	p.registerMetrics(out, outputRing, name)

	return p
}

// AddEventChannel registers an event stream: a fresh event ring plus
// producer bound to it. Must be called before Start.
func (p *Pipeline) AddEventChannel(eventStream transport.Stream) *Pipeline {
	if eventStream.IsZero() {
		panic(errs.ErrStreamRequired)
	}

	eventRing := ringbuffer.New(p.cfg.RingCapacity)
	p.pool.AddEventRingBuffer(eventStream, eventRing)

	name := fmt.Sprintf("event-processor-%d", len(p.eventProcessors))
	out, err := NewOutputProcessor(eventRing, eventStream, p.writeIdle(), name, p.logger)
	if err != nil {
		panic(fmt.Errorf("velostream: add event publication: %w", err))
	}

	p.eventProcessors = append(p.eventProcessors, out)
	p.registerMetrics(out, eventRing, name)

	return p
}

// AvailableAssociationHandler installs the callback fired when a remote
// association comes up. Must be set before Start.
func (p *Pipeline) AvailableAssociationHandler(handler transport.ImageHandler) *Pipeline {
	p.availableAssociation = handler
	return p
}

// UnavailableAssociationHandler installs the callback fired when a remote
// association goes down. Must be set before Start.
func (p *Pipeline) UnavailableAssociationHandler(handler transport.ImageHandler) *Pipeline {
	p.unavailableAssociation = handler
	return p
}

func (p *Pipeline) onAvailableImage(image transport.Image) {
	if p.availableAssociation != nil {
		p.availableAssociation(image)
	}
}

func (p *Pipeline) onUnavailableImage(image transport.Image) {
	if p.unavailableAssociation != nil {
		p.unavailableAssociation(image)
	}
}

// Start launches the stages from consumer to producer, so no downstream
// stage is started after work is admitted, then starts the timer executor
// and the snapshot timer. Starting twice is a usage error and panics.
func (p *Pipeline) Start() {
	if !p.started.CompareAndSwap(false, true) {
		panic(errs.ErrAlreadyStarted)
	}

	p.service.Start()
	if p.journalStage != nil {
		p.journalStage.Start()
	}
	if p.replica != nil {
		p.replica.Start()
	}
	for _, out := range p.responseProcessors {
		out.Start()
	}
	for _, out := range p.eventProcessors {
		out.Start()
	}
	p.input.Start()

	p.timerRunning.Store(true)
	go func() {
		for p.timerRunning.Load() {
			p.wheel.ExpireTimers()
		}
		close(p.timerDone)
	}()
	p.snapshotTimer.Start()

	if p.collector != nil && p.cfg.MetricsPort > 0 {
		p.metricsServer = metrics.StartServer(p.cfg.MetricsPort, p.collector, p.logger)
	}

	if p.hooks.OnStart != nil {
		p.hooks.OnStart()
	}
}

// Close stops the snapshot timer and the timer executor, then closes the
// stages in producer-to-consumer order so each drain target is still live
// when its upstream shuts down. Every close is quiet: errors are logged,
// not propagated. Close joins every worker before returning; a second call
// is a no-op. Closing a pipeline that was never started is a usage error
// and panics.
func (p *Pipeline) Close() error {
	if !p.started.Load() {
		panic(errs.ErrNotStarted)
	}
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	p.snapshotTimer.Close()
	p.timerRunning.Store(false)
	<-p.timerDone

	if p.metricsServer != nil {
		p.quietClose("metrics-server", p.metricsServer.Close)
	}

	p.quietClose(p.input.Name(), p.input.Close)
	for _, out := range p.responseProcessors {
		p.quietClose(out.Name(), out.Close)
	}
	for _, out := range p.eventProcessors {
		p.quietClose(out.Name(), out.Close)
	}
	if p.replica != nil {
		p.quietClose(p.replica.Name(), p.replica.Close)
	}
	if p.journalStage != nil {
		p.quietClose(p.journalStage.Name(), p.journalStage.Close)
	}
	p.quietClose(p.service.Name(), p.service.Close)

	if p.hooks.OnClose != nil {
		p.hooks.OnClose()
	}
	return nil
}

func (p *Pipeline) quietClose(name string, closeFn func() error) {
	if err := closeFn(); err != nil {
		p.logger.Error("close failed", err, logging.LogFields{"resource": name})
	}
}

// Handler returns the user handler.
func (p *Pipeline) Handler() Handler { return p.service.Handler() }

// Pool returns the ring-buffer pool shared with the handler.
func (p *Pipeline) Pool() *ringbuffer.Pool { return p.pool }

// ReportList returns one ServiceReport per registered endpoint.
func (p *Pipeline) ReportList() []*ServiceReport { return p.reports }
