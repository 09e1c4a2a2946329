package pipeline

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/velostream/velostream/internal/runtime/logging"
)

// LifecycleHooks defines callbacks for pipeline lifecycle events. All hooks
// are optional; nil hooks are simply not called. Hooks never run on the hot
// path except OnHandlerError, which fires once per handler fault.
type LifecycleHooks struct {
	// OnStart is called after every stage has been started.
	OnStart func()

	// OnClose is called once the pipeline has joined every worker.
	OnClose func()

	// OnHandlerError is called when the user handler panics on a record.
	OnHandlerError func(err error)
}

// Merge combines two hook sets; hooks from other run after hooks from h.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnStart:        chain(h.OnStart, other.OnStart),
		OnClose:        chain(h.OnClose, other.OnClose),
		OnHandlerError: chainErr(h.OnHandlerError, other.OnHandlerError),
	}
}

func chain(a, b func()) func() {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func() { a(); b() }
}

func chainErr(a, b func(error)) func(error) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(err error) { a(err); b(err) }
}

// LoggingHooks returns hooks that log lifecycle events.
func LoggingHooks(logger logging.ServiceLogger) LifecycleHooks {
	return LifecycleHooks{
		OnStart: func() { logger.Info("pipeline started", nil) },
		OnClose: func() { logger.Info("pipeline closed", nil) },
		OnHandlerError: func(err error) {
			logger.Error("handler fault", err, nil)
		},
	}
}

// MetricsHooks returns hooks that forward lifecycle events to counter
// callbacks. Nil callbacks are skipped.
func MetricsHooks(onStart, onClose func(), onHandlerError func()) LifecycleHooks {
	return LifecycleHooks{
		OnStart: onStart,
		OnClose: onClose,
		OnHandlerError: func(error) {
			if onHandlerError != nil {
				onHandlerError()
			}
		},
	}
}

// TracingHooks returns hooks that emit OpenTelemetry spans for lifecycle
// events and record handler faults. A nil tracer falls back to the global
// provider.
func TracingHooks(tracer trace.Tracer) LifecycleHooks {
	if tracer == nil {
		tracer = otel.Tracer("github.com/velostream/velostream")
	}
	return LifecycleHooks{
		OnStart: func() {
			_, span := tracer.Start(context.Background(), "pipeline.start")
			span.End()
		},
		OnClose: func() {
			_, span := tracer.Start(context.Background(), "pipeline.close")
			span.End()
		},
		OnHandlerError: func(err error) {
			_, span := tracer.Start(context.Background(), "pipeline.handler_fault",
				trace.WithAttributes(attribute.String("error", err.Error())))
			span.RecordError(err)
			span.SetStatus(codes.Error, "handler fault")
			span.End()
		},
	}
}
