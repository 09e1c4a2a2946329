// Package velostream is a low-latency, in-process message-processing runtime
// that sits between a messaging transport and user-defined service or
// gateway handlers.
//
// The core is a fixed-stage pipeline — ingress, optional replica, optional
// journal, service, egress — wired from lock-free single-producer
// single-consumer ring buffers, each stage driven by a dedicated
// busy-spinning worker thread with a configurable idle strategy. A hashed
// timing wheel injects periodic administrative snapshot markers into the
// ingress stream. Ordering is preserved per ingress stream end to end; full
// rings exert backpressure instead of dropping records.
//
// Transports plug in through the driver registry under transport/: an
// in-memory channel driver, a core NATS driver, and a bridge that adapts
// any Watermill publisher/subscriber pair ship with the module.
//
// The typical shape of a service:
//
//	drv := channel.New()
//	p, err := velostream.NewPipeline(cfg, logger, drv, func(pool *velostream.RingBufferPool) velostream.Handler {
//		return newMyHandler(pool)
//	})
//	if err != nil {
//		// ...
//	}
//	p.AddEndPoint(requestStream, responseStream)
//	p.Start()
//	defer p.Close()
package velostream
