// Package metrics exports the pipeline's worker counters and ring depths as
// Prometheus collectors. The hot path never touches Prometheus directly:
// collectors read the release-ordered atomics on scrape.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/velostream/velostream/internal/runtime/logging"
)

// Collector registers per-worker and per-ring collectors against a
// Prometheus registerer.
type Collector struct {
	registry *prometheus.Registry
}

// NewCollector creates a collector with its own registry.
func NewCollector() *Collector {
	return &Collector{registry: prometheus.NewRegistry()}
}

// Registry exposes the underlying registry, e.g. for test scrapes.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// RegisterWorker exports a worker's read counters. The value functions are
// read on scrape.
func (c *Collector) RegisterWorker(name string, successfulReads, failedReads func() int64) error {
	labels := prometheus.Labels{"worker": name}

	successful := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   "velostream",
		Subsystem:   "worker",
		Name:        "successful_reads_total",
		Help:        "Poll iterations that produced work",
		ConstLabels: labels,
	}, func() float64 { return float64(successfulReads()) })

	failed := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Namespace:   "velostream",
		Subsystem:   "worker",
		Name:        "failed_reads_total",
		Help:        "Poll iterations that found no work",
		ConstLabels: labels,
	}, func() float64 { return float64(failedReads()) })

	for _, collector := range []prometheus.Collector{successful, failed} {
		if err := c.registry.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return fmt.Errorf("velostream: register worker metrics: %w", err)
			}
		}
	}
	return nil
}

// RegisterRing exports a ring's queued-byte depth.
func (c *Collector) RegisterRing(name string, size func() int) error {
	gauge := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace:   "velostream",
		Subsystem:   "ring",
		Name:        "queued_bytes",
		Help:        "Bytes currently queued in the ring, framing included",
		ConstLabels: prometheus.Labels{"ring": name},
	}, func() float64 { return float64(size()) })

	if err := c.registry.Register(gauge); err != nil {
		if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
			return fmt.Errorf("velostream: register ring metrics: %w", err)
		}
	}
	return nil
}

// Server exposes the collector over HTTP for Prometheus scrapes.
type Server struct {
	inner *http.Server
}

// StartServer serves /metrics on the given port in a background goroutine.
func StartServer(port int, collector *Collector, logger logging.ServiceLogger) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(collector.registry, promhttp.HandlerOpts{}))

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server failed", err, logging.LogFields{"addr": srv.Addr})
		}
	}()
	return &Server{inner: srv}
}

// Close shuts the server down, waiting briefly for in-flight scrapes.
func (s *Server) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	return s.inner.Shutdown(ctx)
}
