package transport

import (
	"fmt"
	"sync"

	"github.com/velostream/velostream/internal/runtime/logging"
)

// Builder is the function signature for creating a driver from configuration.
// Each driver package should provide a Builder function that can be
// registered.
type Builder func(cfg Config, logger logging.ServiceLogger) (Driver, error)

// Config provides the configuration values needed by drivers. The interface
// keeps driver packages decoupled from the full config package.
type Config interface {
	// GetDriver returns the driver name selecting the transport.
	GetDriver() string

	// NATS
	GetNATSURL() string
}

// Registry maintains a mapping of driver names to their builders. Driver
// packages register themselves using Register.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// DefaultRegistry is the global driver registry.
var DefaultRegistry = NewRegistry()

// NewRegistry creates a new driver registry.
func NewRegistry() *Registry {
	return &Registry{builders: make(map[string]Builder)}
}

// Register adds a driver builder to the registry. The name should match the
// Driver config value (e.g. "channel", "nats").
func (r *Registry) Register(name string, builder Builder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.builders[name] = builder
}

// Build creates a driver using the registered builder for the config's
// Driver name.
func (r *Registry) Build(cfg Config, logger logging.ServiceLogger) (Driver, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	name := cfg.GetDriver()

	r.mu.RLock()
	builder, ok := r.builders[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown driver: %q (registered: %v)", name, r.Names())
	}

	return builder(cfg, logger)
}

// Names returns the list of registered driver names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	return names
}

// Has returns true if a driver is registered with the given name.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.builders[name]
	return ok
}

// Register adds a driver builder to the default registry.
func Register(name string, builder Builder) {
	DefaultRegistry.Register(name, builder)
}

// Build creates a driver using the default registry.
func Build(cfg Config, logger logging.ServiceLogger) (Driver, error) {
	return DefaultRegistry.Build(cfg, logger)
}
