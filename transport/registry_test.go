package transport

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velostream/velostream/internal/runtime/logging"
)

type nopDriver struct{}

func (nopDriver) AddSubscription(string, int32, ImageHandler, ImageHandler) (Subscription, error) {
	return nil, nil
}
func (nopDriver) AddPublication(string, int32) (Publication, error) { return nil, nil }
func (nopDriver) Close() error                                      { return nil }

type stubConfig struct {
	driver string
}

func (c *stubConfig) GetDriver() string  { return c.driver }
func (c *stubConfig) GetNATSURL() string { return "" }

func TestRegistryBuildsRegisteredDriver(t *testing.T) {
	registry := NewRegistry()
	registry.Register("stub", func(Config, logging.ServiceLogger) (Driver, error) {
		return nopDriver{}, nil
	})

	require.True(t, registry.Has("stub"))
	assert.Contains(t, registry.Names(), "stub")

	drv, err := registry.Build(&stubConfig{driver: "stub"}, logging.Nop())
	require.NoError(t, err)
	assert.IsType(t, nopDriver{}, drv)
}

func TestRegistryUnknownDriver(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Build(&stubConfig{driver: "nope"}, logging.Nop())
	assert.ErrorContains(t, err, "unknown driver")
}

func TestRegistryNilConfig(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Build(nil, logging.Nop())
	assert.Error(t, err)
}

func TestStreamIsZero(t *testing.T) {
	assert.True(t, Stream{}.IsZero())
	assert.False(t, NewStream(nopDriver{}, "svc", 1).IsZero())
	assert.False(t, Stream{Channel: "svc"}.IsZero())
}
