package watermillbridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/velostream/velostream/internal/runtime/logging"
	"github.com/velostream/velostream/transport"
)

func TestBridgeRoundTrip(t *testing.T) {
	drv, err := Build(&stubConfig{driver: TransportName}, logging.Nop())
	require.NoError(t, err)
	defer drv.Close()

	sub, err := drv.AddSubscription("svc", 1, nil, nil)
	require.NoError(t, err)
	pub, err := drv.AddPublication("svc", 1)
	require.NoError(t, err)

	require.GreaterOrEqual(t, pub.Offer(3, []byte("payload")), int64(0))

	var got []transport.Fragment
	require.Eventually(t, func() bool {
		sub.Poll(func(f transport.Fragment) { got = append(got, f) }, 10)
		return len(got) == 1
	}, 5*time.Second, time.Millisecond)

	assert.Equal(t, int32(3), got[0].TypeID)
	assert.Equal(t, "payload", string(got[0].Data))
	assert.Equal(t, transport.FlagUnfragmented, got[0].Flags)
}

func TestBridgePreservesOrder(t *testing.T) {
	drv, err := Build(&stubConfig{driver: TransportName}, logging.Nop())
	require.NoError(t, err)
	defer drv.Close()

	sub, err := drv.AddSubscription("svc", 2, nil, nil)
	require.NoError(t, err)
	pub, err := drv.AddPublication("svc", 2)
	require.NoError(t, err)

	for i := byte(0); i < 50; i++ {
		require.GreaterOrEqual(t, pub.Offer(1, []byte{i}), int64(0))
	}

	var got []byte
	require.Eventually(t, func() bool {
		sub.Poll(func(f transport.Fragment) { got = append(got, f.Data[0]) }, 16)
		return len(got) == 50
	}, 5*time.Second, time.Millisecond)

	for i := byte(0); i < 50; i++ {
		assert.Equal(t, i, got[i])
	}
}

func TestBridgeAnnouncesAvailability(t *testing.T) {
	drv, err := Build(&stubConfig{driver: TransportName}, logging.Nop())
	require.NoError(t, err)
	defer drv.Close()

	var available []transport.Image
	sub, err := drv.AddSubscription("svc", 3,
		func(image transport.Image) { available = append(available, image) }, nil)
	require.NoError(t, err)
	defer sub.Close()

	require.Len(t, available, 1)
	assert.Equal(t, "watermill:svc.3", available[0].Source)
}

func TestBridgeRegisteredWithDefaultRegistry(t *testing.T) {
	assert.True(t, transport.DefaultRegistry.Has(TransportName))
}

type stubConfig struct {
	driver string
}

func (c *stubConfig) GetDriver() string  { return c.driver }
func (c *stubConfig) GetNATSURL() string { return "" }
