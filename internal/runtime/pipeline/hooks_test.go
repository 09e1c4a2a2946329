package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/velostream/velostream/internal/runtime/logging"
)

func TestHooksMergeCallsBothInOrder(t *testing.T) {
	var calls []string

	merged := LifecycleHooks{
		OnStart:        func() { calls = append(calls, "first-start") },
		OnHandlerError: func(error) { calls = append(calls, "first-error") },
	}.Merge(LifecycleHooks{
		OnStart: func() { calls = append(calls, "second-start") },
		OnClose: func() { calls = append(calls, "second-close") },
	})

	merged.OnStart()
	merged.OnClose()
	merged.OnHandlerError(errors.New("boom"))

	assert.Equal(t, []string{"first-start", "second-start", "second-close", "first-error"}, calls)
}

func TestMergeWithEmptyHooksKeepsOriginals(t *testing.T) {
	started := false
	merged := LifecycleHooks{OnStart: func() { started = true }}.Merge(LifecycleHooks{})

	merged.OnStart()
	assert.True(t, started)
	assert.Nil(t, merged.OnClose)
}

func TestMetricsHooksForwardsEvents(t *testing.T) {
	starts, closes, faults := 0, 0, 0
	hooks := MetricsHooks(
		func() { starts++ },
		func() { closes++ },
		func() { faults++ },
	)

	hooks.OnStart()
	hooks.OnClose()
	hooks.OnHandlerError(errors.New("boom"))

	assert.Equal(t, 1, starts)
	assert.Equal(t, 1, closes)
	assert.Equal(t, 1, faults)
}

func TestLoggingHooksAreComplete(t *testing.T) {
	hooks := LoggingHooks(logging.Nop())

	assert.NotNil(t, hooks.OnStart)
	assert.NotNil(t, hooks.OnClose)
	assert.NotNil(t, hooks.OnHandlerError)
	hooks.OnStart()
	hooks.OnHandlerError(errors.New("boom"))
}
