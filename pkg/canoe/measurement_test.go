package canoe

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axonops/vectorcom/internal/dispatch"
	"github.com/axonops/vectorcom/pkg/errors"
)

func newTestMeasurement() (*Measurement, *MockObject) {
	pump := NewMockPump()
	obj := NewMockObject(pump)
	obj.Set("AnimationDelay", int32(50)).
		Set("MeasurementIndex", int32(3)).
		Set("Running", false)
	return newMeasurement(obj, testEnv(pump)), obj
}

func TestMeasurementProperties(t *testing.T) {
	m, obj := newTestMeasurement()

	delay, err := m.AnimationDelay()
	require.NoError(t, err)
	assert.Equal(t, 50, delay)

	index, err := m.MeasurementIndex()
	require.NoError(t, err)
	assert.Equal(t, 3, index)

	running, err := m.Running()
	require.NoError(t, err)
	assert.False(t, running)

	require.NoError(t, m.SetAnimationDelay(10))
	require.NoError(t, m.SetMeasurementIndex(4))
	require.NoError(t, m.SetRunning(true))

	v, _ := obj.GetPut("AnimationDelay")
	assert.Equal(t, 10, v)
	v, _ = obj.GetPut("MeasurementIndex")
	assert.Equal(t, 4, v)
	v, _ = obj.GetPut("Running")
	assert.Equal(t, true, v)
}

func TestMeasurementPlainMethods(t *testing.T) {
	m, obj := newTestMeasurement()

	require.NoError(t, m.Animate())
	require.NoError(t, m.Break())
	require.NoError(t, m.Reset())
	require.NoError(t, m.Step())

	assert.Equal(t, []string{"Animate", "Break", "Reset", "Step"}, obj.GetCalls())
	assert.False(t, obj.Subscribed(), "plain methods do not subscribe")
}

func TestMeasurementStartStop(t *testing.T) {
	m, obj := newTestMeasurement()
	obj.FireOnCall("Start", dispatch.Event{Name: "OnInit"}, dispatch.Event{Name: "OnStart"})
	obj.FireOnCall("Stop", dispatch.Event{Name: "OnStop"}, dispatch.Event{Name: "OnExit"})
	obj.FireOnCall("StopEx", dispatch.Event{Name: "OnStop"}, dispatch.Event{Name: "OnExit"})

	var fired []string
	require.NoError(t, m.SetHooks(MeasurementHooks{
		OnInit:  func() { fired = append(fired, "init") },
		OnStart: func() { fired = append(fired, "start") },
		OnStop:  func() { fired = append(fired, "stop") },
		OnExit:  func() { fired = append(fired, "exit") },
	}))

	ctx := context.Background()
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.Stop(ctx))
	require.NoError(t, m.Start(ctx))
	require.NoError(t, m.StopEx(ctx))

	assert.Equal(t, []string{
		"init", "start", "stop", "exit",
		"init", "start", "stop", "exit",
	}, fired)
	assert.Equal(t, []string{"Start", "Stop", "Start", "StopEx"}, obj.GetCalls())
	assert.Equal(t, 1, obj.subscribes, "subscription is created once")
}

func TestMeasurementHooksFireForExternalStart(t *testing.T) {
	m, obj := newTestMeasurement()

	var fired []string
	require.NoError(t, m.SetHooks(MeasurementHooks{
		OnInit: func() { fired = append(fired, "init") },
		OnExit: func() { fired = append(fired, "exit") },
	}))
	assert.True(t, obj.Subscribed(), "setting hooks subscribes")

	// Measurement started and stopped from the CANoe UI
	obj.Emit(dispatch.Event{Name: "OnInit"})
	obj.Emit(dispatch.Event{Name: "OnStart"})
	obj.Emit(dispatch.Event{Name: "OnStop"})
	obj.Emit(dispatch.Event{Name: "OnExit"})
	require.NoError(t, m.env.pump.PumpWaitingMessages())

	assert.Equal(t, []string{"init", "exit"}, fired)
	assert.True(t, m.started.IsSet())
	assert.Empty(t, obj.GetCalls())

	require.NoError(t, m.SetHooks(MeasurementHooks{}))
	assert.Equal(t, 1, obj.subscribes, "replacing hooks keeps the subscription")
}

func TestMeasurementSetHooksSubscribeError(t *testing.T) {
	m, obj := newTestMeasurement()
	obj.subscribeErr = errors.ErrEventsUnavailable

	err := m.SetHooks(MeasurementHooks{OnStart: func() {}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEventsUnavailable))
	assert.False(t, obj.Subscribed())
}

func TestMeasurementDefaultHooks(t *testing.T) {
	m, obj := newTestMeasurement()
	obj.FireOnCall("Start", dispatch.Event{Name: "OnInit"}, dispatch.Event{Name: "OnStart"})

	require.NoError(t, m.Start(context.Background()))
	assert.True(t, m.initialized.IsSet())
	assert.True(t, m.started.IsSet())
}

func TestMeasurementSubscribeError(t *testing.T) {
	m, obj := newTestMeasurement()
	obj.subscribeErr = errors.ErrEventsUnavailable

	err := m.Start(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrEventsUnavailable))
	assert.Empty(t, obj.GetCalls(), "Start is not called without a subscription")
}

func TestMeasurementCloseAndRelease(t *testing.T) {
	m, obj := newTestMeasurement()
	obj.FireOnCall("Start", dispatch.Event{Name: "OnStart"})
	require.NoError(t, m.Start(context.Background()))
	require.True(t, obj.Subscribed())

	require.NoError(t, m.Close())
	assert.False(t, obj.Subscribed())
	require.NoError(t, m.Close())

	require.NoError(t, m.Release())
	assert.Equal(t, 1, obj.Released())
}
