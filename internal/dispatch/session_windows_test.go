//go:build windows

package dispatch

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/axonops/vectorcom/pkg/errors"
)

// Scripting.Dictionary ships with every Windows install and is automation-compatible
const dictionaryProgID = "Scripting.Dictionary"

func newTestSession(t *testing.T) *Session {
	t.Helper()

	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)

	session, err := NewSession(logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func TestSessionDispatch(t *testing.T) {
	session := newTestSession(t)

	dict, err := session.CreateObject(dictionaryProgID)
	require.NoError(t, err)
	defer dict.Release()

	_, err = dict.Call("Add", "bus", "CAN1")
	require.NoError(t, err)

	count, err := dict.Get("Count")
	require.NoError(t, err)
	assert.Equal(t, 1, cast.ToInt(count))

	item, err := dict.Get("Item", "bus")
	require.NoError(t, err)
	assert.Equal(t, "CAN1", item)

	require.NoError(t, dict.Put("CompareMode", 1))
	mode, err := dict.Get("CompareMode")
	require.NoError(t, err)
	assert.Equal(t, 1, cast.ToInt(mode))

	assert.NoError(t, session.PumpWaitingMessages())
}

func TestSessionMissingMember(t *testing.T) {
	session := newTestSession(t)

	dict, err := session.CreateObject(dictionaryProgID)
	require.NoError(t, err)
	defer dict.Release()

	_, err = dict.Get("Caption")
	require.Error(t, err)
	assert.True(t, errors.IsMemberNotFound(err, "Caption"))

	_, err = dict.Call("StopEx")
	assert.True(t, errors.IsMemberNotFound(err, "StopEx"))
}

func TestSessionUnknownProgID(t *testing.T) {
	session := newTestSession(t)

	obj, err := session.CreateObject("VectorCOM.DoesNotExist")
	assert.Error(t, err)
	assert.Nil(t, obj)
}

func TestSessionNoEventSource(t *testing.T) {
	session := newTestSession(t)

	dict, err := session.CreateObject(dictionaryProgID)
	require.NoError(t, err)
	defer dict.Release()

	sub, err := dict.Subscribe(func(Event) {})
	assert.Nil(t, sub)
	assert.True(t, errors.Is(err, errors.ErrEventsUnavailable))
}

func TestSessionClosed(t *testing.T) {
	session := newTestSession(t)

	dict, err := session.CreateObject(dictionaryProgID)
	require.NoError(t, err)

	require.NoError(t, session.Close())
	require.NoError(t, session.Close())

	_, err = dict.Get("Count")
	assert.True(t, errors.Is(err, errors.ErrReleased))
	assert.True(t, errors.Is(session.PumpWaitingMessages(), errors.ErrReleased))
	assert.NoError(t, dict.Release())
}
