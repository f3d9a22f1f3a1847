package dispatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventArg(t *testing.T) {
	ev := Event{Name: "OnStop", Args: []any{int32(1), "reason"}}

	assert.Equal(t, int32(1), ev.Arg(0))
	assert.Equal(t, "reason", ev.Arg(1))
	assert.Nil(t, ev.Arg(2))
	assert.Nil(t, ev.Arg(-1))
	assert.Nil(t, Event{Name: "OnQuit"}.Arg(0))
}

func TestSessionImplementsConnector(t *testing.T) {
	var _ Connector = (*Session)(nil)
}
