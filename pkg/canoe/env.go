package canoe

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/axonops/vectorcom/internal/dispatch"
	"github.com/axonops/vectorcom/internal/events"
)

// env is shared by every wrapper derived from one Application
type env struct {
	pump   events.Pump
	wait   events.WaitOptions
	logger *logrus.Logger
}

func newEnv(pump events.Pump, wait events.WaitOptions, logger *logrus.Logger) *env {
	if logger == nil {
		logger = logrus.New()
	}
	return &env{pump: pump, wait: wait, logger: logger}
}

// trigger resets flag, invokes method and pumps messages until the matching event fires
func (e *env) trigger(ctx context.Context, obj dispatch.Object, method, event string, flag *events.Flag, args ...any) error {
	flag.Reset()
	if _, err := obj.Call(method, args...); err != nil {
		flag.Set()
		return err
	}
	return events.WaitFinished(ctx, event, flag, e.pump, e.wait)
}
