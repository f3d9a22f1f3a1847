package canoe

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/axonops/vectorcom/internal/config"
	"github.com/axonops/vectorcom/internal/dispatch"
	"github.com/axonops/vectorcom/internal/events"
	"github.com/axonops/vectorcom/pkg/errors"
)

// Connect starts a COM session and returns the CANoe application configured by cfg.
// The returned Application owns the session; Close releases both.
func Connect(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Application, error) {
	if logger == nil {
		logger = logrus.New()
	}

	session, err := dispatch.NewSession(logger)
	if err != nil {
		return nil, errors.Wrap(err, "failed to start COM session")
	}

	app, err := ConnectWith(ctx, session, cfg, logger)
	if err != nil {
		session.Close()
		return nil, err
	}
	return app, nil
}

// ConnectWith is Connect on an existing connector. On success the application takes
// ownership of connector.
func ConnectWith(ctx context.Context, connector dispatch.Connector, cfg *config.Config, logger *logrus.Logger) (*Application, error) {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	log := logger.WithField("prog_id", cfg.Application.ProgID)

	var obj dispatch.Object
	if cfg.Application.Attach {
		active, err := connector.GetActiveObject(cfg.Application.ProgID)
		if err == nil {
			log.Debug("Attached to running application")
			obj = active
		} else {
			log.WithError(err).Debug("No running application to attach to")
		}
	}

	if obj == nil {
		created, err := createObject(ctx, connector, cfg.Application.ProgID, cfg.Application.ConnectTimeout(), log)
		if err != nil {
			return nil, err
		}
		obj = created
	}

	if err := obj.Put("Visible", cfg.Application.Visible); err != nil {
		obj.Release()
		return nil, errors.Wrap(err, "failed to set application visibility")
	}

	wait := events.WaitOptions{
		Timeout:  cfg.Events.Timeout(),
		Interval: cfg.Events.PollInterval(),
	}
	app, err := NewApplication(obj, connector, wait, logger)
	if err != nil {
		obj.Release()
		return nil, err
	}
	app.session = connector

	log.Info("Connected to CANoe")
	return app, nil
}

// createObject retries object creation with exponential backoff. CANoe refuses
// activation for a while after a previous instance quit.
func createObject(ctx context.Context, connector dispatch.Connector, progID string, timeout time.Duration, log *logrus.Entry) (dispatch.Object, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var lastAttemptErr error
	obj, err := backoff.RetryNotifyWithData(
		func() (dispatch.Object, error) {
			obj, err := connector.CreateObject(progID)
			if errors.Is(err, errors.ErrUnsupportedPlatform) || errors.Is(err, errors.ErrReleased) {
				return nil, backoff.Permanent(err)
			}
			return obj, err
		},
		backoff.WithContext(backoff.NewExponentialBackOff(), ctx),
		func(err error, d time.Duration) {
			lastAttemptErr = err
			log.WithError(err).WithField("retry_in", d).Warn("Failed to create application, retrying")
		},
	)
	if err != nil {
		if lastAttemptErr != nil && ctx.Err() != nil {
			err = lastAttemptErr
		}
		return nil, errors.Wrap(err, "failed to create "+progID)
	}
	return obj, nil
}
