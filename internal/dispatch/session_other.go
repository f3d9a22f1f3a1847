//go:build !windows

package dispatch

import (
	"github.com/sirupsen/logrus"

	"github.com/axonops/vectorcom/pkg/errors"
)

// Session is unavailable outside Windows
type Session struct{}

// NewSession always fails: COM automation only exists on Windows
func NewSession(logger *logrus.Logger) (*Session, error) {
	if logger == nil {
		logger = logrus.New()
	}
	logger.Debug("COM session requested on a platform without COM")
	return nil, errors.ErrUnsupportedPlatform
}

func (s *Session) CreateObject(progID string) (Object, error) {
	return nil, errors.ErrUnsupportedPlatform
}

func (s *Session) GetActiveObject(progID string) (Object, error) {
	return nil, errors.ErrUnsupportedPlatform
}

func (s *Session) PumpWaitingMessages() error {
	return errors.ErrUnsupportedPlatform
}

func (s *Session) Close() error {
	return nil
}
