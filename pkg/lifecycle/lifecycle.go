package lifecycle

import (
	"context"

	"go.uber.org/multierr"

	"github.com/qvault/quorum-wallet/pkg/logger"
)

// Service is a long-lived component with explicit start/stop.
type Service interface {
	Name() string
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// Manager starts services in registration order and stops them in reverse.
type Manager struct {
	services []Service
	started  []Service
}

func New() *Manager { return &Manager{} }

func (m *Manager) Add(s Service) { m.services = append(m.services, s) }

// StartAll starts every registered service. On the first failure the
// already-started services are stopped in reverse order.
func (m *Manager) StartAll(ctx context.Context) error {
	for _, s := range m.services {
		if err := s.Start(ctx); err != nil {
			logger.ErrorJ("lifecycle", map[string]any{"op": "start", "service": s.Name(), "err": err.Error()})
			_ = m.StopAll(ctx)
			return err
		}
		logger.InfoJ("lifecycle", map[string]any{"op": "start", "service": s.Name(), "result": "ok"})
		m.started = append(m.started, s)
	}
	return nil
}

// StopAll stops started services in reverse order, collecting all errors.
func (m *Manager) StopAll(ctx context.Context) error {
	var err error
	for i := len(m.started) - 1; i >= 0; i-- {
		s := m.started[i]
		if e := s.Stop(ctx); e != nil {
			logger.ErrorJ("lifecycle", map[string]any{"op": "stop", "service": s.Name(), "err": e.Error()})
			err = multierr.Append(err, e)
			continue
		}
		logger.InfoJ("lifecycle", map[string]any{"op": "stop", "service": s.Name(), "result": "ok"})
	}
	m.started = nil
	return err
}
