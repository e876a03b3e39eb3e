package ledger

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// HealthChecker is satisfied by Client and InMemory.
type HealthChecker interface {
	HealthCheck(ctx context.Context) HealthStatus
}

// Monitor probes the gateway on a fixed interval and keeps the latest result.
type Monitor struct {
	checker  HealthChecker
	interval time.Duration
	logger   *slog.Logger
	last     atomic.Pointer[HealthStatus]
}

// NewMonitor builds a monitor; call Run to start probing.
func NewMonitor(checker HealthChecker, interval time.Duration, logger *slog.Logger) *Monitor {
	return &Monitor{checker: checker, interval: interval, logger: logger}
}

// Run probes immediately and then every interval until ctx is done.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.probe(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.probe(ctx)
		}
	}
}

// Last returns the most recent status, or false if no probe has finished.
func (m *Monitor) Last() (HealthStatus, bool) {
	s := m.last.Load()
	if s == nil {
		return HealthStatus{}, false
	}
	return *s, true
}

func (m *Monitor) probe(ctx context.Context) {
	status := m.checker.HealthCheck(ctx)
	prev := m.last.Swap(&status)
	if prev != nil && prev.IsHealthy == status.IsHealthy {
		return
	}
	if status.IsHealthy {
		m.logger.Info("horizon healthy", "url", status.GatewayURL, "response_time_ms", status.ResponseTimeMS)
		return
	}
	m.logger.Error("horizon unavailable", "url", status.GatewayURL, "error", status.ErrorMessage)
}
