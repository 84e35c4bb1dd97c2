package health

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// StatusRecorder records check outcomes, e.g. as metrics
type StatusRecorder interface {
	RecordHealthStatus(check string, status Status)
}

// Monitor periodically evaluates a registry in the background
type Monitor struct {
	registry *Registry
	interval time.Duration
	recorder StatusRecorder
	logger   *zap.Logger

	mu       sync.RWMutex
	running  bool
	cancel   context.CancelFunc
	done     chan struct{}
	last     *Report
	watchers []func(*Report)
}

// NewMonitor creates a new health monitor. recorder may be nil.
func NewMonitor(registry *Registry, interval time.Duration, recorder StatusRecorder, logger *zap.Logger) *Monitor {
	return &Monitor{
		registry: registry,
		interval: interval,
		recorder: recorder,
		logger:   logger,
	}
}

// Watch registers fn to be called with every new report.
func (m *Monitor) Watch(fn func(*Report)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.watchers = append(m.watchers, fn)
}

// Start starts the health monitor. The first evaluation happens immediately.
func (m *Monitor) Start() {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.running = true
	m.cancel = cancel
	done := make(chan struct{})
	m.done = done
	m.mu.Unlock()

	go m.run(ctx, done)
}

// Stop stops the health monitor and waits for the loop to exit
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	cancel, done := m.cancel, m.done
	m.mu.Unlock()

	cancel()
	<-done
}

// run is the main health monitoring loop
func (m *Monitor) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.evaluate(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evaluate(ctx)
		}
	}
}

// evaluate runs the registry once, logs status and notifies watchers
func (m *Monitor) evaluate(ctx context.Context) {
	report := m.registry.Run(ctx)
	if ctx.Err() != nil {
		return
	}

	m.logger.Debug("health evaluation",
		zap.Stringer("status", report.Status),
		zap.Int("checks", len(report.Entries)),
		zap.Duration("duration", report.TotalDuration))

	if m.recorder != nil {
		for name, entry := range report.Entries {
			m.recorder.RecordHealthStatus(name, entry.Status)
		}
	}

	m.mu.Lock()
	previous := m.last
	m.last = report
	watchers := make([]func(*Report), len(m.watchers))
	copy(watchers, m.watchers)
	m.mu.Unlock()

	if previous != nil && previous.Status != report.Status {
		m.logger.Info("health status changed",
			zap.Stringer("from", previous.Status),
			zap.Stringer("to", report.Status))
	}
	if report.Status == StatusUnhealthy {
		m.logger.Warn("service is unhealthy", zap.Int("checks", len(report.Entries)))
	}

	for _, fn := range watchers {
		fn(report)
	}
}

// Last returns the most recent report, or nil before the first evaluation
func (m *Monitor) Last() *Report {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.last
}

// IsHealthy returns true unless the last evaluation was unhealthy
func (m *Monitor) IsHealthy() bool {
	last := m.Last()
	return last == nil || last.Status != StatusUnhealthy
}
