package metrics

import (
	"runtime"
	"time"

	"github.com/sirupsen/logrus"
)

// Manager handles all application metrics
type Manager struct {
	prometheus *PrometheusMetrics
	logger     *logrus.Entry
	startTime  time.Time
}

// NewManager creates a new metrics manager
func NewManager() *Manager {
	return &Manager{
		prometheus: NewPrometheusMetrics(),
		logger:     logrus.WithField("component", "metrics"),
		startTime:  time.Now(),
	}
}

// Prometheus returns the Prometheus metrics instance
func (m *Manager) Prometheus() *PrometheusMetrics {
	return m.prometheus
}

// UpdateSystemMetrics updates process-level metrics
func (m *Manager) UpdateSystemMetrics() {
	m.prometheus.GoroutineCount.Set(float64(runtime.NumGoroutine()))
	m.prometheus.ApplicationUptime.Set(time.Since(m.startTime).Seconds())
}
