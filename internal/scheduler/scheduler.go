// Package scheduler owns one independent repeating timer per active
// notification id and publishes sampled data as read-results.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pulsewatch/pulsewatch/internal/metrics"
	"github.com/pulsewatch/pulsewatch/internal/models"
	"github.com/pulsewatch/pulsewatch/internal/series"
	"github.com/pulsewatch/pulsewatch/pkg/utils"
)

// DefaultResultBuffer is the default capacity of the results channel.
const DefaultResultBuffer = 64

// ReadResult is one sampled observation for a notification id. Rows is empty
// when a tick found no matching data; consumers must skip such results.
type ReadResult struct {
	ID   string
	Rows []models.Sample
}

// Config holds scheduler configuration
type Config struct {
	QueryWindow  time.Duration `mapstructure:"query_window"`
	ResultBuffer int           `mapstructure:"result_buffer"`
}

// Scheduler drives one timer goroutine per active notification. All timers
// belong to this instance; there is no package-level registry.
type Scheduler struct {
	query  series.Query
	window time.Duration
	logger *logrus.Logger

	mu     sync.Mutex
	timers map[string]*timer

	results  chan ReadResult
	wg       sync.WaitGroup
	stopOnce sync.Once

	metricsManager *metrics.Manager
}

type timer struct {
	cancel context.CancelFunc
}

// New creates a new Scheduler.
func New(query series.Query, cfg *Config) *Scheduler {
	window := cfg.QueryWindow
	if window <= 0 {
		window = series.DefaultWindow
	}
	buffer := cfg.ResultBuffer
	if buffer <= 0 {
		buffer = DefaultResultBuffer
	}

	return &Scheduler{
		query:   query,
		window:  window,
		logger:  utils.GetLogger(),
		timers:  make(map[string]*timer),
		results: make(chan ReadResult, buffer),
	}
}

// SetMetricsManager attaches the metrics manager. Optional.
func (s *Scheduler) SetMetricsManager(m *metrics.Manager) {
	s.metricsManager = m
}

// Results returns the channel read-results are published on. The channel is
// closed by Stop, after every timer goroutine has exited.
func (s *Scheduler) Results() <-chan ReadResult {
	return s.results
}

// Replay registers timers for every persisted notification. Used once at
// startup to rebuild the live timer set from the record store.
func (s *Scheduler) Replay(definitions []models.Notification) {
	for _, def := range definitions {
		s.Create(def)
	}
	s.logger.WithField("count", len(definitions)).Info("Replayed persisted notifications into scheduler")
}

// Create starts a repeating timer for the definition. Creating a timer for
// an id that already has one replaces the old timer.
func (s *Scheduler) Create(def models.Notification) {
	s.mu.Lock()
	if old, ok := s.timers[def.ID]; ok {
		// Steady state holds at most one timer per notification id.
		old.cancel()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.timers[def.ID] = &timer{cancel: cancel}
	count := len(s.timers)
	s.mu.Unlock()

	if s.metricsManager != nil {
		s.metricsManager.Prometheus().UpdateActiveTimers(count)
	}

	s.wg.Add(1)
	go s.run(ctx, def)

	s.logger.WithFields(logrus.Fields{
		"notification": def.ID,
		"interval":     def.Interval(),
	}).Info("Timer created")
}

// Remove cancels and discards the timer for id. Removing an unknown id is a
// no-op: the dispatcher calls this for ids that may already be gone.
func (s *Scheduler) Remove(id string) {
	s.mu.Lock()
	t, ok := s.timers[id]
	if ok {
		delete(s.timers, id)
	}
	count := len(s.timers)
	s.mu.Unlock()

	if !ok {
		s.logger.WithField("notification", id).Debug("Remove of unknown timer id ignored")
		return
	}

	t.cancel()

	if s.metricsManager != nil {
		s.metricsManager.Prometheus().UpdateActiveTimers(count)
	}

	s.logger.WithField("notification", id).Info("Timer removed")
}

// ActiveCount returns the number of registered timers.
func (s *Scheduler) ActiveCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// ActiveIDs returns the ids of all registered timers.
func (s *Scheduler) ActiveIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.timers))
	for id := range s.timers {
		ids = append(ids, id)
	}
	return ids
}

// Stop cancels every timer, waits for their goroutines to exit and closes
// the results channel. Safe to call more than once.
func (s *Scheduler) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		for id, t := range s.timers {
			t.cancel()
			delete(s.timers, id)
		}
		s.mu.Unlock()

		s.wg.Wait()
		close(s.results)

		if s.metricsManager != nil {
			s.metricsManager.Prometheus().UpdateActiveTimers(0)
		}

		s.logger.Info("Scheduler stopped")
	})
}

// run is the timer goroutine for one notification. Each tick queries the
// series source; a returned sample is published, an empty result is skipped
// and a query error is logged and dropped until the next natural tick.
func (s *Scheduler) run(ctx context.Context, def models.Notification) {
	defer s.wg.Done()

	ticker := time.NewTicker(def.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, def)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context, def models.Notification) {
	sample, err := s.query.Latest(ctx, def.SeriesSelector, s.window)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		s.recordTick(metrics.TickError)
		s.logger.WithFields(logrus.Fields{
			"notification": def.ID,
			"error":        err,
		}).Error("Series query failed, waiting for next tick")
		return
	}

	if sample == nil {
		s.recordTick(metrics.TickEmpty)
		return
	}

	s.recordTick(metrics.TickSample)

	// A timer cancelled mid-query must not publish its late result.
	select {
	case s.results <- ReadResult{ID: def.ID, Rows: []models.Sample{*sample}}:
	case <-ctx.Done():
	}
}

func (s *Scheduler) recordTick(result string) {
	if s.metricsManager != nil {
		s.metricsManager.Prometheus().RecordTick(result)
	}
}
