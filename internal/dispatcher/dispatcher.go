// Package dispatcher consumes scheduler read-results and turns each one into
// silence, an orphan cleanup, or a one-shot alert delivery followed by
// retirement of the notification.
package dispatcher

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/pulsewatch/pulsewatch/internal/history"
	"github.com/pulsewatch/pulsewatch/internal/metrics"
	"github.com/pulsewatch/pulsewatch/internal/models"
	"github.com/pulsewatch/pulsewatch/internal/notify"
	"github.com/pulsewatch/pulsewatch/internal/scheduler"
	"github.com/pulsewatch/pulsewatch/internal/store"
	"github.com/pulsewatch/pulsewatch/pkg/utils"
)

// Dispatcher resolves read-results against the record store, evaluates the
// alert condition and delivers one-shot messages.
type Dispatcher struct {
	store     *store.Store
	scheduler *scheduler.Scheduler
	sender    notify.Sender
	history   history.Store // optional
	logger    *logrus.Logger

	metricsManager *metrics.Manager

	handled atomic.Uint64
	fired   atomic.Uint64
	orphans atomic.Uint64
}

// New creates a new Dispatcher. The history store may be nil.
func New(st *store.Store, sched *scheduler.Scheduler, sender notify.Sender, hist history.Store) *Dispatcher {
	return &Dispatcher{
		store:     st,
		scheduler: sched,
		sender:    sender,
		history:   hist,
		logger:    utils.GetLogger(),
	}
}

// SetMetricsManager attaches the metrics manager. Optional.
func (d *Dispatcher) SetMetricsManager(m *metrics.Manager) {
	d.metricsManager = m
}

// Run consumes the scheduler's results channel until the context is
// cancelled or the channel is closed by the scheduler's Stop.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("Dispatcher started")

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Dispatcher stopping")
			return
		case rr, ok := <-d.scheduler.Results():
			if !ok {
				d.logger.Info("Dispatcher stopping, results channel closed")
				return
			}
			d.Handle(ctx, rr)
		}
	}
}

// Handle processes one read-result.
func (d *Dispatcher) Handle(ctx context.Context, rr scheduler.ReadResult) {
	d.handled.Add(1)

	// An empty row set means no data this tick; skip.
	if len(rr.Rows) == 0 {
		return
	}
	sample := rr.Rows[0]

	def := d.store.FindNotification(rr.ID)
	if def == nil {
		// Orphaned timer: the record is gone, converge the scheduler.
		d.orphans.Add(1)
		d.scheduler.Remove(rr.ID)
		if d.metricsManager != nil {
			d.metricsManager.Prometheus().OrphanedTimersTotal.Inc()
		}
		d.logger.WithField("notification", rr.ID).Warn("Orphaned timer removed, record no longer exists")
		return
	}

	satisfied := def.Operator.Evaluate(sample.Value, def.Threshold)
	if d.metricsManager != nil {
		d.metricsManager.Prometheus().RecordEvaluation(satisfied)
	}
	if !satisfied {
		return
	}

	owner := d.store.NotificationOwner(rr.ID)
	if owner == nil {
		// Should not happen after the lookup above, but a concurrent removal
		// can slip between the two reads.
		d.logger.WithField("notification", rr.ID).Warn("No owner for satisfied notification, aborting")
		return
	}

	d.fire(ctx, *def, owner, sample)
}

// fire delivers the alert message, then retires the notification: timer
// cancelled, record deleted. Delivery comes first; a failed delivery is
// logged but the record is retired regardless, so such an alert is
// permanently lost. Known at-most-once gap.
func (d *Dispatcher) fire(ctx context.Context, def models.Notification, owner *models.User, sample models.Sample) {
	d.fired.Add(1)

	text := FormatAlert(def, sample)

	start := time.Now()
	err := d.sender.Send(ctx, owner.ChatAddress, text)
	if d.metricsManager != nil {
		d.metricsManager.Prometheus().DeliveryDuration.Observe(time.Since(start).Seconds())
		d.metricsManager.Prometheus().AlertsFiredTotal.Inc()
	}

	delivered := err == nil
	if err != nil {
		if d.metricsManager != nil {
			d.metricsManager.Prometheus().DeliveryFailuresTotal.Inc()
		}
		d.logger.WithFields(logrus.Fields{
			"notification": def.ID,
			"chat":         owner.ChatAddress,
			"error":        err,
		}).Error("Alert delivery failed, alert is lost")
	} else {
		d.logger.WithFields(logrus.Fields{
			"notification": def.ID,
			"value":        sample.Value,
			"threshold":    def.Threshold,
		}).Info("Alert delivered")
	}

	d.scheduler.Remove(def.ID)

	if _, err := d.store.RemoveNotification(owner.ID, def.ID); err != nil {
		d.logger.WithFields(logrus.Fields{
			"notification": def.ID,
			"error":        err,
		}).Error("Failed to retire fired notification")
	}

	d.recordHistory(ctx, def, owner, sample, delivered)
}

func (d *Dispatcher) recordHistory(ctx context.Context, def models.Notification, owner *models.User, sample models.Sample, delivered bool) {
	if d.history == nil {
		return
	}

	entry := &history.FiredAlert{
		ID:               uuid.NewString(),
		NotificationID:   def.ID,
		NotificationName: def.Name,
		UserID:           owner.ID,
		ChatAddress:      owner.ChatAddress,
		Operator:         def.Operator.String(),
		Threshold:        def.Threshold,
		Value:            sample.Value,
		FiredAt:          time.Now().UTC(),
		Delivered:        delivered,
	}

	status := "ok"
	if err := d.history.RecordFired(ctx, entry); err != nil {
		status = "error"
		d.logger.WithFields(logrus.Fields{
			"notification": def.ID,
			"error":        err,
		}).Error("Failed to record fired alert in history")
	}
	if d.metricsManager != nil {
		d.metricsManager.Prometheus().HistoryWritesTotal.WithLabelValues(status).Inc()
	}
}

// Stats reports dispatcher counters for the HTTP surface.
func (d *Dispatcher) Stats() map[string]interface{} {
	return map[string]interface{}{
		"handled": d.handled.Load(),
		"fired":   d.fired.Load(),
		"orphans": d.orphans.Load(),
	}
}

// FormatAlert renders the one-shot alert message for a satisfied condition.
func FormatAlert(def models.Notification, sample models.Sample) string {
	return fmt.Sprintf("🔔 %s\n%s.%s is %g (condition: %s %g)",
		def.Name, def.Measurement, def.Field, sample.Value, def.Operator, def.Threshold)
}
