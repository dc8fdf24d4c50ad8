// Package series wraps the remote time-series data source behind a small
// query interface: resolve a selector to its most recent sample, if any.
package series

import (
	"context"
	"time"

	"github.com/pulsewatch/pulsewatch/internal/models"
)

// DefaultWindow is the lookback window used when a query does not specify one.
const DefaultWindow = 5 * time.Minute

// Query resolves a series selector to its latest sample within a lookback
// window. A nil sample with a nil error means no matching data yet.
type Query interface {
	Latest(ctx context.Context, selector models.SeriesSelector, window time.Duration) (*models.Sample, error)
	Close() error
}
