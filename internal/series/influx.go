package series

import (
	"context"
	"fmt"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/sirupsen/logrus"

	"github.com/pulsewatch/pulsewatch/internal/models"
	"github.com/pulsewatch/pulsewatch/pkg/utils"
)

// InfluxConfig holds InfluxDB connection configuration
type InfluxConfig struct {
	URL   string `mapstructure:"url"`
	Token string `mapstructure:"token"`
	Org   string `mapstructure:"org"`
}

// InfluxQuery implements Query against an InfluxDB 2.x instance.
type InfluxQuery struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	logger   *logrus.Logger
}

// NewInfluxQuery creates a new InfluxDB-backed query service.
func NewInfluxQuery(cfg *InfluxConfig) (*InfluxQuery, error) {
	if cfg.URL == "" {
		return nil, utils.NewAppError(utils.ErrCodeConfiguration, "InfluxDB URL is required")
	}
	if cfg.Org == "" {
		return nil, utils.NewAppError(utils.ErrCodeConfiguration, "InfluxDB organization is required")
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	return &InfluxQuery{
		client:   client,
		queryAPI: client.QueryAPI(cfg.Org),
		logger:   utils.GetLogger(),
	}, nil
}

// Latest returns the most recent sample matching the selector inside the
// lookback window, or nil when the series has no matching data yet.
func (q *InfluxQuery) Latest(ctx context.Context, selector models.SeriesSelector, window time.Duration) (*models.Sample, error) {
	if window <= 0 {
		window = DefaultWindow
	}

	flux := BuildLatestQuery(selector, window)

	result, err := q.queryAPI.Query(ctx, flux)
	if err != nil {
		return nil, utils.NewAppError(utils.ErrCodeQuery, "Series query failed", err.Error())
	}

	var sample *models.Sample
	for result.Next() {
		record := result.Record()
		value, ok := toFloat(record.Value())
		if !ok {
			q.logger.WithFields(logrus.Fields{
				"measurement": selector.Measurement,
				"field":       selector.Field,
			}).Warn("Skipping non-numeric sample value")
			continue
		}
		sample = &models.Sample{Time: record.Time(), Value: value}
	}
	if err := result.Err(); err != nil {
		return nil, utils.NewAppError(utils.ErrCodeQuery, "Series query result error", err.Error())
	}

	return sample, nil
}

// Close releases the underlying client.
func (q *InfluxQuery) Close() error {
	q.client.Close()
	return nil
}

// Ping checks connectivity to the InfluxDB instance.
func (q *InfluxQuery) Ping(ctx context.Context) error {
	ok, err := q.client.Ping(ctx)
	if err != nil {
		return utils.NewAppError(utils.ErrCodeQuery, "InfluxDB ping failed", err.Error())
	}
	if !ok {
		return utils.NewAppError(utils.ErrCodeQuery, "InfluxDB ping returned not ready")
	}
	return nil
}

// BuildLatestQuery assembles the Flux pipeline for a selector: range over the
// lookback window, measurement and field filters, one filter per tag, last().
func BuildLatestQuery(selector models.SeriesSelector, window time.Duration) string {
	var b strings.Builder

	fmt.Fprintf(&b, "from(bucket: %q)\n", selector.Bucket)
	fmt.Fprintf(&b, "  |> range(start: -%s)\n", window.Truncate(time.Second))
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._measurement == %q)\n", selector.Measurement)
	fmt.Fprintf(&b, "  |> filter(fn: (r) => r._field == %q)\n", selector.Field)
	for _, f := range selector.Filters {
		fmt.Fprintf(&b, "  |> filter(fn: (r) => r[%q] == %q)\n", f.Tag, f.Value)
	}
	b.WriteString("  |> last()")

	return b.String()
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case uint64:
		return float64(n), true
	default:
		return 0, false
	}
}
