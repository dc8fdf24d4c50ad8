package series

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/pulsewatch/pulsewatch/internal/models"
)

func TestBuildLatestQueryBasic(t *testing.T) {
	selector := models.SeriesSelector{
		Bucket:      "telemetry",
		Measurement: "system",
		Field:       "cpu",
	}

	flux := BuildLatestQuery(selector, 5*time.Minute)

	want := `from(bucket: "telemetry")
  |> range(start: -5m0s)
  |> filter(fn: (r) => r._measurement == "system")
  |> filter(fn: (r) => r._field == "cpu")
  |> last()`
	assert.Equal(t, want, flux)
}

func TestBuildLatestQueryWithTagFilters(t *testing.T) {
	selector := models.SeriesSelector{
		Bucket:      "telemetry",
		Measurement: "system",
		Field:       "cpu",
		Filters: []models.TagFilter{
			{Tag: "host", Value: "web-1"},
			{Tag: "region", Value: "eu-west"},
		},
	}

	flux := BuildLatestQuery(selector, time.Minute)

	assert.Contains(t, flux, `|> filter(fn: (r) => r["host"] == "web-1")`)
	assert.Contains(t, flux, `|> filter(fn: (r) => r["region"] == "eu-west")`)
	// Tag filters come after the field filter and before last().
	fieldIdx := strings.Index(flux, `r._field`)
	hostIdx := strings.Index(flux, `r["host"]`)
	lastIdx := strings.Index(flux, "last()")
	assert.Less(t, fieldIdx, hostIdx)
	assert.Less(t, hostIdx, lastIdx)
}

func TestBuildLatestQueryEscapesQuotes(t *testing.T) {
	selector := models.SeriesSelector{
		Bucket:      `buc"ket`,
		Measurement: "m",
		Field:       "f",
	}

	flux := BuildLatestQuery(selector, time.Minute)
	assert.Contains(t, flux, `from(bucket: "buc\"ket")`)
}

func TestNewInfluxQueryValidation(t *testing.T) {
	_, err := NewInfluxQuery(&InfluxConfig{Org: "org"})
	assert.Error(t, err)

	_, err = NewInfluxQuery(&InfluxConfig{URL: "http://localhost:8086"})
	assert.Error(t, err)
}

func TestToFloatCoercion(t *testing.T) {
	cases := []struct {
		in   interface{}
		want float64
		ok   bool
	}{
		{float64(1.5), 1.5, true},
		{float32(2), 2, true},
		{int64(3), 3, true},
		{int(4), 4, true},
		{uint64(5), 5, true},
		{"not a number", 0, false},
		{nil, 0, false},
	}

	for _, tc := range cases {
		got, ok := toFloat(tc.in)
		assert.Equal(t, tc.ok, ok, "input %v", tc.in)
		if ok {
			assert.Equal(t, tc.want, got, "input %v", tc.in)
		}
	}
}
