package telemetry

import (
	"strconv"
	"time"

	"github.com/armon/go-metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var httpRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "dex_oracle",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Duration of API requests by route, method and status code.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"route", "method", "code"},
)

// ObserveHTTPRequest records a served API request. route is the matched
// route template, not the raw path, to keep label cardinality bounded.
func ObserveHTTPRequest(route, method string, code int, start time.Time) {
	status := strconv.Itoa(code)
	httpRequestDuration.WithLabelValues(route, method, status).Observe(time.Since(start).Seconds())

	IncrCounterWithLabels(
		[]string{"http", "request"},
		1,
		[]metrics.Label{
			{Name: "route", Value: route},
			{Name: "code", Value: status},
		},
	)
}
