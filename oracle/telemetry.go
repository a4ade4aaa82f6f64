package oracle

import (
	"strings"

	"github.com/armon/go-metrics"

	"github.com/selendra/dex-sub001/oracle/types"
	"github.com/selendra/dex-sub001/telemetry"
)

// telemetryFeed gives a standard way to add
// `dex_oracle_feed{status="x"}` metric.
func telemetryFeed(success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	telemetry.IncrCounterWithLabels(
		[]string{"feed"},
		1,
		[]metrics.Label{{Name: "status", Value: status}},
	)
}

// telemetryPriceSource gives a standard way to add
// `dex_oracle_price{source="x"}` metric. An empty source counts a request
// no source could answer.
func telemetryPriceSource(source types.PriceSource) {
	value := source.String()
	if value == "" {
		value = "none"
	}
	telemetry.IncrCounterWithLabels(
		[]string{"price"},
		1,
		[]metrics.Label{{Name: "source", Value: value}},
	)
}

// telemetryUnauthorized gives a standard way to add
// `dex_oracle_unauthorized{role="x"}` metric.
func telemetryUnauthorized(roles []types.Role) {
	names := make([]string, 0, len(roles))
	for _, r := range roles {
		names = append(names, r.String())
	}
	telemetry.IncrCounterWithLabels(
		[]string{"unauthorized"},
		1,
		[]metrics.Label{{Name: "role", Value: strings.Join(names, ",")}},
	)
}
