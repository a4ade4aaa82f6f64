package chain

import (
	"time"

	"github.com/armon/go-metrics"

	"github.com/selendra/dex-sub001/telemetry"
)

// methodLabel returns a label based on the contract method name.
func methodLabel(method string) metrics.Label {
	return metrics.Label{
		Name:  "method",
		Value: method,
	}
}

// telemetryChainCall gives a standard way to add
// `dex_oracle_chain_call{method="x"}` and `dex_oracle_chain_failure{method="x"}`
// metrics along with the call latency.
func telemetryChainCall(method string, start time.Time, err error) {
	labels := []metrics.Label{methodLabel(method)}

	telemetry.MeasureSinceWithLabels([]string{"chain", "call", "latency"}, start, labels)
	telemetry.IncrCounterWithLabels([]string{"chain", "call"}, 1, labels)
	if err != nil {
		telemetry.IncrCounterWithLabels([]string{"chain", "failure"}, 1, labels)
	}
}

// telemetryChainRetry gives a standard way to add
// `dex_oracle_chain_retry{method="x"}` metric.
func telemetryChainRetry(method string) {
	telemetry.IncrCounterWithLabels(
		[]string{
			"chain",
			"retry",
		},
		1,
		[]metrics.Label{
			methodLabel(method),
		},
	)
}
