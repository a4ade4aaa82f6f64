// Package telemetry configures the process wide go-metrics sinks and exposes
// them for the metrics endpoint.
package telemetry

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/armon/go-metrics"
	metricsprom "github.com/armon/go-metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

const (
	FormatDefault    = ""
	FormatPrometheus = "prometheus"
	FormatText       = "text"
)

// globalLabels are added to every metric emitted through this package.
var globalLabels []metrics.Label

type (
	// Config defines the metrics configuration.
	Config struct {
		ServiceName string `mapstructure:"service_name"`

		Enabled bool `mapstructure:"enabled"`

		EnableHostname      bool `mapstructure:"enable_hostname"`
		EnableHostnameLabel bool `mapstructure:"enable_hostname_label"`
		EnableServiceLabel  bool `mapstructure:"enable_service_label"`

		// PrometheusRetentionTime enables the prometheus sink when positive.
		PrometheusRetentionTime time.Duration `mapstructure:"prometheus_retention_time"`

		// GlobalLabels is a list of [name, value] pairs.
		GlobalLabels [][]string `mapstructure:"global_labels"`
	}

	// Metrics gathers the in-memory and prometheus sinks.
	Metrics struct {
		memSink           *metrics.InmemSink
		prometheusEnabled bool
	}

	// GatherResponse is the response type of the metrics endpoint.
	GatherResponse struct {
		Metrics     []byte
		ContentType string
	}
)

// New configures the global metrics sink from cfg.
func New(cfg Config) (*Metrics, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	if numGlobalLabels := len(cfg.GlobalLabels); numGlobalLabels > 0 {
		parsed := make([]metrics.Label, numGlobalLabels)
		for i, gl := range cfg.GlobalLabels {
			if len(gl) != 2 {
				return nil, fmt.Errorf("global label %v must be a [name, value] pair", gl)
			}
			parsed[i] = metrics.Label{Name: gl[0], Value: gl[1]}
		}
		globalLabels = parsed
	}

	metricsConf := metrics.DefaultConfig(cfg.ServiceName)
	metricsConf.EnableHostname = cfg.EnableHostname
	metricsConf.EnableHostnameLabel = cfg.EnableHostnameLabel
	metricsConf.EnableServiceLabel = cfg.EnableServiceLabel

	memSink := metrics.NewInmemSink(10*time.Second, time.Minute)
	metrics.DefaultInmemSignal(memSink)

	m := &Metrics{memSink: memSink}
	fanout := metrics.FanoutSink{memSink}

	if cfg.PrometheusRetentionTime > 0 {
		m.prometheusEnabled = true
		promSink, err := metricsprom.NewPrometheusSinkFrom(metricsprom.PrometheusOpts{
			Expiration: cfg.PrometheusRetentionTime,
		})
		if err != nil {
			return nil, err
		}
		fanout = append(fanout, promSink)
	}

	if _, err := metrics.NewGlobal(metricsConf, fanout); err != nil {
		return nil, err
	}

	return m, nil
}

// Gather collects all registered metrics and returns a GatherResponse where
// the metrics are encoded depending on the type. Metrics are either encoded
// via Prometheus or JSON if in-memory.
func (m *Metrics) Gather(format string) (GatherResponse, error) {
	switch format {
	case FormatPrometheus:
		return m.gatherPrometheus()

	case FormatText, FormatDefault:
		return m.gatherGeneric()

	default:
		return GatherResponse{}, fmt.Errorf("unsupported metrics format: %s", format)
	}
}

func (m *Metrics) gatherPrometheus() (GatherResponse, error) {
	if !m.prometheusEnabled {
		return GatherResponse{}, fmt.Errorf("prometheus metrics are not enabled")
	}

	metricsFamilies, err := prometheus.DefaultGatherer.Gather()
	if err != nil {
		return GatherResponse{}, fmt.Errorf("failed to gather prometheus metrics: %w", err)
	}

	format := expfmt.NewFormat(expfmt.TypeTextPlain)
	buf := &bytes.Buffer{}
	encoder := expfmt.NewEncoder(buf, format)
	for _, mf := range metricsFamilies {
		if err := encoder.Encode(mf); err != nil {
			return GatherResponse{}, fmt.Errorf("failed to encode prometheus metrics: %w", err)
		}
	}

	return GatherResponse{ContentType: string(format), Metrics: buf.Bytes()}, nil
}

func (m *Metrics) gatherGeneric() (GatherResponse, error) {
	summary, err := m.memSink.DisplayMetrics(nil, nil)
	if err != nil {
		return GatherResponse{}, fmt.Errorf("failed to gather in-memory metrics: %w", err)
	}

	content, err := json.Marshal(summary)
	if err != nil {
		return GatherResponse{}, fmt.Errorf("failed to encode in-memory metrics: %w", err)
	}

	return GatherResponse{ContentType: "application/json", Metrics: content}, nil
}

// withGlobalLabels returns labels followed by the global labels in a fresh
// slice, leaving the caller's backing array untouched.
func withGlobalLabels(labels []metrics.Label) []metrics.Label {
	out := make([]metrics.Label, 0, len(labels)+len(globalLabels))
	out = append(out, labels...)
	return append(out, globalLabels...)
}

// IncrCounterWithLabels provides a wrapper functionality for emitting a
// counter metric with global labels (if any) along with the provided labels.
func IncrCounterWithLabels(keys []string, val float32, labels []metrics.Label) {
	metrics.IncrCounterWithLabels(keys, val, withGlobalLabels(labels))
}

// SetGaugeWithLabels provides a wrapper functionality for emitting a gauge
// metric with global labels (if any) along with the provided labels.
func SetGaugeWithLabels(keys []string, val float32, labels []metrics.Label) {
	metrics.SetGaugeWithLabels(keys, val, withGlobalLabels(labels))
}

// MeasureSinceWithLabels provides a wrapper functionality for emitting a time
// measure metric with global labels (if any) along with the provided labels.
func MeasureSinceWithLabels(keys []string, start time.Time, labels []metrics.Label) {
	metrics.MeasureSinceWithLabels(keys, start.UTC(), withGlobalLabels(labels))
}
