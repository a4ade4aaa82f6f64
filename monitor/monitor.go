package monitor

import (
	"context"
	"time"

	"cosmossdk.io/math"
	"github.com/armon/go-metrics"
	"github.com/rs/zerolog"

	"github.com/selendra/dex-sub001/oracle/types"
	"github.com/selendra/dex-sub001/telemetry"
)

// Notifier delivers monitor results.
type Notifier interface {
	Notify(ctx context.Context, priceErrors []PriceError) error
}

// Monitor periodically compares external feeds with pool prices.
type Monitor struct {
	logger       zerolog.Logger
	source       PriceSource
	notifier     Notifier
	pairs        []types.PairKey
	maxDeviation math.LegacyDec
	interval     time.Duration
	now          func() time.Time
}

func New(
	logger zerolog.Logger,
	source PriceSource,
	notifier Notifier,
	pairs []types.PairKey,
	maxDeviation math.LegacyDec,
	interval time.Duration,
) *Monitor {
	return &Monitor{
		logger:       logger.With().Str("module", "monitor").Logger(),
		source:       source,
		notifier:     notifier,
		pairs:        pairs,
		maxDeviation: maxDeviation,
		interval:     interval,
		now:          time.Now,
	}
}

// Start runs a check immediately and then every interval until ctx is done.
func (m *Monitor) Start(ctx context.Context) error {
	m.logger.Info().
		Int("pairs", len(m.pairs)).
		Dur("interval", m.interval).
		Str("max_deviation", m.maxDeviation.String()).
		Msg("starting price monitor")

	m.tick(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("stopping price monitor")
			return nil

		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) tick(ctx context.Context) {
	priceErrors := m.RunOnce(ctx)
	if err := m.notifier.Notify(ctx, priceErrors); err != nil {
		m.logger.Error().Err(err).Msg("failed to notify price monitor results")
	}
}

// RunOnce performs a single check of every pair.
func (m *Monitor) RunOnce(ctx context.Context) []PriceError {
	priceErrors := VerifyPrices(ctx, m.source, m.pairs, m.maxDeviation, m.now())

	for _, pe := range priceErrors {
		telemetry.IncrCounterWithLabels(
			[]string{"monitor", "check"},
			1,
			[]metrics.Label{{Name: "result", Value: pe.ErrorType.String()}},
		)
		if pe.Deviation != "" {
			if dev, err := math.LegacyNewDecFromStr(pe.Deviation); err == nil {
				if f, err := dev.Float64(); err == nil {
					telemetry.SetGaugeWithLabels(
						[]string{"monitor", "deviation"},
						float32(f),
						[]metrics.Label{{Name: "pair", Value: pe.Pair}},
					)
				}
			}
		}
		if pe.ErrorType != PRICE_MATCH {
			m.logger.Debug().Str("pair", pe.Pair).Str("result", pe.ErrorType.String()).Msg(pe.Message)
		}
	}
	return priceErrors
}
