package oracle

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/selendra/dex-sub001/oracle/types"
)

// Reconciler combines external feeds and pool prices into a single price
// per pair. A fresh, valid external price always takes precedence.
type Reconciler struct {
	logger   zerolog.Logger
	external *ExternalFeeds
	pool     *PoolPriceReader
	now      func() time.Time
}

// NewReconciler returns a Reconciler over external and pool.
func NewReconciler(logger zerolog.Logger, external *ExternalFeeds, pool *PoolPriceReader, now func() time.Time) *Reconciler {
	if now == nil {
		now = time.Now
	}
	return &Reconciler{
		logger:   logger.With().Str("module", "reconciler").Logger(),
		external: external,
		pool:     pool,
		now:      now,
	}
}

// Price returns the external price for pair when it is valid and no older
// than the configured max age, the pool spot price otherwise, and
// ErrNotFound when neither is available.
func (r *Reconciler) Price(ctx context.Context, pair types.PairKey) (types.PriceObservation, error) {
	if err := pair.Validate(); err != nil {
		return types.PriceObservation{}, err
	}

	obs, err := r.ExternalPrice(ctx, pair)
	switch {
	case err == nil:
		telemetryPriceSource(types.SourceExternal)
		return obs, nil

	case errors.Is(err, types.ErrNotFound), errors.Is(err, types.ErrStale):
		r.logger.Debug().Err(err).Str("pair", pair.String()).Msg("falling back to pool price")

	default:
		r.logger.Error().Err(err).Str("pair", pair.String()).Msg("failed to read external price")
	}

	obs, err = r.pool.PoolPrice(ctx, pair)
	if err != nil {
		telemetryPriceSource("")
		if !errors.Is(err, types.ErrNotFound) {
			r.logger.Error().Err(err).Str("pair", pair.String()).Msg("failed to read pool price")
		}
		return types.PriceObservation{}, types.ErrNotFound.Wrapf("no price available for %s: %s", pair, err)
	}

	telemetryPriceSource(types.SourcePool)
	return obs, nil
}

// ExternalPrice returns the external price for pair if it is usable.
func (r *Reconciler) ExternalPrice(ctx context.Context, pair types.PairKey) (types.PriceObservation, error) {
	entry, err := r.external.Usable(ctx, pair)
	if err != nil {
		return types.PriceObservation{}, err
	}
	return types.NewExternalObservation(entry, r.now().UTC()), nil
}

// PoolPrice returns the pool spot price for pair, surfacing read errors as
// they are.
func (r *Reconciler) PoolPrice(ctx context.Context, pair types.PairKey) (types.PriceObservation, error) {
	return r.pool.PoolPrice(ctx, pair)
}

// TWAP returns the pool time weighted average price for pair.
func (r *Reconciler) TWAP(ctx context.Context, pair types.PairKey) (types.TWAP, error) {
	return r.pool.TWAP(ctx, pair)
}
