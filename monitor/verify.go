package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cosmossdk.io/math"

	"github.com/selendra/dex-sub001/oracle/types"
	"github.com/selendra/dex-sub001/util"
)

// PriceSource is the read side of the oracle the monitor compares.
type PriceSource interface {
	ExternalPrice(ctx context.Context, pair types.PairKey) (types.PriceObservation, error)
	PoolPrice(ctx context.Context, pair types.PairKey) (types.PriceObservation, error)
}

// VerifyPrices compares the external price of each pair with its pool price
// and classifies the outcome. The result is ordered like pairs.
func VerifyPrices(
	ctx context.Context,
	source PriceSource,
	pairs []types.PairKey,
	maxDeviation math.LegacyDec,
	now time.Time,
) []PriceError {
	priceErrors := make([]PriceError, 0, len(pairs))

	for _, pair := range pairs {
		pe := PriceError{Pair: pair.String(), occurredAt: now}

		external, err := source.ExternalPrice(ctx, pair)
		switch {
		case errors.Is(err, types.ErrStale):
			pe.ErrorType = EXTERNAL_STALE_PRICE
			pe.Message = fmt.Sprintf("SKIP %s external price is stale", pair)
			priceErrors = append(priceErrors, pe)
			continue

		case errors.Is(err, types.ErrNotFound):
			pe.ErrorType = EXTERNAL_MISSING_PRICE
			pe.Message = fmt.Sprintf("SKIP %s external price not found", pair)
			priceErrors = append(priceErrors, pe)
			continue

		case err != nil:
			pe.ErrorType = SOURCE_DOWN
			pe.Message = fmt.Sprintf("FAIL %s external price unavailable: %s", pair, err)
			priceErrors = append(priceErrors, pe)
			continue
		}

		pool, err := source.PoolPrice(ctx, pair)
		switch {
		case errors.Is(err, types.ErrNotFound):
			pe.ErrorType = POOL_MISSING_PRICE
			pe.Message = fmt.Sprintf("FAIL %s pool price not found, external price: %s", pair, external.Price)
			priceErrors = append(priceErrors, pe)
			continue

		case err != nil:
			pe.ErrorType = SOURCE_DOWN
			pe.Message = fmt.Sprintf("FAIL %s pool price unavailable: %s", pair, err)
			priceErrors = append(priceErrors, pe)
			continue
		}

		deviation := util.RelativeDeviation(external.Price, pool.Price)
		pe.Deviation = deviation.String()

		cv, err := util.CalcCoeficientOfVariation([]math.LegacyDec{external.Price, pool.Price})
		if err != nil {
			cv = math.LegacyZeroDec()
		}

		if deviation.GT(maxDeviation) {
			pe.ErrorType = DEVIATED_PRICE
			pe.Message = fmt.Sprintf(
				"FAIL %s deviated external price: %s, pool price: %s, deviation: %s > %s, variation: %s%%",
				pair, external.Price, pool.Price, deviation, maxDeviation, cv,
			)
			priceErrors = append(priceErrors, pe)
			continue
		}

		pe.ErrorType = PRICE_MATCH
		pe.Message = fmt.Sprintf(
			"PASS %s matched external price: %s, pool price: %s, deviation: %s <= %s, variation: %s%%",
			pair, external.Price, pool.Price, deviation, maxDeviation, cv,
		)
		priceErrors = append(priceErrors, pe)
	}

	return priceErrors
}
