package oracle

import (
	"context"
	"math/big"
	"time"

	"cosmossdk.io/math"
	"github.com/rs/zerolog"

	"github.com/selendra/dex-sub001/oracle/chain"
	"github.com/selendra/dex-sub001/oracle/types"
)

const (
	// twapPrecision is the big.Float mantissa size used for 1.0001^tick.
	twapPrecision = 256
)

var (
	q192        = new(big.Int).Lsh(big.NewInt(1), 192)
	halfQ192    = new(big.Int).Rsh(q192, 1)
	decScale    = new(big.Int).Exp(big.NewInt(10), big.NewInt(math.LegacyPrecision), nil)
	tickBase    = mustParseFloat("1.0001")
	bigFloatOne = new(big.Float).SetPrec(twapPrecision).SetInt64(1)
)

// PoolPriceReader reads spot and time weighted prices from the pool.
type PoolPriceReader struct {
	logger zerolog.Logger
	cfg    types.OracleConfig
	reader chain.PoolReader
	now    func() time.Time
}

// NewPoolPriceReader returns a PoolPriceReader backed by reader.
func NewPoolPriceReader(
	logger zerolog.Logger,
	cfg types.OracleConfig,
	reader chain.PoolReader,
	now func() time.Time,
) *PoolPriceReader {
	if now == nil {
		now = time.Now
	}
	return &PoolPriceReader{
		logger: logger.With().Str("module", "pool_reader").Logger(),
		cfg:    cfg,
		reader: reader,
		now:    now,
	}
}

// PoolPrice returns the spot price of pair as TokenHigh per TokenLow in raw
// token units. Slot0 is read at a pinned block so the reported block matches
// the state the price came from.
func (pr *PoolPriceReader) PoolPrice(ctx context.Context, pair types.PairKey) (types.PriceObservation, error) {
	if err := pair.Validate(); err != nil {
		return types.PriceObservation{}, err
	}

	block, err := pr.reader.BlockNumber(ctx)
	if err != nil {
		return types.PriceObservation{}, err
	}

	slot0, err := pr.reader.Slot0(ctx, pair, block)
	if err != nil {
		return types.PriceObservation{}, err
	}
	if slot0.SqrtPriceX96 == nil || slot0.SqrtPriceX96.Sign() == 0 {
		return types.PriceObservation{}, types.ErrNotFound.Wrapf("pool %s is not initialized", pair)
	}

	price := SqrtPriceX96ToPrice(slot0.SqrtPriceX96)
	if price.IsZero() {
		return types.PriceObservation{}, types.ErrNotFound.Wrapf(
			"pool %s price is below %d decimal places", pair, math.LegacyPrecision,
		)
	}

	tick := slot0.Tick
	return types.PriceObservation{
		Pair:            pair,
		Price:           price,
		Source:          types.SourcePool,
		ObservedAtBlock: block,
		ObservedAtTime:  pr.now().UTC(),
		Tick:            &tick,
		SqrtPriceX96:    new(big.Int).Set(slot0.SqrtPriceX96),
	}, nil
}

// TWAP returns the time weighted average price of pair over the configured
// window.
func (pr *PoolPriceReader) TWAP(ctx context.Context, pair types.PairKey) (types.TWAP, error) {
	if err := pair.Validate(); err != nil {
		return types.TWAP{}, err
	}

	state, err := pr.TWAPState(ctx, pair)
	if err != nil {
		return types.TWAP{}, err
	}
	if state.ObservationCount < 2 {
		return types.TWAP{}, types.ErrInsufficientObservations.Wrapf(
			"pool %s has %d observations, need at least 2", pair, state.ObservationCount,
		)
	}
	if state.WindowSeconds == 0 {
		return types.TWAP{}, types.ErrInvalidParameter.Wrap("twap window must be positive")
	}

	block, err := pr.reader.BlockNumber(ctx)
	if err != nil {
		return types.TWAP{}, err
	}

	cumulatives, err := pr.reader.TickCumulatives(ctx, pair, []uint32{state.WindowSeconds, 0})
	if chain.IsWindowNotCovered(err) {
		return types.TWAP{}, types.ErrInsufficientObservations.Wrapf(
			"observations of %s do not span %ds: %s", pair, state.WindowSeconds, err,
		)
	}
	if err != nil {
		return types.TWAP{}, err
	}

	avgTick := AverageTick(cumulatives[0], cumulatives[1], state.WindowSeconds)
	price, err := TickToPrice(avgTick)
	if err != nil {
		return types.TWAP{}, err
	}

	return types.TWAP{
		TWAPState:       state,
		AverageTick:     avgTick,
		Price:           price,
		ObservedAtBlock: block,
		ObservedAtTime:  pr.now().UTC(),
	}, nil
}

// TWAPState returns the observation count for pair with the configured
// window.
func (pr *PoolPriceReader) TWAPState(ctx context.Context, pair types.PairKey) (types.TWAPState, error) {
	count, err := pr.reader.ObservationCount(ctx, pair)
	if err != nil {
		return types.TWAPState{}, err
	}
	return types.TWAPState{
		Pair:             pair,
		ObservationCount: count,
		WindowSeconds:    pr.cfg.TWAPWindowSeconds,
	}, nil
}

// SqrtPriceX96ToPrice converts a Q64.96 square root price to a decimal price,
// rounding half up at the last decimal place.
func SqrtPriceX96ToPrice(sqrtPriceX96 *big.Int) math.LegacyDec {
	num := new(big.Int).Mul(sqrtPriceX96, sqrtPriceX96)
	num.Mul(num, decScale)
	num.Add(num, halfQ192)
	num.Rsh(num, 192)
	return math.LegacyNewDecFromBigIntWithPrec(num, math.LegacyPrecision)
}

// AverageTick returns floor((end - start) / window), matching how the pool
// rounds negative averages.
func AverageTick(start, end *big.Int, window uint32) int64 {
	delta := new(big.Int).Sub(end, start)
	// Div is Euclidean, which floors for a positive divisor.
	return new(big.Int).Div(delta, big.NewInt(int64(window))).Int64()
}

// TickToPrice returns 1.0001^tick.
func TickToPrice(tick int64) (math.LegacyDec, error) {
	abs := tick
	if abs < 0 {
		abs = -abs
	}

	result := new(big.Float).SetPrec(twapPrecision).Set(bigFloatOne)
	base := new(big.Float).SetPrec(twapPrecision).Set(tickBase)
	for e := abs; e > 0; e >>= 1 {
		if e&1 == 1 {
			result.Mul(result, base)
		}
		base.Mul(base, base)
	}
	if tick < 0 {
		result.Quo(bigFloatOne, result)
	}

	price, err := math.LegacyNewDecFromStr(result.Text('f', math.LegacyPrecision))
	if err != nil {
		return math.LegacyDec{}, types.ErrInvalidParameter.Wrapf("tick %d is out of range: %s", tick, err)
	}
	return price, nil
}

func mustParseFloat(s string) *big.Float {
	f, _, err := big.ParseFloat(s, 10, twapPrecision, big.ToNearestEven)
	if err != nil {
		panic(err)
	}
	return f
}
