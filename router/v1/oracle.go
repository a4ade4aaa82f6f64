package v1

import (
	"context"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"

	"github.com/selendra/dex-sub001/oracle/types"
	"github.com/selendra/dex-sub001/telemetry"
)

// Oracle defines the Oracle interface contract that the v1 router depends on.
type Oracle interface {
	Config() types.OracleConfig
	Health(ctx context.Context) error

	Price(ctx context.Context, pair types.PairKey) (types.PriceObservation, error)
	PoolPrice(ctx context.Context, pair types.PairKey) (types.PriceObservation, error)
	ExternalPrice(ctx context.Context, pair types.PairKey) (types.PriceObservation, error)
	TWAP(ctx context.Context, pair types.PairKey) (types.TWAP, error)

	Feed(ctx context.Context, pair types.PairKey, price, signingKey string) (types.ExternalFeedEntry, error)
	FeedBatch(ctx context.Context, signingKey string, entries []types.FeedRequest) (types.BatchResult, error)
	Invalidate(ctx context.Context, pair types.PairKey, signingKey string) (bool, error)
	ExternalEntries(ctx context.Context) ([]types.ExternalFeedEntry, error)

	Observe(ctx context.Context, pair types.PairKey, signingKey string) (types.ObserveResult, error)
	ObservationCount(ctx context.Context, pair types.PairKey) (types.TWAPState, error)

	FeeController(ctx context.Context) (types.ProtocolFeeController, error)
	Accrued(ctx context.Context, token common.Address) (types.ProtocolFeeAccrual, error)
	AllAccrued(ctx context.Context, tokens []common.Address) (types.AllAccrued, error)
	PoolFee(ctx context.Context, pair types.PairKey) (types.PoolProtocolFee, error)
	SetController(ctx context.Context, signingKey string, controller common.Address) (types.TxResult, error)
	SetFee(
		ctx context.Context,
		signingKey string,
		pair types.PairKey,
		protocolFee uint32,
	) (types.PoolProtocolFee, types.TxResult, error)
	Collect(
		ctx context.Context,
		signingKey string,
		recipient, token common.Address,
		amount math.Int,
	) (types.CollectResult, error)
}

// Metrics defines the interface contract for gathering metrics.
type Metrics interface {
	Gather(format string) (telemetry.GatherResponse, error)
}
