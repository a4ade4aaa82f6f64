package oracle

import (
	"context"
	"fmt"
	"time"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"

	"github.com/selendra/dex-sub001/oracle/chain"
	"github.com/selendra/dex-sub001/oracle/feed"
	"github.com/selendra/dex-sub001/oracle/types"
)

// Option configures an Oracle.
type Option func(*options)

type options struct {
	now                func() time.Time
	accrualConcurrency int
}

// WithClock overrides the clock used to stamp and age external feeds.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// WithAccrualConcurrency bounds the parallel reads of AllAccrued.
func WithAccrualConcurrency(n int) Option {
	return func(o *options) {
		o.accrualConcurrency = n
	}
}

// Oracle is the service facade over the price and protocol fee components.
// It is built once at startup from an immutable OracleConfig and is safe for
// concurrent use.
type Oracle struct {
	logger zerolog.Logger
	cfg    types.OracleConfig
	client chain.Client
	store  feed.Store

	authority  *Authority
	external   *ExternalFeeds
	pool       *PoolPriceReader
	reconciler *Reconciler
	observer   *ObservationScheduler
	fees       *FeeCoordinator
}

// New wires the oracle components over client and store.
func New(
	logger zerolog.Logger,
	cfg types.OracleConfig,
	client chain.Client,
	store feed.Store,
	opts ...Option,
) *Oracle {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	logger = logger.With().Str("module", "oracle").Logger()
	authority := NewAuthority(logger, cfg, client)
	external := NewExternalFeeds(logger, cfg, authority, store, o.now)
	pool := NewPoolPriceReader(logger, cfg, client, o.now)

	return &Oracle{
		logger:     logger,
		cfg:        cfg,
		client:     client,
		store:      store,
		authority:  authority,
		external:   external,
		pool:       pool,
		reconciler: NewReconciler(logger, external, pool, o.now),
		observer:   NewObservationScheduler(logger, cfg, authority, client, client),
		fees:       NewFeeCoordinator(logger, authority, client, client, client, o.accrualConcurrency),
	}
}

// Config returns the oracle configuration.
func (o *Oracle) Config() types.OracleConfig {
	return o.cfg
}

// PairKey canonicalizes tokenA and tokenB with the configured pool defaults.
func (o *Oracle) PairKey(tokenA, tokenB common.Address) (types.PairKey, error) {
	return o.cfg.PairKey(tokenA, tokenB)
}

// Price returns the reconciled price of pair.
func (o *Oracle) Price(ctx context.Context, pair types.PairKey) (types.PriceObservation, error) {
	return o.reconciler.Price(ctx, pair)
}

// PoolPrice returns the pool spot price of pair.
func (o *Oracle) PoolPrice(ctx context.Context, pair types.PairKey) (types.PriceObservation, error) {
	return o.reconciler.PoolPrice(ctx, pair)
}

// ExternalPrice returns the external price of pair when usable.
func (o *Oracle) ExternalPrice(ctx context.Context, pair types.PairKey) (types.PriceObservation, error) {
	return o.reconciler.ExternalPrice(ctx, pair)
}

// TWAP returns the time weighted average price of pair.
func (o *Oracle) TWAP(ctx context.Context, pair types.PairKey) (types.TWAP, error) {
	return o.reconciler.TWAP(ctx, pair)
}

// Feed stores an external price for pair.
func (o *Oracle) Feed(ctx context.Context, pair types.PairKey, price, signingKey string) (types.ExternalFeedEntry, error) {
	return o.external.Feed(ctx, pair, price, signingKey)
}

// FeedBatch stores several external prices in order.
func (o *Oracle) FeedBatch(ctx context.Context, signingKey string, entries []types.FeedRequest) (types.BatchResult, error) {
	return o.external.FeedBatch(ctx, signingKey, entries)
}

// Invalidate marks the external price of pair invalid.
func (o *Oracle) Invalidate(ctx context.Context, pair types.PairKey, signingKey string) (bool, error) {
	return o.external.Invalidate(ctx, pair, signingKey)
}

// ExternalEntries returns every stored external price.
func (o *Oracle) ExternalEntries(ctx context.Context) ([]types.ExternalFeedEntry, error) {
	return o.external.List(ctx)
}

// Observe records a TWAP observation for pair.
func (o *Oracle) Observe(ctx context.Context, pair types.PairKey, signingKey string) (types.ObserveResult, error) {
	return o.observer.Observe(ctx, pair, signingKey)
}

// ObservationCount returns the TWAP observation state of pair.
func (o *Oracle) ObservationCount(ctx context.Context, pair types.PairKey) (types.TWAPState, error) {
	return o.observer.ObservationCount(ctx, pair)
}

// FeeController returns the protocol fee controller assignment.
func (o *Oracle) FeeController(ctx context.Context) (types.ProtocolFeeController, error) {
	return o.fees.Controller(ctx)
}

// Accrued returns the protocol fees accrued in token.
func (o *Oracle) Accrued(ctx context.Context, token common.Address) (types.ProtocolFeeAccrual, error) {
	return o.fees.Accrued(ctx, token)
}

// AllAccrued returns the protocol fees accrued in each of tokens.
func (o *Oracle) AllAccrued(ctx context.Context, tokens []common.Address) (types.AllAccrued, error) {
	return o.fees.AllAccrued(ctx, tokens)
}

// PoolFee returns the protocol fee configured on pair.
func (o *Oracle) PoolFee(ctx context.Context, pair types.PairKey) (types.PoolProtocolFee, error) {
	return o.fees.PoolFee(ctx, pair)
}

// SetController assigns a new protocol fee controller.
func (o *Oracle) SetController(ctx context.Context, signingKey string, controller common.Address) (types.TxResult, error) {
	return o.fees.SetController(ctx, signingKey, controller)
}

// SetFee sets the protocol fee of pair.
func (o *Oracle) SetFee(
	ctx context.Context,
	signingKey string,
	pair types.PairKey,
	protocolFee uint32,
) (types.PoolProtocolFee, types.TxResult, error) {
	return o.fees.SetFee(ctx, signingKey, pair, protocolFee)
}

// Collect transfers accrued protocol fees.
func (o *Oracle) Collect(
	ctx context.Context,
	signingKey string,
	recipient, token common.Address,
	amount math.Int,
) (types.CollectResult, error) {
	return o.fees.Collect(ctx, signingKey, recipient, token, amount)
}

// Health checks that the feed store and the chain are reachable.
func (o *Oracle) Health(ctx context.Context) error {
	if err := o.store.Health(ctx); err != nil {
		return fmt.Errorf("feed store unavailable: %w", err)
	}
	if _, err := o.client.BlockNumber(ctx); err != nil {
		return fmt.Errorf("chain unavailable: %w", err)
	}
	return nil
}
