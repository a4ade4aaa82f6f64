package oracle

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/selendra/dex-sub001/oracle/feed"
	"github.com/selendra/dex-sub001/oracle/types"
)

// ExternalFeeds manages externally submitted prices on top of a feed.Store.
type ExternalFeeds struct {
	logger    zerolog.Logger
	cfg       types.OracleConfig
	authority *Authority
	store     feed.Store
	now       func() time.Time
}

// NewExternalFeeds returns an ExternalFeeds writing to store.
func NewExternalFeeds(
	logger zerolog.Logger,
	cfg types.OracleConfig,
	authority *Authority,
	store feed.Store,
	now func() time.Time,
) *ExternalFeeds {
	if now == nil {
		now = time.Now
	}
	return &ExternalFeeds{
		logger:    logger.With().Str("module", "external_feeds").Logger(),
		cfg:       cfg,
		authority: authority,
		store:     store,
		now:       now,
	}
}

// Feed stores price for pair on behalf of the feeder owning signingKey.
func (ef *ExternalFeeds) Feed(
	ctx context.Context,
	pair types.PairKey,
	price string,
	signingKey string,
) (types.ExternalFeedEntry, error) {
	caller, err := ef.authority.RequireSigner(ctx, signingKey, types.RoleFeeder)
	if err != nil {
		return types.ExternalFeedEntry{}, err
	}
	return ef.feed(ctx, caller, pair, price)
}

// FeedBatch stores each entry in order and reports a result per entry. A
// failed entry does not stop or undo the others. Once ctx is done the
// remaining entries are reported as failed without being executed.
func (ef *ExternalFeeds) FeedBatch(
	ctx context.Context,
	signingKey string,
	entries []types.FeedRequest,
) (types.BatchResult, error) {
	caller, err := ef.authority.RequireSigner(ctx, signingKey, types.RoleFeeder)
	if err != nil {
		return types.BatchResult{}, err
	}

	batch := types.BatchResult{
		Results: make([]types.FeedResult, len(entries)),
		Total:   len(entries),
	}
	for i, req := range entries {
		if err := ctx.Err(); err != nil {
			batch.Results[i] = types.NewFeedResult(req.Pair, nil, err)
			continue
		}

		batch.Completed++
		if req.Err != nil {
			telemetryFeed(false)
			batch.Results[i] = types.NewFeedResult(req.Pair, nil, req.Err)
			continue
		}

		entry, err := ef.feed(ctx, caller, req.Pair, req.Price)
		if err != nil {
			batch.Results[i] = types.NewFeedResult(req.Pair, nil, err)
			continue
		}
		batch.Results[i] = types.NewFeedResult(req.Pair, &entry, nil)
	}

	ef.logger.Info().
		Str("feeder", caller.Address.Hex()).
		Int("total", batch.Total).
		Int("completed", batch.Completed).
		Int("succeeded", batch.Succeeded()).
		Msg("feed batch processed")

	return batch, nil
}

func (ef *ExternalFeeds) feed(
	ctx context.Context,
	caller Caller,
	pair types.PairKey,
	price string,
) (types.ExternalFeedEntry, error) {
	if err := pair.Validate(); err != nil {
		telemetryFeed(false)
		return types.ExternalFeedEntry{}, err
	}
	dec, err := types.NewPriceFromStr(price)
	if err != nil {
		telemetryFeed(false)
		return types.ExternalFeedEntry{}, err
	}

	stored, err := ef.store.Upsert(ctx, types.ExternalFeedEntry{
		Pair:        pair,
		Price:       dec,
		Feeder:      caller.Address,
		SubmittedAt: ef.now().UTC(),
		Valid:       true,
	})
	if err != nil {
		telemetryFeed(false)
		return types.ExternalFeedEntry{}, err
	}

	telemetryFeed(true)
	ef.logger.Debug().
		Str("pair", pair.String()).
		Str("price", dec.String()).
		Str("feeder", caller.Address.Hex()).
		Msg("stored external price")

	return stored, nil
}

// Invalidate marks the entry for pair invalid. It succeeds whether or not an
// entry exists and reports which was the case.
func (ef *ExternalFeeds) Invalidate(ctx context.Context, pair types.PairKey, signingKey string) (bool, error) {
	caller, err := ef.authority.RequireSigner(ctx, signingKey, types.RoleFeeder, types.RoleAdmin)
	if err != nil {
		return false, err
	}
	if err := pair.Validate(); err != nil {
		return false, err
	}

	existed, err := ef.store.Invalidate(ctx, pair)
	if err != nil {
		return false, err
	}

	ef.logger.Info().
		Str("pair", pair.String()).
		Str("caller", caller.Address.Hex()).
		Bool("existed", existed).
		Msg("invalidated external price")

	return existed, nil
}

// Get returns the stored entry for pair regardless of age or validity.
func (ef *ExternalFeeds) Get(ctx context.Context, pair types.PairKey) (types.ExternalFeedEntry, error) {
	entry, ok, err := ef.store.Get(ctx, pair)
	if err != nil {
		return types.ExternalFeedEntry{}, err
	}
	if !ok {
		return types.ExternalFeedEntry{}, types.ErrNotFound.Wrapf("no external price for %s", pair)
	}
	return entry, nil
}

// Usable returns the entry for pair only when it is valid and fresh.
func (ef *ExternalFeeds) Usable(ctx context.Context, pair types.PairKey) (types.ExternalFeedEntry, error) {
	entry, err := ef.Get(ctx, pair)
	if err != nil {
		return types.ExternalFeedEntry{}, err
	}
	if !entry.Valid {
		return types.ExternalFeedEntry{}, types.ErrNotFound.Wrapf("external price for %s was invalidated", pair)
	}

	now := ef.now()
	if entry.IsStale(now, ef.cfg.MaxPriceAge()) {
		return types.ExternalFeedEntry{}, types.ErrStale.Wrapf(
			"external price for %s is %s old, max age is %s",
			pair, entry.Age(now).Truncate(time.Second), ef.cfg.MaxPriceAge(),
		)
	}
	return entry, nil
}

// List returns every stored entry.
func (ef *ExternalFeeds) List(ctx context.Context) ([]types.ExternalFeedEntry, error) {
	return ef.store.List(ctx)
}
