package oracle

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/selendra/dex-sub001/oracle/chain"
	"github.com/selendra/dex-sub001/oracle/types"
)

// ObservationScheduler records TWAP observations on the oracle hook. It has
// no timer of its own; every observation is an explicit request.
type ObservationScheduler struct {
	logger    zerolog.Logger
	cfg       types.OracleConfig
	authority *Authority
	reader    chain.PoolReader
	writer    chain.ObservationWriter
}

// NewObservationScheduler returns an ObservationScheduler.
func NewObservationScheduler(
	logger zerolog.Logger,
	cfg types.OracleConfig,
	authority *Authority,
	reader chain.PoolReader,
	writer chain.ObservationWriter,
) *ObservationScheduler {
	return &ObservationScheduler{
		logger:    logger.With().Str("module", "observer").Logger(),
		cfg:       cfg,
		authority: authority,
		reader:    reader,
		writer:    writer,
	}
}

// Observe sends an observation for pair signed by a feeder and blocks until
// it is mined. The returned count is read after the receipt.
func (s *ObservationScheduler) Observe(ctx context.Context, pair types.PairKey, signingKey string) (types.ObserveResult, error) {
	if err := pair.Validate(); err != nil {
		return types.ObserveResult{}, err
	}
	caller, err := s.authority.RequireSigner(ctx, signingKey, types.RoleFeeder)
	if err != nil {
		return types.ObserveResult{}, err
	}

	tx, err := s.writer.Observe(ctx, caller.Signer, pair)
	if err != nil {
		return types.ObserveResult{}, err
	}

	res := types.ObserveResult{TxResult: tx, Pair: pair}

	count, err := s.reader.ObservationCount(ctx, pair)
	if err != nil {
		// the observation is on-chain already; report it without a count
		s.logger.Error().Err(err).Str("pair", pair.String()).Msg("failed to read observation count")
	} else {
		res.ObservationCount = &count
	}

	s.logger.Info().
		Str("pair", pair.String()).
		Str("tx_hash", tx.TxHash.Hex()).
		Bool("count_read", res.ObservationCount != nil).
		Msg("recorded observation")

	return res, nil
}

// ObservationCount returns the number of observations held for pair.
func (s *ObservationScheduler) ObservationCount(ctx context.Context, pair types.PairKey) (types.TWAPState, error) {
	if err := pair.Validate(); err != nil {
		return types.TWAPState{}, err
	}
	count, err := s.reader.ObservationCount(ctx, pair)
	if err != nil {
		return types.TWAPState{}, err
	}
	return types.TWAPState{
		Pair:             pair,
		ObservationCount: count,
		WindowSeconds:    s.cfg.TWAPWindowSeconds,
	}, nil
}
