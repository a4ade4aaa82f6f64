package oracle

import (
	"context"
	"math/big"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/selendra/dex-sub001/oracle/chain"
	"github.com/selendra/dex-sub001/oracle/types"
)

// DefaultAccrualConcurrency bounds the parallel reads of AllAccrued.
const DefaultAccrualConcurrency = 8

// FeeCoordinator relays protocol fee reads and writes to the pool manager.
// Nothing read from chain is cached.
type FeeCoordinator struct {
	logger      zerolog.Logger
	authority   *Authority
	pools       chain.PoolReader
	reader      chain.FeeReader
	writer      chain.FeeWriter
	concurrency int
}

// NewFeeCoordinator returns a FeeCoordinator. concurrency bounds AllAccrued
// and defaults to DefaultAccrualConcurrency when not positive.
func NewFeeCoordinator(
	logger zerolog.Logger,
	authority *Authority,
	pools chain.PoolReader,
	reader chain.FeeReader,
	writer chain.FeeWriter,
	concurrency int,
) *FeeCoordinator {
	if concurrency <= 0 {
		concurrency = DefaultAccrualConcurrency
	}
	return &FeeCoordinator{
		logger:      logger.With().Str("module", "fees").Logger(),
		authority:   authority,
		pools:       pools,
		reader:      reader,
		writer:      writer,
		concurrency: concurrency,
	}
}

// Controller returns the protocol fee controller and the pool manager owner.
func (fc *FeeCoordinator) Controller(ctx context.Context) (types.ProtocolFeeController, error) {
	controller, err := fc.reader.ProtocolFeeController(ctx)
	if err != nil {
		return types.ProtocolFeeController{}, err
	}
	owner, err := fc.reader.Owner(ctx)
	if err != nil {
		return types.ProtocolFeeController{}, err
	}
	return types.ProtocolFeeController{Controller: controller, PoolManagerOwner: owner}, nil
}

// Accrued returns the protocol fees accrued in token. The zero address is
// the native currency.
func (fc *FeeCoordinator) Accrued(ctx context.Context, token common.Address) (types.ProtocolFeeAccrual, error) {
	amount, err := fc.reader.ProtocolFeesAccrued(ctx, token)
	if err != nil {
		return types.ProtocolFeeAccrual{}, err
	}
	return types.ProtocolFeeAccrual{Token: token, Accrued: math.NewIntFromBigInt(amount)}, nil
}

// AllAccrued reads the accrual of every token in parallel. A failed read is
// recorded in its result and does not fail the batch. Results keep the order
// of tokens.
func (fc *FeeCoordinator) AllAccrued(ctx context.Context, tokens []common.Address) (types.AllAccrued, error) {
	results := make([]types.AccrualResult, len(tokens))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fc.concurrency)
	for i, token := range tokens {
		i, token := i, token

		g.Go(func() error {
			accrual, err := fc.Accrued(gctx, token)
			if err != nil {
				results[i] = types.AccrualResult{Token: token, Success: false, Error: err.Error()}
				return nil
			}

			amount := accrual.Accrued
			results[i] = types.AccrualResult{Token: token, Success: true, Accrued: &amount}
			return nil
		})
	}

	// goroutines never return an error; failures live in results
	_ = g.Wait()

	return types.AllAccrued{Fees: results, TotalTokens: len(tokens)}, nil
}

// PoolFee returns the protocol fee configured on pair.
func (fc *FeeCoordinator) PoolFee(ctx context.Context, pair types.PairKey) (types.PoolProtocolFee, error) {
	if err := pair.Validate(); err != nil {
		return types.PoolProtocolFee{}, err
	}
	slot0, err := fc.pools.Slot0(ctx, pair, 0)
	if err != nil {
		return types.PoolProtocolFee{}, err
	}
	return types.PoolProtocolFee{Pair: pair, ProtocolFee: slot0.ProtocolFee}, nil
}

// SetController assigns a new protocol fee controller. Only the pool manager
// owner may do so.
func (fc *FeeCoordinator) SetController(
	ctx context.Context,
	signingKey string,
	controller common.Address,
) (types.TxResult, error) {
	caller, err := fc.authority.RequireSigner(ctx, signingKey, types.RoleOwner)
	if err != nil {
		return types.TxResult{}, err
	}

	tx, err := fc.writer.SetProtocolFeeController(ctx, caller.Signer, controller)
	if err != nil {
		return types.TxResult{}, err
	}

	fc.logger.Info().
		Str("controller", controller.Hex()).
		Str("tx_hash", tx.TxHash.Hex()).
		Msg("set protocol fee controller")

	return tx, nil
}

// SetFee sets the protocol fee of pair. Only the controller may do so.
func (fc *FeeCoordinator) SetFee(
	ctx context.Context,
	signingKey string,
	pair types.PairKey,
	protocolFee uint32,
) (types.PoolProtocolFee, types.TxResult, error) {
	if err := pair.Validate(); err != nil {
		return types.PoolProtocolFee{}, types.TxResult{}, err
	}
	if err := types.ValidateProtocolFee(protocolFee); err != nil {
		return types.PoolProtocolFee{}, types.TxResult{}, err
	}

	caller, err := fc.authority.RequireSigner(ctx, signingKey, types.RoleController)
	if err != nil {
		return types.PoolProtocolFee{}, types.TxResult{}, err
	}

	tx, err := fc.writer.SetProtocolFee(ctx, caller.Signer, pair, protocolFee)
	if err != nil {
		return types.PoolProtocolFee{}, types.TxResult{}, err
	}

	fc.logger.Info().
		Str("pair", pair.String()).
		Uint32("protocol_fee", protocolFee).
		Str("tx_hash", tx.TxHash.Hex()).
		Msg("set protocol fee")

	return types.PoolProtocolFee{Pair: pair, ProtocolFee: protocolFee}, tx, nil
}

// Collect transfers accrued protocol fees in token to recipient. Only the
// controller may do so. A zero amount collects the full balance accrued at
// the time of the call.
func (fc *FeeCoordinator) Collect(
	ctx context.Context,
	signingKey string,
	recipient, token common.Address,
	amount math.Int,
) (types.CollectResult, error) {
	if recipient == (common.Address{}) {
		return types.CollectResult{}, types.ErrInvalidParameter.Wrap("recipient cannot be the zero address")
	}
	if amount.IsNil() {
		amount = math.ZeroInt()
	}
	if amount.IsNegative() {
		return types.CollectResult{}, types.ErrInvalidParameter.Wrapf("amount must not be negative, got %s", amount)
	}

	caller, err := fc.authority.RequireSigner(ctx, signingKey, types.RoleController)
	if err != nil {
		return types.CollectResult{}, err
	}

	collectAll := amount.IsZero()
	if collectAll {
		accrual, err := fc.Accrued(ctx, token)
		if err != nil {
			return types.CollectResult{}, err
		}
		if accrual.Accrued.IsZero() {
			return types.CollectResult{}, types.ErrNotFound.Wrapf("no protocol fees accrued in %s", token.Hex())
		}
		amount = accrual.Accrued
	}

	tx, err := fc.writer.CollectProtocolFees(ctx, caller.Signer, recipient, token, new(big.Int).Set(amount.BigInt()))
	if err != nil {
		return types.CollectResult{}, err
	}

	fc.logger.Info().
		Str("token", token.Hex()).
		Str("recipient", recipient.Hex()).
		Str("amount", amount.String()).
		Bool("collected_all", collectAll).
		Str("tx_hash", tx.TxHash.Hex()).
		Msg("collected protocol fees")

	return types.CollectResult{
		TxResult:     tx,
		Recipient:    recipient,
		Token:        token,
		Amount:       amount,
		CollectedAll: collectAll,
	}, nil
}
