package chain

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	oracletypes "github.com/selendra/dex-sub001/oracle/types"
)

type (
	// Slot0 is the packed pool state returned by the state view.
	Slot0 struct {
		SqrtPriceX96 *big.Int
		Tick         int32
		ProtocolFee  uint32
		LPFee        uint32
	}

	// PoolReader reads pool price and oracle accumulator state.
	PoolReader interface {
		// BlockNumber returns the latest block number.
		BlockNumber(ctx context.Context) (uint64, error)

		// Slot0 returns the pool state at the given block.
		Slot0(ctx context.Context, pair oracletypes.PairKey, block uint64) (Slot0, error)

		// ObservationCount returns how many observations the oracle hook holds.
		ObservationCount(ctx context.Context, pair oracletypes.PairKey) (uint64, error)

		// TickCumulatives returns the tick accumulator at each secondsAgo.
		TickCumulatives(ctx context.Context, pair oracletypes.PairKey, secondsAgos []uint32) ([]*big.Int, error)
	}

	// ObservationWriter advances the oracle hook accumulator.
	ObservationWriter interface {
		Observe(ctx context.Context, signer *Signer, pair oracletypes.PairKey) (oracletypes.TxResult, error)
	}

	// FeeReader reads protocol fee state from the pool manager.
	FeeReader interface {
		Owner(ctx context.Context) (common.Address, error)
		ProtocolFeeController(ctx context.Context) (common.Address, error)
		ProtocolFeesAccrued(ctx context.Context, token common.Address) (*big.Int, error)
	}

	// FeeWriter mutates protocol fee state on the pool manager.
	FeeWriter interface {
		SetProtocolFeeController(ctx context.Context, signer *Signer, controller common.Address) (oracletypes.TxResult, error)
		SetProtocolFee(ctx context.Context, signer *Signer, pair oracletypes.PairKey, protocolFee uint32) (oracletypes.TxResult, error)
		CollectProtocolFees(
			ctx context.Context,
			signer *Signer,
			recipient, token common.Address,
			amount *big.Int,
		) (oracletypes.TxResult, error)
	}

	// Client defines the full on-chain surface the oracle depends on.
	Client interface {
		PoolReader
		ObservationWriter
		FeeReader
		FeeWriter
	}

	// Contracts holds the addresses of the contracts the client talks to.
	Contracts struct {
		PoolManager common.Address
		StateView   common.Address
		OracleHook  common.Address
	}

	// Config defines the client call policy.
	Config struct {
		Contracts   Contracts
		CallTimeout time.Duration
		TxTimeout   time.Duration
		Retry       RetryConfig
	}
)

// wrapCallErr maps a failed chain interaction to ErrChainCallFailed while
// keeping the underlying message, including any revert reason, verbatim.
func wrapCallErr(method string, err error) error {
	if err == nil {
		return nil
	}
	return oracletypes.ErrChainCallFailed.Wrapf("%s: %s", method, err)
}

// windowNotCoveredReverts are the oracle hook revert reasons raised when the
// oldest observation is newer than the requested secondsAgo.
var windowNotCoveredReverts = []string{
	"execution reverted: OLD",
	"TargetPredatesOldestObservation",
}

// IsWindowNotCovered reports whether err is a tick cumulative read the hook
// rejected because its observations do not reach back far enough.
func IsWindowNotCovered(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	for _, reason := range windowNotCoveredReverts {
		if strings.Contains(msg, reason) {
			return true
		}
	}
	return false
}

func txResult(receipt *types.Receipt) oracletypes.TxResult {
	res := oracletypes.TxResult{
		TxHash:  receipt.TxHash,
		GasUsed: receipt.GasUsed,
	}
	if receipt.BlockNumber != nil {
		res.BlockNumber = receipt.BlockNumber.Uint64()
	}
	return res
}

func checkReceipt(method string, receipt *types.Receipt) error {
	if receipt.Status != types.ReceiptStatusSuccessful {
		return wrapCallErr(method, fmt.Errorf("transaction %s reverted", receipt.TxHash.Hex()))
	}
	return nil
}
