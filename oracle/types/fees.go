package types

import (
	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

const (
	// DefaultPoolFee is the fee tier used when a request omits it.
	DefaultPoolFee uint32 = 3000

	// MaxProtocolFee is the largest protocol fee accepted per direction,
	// expressed in pips.
	MaxProtocolFee uint32 = 1000
)

// ProtocolFeeController is the on-chain fee controller assignment together
// with the pool manager owner, which is allowed to change it.
type ProtocolFeeController struct {
	Controller       common.Address `json:"controllerAddress"`
	PoolManagerOwner common.Address `json:"poolManagerOwner"`
}

// ProtocolFeeAccrual is the protocol fee balance owed in a token.
type ProtocolFeeAccrual struct {
	Token   common.Address `json:"tokenAddress"`
	Accrued math.Int       `json:"accruedAmount"`
}

// AccrualResult is a single element of a batched accrual query.
type AccrualResult struct {
	Token   common.Address `json:"tokenAddress"`
	Success bool           `json:"success"`
	Accrued *math.Int      `json:"accruedAmount,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// AllAccrued is the response of a batched accrual query. Fees is ordered
// like the requested tokens.
type AllAccrued struct {
	Fees        []AccrualResult `json:"fees"`
	TotalTokens int             `json:"totalTokens"`
}

// PoolProtocolFee is the protocol fee currently configured on a pool.
type PoolProtocolFee struct {
	Pair        PairKey `json:"pair"`
	ProtocolFee uint32  `json:"protocolFee"`
}

// TxResult describes a confirmed transaction.
type TxResult struct {
	TxHash      common.Hash `json:"txHash"`
	BlockNumber uint64      `json:"blockNumber"`
	GasUsed     uint64      `json:"gasUsed"`
}

// CollectResult describes a protocol fee collection.
type CollectResult struct {
	TxResult
	Recipient common.Address `json:"recipient"`
	Token     common.Address `json:"tokenAddress"`
	Amount    math.Int       `json:"amount"`
	// CollectedAll is set when the request asked for the full accrued balance.
	CollectedAll bool `json:"collectedAll"`
}

// ObserveResult describes an oracle observation write.
type ObserveResult struct {
	TxResult
	Pair PairKey `json:"pair"`
	// nil when the count could not be read after the transaction was mined
	ObservationCount *uint64 `json:"observationCount,omitempty"`
}

// ValidateProtocolFee checks a packed protocol fee: the lower 12 bits hold the
// zeroForOne fee and the upper 12 bits the oneForZero fee, each capped at
// MaxProtocolFee.
func ValidateProtocolFee(protocolFee uint32) error {
	if protocolFee>>24 != 0 {
		return ErrInvalidParameter.Wrapf("protocol fee %d does not fit in 24 bits", protocolFee)
	}

	zeroForOne := protocolFee & 0xfff
	oneForZero := protocolFee >> 12
	if zeroForOne > MaxProtocolFee || oneForZero > MaxProtocolFee {
		return ErrInvalidParameter.Wrapf(
			"protocol fee %d exceeds %d pips in one direction (%d, %d)",
			protocolFee, MaxProtocolFee, zeroForOne, oneForZero,
		)
	}
	return nil
}
