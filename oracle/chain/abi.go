package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const poolKeyTuple = `{"components":[` +
	`{"name":"currency0","type":"address"},` +
	`{"name":"currency1","type":"address"},` +
	`{"name":"fee","type":"uint24"},` +
	`{"name":"tickSpacing","type":"int24"},` +
	`{"name":"hooks","type":"address"}` +
	`],"name":"key","type":"tuple"}`

// PoolManagerABI covers the ownership and protocol fee surface of the pool
// manager.
const PoolManagerABI = `[
{"inputs":[],"name":"owner","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"inputs":[],"name":"protocolFeeController","outputs":[{"name":"","type":"address"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"currency","type":"address"}],"name":"protocolFeesAccrued","outputs":[{"name":"amount","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[{"name":"controller","type":"address"}],"name":"setProtocolFeeController","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[` + poolKeyTuple + `,{"name":"newProtocolFee","type":"uint24"}],"name":"setProtocolFee","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[{"name":"recipient","type":"address"},{"name":"currency","type":"address"},{"name":"amount","type":"uint256"}],"name":"collectProtocolFees","outputs":[{"name":"amountCollected","type":"uint256"}],"stateMutability":"nonpayable","type":"function"}
]`

// StateViewABI covers the pool state reads.
const StateViewABI = `[
{"inputs":[{"name":"poolId","type":"bytes32"}],"name":"getSlot0","outputs":[{"name":"sqrtPriceX96","type":"uint160"},{"name":"tick","type":"int24"},{"name":"protocolFee","type":"uint24"},{"name":"lpFee","type":"uint24"}],"stateMutability":"view","type":"function"}
]`

// OracleHookABI covers the TWAP accumulator kept by the oracle hook.
const OracleHookABI = `[
{"inputs":[` + poolKeyTuple + `],"name":"observe","outputs":[],"stateMutability":"nonpayable","type":"function"},
{"inputs":[` + poolKeyTuple + `],"name":"getObservationCount","outputs":[{"name":"","type":"uint256"}],"stateMutability":"view","type":"function"},
{"inputs":[` + poolKeyTuple + `,{"name":"secondsAgos","type":"uint32[]"}],"name":"getTickCumulatives","outputs":[{"name":"tickCumulatives","type":"int56[]"}],"stateMutability":"view","type":"function"}
]`

var (
	poolManagerABI = mustParseABI(PoolManagerABI)
	stateViewABI   = mustParseABI(StateViewABI)
	oracleHookABI  = mustParseABI(OracleHookABI)
)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(err)
	}
	return parsed
}
