package types

import (
	"bytes"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

var poolKeyArguments = mustPoolKeyArguments()

// PairKey identifies a pool by its two tokens, fee tier, tick spacing and
// hooks contract. TokenLow is always strictly lower than TokenHigh under
// byte ordering, so a PairKey is canonical and can be used as a map key.
type PairKey struct {
	TokenLow    common.Address `json:"tokenLow"`
	TokenHigh   common.Address `json:"tokenHigh"`
	Fee         uint32         `json:"fee"`
	TickSpacing int32          `json:"tickSpacing"`
	Hooks       common.Address `json:"hooks"`
}

// NewPairKey returns the canonical PairKey for two tokens supplied in either
// order. It fails with ErrInvalidPair when a token is the zero address or
// both tokens are the same.
func NewPairKey(tokenA, tokenB common.Address, fee uint32, tickSpacing int32, hooks common.Address) (PairKey, error) {
	if tokenA == (common.Address{}) || tokenB == (common.Address{}) {
		return PairKey{}, ErrInvalidPair.Wrap("token address cannot be zero")
	}
	if tokenA == tokenB {
		return PairKey{}, ErrInvalidPair.Wrapf("tokens must differ, got %s twice", tokenA.Hex())
	}

	low, high := tokenA, tokenB
	if bytes.Compare(low.Bytes(), high.Bytes()) > 0 {
		low, high = high, low
	}

	return PairKey{
		TokenLow:    low,
		TokenHigh:   high,
		Fee:         fee,
		TickSpacing: tickSpacing,
		Hooks:       hooks,
	}, nil
}

// Validate reports whether pk satisfies the canonical ordering invariant.
func (pk PairKey) Validate() error {
	if pk.TokenLow == (common.Address{}) || pk.TokenHigh == (common.Address{}) {
		return ErrInvalidPair.Wrap("token address cannot be zero")
	}
	if bytes.Compare(pk.TokenLow.Bytes(), pk.TokenHigh.Bytes()) >= 0 {
		return ErrInvalidPair.Wrap("pair is not in canonical order")
	}
	return nil
}

// String implements the Stringer interface.
func (pk PairKey) String() string {
	return fmt.Sprintf("%s/%s:%d:%d:%s",
		pk.TokenLow.Hex(), pk.TokenHigh.Hex(), pk.Fee, pk.TickSpacing, pk.Hooks.Hex())
}

// StorageKey returns a lower case, stable key for external stores.
func (pk PairKey) StorageKey() string {
	return strings.ToLower(pk.String())
}

// PoolKey returns the ABI tuple representation of the pair as expected by
// the pool manager and the oracle hook.
func (pk PairKey) PoolKey() PoolKey {
	return PoolKey{
		Currency0:   pk.TokenLow,
		Currency1:   pk.TokenHigh,
		Fee:         new(big.Int).SetUint64(uint64(pk.Fee)),
		TickSpacing: big.NewInt(int64(pk.TickSpacing)),
		Hooks:       pk.Hooks,
	}
}

// PoolID returns keccak256(abi.encode(poolKey)), the identifier the pool
// manager uses for pool state.
func (pk PairKey) PoolID() common.Hash {
	key := pk.PoolKey()
	encoded, err := poolKeyArguments.Pack(key.Currency0, key.Currency1, key.Fee, key.TickSpacing, key.Hooks)
	if err != nil {
		// only reachable with out of range fee or tick spacing values
		panic(fmt.Errorf("failed to encode pool key %s: %w", pk, err))
	}
	return crypto.Keccak256Hash(encoded)
}

// PoolKey mirrors the on-chain PoolKey struct. Field names match the ABI
// tuple component names so it can be passed to abi.Pack directly.
type PoolKey struct {
	Currency0   common.Address
	Currency1   common.Address
	Fee         *big.Int
	TickSpacing *big.Int
	Hooks       common.Address
}

func mustPoolKeyArguments() abi.Arguments {
	address, err := abi.NewType("address", "", nil)
	if err != nil {
		panic(err)
	}
	uint24, err := abi.NewType("uint24", "", nil)
	if err != nil {
		panic(err)
	}
	int24, err := abi.NewType("int24", "", nil)
	if err != nil {
		panic(err)
	}

	return abi.Arguments{
		{Type: address},
		{Type: address},
		{Type: uint24},
		{Type: int24},
		{Type: address},
	}
}

// ParseAddress parses a 0x prefixed hex address. The zero address is
// accepted here; callers that forbid it check separately.
func ParseAddress(name, value string) (common.Address, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return common.Address{}, ErrMissingParameter.Wrap(name)
	}
	if !common.IsHexAddress(value) {
		return common.Address{}, ErrInvalidParameter.Wrapf("%s is not a hex address: %q", name, value)
	}
	return common.HexToAddress(value), nil
}
