package types

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
)

var (
	tokenX = common.HexToAddress("0x1000000000000000000000000000000000000001")
	tokenY = common.HexToAddress("0x2000000000000000000000000000000000000002")
	hooks  = common.HexToAddress("0x00000000000000000000000000000000000000c0")
)

func TestNewPairKey(t *testing.T) {
	t.Run("orders tokens canonically", func(t *testing.T) {
		xy, err := NewPairKey(tokenX, tokenY, 3000, 60, hooks)
		require.NoError(t, err)
		yx, err := NewPairKey(tokenY, tokenX, 3000, 60, hooks)
		require.NoError(t, err)

		require.Equal(t, xy, yx)
		require.Equal(t, tokenX, xy.TokenLow)
		require.Equal(t, tokenY, xy.TokenHigh)
		require.NoError(t, xy.Validate())
	})

	t.Run("rejects equal tokens", func(t *testing.T) {
		_, err := NewPairKey(tokenX, tokenX, 3000, 60, hooks)
		require.ErrorIs(t, err, ErrInvalidPair)
	})

	t.Run("rejects the zero address", func(t *testing.T) {
		_, err := NewPairKey(common.Address{}, tokenY, 3000, 60, hooks)
		require.ErrorIs(t, err, ErrInvalidPair)
	})

	t.Run("fee tier is part of the identity", func(t *testing.T) {
		a, err := NewPairKey(tokenX, tokenY, 3000, 60, hooks)
		require.NoError(t, err)
		b, err := NewPairKey(tokenX, tokenY, 500, 60, hooks)
		require.NoError(t, err)

		require.NotEqual(t, a, b)
		require.NotEqual(t, a.PoolID(), b.PoolID())
		require.NotEqual(t, a.StorageKey(), b.StorageKey())
	})
}

func TestPoolIDIsOrderIndependent(t *testing.T) {
	xy, err := NewPairKey(tokenX, tokenY, 3000, 60, hooks)
	require.NoError(t, err)
	yx, err := NewPairKey(tokenY, tokenX, 3000, 60, hooks)
	require.NoError(t, err)

	require.Equal(t, xy.PoolID(), yx.PoolID())
	require.NotEqual(t, common.Hash{}, xy.PoolID())
}

func TestParseAddress(t *testing.T) {
	_, err := ParseAddress("tokenA", "")
	require.ErrorIs(t, err, ErrMissingParameter)

	_, err = ParseAddress("tokenA", "0x1234")
	require.ErrorIs(t, err, ErrInvalidParameter)

	addr, err := ParseAddress("tokenA", " 0x1000000000000000000000000000000000000001 ")
	require.NoError(t, err)
	require.Equal(t, tokenX, addr)
}

func TestNewPriceFromStr(t *testing.T) {
	price, err := NewPriceFromStr("1.05")
	require.NoError(t, err)
	require.Equal(t, "1.050000000000000000", price.String())

	_, err = NewPriceFromStr("")
	require.ErrorIs(t, err, ErrMissingParameter)

	for _, bad := range []string{"0", "-1", "abc", "NaN", "Inf"} {
		_, err = NewPriceFromStr(bad)
		require.ErrorIs(t, err, ErrInvalidParameter, bad)
	}
}

func TestOracleConfigFeeders(t *testing.T) {
	admin := common.HexToAddress("0xad00000000000000000000000000000000000000")
	cfg := NewOracleConfig(3000, 60, hooks, 0, 0, admin, true, tokenY, tokenX, tokenY)

	require.Equal(t, []common.Address{tokenX, tokenY}, cfg.AuthorizedFeeders)
	require.True(t, cfg.IsFeeder(tokenX))
	require.False(t, cfg.IsFeeder(admin))
	require.True(t, cfg.IsAdmin(admin))
	require.False(t, OracleConfig{}.IsAdmin(common.Address{}))
}
