package types

import (
	"bytes"
	"sort"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// OracleConfig holds the process-wide oracle settings. It is built once at
// startup and never mutated afterwards.
type OracleConfig struct {
	DefaultFee         uint32           `json:"defaultFee"`
	DefaultTickSpacing int32            `json:"defaultTickSpacing"`
	DefaultHooks       common.Address   `json:"defaultHooks"`
	MaxPriceAgeSeconds uint64           `json:"maxPriceAgeSeconds"`
	TWAPWindowSeconds  uint32           `json:"twapWindowSeconds"`
	Admin              common.Address   `json:"adminAddress"`
	AuthorizedFeeders  []common.Address `json:"authorizedFeeders"`
	AdminIsFeeder      bool             `json:"adminIsFeeder"`

	feeders map[common.Address]struct{}
}

// NewOracleConfig builds an OracleConfig with a deduplicated, sorted feeder
// set.
func NewOracleConfig(
	defaultFee uint32,
	defaultTickSpacing int32,
	defaultHooks common.Address,
	maxPriceAge time.Duration,
	twapWindow time.Duration,
	admin common.Address,
	adminIsFeeder bool,
	feeders ...common.Address,
) OracleConfig {
	set := make(map[common.Address]struct{}, len(feeders))
	for _, f := range feeders {
		set[f] = struct{}{}
	}

	sorted := make([]common.Address, 0, len(set))
	for f := range set {
		sorted = append(sorted, f)
	}
	sort.Slice(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Bytes(), sorted[j].Bytes()) < 0
	})

	return OracleConfig{
		DefaultFee:         defaultFee,
		DefaultTickSpacing: defaultTickSpacing,
		DefaultHooks:       defaultHooks,
		MaxPriceAgeSeconds: uint64(maxPriceAge / time.Second),
		TWAPWindowSeconds:  uint32(twapWindow / time.Second),
		Admin:              admin,
		AuthorizedFeeders:  sorted,
		AdminIsFeeder:      adminIsFeeder,
		feeders:            set,
	}
}

// MaxPriceAge returns the external feed freshness threshold.
func (c OracleConfig) MaxPriceAge() time.Duration {
	return time.Duration(c.MaxPriceAgeSeconds) * time.Second
}

// IsFeeder reports whether addr is in the configured feeder set.
func (c OracleConfig) IsFeeder(addr common.Address) bool {
	if c.feeders == nil {
		for _, f := range c.AuthorizedFeeders {
			if f == addr {
				return true
			}
		}
		return false
	}
	_, ok := c.feeders[addr]
	return ok
}

// IsAdmin reports whether addr is the configured admin. A zero admin
// address never matches.
func (c OracleConfig) IsAdmin(addr common.Address) bool {
	return c.Admin != (common.Address{}) && c.Admin == addr
}

// PairKey canonicalizes two tokens with the configured pool defaults.
func (c OracleConfig) PairKey(tokenA, tokenB common.Address) (PairKey, error) {
	return NewPairKey(tokenA, tokenB, c.DefaultFee, c.DefaultTickSpacing, c.DefaultHooks)
}
