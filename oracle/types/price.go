package types

import (
	"math/big"
	"time"

	"cosmossdk.io/math"
)

// PriceSource names where a reconciled price came from.
type PriceSource string

const (
	SourcePool     PriceSource = "pool"
	SourceExternal PriceSource = "external"
)

// String cast price source to string.
func (s PriceSource) String() string {
	return string(s)
}

// PriceObservation defines a single price read for a pair. Price is always
// expressed as the amount of TokenHigh per unit of TokenLow.
type PriceObservation struct {
	Pair            PairKey        `json:"pair"`
	Price           math.LegacyDec `json:"price"`
	Source          PriceSource    `json:"source"`
	ObservedAtBlock uint64         `json:"observedAtBlock"`
	ObservedAtTime  time.Time      `json:"observedAtTime"`

	// pool observations only
	Tick         *int32   `json:"tick,omitempty"`
	SqrtPriceX96 *big.Int `json:"sqrtPriceX96,omitempty"`
}

// NewExternalObservation converts a usable feed entry into a price
// observation.
func NewExternalObservation(entry ExternalFeedEntry, observedAt time.Time) PriceObservation {
	return PriceObservation{
		Pair:           entry.Pair,
		Price:          entry.Price,
		Source:         SourceExternal,
		ObservedAtTime: observedAt,
	}
}

// NewPriceFromStr parses a decimal price and requires it to be strictly
// positive.
func NewPriceFromStr(price string) (math.LegacyDec, error) {
	if price == "" {
		return math.LegacyDec{}, ErrMissingParameter.Wrap("price")
	}

	dec, err := math.LegacyNewDecFromStr(price)
	if err != nil {
		return math.LegacyDec{}, ErrInvalidParameter.Wrapf("failed to parse price (%s): %s", price, err)
	}
	if !dec.IsPositive() {
		return math.LegacyDec{}, ErrInvalidParameter.Wrapf("price must be positive, got %s", price)
	}

	return dec, nil
}

// TWAPState is a read-only view of the oracle hook accumulator for a pair.
type TWAPState struct {
	Pair             PairKey `json:"pair"`
	ObservationCount uint64  `json:"observationCount"`
	WindowSeconds    uint32  `json:"windowSeconds"`
}

// TWAP defines the time weighted average price over TWAPState.WindowSeconds.
type TWAP struct {
	TWAPState
	AverageTick     int64          `json:"averageTick"`
	Price           math.LegacyDec `json:"price"`
	ObservedAtBlock uint64         `json:"observedAtBlock"`
	ObservedAtTime  time.Time      `json:"observedAtTime"`
}
