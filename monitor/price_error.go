package monitor

import (
	"fmt"
	"time"
)

type ErrorType int

const (
	PRICE_MATCH            ErrorType = iota
	EXTERNAL_MISSING_PRICE           // no usable external entry
	EXTERNAL_STALE_PRICE             // entry older than the max price age
	POOL_MISSING_PRICE               // pool uninitialized
	DEVIATED_PRICE                   // external and pool disagree
	SOURCE_DOWN                      // store or chain read failed
)

var (
	criticalErrorTypes = map[ErrorType]struct{}{
		POOL_MISSING_PRICE: {},
		DEVIATED_PRICE:     {},
		SOURCE_DOWN:        {},
	}

	errorTypeNames = map[ErrorType]string{
		PRICE_MATCH:            "match",
		EXTERNAL_MISSING_PRICE: "external_missing",
		EXTERNAL_STALE_PRICE:   "external_stale",
		POOL_MISSING_PRICE:     "pool_missing",
		DEVIATED_PRICE:         "deviated",
		SOURCE_DOWN:            "source_down",
	}
)

func (et ErrorType) String() string {
	if name, ok := errorTypeNames[et]; ok {
		return name
	}
	return fmt.Sprintf("unknown(%d)", int(et))
}

// IsCritical reports whether the error is always notified, not only in the
// periodic full report.
func (et ErrorType) IsCritical() bool {
	_, ok := criticalErrorTypes[et]
	return ok
}

type PriceError struct {
	ErrorType ErrorType
	Pair      string
	Message   string
	// set for checks that got both prices
	Deviation string

	occurredAt time.Time
}

func (pe PriceError) Key() string {
	return fmt.Sprintf("%d%s", pe.ErrorType, pe.Pair)
}

// OccurredAt returns when the check ran.
func (pe PriceError) OccurredAt() time.Time {
	return pe.occurredAt
}
