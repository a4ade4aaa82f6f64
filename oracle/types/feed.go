package types

import (
	"time"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
)

// ExternalFeedEntry is the latest externally submitted price for a pair.
type ExternalFeedEntry struct {
	Pair        PairKey        `json:"pair"`
	Price       math.LegacyDec `json:"price"`
	Feeder      common.Address `json:"feeder"`
	SubmittedAt time.Time      `json:"submittedAt"`
	Valid       bool           `json:"valid"`
}

// Age returns how long ago the entry was submitted relative to now.
func (e ExternalFeedEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.SubmittedAt)
}

// IsStale reports whether the entry is older than maxAge at now. An entry
// exactly maxAge old is still fresh.
func (e ExternalFeedEntry) IsStale(now time.Time, maxAge time.Duration) bool {
	return e.Age(now) > maxAge
}

// IsUsable reports whether the entry can be served as a price.
func (e ExternalFeedEntry) IsUsable(now time.Time, maxAge time.Duration) bool {
	return e.Valid && !e.IsStale(now, maxAge)
}

// FeedRequest is a single element of a feed batch. A request with Err set
// was rejected while being decoded; it is reported as failed and never
// executed.
type FeedRequest struct {
	Pair  PairKey
	Price string
	Err   error
}

// FeedResult reports the outcome of one feed in a batch, aligned
// positionally with the request.
type FeedResult struct {
	Pair    PairKey            `json:"pair"`
	Success bool               `json:"success"`
	Entry   *ExternalFeedEntry `json:"entry,omitempty"`
	Error   string             `json:"error,omitempty"`

	err error
}

// NewFeedResult builds a FeedResult from the outcome of a feed.
func NewFeedResult(pair PairKey, entry *ExternalFeedEntry, err error) FeedResult {
	if err != nil {
		return FeedResult{Pair: pair, Success: false, Error: err.Error(), err: err}
	}
	return FeedResult{Pair: pair, Success: true, Entry: entry}
}

// Err returns the error that caused the feed to fail, if any.
func (r FeedResult) Err() error {
	return r.err
}

// BatchResult aggregates the results of a feed batch. Total is the number of
// entries requested and Completed the number processed, rejected ones
// included, before the batch finished or was cancelled.
type BatchResult struct {
	Results   []FeedResult `json:"results"`
	Total     int          `json:"total"`
	Completed int          `json:"completed"`
}

// Succeeded returns the number of successful feeds.
func (b BatchResult) Succeeded() int {
	n := 0
	for _, r := range b.Results {
		if r.Success {
			n++
		}
	}
	return n
}
