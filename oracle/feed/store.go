// Package feed provides backends that hold the latest externally submitted
// price per pair.
package feed

import (
	"context"

	"github.com/selendra/dex-sub001/oracle/types"
)

// Store holds at most one ExternalFeedEntry per PairKey. Implementations must
// be safe for concurrent use. Upserts for the same pair resolve by
// SubmittedAt: an entry older than the stored one is discarded, so the most
// recent submission wins regardless of arrival order.
type Store interface {
	// Get returns the entry for pair. ok is false when no entry exists.
	Get(ctx context.Context, pair types.PairKey) (entry types.ExternalFeedEntry, ok bool, err error)

	// Upsert stores entry unless a newer one is already present and returns
	// the entry held by the store afterwards.
	Upsert(ctx context.Context, entry types.ExternalFeedEntry) (types.ExternalFeedEntry, error)

	// Invalidate marks the entry for pair invalid and reports whether an
	// entry existed. Invalidating a missing or invalid entry is not an error.
	Invalidate(ctx context.Context, pair types.PairKey) (existed bool, err error)

	// List returns every stored entry.
	List(ctx context.Context) ([]types.ExternalFeedEntry, error)

	// Health reports whether the backend is reachable.
	Health(ctx context.Context) error

	Close() error
}
