package feed

import (
	"context"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/selendra/dex-sub001/oracle/types"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is the in-process feed store. Entries live as long as the
// process does.
type MemoryStore struct {
	logger zerolog.Logger

	entriesMtx sync.RWMutex
	entries    map[types.PairKey]types.ExternalFeedEntry
}

// NewMemoryStore returns an empty in-memory feed store.
func NewMemoryStore(logger zerolog.Logger) *MemoryStore {
	return &MemoryStore{
		logger:  logger.With().Str("module", "feed_store").Str("backend", "memory").Logger(),
		entries: make(map[types.PairKey]types.ExternalFeedEntry),
	}
}

// Get implements Store.
func (ms *MemoryStore) Get(_ context.Context, pair types.PairKey) (types.ExternalFeedEntry, bool, error) {
	ms.entriesMtx.RLock()
	defer ms.entriesMtx.RUnlock()

	entry, ok := ms.entries[pair]
	return entry, ok, nil
}

// Upsert implements Store.
func (ms *MemoryStore) Upsert(_ context.Context, entry types.ExternalFeedEntry) (types.ExternalFeedEntry, error) {
	ms.entriesMtx.Lock()
	defer ms.entriesMtx.Unlock()

	if current, ok := ms.entries[entry.Pair]; ok && current.SubmittedAt.After(entry.SubmittedAt) {
		ms.logger.Debug().
			Str("pair", entry.Pair.String()).
			Time("stored", current.SubmittedAt).
			Time("discarded", entry.SubmittedAt).
			Msg("discarding out of order feed")
		return current, nil
	}

	ms.entries[entry.Pair] = entry
	return entry, nil
}

// Invalidate implements Store.
func (ms *MemoryStore) Invalidate(_ context.Context, pair types.PairKey) (bool, error) {
	ms.entriesMtx.Lock()
	defer ms.entriesMtx.Unlock()

	entry, ok := ms.entries[pair]
	if !ok {
		return false, nil
	}
	entry.Valid = false
	ms.entries[pair] = entry
	return true, nil
}

// List implements Store. Entries are ordered by pair for stable output.
func (ms *MemoryStore) List(_ context.Context) ([]types.ExternalFeedEntry, error) {
	ms.entriesMtx.RLock()
	defer ms.entriesMtx.RUnlock()

	entries := make([]types.ExternalFeedEntry, 0, len(ms.entries))
	for _, e := range ms.entries {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Pair.String() < entries[j].Pair.String()
	})
	return entries, nil
}

// Health implements Store.
func (ms *MemoryStore) Health(context.Context) error {
	return nil
}

// Close implements Store.
func (ms *MemoryStore) Close() error {
	return nil
}
