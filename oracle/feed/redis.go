package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"

	"github.com/selendra/dex-sub001/oracle/types"
)

const (
	DefaultRedisKeyPrefix = "dex-oracle:feed:"

	fieldSubmittedAt = "submitted_at"
	fieldEntry       = "entry"
	fieldValid       = "valid"
)

var (
	_ Store = (*RedisStore)(nil)

	// upsertScript writes the entry only when no newer submission is stored.
	// Timestamps are unix microseconds so they stay exact as Lua numbers.
	upsertScript = redis.NewScript(`
local current = redis.call('HGET', KEYS[1], ARGV[1])
if current and tonumber(current) > tonumber(ARGV[2]) then
  return redis.call('HMGET', KEYS[1], ARGV[3], ARGV[4])
end
redis.call('HSET', KEYS[1], ARGV[1], ARGV[2], ARGV[3], ARGV[5], ARGV[4], '1')
return {ARGV[5], '1'}
`)

	invalidateScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], ARGV[1], '0')
return 1
`)
)

// RedisConfig defines the connection to a redis feed store.
type RedisConfig struct {
	Address   string
	Password  string
	DB        int
	KeyPrefix string
}

// RedisStore keeps feed entries in redis so several oracle processes can
// share them. Each pair is a hash holding the JSON entry, its submission
// time and its validity flag.
type RedisStore struct {
	logger    zerolog.Logger
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisStore connects to redis and verifies the connection.
func NewRedisStore(ctx context.Context, logger zerolog.Logger, cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Address, err)
	}

	return NewRedisStoreWithClient(logger, client, cfg.KeyPrefix), nil
}

// NewRedisStoreWithClient wraps an existing redis client.
func NewRedisStoreWithClient(logger zerolog.Logger, client redis.UniversalClient, keyPrefix string) *RedisStore {
	if keyPrefix == "" {
		keyPrefix = DefaultRedisKeyPrefix
	}
	return &RedisStore{
		logger:    logger.With().Str("module", "feed_store").Str("backend", "redis").Logger(),
		client:    client,
		keyPrefix: keyPrefix,
	}
}

func (rs *RedisStore) key(pair types.PairKey) string {
	return rs.keyPrefix + pair.StorageKey()
}

// Get implements Store.
func (rs *RedisStore) Get(ctx context.Context, pair types.PairKey) (types.ExternalFeedEntry, bool, error) {
	values, err := rs.client.HMGet(ctx, rs.key(pair), fieldEntry, fieldValid).Result()
	if err != nil {
		return types.ExternalFeedEntry{}, false, fmt.Errorf("failed to read feed %s: %w", pair, err)
	}
	return decodeEntry(values)
}

// Upsert implements Store.
func (rs *RedisStore) Upsert(ctx context.Context, entry types.ExternalFeedEntry) (types.ExternalFeedEntry, error) {
	entry.Valid = true
	bz, err := json.Marshal(entry)
	if err != nil {
		return types.ExternalFeedEntry{}, err
	}

	res, err := upsertScript.Run(ctx, rs.client,
		[]string{rs.key(entry.Pair)},
		fieldSubmittedAt,
		entry.SubmittedAt.UnixMicro(),
		fieldEntry,
		fieldValid,
		string(bz),
	).Slice()
	if err != nil {
		return types.ExternalFeedEntry{}, fmt.Errorf("failed to store feed %s: %w", entry.Pair, err)
	}

	stored, ok, err := decodeEntry(res)
	if err != nil {
		return types.ExternalFeedEntry{}, err
	}
	if !ok {
		return types.ExternalFeedEntry{}, fmt.Errorf("feed %s vanished during upsert", entry.Pair)
	}
	if !stored.SubmittedAt.Equal(entry.SubmittedAt) {
		rs.logger.Debug().Str("pair", entry.Pair.String()).Msg("discarding out of order feed")
	}
	return stored, nil
}

// Invalidate implements Store.
func (rs *RedisStore) Invalidate(ctx context.Context, pair types.PairKey) (bool, error) {
	existed, err := invalidateScript.Run(ctx, rs.client, []string{rs.key(pair)}, fieldValid).Int()
	if err != nil {
		return false, fmt.Errorf("failed to invalidate feed %s: %w", pair, err)
	}
	return existed == 1, nil
}

// List implements Store.
func (rs *RedisStore) List(ctx context.Context) ([]types.ExternalFeedEntry, error) {
	var entries []types.ExternalFeedEntry

	iter := rs.client.Scan(ctx, 0, rs.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		values, err := rs.client.HMGet(ctx, iter.Val(), fieldEntry, fieldValid).Result()
		if err != nil {
			return nil, err
		}
		entry, ok, err := decodeEntry(values)
		if err != nil {
			rs.logger.Error().Err(err).Str("key", iter.Val()).Msg("skipping undecodable feed")
			continue
		}
		if ok {
			entries = append(entries, entry)
		}
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return strings.Compare(entries[i].Pair.String(), entries[j].Pair.String()) < 0
	})
	return entries, nil
}

// Health implements Store.
func (rs *RedisStore) Health(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

// Close implements Store.
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

// decodeEntry decodes an [entry, valid] pair as returned by HMGET.
func decodeEntry(values []interface{}) (types.ExternalFeedEntry, bool, error) {
	if len(values) != 2 || values[0] == nil {
		return types.ExternalFeedEntry{}, false, nil
	}

	raw, ok := values[0].(string)
	if !ok {
		return types.ExternalFeedEntry{}, false, fmt.Errorf("unexpected feed value type %T", values[0])
	}

	var entry types.ExternalFeedEntry
	if err := json.Unmarshal([]byte(raw), &entry); err != nil {
		return types.ExternalFeedEntry{}, false, fmt.Errorf("failed to decode feed entry: %w", err)
	}

	valid, _ := values[1].(string)
	entry.Valid = valid == "1"
	return entry, true, nil
}
