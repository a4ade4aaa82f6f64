package feed

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/selendra/dex-sub001/oracle/types"
)

var (
	testTokenX = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testTokenY = common.HexToAddress("0x2000000000000000000000000000000000000002")
	testTokenZ = common.HexToAddress("0x3000000000000000000000000000000000000003")
	testFeeder = common.HexToAddress("0x00000000000000000000000000000000000000f1")
)

type StoreTestSuite struct {
	suite.Suite

	newStore func() Store
	store    Store
	pairXY   types.PairKey
	pairYZ   types.PairKey
}

func (sts *StoreTestSuite) SetupTest() {
	sts.store = sts.newStore()

	var err error
	sts.pairXY, err = types.NewPairKey(testTokenX, testTokenY, 3000, 60, common.Address{})
	sts.Require().NoError(err)
	sts.pairYZ, err = types.NewPairKey(testTokenZ, testTokenY, 3000, 60, common.Address{})
	sts.Require().NoError(err)
}

func (sts *StoreTestSuite) TearDownTest() {
	sts.Require().NoError(sts.store.Close())
}

// TestMemoryStore runs the store suite against the in-memory backend.
func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreTestSuite{
		newStore: func() Store { return NewMemoryStore(zerolog.Nop()) },
	})
}

// TestRedisStore runs the store suite against a live redis when
// DEX_ORACLE_REDIS_ADDR is set.
func TestRedisStore(t *testing.T) {
	addr := os.Getenv("DEX_ORACLE_REDIS_ADDR")
	if testing.Short() || addr == "" {
		t.Skip("skipping redis store tests; set DEX_ORACLE_REDIS_ADDR to run")
	}

	suite.Run(t, &StoreTestSuite{
		newStore: func() Store {
			// a fresh prefix per test keeps runs isolated
			store, err := NewRedisStore(context.Background(), zerolog.Nop(), RedisConfig{
				Address:   addr,
				KeyPrefix: fmt.Sprintf("dex-oracle-test:%s:", uuid.NewString()),
			})
			require.NoError(t, err)
			return store
		},
	})
}

func (sts *StoreTestSuite) entry(pair types.PairKey, price string, at time.Time) types.ExternalFeedEntry {
	return types.ExternalFeedEntry{
		Pair:        pair,
		Price:       math.LegacyMustNewDecFromStr(price),
		Feeder:      testFeeder,
		SubmittedAt: at,
		Valid:       true,
	}
}

func (sts *StoreTestSuite) TestGetMissing() {
	_, ok, err := sts.store.Get(context.Background(), sts.pairXY)
	sts.Require().NoError(err)
	sts.Require().False(ok)
}

func (sts *StoreTestSuite) TestUpsertAndGet() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	stored, err := sts.store.Upsert(ctx, sts.entry(sts.pairXY, "1.05", now))
	sts.Require().NoError(err)
	sts.Require().True(stored.Valid)
	sts.Require().Equal("1.050000000000000000", stored.Price.String())

	got, ok, err := sts.store.Get(ctx, sts.pairXY)
	sts.Require().NoError(err)
	sts.Require().True(ok)
	sts.Require().Equal(testFeeder, got.Feeder)
	sts.Require().True(now.Equal(got.SubmittedAt))
	sts.Require().True(got.Price.Equal(math.LegacyMustNewDecFromStr("1.05")))
}

func (sts *StoreTestSuite) TestNewerSubmissionWins() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	_, err := sts.store.Upsert(ctx, sts.entry(sts.pairXY, "2", now))
	sts.Require().NoError(err)

	stored, err := sts.store.Upsert(ctx, sts.entry(sts.pairXY, "1", now.Add(-time.Second)))
	sts.Require().NoError(err)
	sts.Require().Equal("2.000000000000000000", stored.Price.String())

	stored, err = sts.store.Upsert(ctx, sts.entry(sts.pairXY, "3", now.Add(time.Second)))
	sts.Require().NoError(err)
	sts.Require().Equal("3.000000000000000000", stored.Price.String())
}

func (sts *StoreTestSuite) TestUpsertRevalidates() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	_, err := sts.store.Upsert(ctx, sts.entry(sts.pairXY, "2", now))
	sts.Require().NoError(err)
	_, err = sts.store.Invalidate(ctx, sts.pairXY)
	sts.Require().NoError(err)

	stored, err := sts.store.Upsert(ctx, sts.entry(sts.pairXY, "2.5", now.Add(time.Second)))
	sts.Require().NoError(err)
	sts.Require().True(stored.Valid)
}

func (sts *StoreTestSuite) TestInvalidateIsIdempotent() {
	ctx := context.Background()

	existed, err := sts.store.Invalidate(ctx, sts.pairXY)
	sts.Require().NoError(err)
	sts.Require().False(existed)

	_, err = sts.store.Upsert(ctx, sts.entry(sts.pairXY, "1.05", time.Now().UTC()))
	sts.Require().NoError(err)

	for i := 0; i < 2; i++ {
		existed, err = sts.store.Invalidate(ctx, sts.pairXY)
		sts.Require().NoError(err)
		sts.Require().True(existed)
	}

	got, ok, err := sts.store.Get(ctx, sts.pairXY)
	sts.Require().NoError(err)
	sts.Require().True(ok)
	sts.Require().False(got.Valid)
}

func (sts *StoreTestSuite) TestList() {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Microsecond)

	_, err := sts.store.Upsert(ctx, sts.entry(sts.pairYZ, "4", now))
	sts.Require().NoError(err)
	_, err = sts.store.Upsert(ctx, sts.entry(sts.pairXY, "1", now))
	sts.Require().NoError(err)

	entries, err := sts.store.List(ctx)
	sts.Require().NoError(err)
	sts.Require().Len(entries, 2)
	sts.Require().Equal(sts.pairXY, entries[0].Pair)
	sts.Require().Equal(sts.pairYZ, entries[1].Pair)
}

func (sts *StoreTestSuite) TestConcurrentFeeders() {
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Microsecond)

	const feeders = 16
	var wg sync.WaitGroup
	for i := 0; i < feeders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			at := base.Add(time.Duration(i) * time.Millisecond)
			_, err := sts.store.Upsert(ctx, sts.entry(sts.pairXY, fmt.Sprintf("%d", i+1), at))
			sts.Assert().NoError(err)

			_, _, err = sts.store.Get(ctx, sts.pairXY)
			sts.Assert().NoError(err)
		}(i)
	}
	wg.Wait()

	got, ok, err := sts.store.Get(ctx, sts.pairXY)
	sts.Require().NoError(err)
	sts.Require().True(ok)
	sts.Require().Equal(fmt.Sprintf("%d.000000000000000000", feeders), got.Price.String())
}
