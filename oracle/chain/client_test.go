package chain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/selendra/dex-sub001/oracle/types"
)

var (
	testPoolManager = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	testStateView   = common.HexToAddress("0x00000000000000000000000000000000000000a2")
	testOracleHook  = common.HexToAddress("0x00000000000000000000000000000000000000a3")

	testTokenA = common.HexToAddress("0x1000000000000000000000000000000000000001")
	testTokenB = common.HexToAddress("0x2000000000000000000000000000000000000002")
)

// fakeCaller answers eth_call by decoding the selector against the known
// ABIs and packing canned outputs.
type fakeCaller struct {
	mtx     sync.Mutex
	outputs map[string][]interface{}
	errs    map[string][]error
	calls   map[string]int
	blocks  []*big.Int
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{
		outputs: make(map[string][]interface{}),
		errs:    make(map[string][]error),
		calls:   make(map[string]int),
	}
}

func (f *fakeCaller) CodeAt(context.Context, common.Address, *big.Int) ([]byte, error) {
	return []byte{0x1}, nil
}

func (f *fakeCaller) CallContract(_ context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	f.mtx.Lock()
	defer f.mtx.Unlock()

	var contract abi.ABI
	switch *msg.To {
	case testPoolManager:
		contract = poolManagerABI
	case testStateView:
		contract = stateViewABI
	case testOracleHook:
		contract = oracleHookABI
	default:
		return nil, fmt.Errorf("unknown contract %s", msg.To.Hex())
	}

	method, err := contract.MethodById(msg.Data[:4])
	if err != nil {
		return nil, err
	}
	f.calls[method.Name]++
	f.blocks = append(f.blocks, block)

	if queued := f.errs[method.Name]; len(queued) > 0 {
		f.errs[method.Name] = queued[1:]
		if queued[0] != nil {
			return nil, queued[0]
		}
	}

	out, ok := f.outputs[method.Name]
	if !ok {
		return nil, fmt.Errorf("no output for %s", method.Name)
	}
	return method.Outputs.Pack(out...)
}

func (f *fakeCaller) BlockNumber(context.Context) (uint64, error) {
	return 42, nil
}

func (f *fakeCaller) callCount(method string) int {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.calls[method]
}

type ClientTestSuite struct {
	suite.Suite

	caller *fakeCaller
	client *EthClient
	pair   types.PairKey
}

func (cts *ClientTestSuite) SetupTest() {
	cts.caller = newFakeCaller()
	cts.client = NewEthClient(zerolog.Nop(), Config{
		Contracts: Contracts{
			PoolManager: testPoolManager,
			StateView:   testStateView,
			OracleHook:  testOracleHook,
		},
		CallTimeout: time.Second,
		Retry: RetryConfig{
			MaxRetries:      2,
			InitialInterval: time.Millisecond,
			MaxInterval:     time.Millisecond,
		},
	}, cts.caller, nil)

	pair, err := types.NewPairKey(testTokenA, testTokenB, 3000, 60, common.Address{})
	cts.Require().NoError(err)
	cts.pair = pair
}

// TestClientTestSuite runs the chain client test suite.
func TestClientTestSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

func (cts *ClientTestSuite) TestSlot0() {
	sqrtPrice, _ := new(big.Int).SetString("79228162514264337593543950336", 10)
	cts.caller.outputs["getSlot0"] = []interface{}{sqrtPrice, big.NewInt(-120), big.NewInt(500), big.NewInt(3000)}

	slot0, err := cts.client.Slot0(context.Background(), cts.pair, 100)
	cts.Require().NoError(err)
	cts.Require().Equal(0, sqrtPrice.Cmp(slot0.SqrtPriceX96))
	cts.Require().Equal(int32(-120), slot0.Tick)
	cts.Require().Equal(uint32(500), slot0.ProtocolFee)
	cts.Require().Equal(uint32(3000), slot0.LPFee)
	cts.Require().Equal(int64(100), cts.caller.blocks[0].Int64())
}

func (cts *ClientTestSuite) TestObservationCount() {
	cts.caller.outputs["getObservationCount"] = []interface{}{big.NewInt(7)}

	count, err := cts.client.ObservationCount(context.Background(), cts.pair)
	cts.Require().NoError(err)
	cts.Require().Equal(uint64(7), count)
}

func (cts *ClientTestSuite) TestTickCumulatives() {
	cts.caller.outputs["getTickCumulatives"] = []interface{}{[]*big.Int{big.NewInt(-3600), big.NewInt(0)}}

	cumulatives, err := cts.client.TickCumulatives(context.Background(), cts.pair, []uint32{1800, 0})
	cts.Require().NoError(err)
	cts.Require().Len(cumulatives, 2)
	cts.Require().Equal(int64(-3600), cumulatives[0].Int64())

	_, err = cts.client.TickCumulatives(context.Background(), cts.pair, []uint32{1800, 900, 0})
	cts.Require().ErrorIs(err, types.ErrChainCallFailed)
}

func (cts *ClientTestSuite) TestFeeReads() {
	owner := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	controller := common.HexToAddress("0x00000000000000000000000000000000000000b2")
	cts.caller.outputs["owner"] = []interface{}{owner}
	cts.caller.outputs["protocolFeeController"] = []interface{}{controller}
	cts.caller.outputs["protocolFeesAccrued"] = []interface{}{big.NewInt(1_000_000)}

	got, err := cts.client.Owner(context.Background())
	cts.Require().NoError(err)
	cts.Require().Equal(owner, got)

	got, err = cts.client.ProtocolFeeController(context.Background())
	cts.Require().NoError(err)
	cts.Require().Equal(controller, got)

	accrued, err := cts.client.ProtocolFeesAccrued(context.Background(), testTokenA)
	cts.Require().NoError(err)
	cts.Require().Equal(int64(1_000_000), accrued.Int64())
}

func (cts *ClientTestSuite) TestTransientReadIsRetried() {
	cts.caller.outputs["owner"] = []interface{}{testTokenA}
	cts.caller.errs["owner"] = []error{io.EOF, rpc.HTTPError{StatusCode: http.StatusBadGateway}}

	got, err := cts.client.Owner(context.Background())
	cts.Require().NoError(err)
	cts.Require().Equal(testTokenA, got)
	cts.Require().Equal(3, cts.caller.callCount("owner"))
}

func (cts *ClientTestSuite) TestRevertIsNotRetried() {
	cts.caller.errs["owner"] = []error{errors.New("execution reverted: NotOwner")}

	_, err := cts.client.Owner(context.Background())
	cts.Require().ErrorIs(err, types.ErrChainCallFailed)
	cts.Require().Contains(err.Error(), "execution reverted: NotOwner")
	cts.Require().Equal(1, cts.caller.callCount("owner"))
}

func (cts *ClientTestSuite) TestRetriesExhausted() {
	cts.caller.outputs["owner"] = []interface{}{testTokenA}
	cts.caller.errs["owner"] = []error{io.EOF, io.EOF, io.EOF, io.EOF}

	_, err := cts.client.Owner(context.Background())
	cts.Require().ErrorIs(err, types.ErrChainCallFailed)
	cts.Require().Equal(3, cts.caller.callCount("owner"))
}

func (cts *ClientTestSuite) TestReadOnlyClientRejectsWrites() {
	signer, err := NewSigner("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	cts.Require().NoError(err)

	_, err = cts.client.Observe(context.Background(), signer, cts.pair)
	cts.Require().ErrorIs(err, types.ErrChainCallFailed)

	_, err = cts.client.SetProtocolFeeController(context.Background(), signer, testTokenA)
	cts.Require().ErrorIs(err, types.ErrChainCallFailed)
}

func TestIsTransient(t *testing.T) {
	testCases := map[string]struct {
		err      error
		expected bool
	}{
		"nil":               {nil, false},
		"deadline":          {context.DeadlineExceeded, true},
		"eof":               {fmt.Errorf("read: %w", io.EOF), true},
		"http 429":          {rpc.HTTPError{StatusCode: http.StatusTooManyRequests}, true},
		"http 503":          {rpc.HTTPError{StatusCode: http.StatusServiceUnavailable}, true},
		"http 400":          {rpc.HTTPError{StatusCode: http.StatusBadRequest}, false},
		"plain revert text": {errors.New("execution reverted"), false},
		"canceled":          {context.Canceled, false},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.expected, IsTransient(tc.err))
		})
	}
}

func TestSigner(t *testing.T) {
	key, err := crypto.HexToECDSA("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	require.NoError(t, err)

	signer, err := NewSigner("0xb71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	require.NoError(t, err)
	require.Equal(t, crypto.PubkeyToAddress(key.PublicKey), signer.Address())
	require.Equal(t, signer.Address().Hex(), signer.String())

	_, err = NewSigner("")
	require.ErrorIs(t, err, types.ErrMissingParameter)

	_, err = NewSigner("zz")
	require.ErrorIs(t, err, types.ErrInvalidParameter)

	opts, err := signer.TransactOpts(context.Background(), big.NewInt(1))
	require.NoError(t, err)
	require.Equal(t, signer.Address(), opts.From)
}

func TestResolveAddress(t *testing.T) {
	addr, signer, err := ResolveAddress("0x00000000000000000000000000000000000000b1")
	require.NoError(t, err)
	require.Nil(t, signer)
	require.Equal(t, common.HexToAddress("0xb1"), addr)

	addr, signer, err = ResolveAddress("b71c71a67e1177ad4e901695e1b4b9ee17ae16c6668d313eac2f96dbcda3f291")
	require.NoError(t, err)
	require.NotNil(t, signer)
	require.Equal(t, signer.Address(), addr)

	_, _, err = ResolveAddress(" ")
	require.ErrorIs(t, err, types.ErrMissingParameter)
}

func TestIsWindowNotCovered(t *testing.T) {
	testCases := map[string]struct {
		err      error
		expected bool
	}{
		"nil":            {nil, false},
		"OLD revert":     {wrapCallErr("getTickCumulatives", errors.New("execution reverted: OLD")), true},
		"custom error":   {wrapCallErr("getTickCumulatives", errors.New("execution reverted: TargetPredatesOldestObservation(1, 2)")), true},
		"other revert":   {wrapCallErr("getTickCumulatives", errors.New("execution reverted: I")), false},
		"network error":  {wrapCallErr("getTickCumulatives", errors.New("connection refused")), false},
		"word elsewhere": {errors.New("GOLD token missing"), false},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tc.expected, IsWindowNotCovered(tc.err))
		})
	}
}
