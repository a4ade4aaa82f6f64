package chain

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	oracletypes "github.com/selendra/dex-sub001/oracle/types"
)

var _ Client = (*MockClient)(nil)

// MockClient is an in-memory Client that mimics the pool manager and oracle
// hook closely enough for tests and local development. Writes enforce the
// same owner and controller checks the contracts do.
type MockClient struct {
	mtx sync.Mutex

	block        uint64
	owner        common.Address
	controller   common.Address
	slot0s       map[oracletypes.PairKey]Slot0
	observations map[oracletypes.PairKey]uint64
	cumulatives  map[oracletypes.PairKey][]*big.Int
	accrued      map[common.Address]*big.Int
	failures     map[string]error

	// Sent records every transaction in the order it was mined.
	Sent []MockTx
}

// MockTx is a transaction recorded by MockClient.
type MockTx struct {
	Method string
	From   common.Address
	Args   []interface{}
}

// NewMockClient returns a MockClient at block 1 whose pool manager is owned
// by owner.
func NewMockClient(owner common.Address) *MockClient {
	return &MockClient{
		block:        1,
		owner:        owner,
		slot0s:       make(map[oracletypes.PairKey]Slot0),
		observations: make(map[oracletypes.PairKey]uint64),
		cumulatives:  make(map[oracletypes.PairKey][]*big.Int),
		accrued:      make(map[common.Address]*big.Int),
		failures:     make(map[string]error),
	}
}

// SetSlot0 sets the pool state of pair.
func (m *MockClient) SetSlot0(pair oracletypes.PairKey, slot0 Slot0) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.slot0s[pair] = slot0
}

// SetObservations sets the observation count and the tick cumulatives
// returned for pair.
func (m *MockClient) SetObservations(pair oracletypes.PairKey, count uint64, cumulatives ...*big.Int) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.observations[pair] = count
	m.cumulatives[pair] = cumulatives
}

// SetController sets the protocol fee controller.
func (m *MockClient) SetController(controller common.Address) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.controller = controller
}

// SetAccrued sets the protocol fees accrued in token.
func (m *MockClient) SetAccrued(token common.Address, amount *big.Int) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	m.accrued[token] = new(big.Int).Set(amount)
}

// FailWith makes every call to method fail with err until cleared with a
// nil err.
func (m *MockClient) FailWith(method string, err error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err == nil {
		delete(m.failures, method)
		return
	}
	m.failures[method] = err
}

// SentTxs returns a copy of the recorded transactions.
func (m *MockClient) SentTxs() []MockTx {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	return append([]MockTx(nil), m.Sent...)
}

func (m *MockClient) fail(method string) error {
	if err, ok := m.failures[method]; ok {
		return wrapCallErr(method, err)
	}
	return nil
}

// mine records a transaction and advances the block. Must be called with
// the lock held.
func (m *MockClient) mine(method string, signer *Signer, args ...interface{}) oracletypes.TxResult {
	m.block++
	m.Sent = append(m.Sent, MockTx{Method: method, From: signer.Address(), Args: args})

	return oracletypes.TxResult{
		TxHash:      crypto.Keccak256Hash([]byte(fmt.Sprintf("%s:%d:%d", method, m.block, len(m.Sent)))),
		BlockNumber: m.block,
		GasUsed:     21000,
	}
}

// BlockNumber implements PoolReader.
func (m *MockClient) BlockNumber(context.Context) (uint64, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.fail("blockNumber"); err != nil {
		return 0, err
	}
	return m.block, nil
}

// Slot0 implements PoolReader. Unknown pools read as uninitialized.
func (m *MockClient) Slot0(_ context.Context, pair oracletypes.PairKey, _ uint64) (Slot0, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.fail("getSlot0"); err != nil {
		return Slot0{}, err
	}
	slot0, ok := m.slot0s[pair]
	if !ok {
		return Slot0{SqrtPriceX96: new(big.Int)}, nil
	}
	return slot0, nil
}

// ObservationCount implements PoolReader.
func (m *MockClient) ObservationCount(_ context.Context, pair oracletypes.PairKey) (uint64, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.fail("getObservationCount"); err != nil {
		return 0, err
	}
	return m.observations[pair], nil
}

// TickCumulatives implements PoolReader.
func (m *MockClient) TickCumulatives(_ context.Context, pair oracletypes.PairKey, secondsAgos []uint32) ([]*big.Int, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.fail("getTickCumulatives"); err != nil {
		return nil, err
	}
	cumulatives := m.cumulatives[pair]
	if len(cumulatives) != len(secondsAgos) {
		return nil, wrapCallErr("getTickCumulatives", fmt.Errorf("execution reverted: OLD"))
	}
	return cumulatives, nil
}

// Owner implements FeeReader.
func (m *MockClient) Owner(context.Context) (common.Address, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.fail("owner"); err != nil {
		return common.Address{}, err
	}
	return m.owner, nil
}

// ProtocolFeeController implements FeeReader.
func (m *MockClient) ProtocolFeeController(context.Context) (common.Address, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.fail("protocolFeeController"); err != nil {
		return common.Address{}, err
	}
	return m.controller, nil
}

// ProtocolFeesAccrued implements FeeReader.
func (m *MockClient) ProtocolFeesAccrued(_ context.Context, token common.Address) (*big.Int, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.fail("protocolFeesAccrued"); err != nil {
		return nil, err
	}
	if amount, ok := m.accrued[token]; ok {
		return new(big.Int).Set(amount), nil
	}
	return new(big.Int), nil
}

// Observe implements ObservationWriter.
func (m *MockClient) Observe(_ context.Context, signer *Signer, pair oracletypes.PairKey) (oracletypes.TxResult, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.fail("observe"); err != nil {
		return oracletypes.TxResult{}, err
	}
	m.observations[pair]++
	return m.mine("observe", signer, pair), nil
}

// SetProtocolFeeController implements FeeWriter.
func (m *MockClient) SetProtocolFeeController(
	_ context.Context,
	signer *Signer,
	controller common.Address,
) (oracletypes.TxResult, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.fail("setProtocolFeeController"); err != nil {
		return oracletypes.TxResult{}, err
	}
	if signer.Address() != m.owner {
		return oracletypes.TxResult{}, wrapCallErr("setProtocolFeeController", fmt.Errorf("execution reverted: UNAUTHORIZED"))
	}
	m.controller = controller
	return m.mine("setProtocolFeeController", signer, controller), nil
}

// SetProtocolFee implements FeeWriter.
func (m *MockClient) SetProtocolFee(
	_ context.Context,
	signer *Signer,
	pair oracletypes.PairKey,
	protocolFee uint32,
) (oracletypes.TxResult, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.fail("setProtocolFee"); err != nil {
		return oracletypes.TxResult{}, err
	}
	if signer.Address() != m.controller {
		return oracletypes.TxResult{}, wrapCallErr("setProtocolFee", fmt.Errorf("execution reverted: InvalidCaller()"))
	}
	slot0, ok := m.slot0s[pair]
	if !ok || slot0.SqrtPriceX96 == nil || slot0.SqrtPriceX96.Sign() == 0 {
		return oracletypes.TxResult{}, wrapCallErr("setProtocolFee", fmt.Errorf("execution reverted: PoolNotInitialized()"))
	}
	slot0.ProtocolFee = protocolFee
	m.slot0s[pair] = slot0
	return m.mine("setProtocolFee", signer, pair, protocolFee), nil
}

// CollectProtocolFees implements FeeWriter. A zero amount collects
// everything, as the pool manager does.
func (m *MockClient) CollectProtocolFees(
	_ context.Context,
	signer *Signer,
	recipient, token common.Address,
	amount *big.Int,
) (oracletypes.TxResult, error) {
	m.mtx.Lock()
	defer m.mtx.Unlock()
	if err := m.fail("collectProtocolFees"); err != nil {
		return oracletypes.TxResult{}, err
	}
	if signer.Address() != m.controller {
		return oracletypes.TxResult{}, wrapCallErr("collectProtocolFees", fmt.Errorf("execution reverted: InvalidCaller()"))
	}

	accrued, ok := m.accrued[token]
	if !ok {
		accrued = new(big.Int)
	}
	collected := new(big.Int).Set(amount)
	if collected.Sign() == 0 {
		collected.Set(accrued)
	}
	if collected.Cmp(accrued) > 0 {
		return oracletypes.TxResult{}, wrapCallErr("collectProtocolFees", fmt.Errorf("execution reverted: arithmetic underflow"))
	}
	m.accrued[token] = new(big.Int).Sub(accrued, collected)
	return m.mine("collectProtocolFees", signer, recipient, token, collected), nil
}
