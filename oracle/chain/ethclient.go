package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"

	oracletypes "github.com/selendra/dex-sub001/oracle/types"
)

var (
	_ Client = (*EthClient)(nil)

	errReadOnly = errors.New("client has no transaction backend")
)

type (
	// ReadBackend is the subset of an Ethereum node used for reads.
	ReadBackend interface {
		bind.ContractCaller
		BlockNumber(ctx context.Context) (uint64, error)
	}

	// TxBackend is the subset of an Ethereum node used to send and await
	// transactions.
	TxBackend interface {
		bind.ContractTransactor
		bind.DeployBackend
		ChainID(ctx context.Context) (*big.Int, error)
	}

	// EthClient implements Client over go-ethereum bound contracts.
	EthClient struct {
		logger zerolog.Logger
		cfg    Config

		reader ReadBackend
		writer TxBackend

		poolManager *bind.BoundContract
		stateView   *bind.BoundContract
		oracleHook  *bind.BoundContract

		chainIDMtx sync.Mutex
		chainID    *big.Int

		// writes from one signer must be sent in nonce order
		sendersMtx sync.Mutex
		senders    map[common.Address]*sync.Mutex
	}
)

// Dial connects to rpcEndpoint and returns a client able to read and write.
func Dial(ctx context.Context, logger zerolog.Logger, rpcEndpoint string, cfg Config) (*EthClient, error) {
	rpcClient, err := ethclient.DialContext(ctx, rpcEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", rpcEndpoint, err)
	}
	return NewEthClient(logger, cfg, rpcClient, rpcClient), nil
}

// NewEthClient builds a client from explicit backends. writer may be nil for
// a read-only client.
func NewEthClient(logger zerolog.Logger, cfg Config, reader ReadBackend, writer TxBackend) *EthClient {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 10 * time.Second
	}
	if cfg.TxTimeout <= 0 {
		cfg.TxTimeout = 2 * time.Minute
	}
	if cfg.Retry == (RetryConfig{}) {
		cfg.Retry = DefaultRetryConfig()
	}

	var transactor bind.ContractTransactor
	if writer != nil {
		transactor = writer
	}

	return &EthClient{
		logger:      logger.With().Str("module", "chain").Logger(),
		cfg:         cfg,
		reader:      reader,
		writer:      writer,
		poolManager: bind.NewBoundContract(cfg.Contracts.PoolManager, poolManagerABI, reader, transactor, nil),
		stateView:   bind.NewBoundContract(cfg.Contracts.StateView, stateViewABI, reader, transactor, nil),
		oracleHook:  bind.NewBoundContract(cfg.Contracts.OracleHook, oracleHookABI, reader, transactor, nil),
		senders:     make(map[common.Address]*sync.Mutex),
	}
}

// call performs a read with retries and returns the unpacked outputs.
func (c *EthClient) call(
	ctx context.Context,
	contract *bind.BoundContract,
	block *big.Int,
	method string,
	params ...interface{},
) ([]interface{}, error) {
	start := time.Now()
	var out []interface{}

	err := withRetry(ctx, c.cfg.Retry, c.cfg.CallTimeout,
		func(err error, next time.Duration) {
			telemetryChainRetry(method)
			c.logger.Warn().Err(err).Str("method", method).Dur("retry_in", next).Msg("transient chain read failure")
		},
		func(ctx context.Context) error {
			out = nil
			return contract.Call(&bind.CallOpts{Context: ctx, BlockNumber: block}, &out, method, params...)
		},
	)
	telemetryChainCall(method, start, err)
	if err != nil {
		return nil, wrapCallErr(method, err)
	}
	if len(out) == 0 {
		return nil, wrapCallErr(method, fmt.Errorf("empty response"))
	}
	return out, nil
}

// BlockNumber implements PoolReader.
func (c *EthClient) BlockNumber(ctx context.Context) (uint64, error) {
	start := time.Now()
	var block uint64
	err := withRetry(ctx, c.cfg.Retry, c.cfg.CallTimeout, nil, func(ctx context.Context) (err error) {
		block, err = c.reader.BlockNumber(ctx)
		return err
	})
	telemetryChainCall("blockNumber", start, err)
	return block, wrapCallErr("blockNumber", err)
}

// Slot0 implements PoolReader.
func (c *EthClient) Slot0(ctx context.Context, pair oracletypes.PairKey, block uint64) (Slot0, error) {
	var blockNum *big.Int
	if block > 0 {
		blockNum = new(big.Int).SetUint64(block)
	}

	out, err := c.call(ctx, c.stateView, blockNum, "getSlot0", pair.PoolID())
	if err != nil {
		return Slot0{}, err
	}
	if len(out) < 4 {
		return Slot0{}, wrapCallErr("getSlot0", fmt.Errorf("expected 4 outputs, got %d", len(out)))
	}

	return Slot0{
		SqrtPriceX96: toBig(out[0]),
		Tick:         int32(toBig(out[1]).Int64()),
		ProtocolFee:  uint32(toBig(out[2]).Uint64()),
		LPFee:        uint32(toBig(out[3]).Uint64()),
	}, nil
}

// ObservationCount implements PoolReader.
func (c *EthClient) ObservationCount(ctx context.Context, pair oracletypes.PairKey) (uint64, error) {
	out, err := c.call(ctx, c.oracleHook, nil, "getObservationCount", pair.PoolKey())
	if err != nil {
		return 0, err
	}
	return toBig(out[0]).Uint64(), nil
}

// TickCumulatives implements PoolReader.
func (c *EthClient) TickCumulatives(
	ctx context.Context,
	pair oracletypes.PairKey,
	secondsAgos []uint32,
) ([]*big.Int, error) {
	out, err := c.call(ctx, c.oracleHook, nil, "getTickCumulatives", pair.PoolKey(), secondsAgos)
	if err != nil {
		return nil, err
	}
	cumulatives := *abi.ConvertType(out[0], new([]*big.Int)).(*[]*big.Int)
	if len(cumulatives) != len(secondsAgos) {
		return nil, wrapCallErr("getTickCumulatives",
			fmt.Errorf("expected %d cumulatives, got %d", len(secondsAgos), len(cumulatives)))
	}
	return cumulatives, nil
}

// Owner implements FeeReader.
func (c *EthClient) Owner(ctx context.Context) (common.Address, error) {
	out, err := c.call(ctx, c.poolManager, nil, "owner")
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// ProtocolFeeController implements FeeReader.
func (c *EthClient) ProtocolFeeController(ctx context.Context) (common.Address, error) {
	out, err := c.call(ctx, c.poolManager, nil, "protocolFeeController")
	if err != nil {
		return common.Address{}, err
	}
	return *abi.ConvertType(out[0], new(common.Address)).(*common.Address), nil
}

// ProtocolFeesAccrued implements FeeReader.
func (c *EthClient) ProtocolFeesAccrued(ctx context.Context, token common.Address) (*big.Int, error) {
	out, err := c.call(ctx, c.poolManager, nil, "protocolFeesAccrued", token)
	if err != nil {
		return nil, err
	}
	return toBig(out[0]), nil
}

// Observe implements ObservationWriter.
func (c *EthClient) Observe(ctx context.Context, signer *Signer, pair oracletypes.PairKey) (oracletypes.TxResult, error) {
	return c.transact(ctx, signer, c.oracleHook, "observe", pair.PoolKey())
}

// SetProtocolFeeController implements FeeWriter.
func (c *EthClient) SetProtocolFeeController(
	ctx context.Context,
	signer *Signer,
	controller common.Address,
) (oracletypes.TxResult, error) {
	return c.transact(ctx, signer, c.poolManager, "setProtocolFeeController", controller)
}

// SetProtocolFee implements FeeWriter.
func (c *EthClient) SetProtocolFee(
	ctx context.Context,
	signer *Signer,
	pair oracletypes.PairKey,
	protocolFee uint32,
) (oracletypes.TxResult, error) {
	return c.transact(ctx, signer, c.poolManager, "setProtocolFee", pair.PoolKey(), new(big.Int).SetUint64(uint64(protocolFee)))
}

// CollectProtocolFees implements FeeWriter.
func (c *EthClient) CollectProtocolFees(
	ctx context.Context,
	signer *Signer,
	recipient, token common.Address,
	amount *big.Int,
) (oracletypes.TxResult, error) {
	return c.transact(ctx, signer, c.poolManager, "collectProtocolFees", recipient, token, amount)
}

// transact sends a transaction and blocks until it is mined. Transactions
// are never retried: a failed send surfaces to the caller as is.
func (c *EthClient) transact(
	ctx context.Context,
	signer *Signer,
	contract *bind.BoundContract,
	method string,
	params ...interface{},
) (oracletypes.TxResult, error) {
	if c.writer == nil {
		return oracletypes.TxResult{}, wrapCallErr(method, errReadOnly)
	}
	if signer == nil {
		return oracletypes.TxResult{}, oracletypes.ErrMissingParameter.Wrap("signingKey")
	}

	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.cfg.TxTimeout)
	defer cancel()

	chainID, err := c.getChainID(ctx)
	if err != nil {
		return oracletypes.TxResult{}, wrapCallErr(method, err)
	}
	opts, err := signer.TransactOpts(ctx, chainID)
	if err != nil {
		return oracletypes.TxResult{}, wrapCallErr(method, err)
	}

	mtx := c.senderLock(signer.Address())
	mtx.Lock()
	tx, err := contract.Transact(opts, method, params...)
	mtx.Unlock()
	if err != nil {
		telemetryChainCall(method, start, err)
		return oracletypes.TxResult{}, wrapCallErr(method, err)
	}

	c.logger.Info().
		Str("method", method).
		Str("tx_hash", tx.Hash().Hex()).
		Str("sender", signer.Address().Hex()).
		Msg("transaction sent")

	receipt, err := bind.WaitMined(ctx, c.writer, tx)
	if err != nil {
		telemetryChainCall(method, start, err)
		return oracletypes.TxResult{}, wrapCallErr(method, fmt.Errorf("waiting for %s: %w", tx.Hash().Hex(), err))
	}
	err = checkReceipt(method, receipt)
	telemetryChainCall(method, start, err)
	if err != nil {
		return oracletypes.TxResult{}, err
	}

	return txResult(receipt), nil
}

func (c *EthClient) getChainID(ctx context.Context) (*big.Int, error) {
	c.chainIDMtx.Lock()
	defer c.chainIDMtx.Unlock()

	if c.chainID != nil {
		return c.chainID, nil
	}
	chainID, err := c.writer.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	c.chainID = chainID
	return chainID, nil
}

func (c *EthClient) senderLock(addr common.Address) *sync.Mutex {
	c.sendersMtx.Lock()
	defer c.sendersMtx.Unlock()

	mtx, ok := c.senders[addr]
	if !ok {
		mtx = &sync.Mutex{}
		c.senders[addr] = mtx
	}
	return mtx
}

func toBig(v interface{}) *big.Int {
	return abi.ConvertType(v, new(big.Int)).(*big.Int)
}
