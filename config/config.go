package config

import (
	"errors"
	"fmt"
	"time"

	"cosmossdk.io/math"
	"github.com/ethereum/go-ethereum/common"
	"github.com/go-playground/validator/v10"

	"github.com/selendra/dex-sub001/oracle/chain"
	"github.com/selendra/dex-sub001/oracle/feed"
	"github.com/selendra/dex-sub001/oracle/types"
	"github.com/selendra/dex-sub001/telemetry"
)

const (
	defaultListenAddr      = "0.0.0.0:7171"
	defaultSrvWriteTimeout = 2 * time.Minute
	defaultSrvReadTimeout  = 15 * time.Second
	defaultCallTimeout     = 10 * time.Second
	defaultTxTimeout       = 90 * time.Second
	defaultMaxPriceAge     = 5 * time.Minute
	defaultTWAPWindow      = 30 * time.Minute
	defaultTickSpacing     = 60
	defaultMonitorInterval = time.Minute
	defaultMaxDeviation    = "0.05"

	FeedStoreMemory = "memory"
	FeedStoreRedis  = "redis"

	SampleNodeConfigPath = "dex-oracle.example.toml"
)

var (
	validate = validator.New()

	// ErrEmptyConfigPath defines a sentinel error for an empty config path.
	ErrEmptyConfigPath = errors.New("empty configuration file path")

	// maxTWAPWindow is the largest window the oracle hook accepts as a
	// uint32 secondsAgo.
	maxTWAPWindow = time.Duration(^uint32(0)) * time.Second
)

type (
	// Config defines all necessary dex-oracle configuration parameters.
	Config struct {
		Server    Server           `mapstructure:"server"`
		RPC       RPC              `mapstructure:"rpc"`
		Contracts Contracts        `mapstructure:"contracts"`
		Oracle    Oracle           `mapstructure:"oracle"`
		FeedStore FeedStore        `mapstructure:"feed_store"`
		Telemetry telemetry.Config `mapstructure:"telemetry"`
		RateLimit RateLimit        `mapstructure:"rate_limit"`
		Monitor   Monitor          `mapstructure:"monitor"`
	}

	// Server defines the API server configuration.
	Server struct {
		ListenAddr     string        `mapstructure:"listen_addr"`
		WriteTimeout   time.Duration `mapstructure:"write_timeout"`
		ReadTimeout    time.Duration `mapstructure:"read_timeout"`
		VerboseCORS    bool          `mapstructure:"verbose_cors"`
		AllowedOrigins []string      `mapstructure:"allowed_origins"`
	}

	// RPC defines the Ethereum JSON-RPC connection and call policy.
	RPC struct {
		Endpoint         string        `mapstructure:"endpoint" validate:"required,url"`
		CallTimeout      time.Duration `mapstructure:"call_timeout"`
		TxTimeout        time.Duration `mapstructure:"tx_timeout"`
		MaxRetries       uint64        `mapstructure:"max_retries" validate:"lte=10"`
		RetryInterval    time.Duration `mapstructure:"retry_interval"`
		MaxRetryInterval time.Duration `mapstructure:"max_retry_interval"`
	}

	// Contracts defines the addresses of the pool manager, its state view
	// and the oracle hook.
	Contracts struct {
		PoolManager common.Address `mapstructure:"pool_manager"`
		StateView   common.Address `mapstructure:"state_view"`
		OracleHook  common.Address `mapstructure:"oracle_hook"`
	}

	// Oracle defines the price oracle policy.
	Oracle struct {
		DefaultFee         uint32           `mapstructure:"default_fee" validate:"lt=1000000"`
		DefaultTickSpacing int32            `mapstructure:"default_tick_spacing" validate:"gt=0,lte=32767"`
		DefaultHooks       common.Address   `mapstructure:"default_hooks"`
		MaxPriceAge        time.Duration    `mapstructure:"max_price_age"`
		TWAPWindow         time.Duration    `mapstructure:"twap_window"`
		Admin              common.Address   `mapstructure:"admin"`
		AdminIsFeeder      bool             `mapstructure:"admin_is_feeder"`
		AuthorizedFeeders  []common.Address `mapstructure:"authorized_feeders"`
		AccrualConcurrency int              `mapstructure:"accrual_concurrency" validate:"gte=0,lte=64"`
	}

	// FeedStore defines where external prices are kept.
	FeedStore struct {
		Backend string `mapstructure:"backend" validate:"oneof=memory redis"`
		Redis   Redis  `mapstructure:"redis"`
	}

	// Redis defines the redis feed store connection.
	Redis struct {
		Address   string `mapstructure:"address"`
		Password  string `mapstructure:"password"`
		DB        int    `mapstructure:"db" validate:"gte=0"`
		KeyPrefix string `mapstructure:"key_prefix"`
	}

	// RateLimit defines the per client limit applied to mutating endpoints.
	RateLimit struct {
		Enabled           bool    `mapstructure:"enabled"`
		RequestsPerSecond float64 `mapstructure:"requests_per_second" validate:"gte=0"`
		Burst             int     `mapstructure:"burst" validate:"gte=0"`
	}

	// Monitor defines the external versus pool price monitor.
	Monitor struct {
		Enabled      bool          `mapstructure:"enabled"`
		Interval     time.Duration `mapstructure:"interval"`
		MaxDeviation string        `mapstructure:"max_deviation"`
		Pairs        []MonitorPair `mapstructure:"pairs" validate:"dive"`
		SlackToken   string        `mapstructure:"slack_token"`
		SlackChannel string        `mapstructure:"slack_channel"`
	}

	// MonitorPair names a pool the monitor checks. Fee and tick spacing fall
	// back to the oracle defaults.
	MonitorPair struct {
		TokenA      common.Address `mapstructure:"token_a"`
		TokenB      common.Address `mapstructure:"token_b"`
		Fee         uint32         `mapstructure:"fee"`
		TickSpacing int32          `mapstructure:"tick_spacing"`
	}
)

// telemetryValidation is custom validation for the Telemetry struct.
func telemetryValidation(sl validator.StructLevel) {
	tel := sl.Current().Interface().(telemetry.Config)

	if tel.Enabled && len(tel.ServiceName) == 0 {
		sl.ReportError(tel.Enabled, "enabled", "Enabled", "enabledNoOptions", "")
	}
}

// contractsValidation requires every contract address to be set.
func contractsValidation(sl validator.StructLevel) {
	c := sl.Current().Interface().(Contracts)

	if c.PoolManager == (common.Address{}) {
		sl.ReportError(c.PoolManager, "pool_manager", "PoolManager", "nonzero", "")
	}
	if c.StateView == (common.Address{}) {
		sl.ReportError(c.StateView, "state_view", "StateView", "nonzero", "")
	}
	if c.OracleHook == (common.Address{}) {
		sl.ReportError(c.OracleHook, "oracle_hook", "OracleHook", "nonzero", "")
	}
}

// oracleValidation checks the freshness and TWAP windows and the admin.
func oracleValidation(sl validator.StructLevel) {
	o := sl.Current().Interface().(Oracle)

	if o.Admin == (common.Address{}) {
		sl.ReportError(o.Admin, "admin", "Admin", "nonzero", "")
	}
	if o.MaxPriceAge < time.Second {
		sl.ReportError(o.MaxPriceAge, "max_price_age", "MaxPriceAge", "min1s", "")
	}
	if o.TWAPWindow < time.Second || o.TWAPWindow > maxTWAPWindow {
		sl.ReportError(o.TWAPWindow, "twap_window", "TWAPWindow", "twapRange", "")
	}
	for _, f := range o.AuthorizedFeeders {
		if f == (common.Address{}) {
			sl.ReportError(o.AuthorizedFeeders, "authorized_feeders", "AuthorizedFeeders", "nonzero", "")
			break
		}
	}
}

// feedStoreValidation requires a redis address for the redis backend.
func feedStoreValidation(sl validator.StructLevel) {
	fs := sl.Current().Interface().(FeedStore)

	if fs.Backend == FeedStoreRedis && fs.Redis.Address == "" {
		sl.ReportError(fs.Redis.Address, "address", "Address", "redisAddressRequired", "")
	}
}

// monitorPairValidation requires two distinct, non-zero tokens.
func monitorPairValidation(sl validator.StructLevel) {
	mp := sl.Current().Interface().(MonitorPair)

	if mp.TokenA == (common.Address{}) || mp.TokenB == (common.Address{}) || mp.TokenA == mp.TokenB {
		sl.ReportError(mp, "pair", "MonitorPair", "invalidPair", "")
	}
}

func init() {
	validate.RegisterStructValidation(telemetryValidation, telemetry.Config{})
	validate.RegisterStructValidation(contractsValidation, Contracts{})
	validate.RegisterStructValidation(oracleValidation, Oracle{})
	validate.RegisterStructValidation(feedStoreValidation, FeedStore{})
	validate.RegisterStructValidation(monitorPairValidation, MonitorPair{})
}

// Validate returns an error if the Config object is invalid.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}

	if c.Monitor.Enabled {
		if _, err := types.NewPriceFromStr(c.Monitor.MaxDeviation); err != nil {
			return fmt.Errorf("monitor max_deviation must be a positive decimal: %w", err)
		}
	}

	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate_limit requires positive requests_per_second and burst when enabled")
	}

	return nil
}

func (c *Config) setDefaults() {
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = defaultListenAddr
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = defaultSrvWriteTimeout
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = defaultSrvReadTimeout
	}

	retry := chain.DefaultRetryConfig()
	if c.RPC.CallTimeout == 0 {
		c.RPC.CallTimeout = defaultCallTimeout
	}
	if c.RPC.TxTimeout == 0 {
		c.RPC.TxTimeout = defaultTxTimeout
	}
	if c.RPC.RetryInterval == 0 {
		c.RPC.RetryInterval = retry.InitialInterval
	}
	if c.RPC.MaxRetryInterval == 0 {
		c.RPC.MaxRetryInterval = retry.MaxInterval
	}

	if c.Oracle.DefaultFee == 0 {
		c.Oracle.DefaultFee = types.DefaultPoolFee
	}
	if c.Oracle.DefaultTickSpacing == 0 {
		c.Oracle.DefaultTickSpacing = defaultTickSpacing
	}
	if c.Oracle.MaxPriceAge == 0 {
		c.Oracle.MaxPriceAge = defaultMaxPriceAge
	}
	if c.Oracle.TWAPWindow == 0 {
		c.Oracle.TWAPWindow = defaultTWAPWindow
	}

	if c.FeedStore.Backend == "" {
		c.FeedStore.Backend = FeedStoreMemory
	}

	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = "dex-oracle"
	}

	if c.Monitor.Interval == 0 {
		c.Monitor.Interval = defaultMonitorInterval
	}
	if c.Monitor.MaxDeviation == "" {
		c.Monitor.MaxDeviation = defaultMaxDeviation
	}
}

// OracleConfig returns the immutable oracle settings.
func (c Config) OracleConfig() types.OracleConfig {
	return types.NewOracleConfig(
		c.Oracle.DefaultFee,
		c.Oracle.DefaultTickSpacing,
		c.Oracle.DefaultHooks,
		c.Oracle.MaxPriceAge,
		c.Oracle.TWAPWindow,
		c.Oracle.Admin,
		c.Oracle.AdminIsFeeder,
		c.Oracle.AuthorizedFeeders...,
	)
}

// ChainConfig returns the chain client settings.
func (c Config) ChainConfig() chain.Config {
	return chain.Config{
		Contracts: chain.Contracts{
			PoolManager: c.Contracts.PoolManager,
			StateView:   c.Contracts.StateView,
			OracleHook:  c.Contracts.OracleHook,
		},
		CallTimeout: c.RPC.CallTimeout,
		TxTimeout:   c.RPC.TxTimeout,
		Retry: chain.RetryConfig{
			MaxRetries:      c.RPC.MaxRetries,
			InitialInterval: c.RPC.RetryInterval,
			MaxInterval:     c.RPC.MaxRetryInterval,
		},
	}
}

// RedisConfig returns the redis feed store settings.
func (c Config) RedisConfig() feed.RedisConfig {
	return feed.RedisConfig{
		Address:   c.FeedStore.Redis.Address,
		Password:  c.FeedStore.Redis.Password,
		DB:        c.FeedStore.Redis.DB,
		KeyPrefix: c.FeedStore.Redis.KeyPrefix,
	}
}

// MonitorMaxDeviation returns the relative deviation above which the monitor
// reports an external price as deviated.
func (c Config) MonitorMaxDeviation() math.LegacyDec {
	dec, err := types.NewPriceFromStr(c.Monitor.MaxDeviation)
	if err != nil {
		return math.LegacyMustNewDecFromStr(defaultMaxDeviation)
	}
	return dec
}

// MonitorPairs returns the canonical pairs the monitor checks.
func (c Config) MonitorPairs() ([]types.PairKey, error) {
	pairs := make([]types.PairKey, 0, len(c.Monitor.Pairs))
	for _, mp := range c.Monitor.Pairs {
		fee := mp.Fee
		if fee == 0 {
			fee = c.Oracle.DefaultFee
		}
		tickSpacing := mp.TickSpacing
		if tickSpacing == 0 {
			tickSpacing = c.Oracle.DefaultTickSpacing
		}

		pair, err := types.NewPairKey(mp.TokenA, mp.TokenB, fee, tickSpacing, c.Oracle.DefaultHooks)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, pair)
	}
	return pairs, nil
}
