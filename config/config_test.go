package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"

	"github.com/selendra/dex-sub001/config"
)

const validConfig = `
[rpc]
endpoint = "http://localhost:8545"

[contracts]
pool_manager = "0x00000000000000000000000000000000000000a1"
state_view = "0x00000000000000000000000000000000000000a2"
oracle_hook = "0x00000000000000000000000000000000000000a3"

[oracle]
admin = "0x00000000000000000000000000000000000000b1"
authorized_feeders = [
  "0x00000000000000000000000000000000000000f2",
  "0x00000000000000000000000000000000000000f1",
  "0x00000000000000000000000000000000000000f1",
]
max_price_age = "90s"

[[monitor.pairs]]
token_a = "0x2000000000000000000000000000000000000002"
token_b = "0x1000000000000000000000000000000000000001"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestParseConfig_Valid(t *testing.T) {
	cfg, err := config.ParseConfig(writeConfig(t, validConfig))
	require.NoError(t, err)

	require.Equal(t, "0.0.0.0:7171", cfg.Server.ListenAddr)
	require.Equal(t, 10*time.Second, cfg.RPC.CallTimeout)
	require.Equal(t, common.HexToAddress("0xa1"), cfg.Contracts.PoolManager)
	require.Equal(t, config.FeedStoreMemory, cfg.FeedStore.Backend)

	oracleCfg := cfg.OracleConfig()
	require.Equal(t, uint32(3000), oracleCfg.DefaultFee)
	require.Equal(t, int32(60), oracleCfg.DefaultTickSpacing)
	require.Equal(t, uint64(90), oracleCfg.MaxPriceAgeSeconds)
	require.Equal(t, uint32(1800), oracleCfg.TWAPWindowSeconds)
	require.True(t, oracleCfg.AdminIsFeeder)
	require.Equal(t, []common.Address{common.HexToAddress("0xf1"), common.HexToAddress("0xf2")}, oracleCfg.AuthorizedFeeders)

	pairs, err := cfg.MonitorPairs()
	require.NoError(t, err)
	require.Len(t, pairs, 1)
	require.Equal(t, common.HexToAddress("0x1000000000000000000000000000000000000001"), pairs[0].TokenLow)

	chainCfg := cfg.ChainConfig()
	require.Equal(t, common.HexToAddress("0xa3"), chainCfg.Contracts.OracleHook)
	require.Equal(t, 90*time.Second, chainCfg.TxTimeout)
}

func TestParseConfig_AdminIsFeederOverride(t *testing.T) {
	cfg, err := config.ParseConfig(writeConfig(t, validConfig+`
[feed_store]
backend = "memory"
`))
	require.NoError(t, err)
	require.True(t, cfg.Oracle.AdminIsFeeder)

	content := `
[rpc]
endpoint = "http://localhost:8545"

[contracts]
pool_manager = "0x00000000000000000000000000000000000000a1"
state_view = "0x00000000000000000000000000000000000000a2"
oracle_hook = "0x00000000000000000000000000000000000000a3"

[oracle]
admin = "0x00000000000000000000000000000000000000b1"
admin_is_feeder = false
`
	cfg, err = config.ParseConfig(writeConfig(t, content))
	require.NoError(t, err)
	require.False(t, cfg.Oracle.AdminIsFeeder)
}

func TestParseConfig_Invalid(t *testing.T) {
	testCases := map[string]string{
		"missing endpoint": `
[contracts]
pool_manager = "0x00000000000000000000000000000000000000a1"
state_view = "0x00000000000000000000000000000000000000a2"
oracle_hook = "0x00000000000000000000000000000000000000a3"
[oracle]
admin = "0x00000000000000000000000000000000000000b1"
`,
		"bad address": `
[rpc]
endpoint = "http://localhost:8545"
[contracts]
pool_manager = "not-an-address"
`,
		"missing contracts": `
[rpc]
endpoint = "http://localhost:8545"
[oracle]
admin = "0x00000000000000000000000000000000000000b1"
`,
		"missing admin": `
[rpc]
endpoint = "http://localhost:8545"
[contracts]
pool_manager = "0x00000000000000000000000000000000000000a1"
state_view = "0x00000000000000000000000000000000000000a2"
oracle_hook = "0x00000000000000000000000000000000000000a3"
`,
		"redis without address": validConfig + `
[feed_store]
backend = "redis"
`,
		"unknown backend": validConfig + `
[feed_store]
backend = "etcd"
`,
	}

	for name, content := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := config.ParseConfig(writeConfig(t, content))
			require.Error(t, err)
		})
	}
}

func TestParseConfig_EmptyPath(t *testing.T) {
	_, err := config.ParseConfig("")
	require.ErrorIs(t, err, config.ErrEmptyConfigPath)
}

func TestParseConfig_Example(t *testing.T) {
	// the example ships with a zero admin and oracle hook to be filled in
	_, err := config.ParseConfig(filepath.Join("..", config.SampleNodeConfigPath))
	require.Error(t, err)
}
