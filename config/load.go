package config

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

var addressType = reflect.TypeOf(common.Address{})

// ParseConfig attempts to read and parse configuration from the given file path.
// An error is returned if reading or parsing the config fails.
func ParseConfig(configPath string) (Config, error) {
	return ParseConfigs([]string{configPath})
}

// ParseConfigs attempts to read and parse configuration from the given file paths.
// Later files override earlier ones. An error is returned if reading or
// parsing the configs fails.
func ParseConfigs(configPaths []string) (Config, error) {
	var cfg Config

	v := viper.New()
	v.AutomaticEnv()
	// Allow nested env vars to be read with underscore separators.
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("DEX_ORACLE")
	v.SetDefault("oracle.admin_is_feeder", true)

	if len(configPaths) == 0 {
		return cfg, ErrEmptyConfigPath
	}

	// Loop over each config path and merge its values into the previous one
	for _, configPath := range configPaths {
		if configPath == "" {
			return cfg, ErrEmptyConfigPath
		}
		v.SetConfigFile(configPath)
		if err := v.MergeInConfig(); err != nil {
			return cfg, fmt.Errorf("failed to read config: %w", err)
		}
	}

	decodeHook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
		stringToAddressHookFunc(),
	))
	if err := v.Unmarshal(&cfg, decodeHook); err != nil {
		return cfg, fmt.Errorf("failed to decode config: %w", err)
	}

	cfg.setDefaults()

	return cfg, cfg.Validate()
}

// stringToAddressHookFunc decodes 0x prefixed hex strings into addresses,
// rejecting anything that is not a valid address.
func stringToAddressHookFunc() mapstructure.DecodeHookFuncType {
	return func(f reflect.Type, t reflect.Type, data interface{}) (interface{}, error) {
		if f.Kind() != reflect.String || t != addressType {
			return data, nil
		}

		raw := strings.TrimSpace(data.(string))
		if raw == "" {
			return common.Address{}, nil
		}
		if !common.IsHexAddress(raw) {
			return nil, fmt.Errorf("invalid address %q", raw)
		}
		return common.HexToAddress(raw), nil
	}
}
