// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

// Package config loads the daemon configuration.  Settings come from
// built-in defaults, then an optional YAML file, then environment
// variables, in increasing order of precedence.
//
// A configuration file looks like
//
//	network: arbitrum-sepolia
//	contract_address: "0x..."
//	backend: postgres://coffeetip@db/coffeetip
//	sync:
//	  debounce: 500ms
//	  cooldown: 2s
package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/diffeo/go-coffeetip/chain"
	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v2"
)

// Environment variables that override the file.
const (
	EnvContract   = "COFFEETIP_CONTRACT_ADDRESS"
	EnvNetwork    = "COFFEETIP_NETWORK"
	EnvRPCURL     = "COFFEETIP_RPC_URL"
	EnvWSURL      = "COFFEETIP_WS_URL"
	EnvPrivateKey = "COFFEETIP_PRIVATE_KEY"
	EnvBackend    = "COFFEETIP_BACKEND"
)

// Sync holds the timing of the cache synchronization machinery.
type Sync struct {
	// Debounce and Cooldown tune the invalidation coordinator.
	Debounce time.Duration `mapstructure:"debounce"`
	Cooldown time.Duration `mapstructure:"cooldown"`

	// Interval is the fallback timer of the real-time sync.
	Interval time.Duration `mapstructure:"interval"`

	// BlockEvery is how many blocks pass between block-driven
	// invalidations.
	BlockEvery int `mapstructure:"block_every"`

	// CoffeeInterval and BalanceInterval are the background
	// refresh periods.
	CoffeeInterval  time.Duration `mapstructure:"coffee_interval"`
	BalanceInterval time.Duration `mapstructure:"balance_interval"`

	// OptimisticTimeout reverts unconfirmed optimistic records.
	// Negative disables the timeout.
	OptimisticTimeout time.Duration `mapstructure:"optimistic_timeout"`
}

// Config is the complete daemon configuration.
type Config struct {
	// Network names an entry of chain.Networks.
	Network string `mapstructure:"network"`

	// RPCURL and WSURL override the network's endpoints.  WSURL
	// is preferred when set, since it supports subscriptions.
	RPCURL string `mapstructure:"rpc_url"`
	WSURL  string `mapstructure:"ws_url"`

	// ContractAddress is the deployed CoffeeTip contract.  Empty
	// disables contract reads and writes.
	ContractAddress string `mapstructure:"contract_address"`

	// PrivateKey is a hex signing key.  Empty disables writes.
	PrivateKey string `mapstructure:"private_key"`

	// PollInterval is the polling period used when the node
	// cannot push events.
	PollInterval time.Duration `mapstructure:"poll_interval"`

	// Backend is the impl[:address] of the profile store.
	Backend string `mapstructure:"backend"`

	// CacheSize is the profile LRU size; zero disables it.
	CacheSize int `mapstructure:"cache_size"`

	// HTTP is the [ip]:port of the REST interface.
	HTTP string `mapstructure:"http"`

	// LogLevel is a logrus level name.
	LogLevel string `mapstructure:"log_level"`

	Sync Sync `mapstructure:"sync"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Network:      "arbitrum-sepolia",
		PollInterval: chain.DefaultPollInterval,
		Backend:      "memory",
		CacheSize:    1024,
		HTTP:         ":5980",
		LogLevel:     "info",
		Sync: Sync{
			Debounce:          500 * time.Millisecond,
			Cooldown:          2 * time.Second,
			Interval:          30 * time.Second,
			BlockEvery:        3,
			CoffeeInterval:    15 * time.Second,
			BalanceInterval:   30 * time.Second,
			OptimisticTimeout: 5 * time.Minute,
		},
	}
}

// Load reads the configuration file at path, if path is not empty,
// and applies the process environment.
func Load(path string) (Config, error) {
	return LoadEnv(path, os.Getenv)
}

// LoadEnv is Load with an alternate environment lookup.
func LoadEnv(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		raw, err := loadYAML(path)
		if err != nil {
			return Config{}, err
		}
		if err := cfg.decode(raw); err != nil {
			return Config{}, fmt.Errorf("%v: %w", path, err)
		}
	}
	cfg.applyEnv(getenv)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadYAML(filename string) (map[string]interface{}, error) {
	var result map[string]interface{}
	bytes, err := ioutil.ReadFile(filename)
	if err == nil {
		err = yaml.Unmarshal(bytes, &result)
	}
	return result, err
}

// decode merges a parsed YAML map into cfg.  Keys absent from the
// map keep their current values.
func (cfg *Config) decode(raw map[string]interface{}) error {
	var metadata mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			decodeInterfaceKeys,
			mapstructure.StringToTimeDurationHookFunc(),
		),
		Metadata:         &metadata,
		WeaklyTypedInput: true,
		Result:           cfg,
	})
	if err != nil {
		return err
	}
	if err := decoder.Decode(raw); err != nil {
		return err
	}
	if len(metadata.Unused) > 0 {
		return fmt.Errorf("unknown settings %v", strings.Join(metadata.Unused, ", "))
	}
	return nil
}

// decodeInterfaceKeys is a mapstructure decode hook that converts
// the map[interface{}]interface{} values yaml.v2 produces for nested
// mappings into string-keyed maps.
func decodeInterfaceKeys(from, to reflect.Type, data interface{}) (interface{}, error) {
	in, ok := data.(map[interface{}]interface{})
	if !ok {
		return data, nil
	}
	out := make(map[string]interface{}, len(in))
	for key, value := range in {
		name, ok := key.(string)
		if !ok {
			return nil, fmt.Errorf("non-string key %v", key)
		}
		out[name] = value
	}
	return out, nil
}

func (cfg *Config) applyEnv(getenv func(string) string) {
	for name, field := range map[string]*string{
		EnvContract:   &cfg.ContractAddress,
		EnvNetwork:    &cfg.Network,
		EnvRPCURL:     &cfg.RPCURL,
		EnvWSURL:      &cfg.WSURL,
		EnvPrivateKey: &cfg.PrivateKey,
		EnvBackend:    &cfg.Backend,
	} {
		if value := strings.TrimSpace(getenv(name)); value != "" {
			*field = value
		}
	}
}

// Validate checks settings that can be checked without connecting
// to anything.
func (cfg Config) Validate() error {
	if _, err := chain.LookupNetwork(cfg.Network); err != nil {
		return err
	}
	if cfg.PollInterval <= 0 {
		return fmt.Errorf("poll_interval must be positive")
	}
	if cfg.Sync.Debounce <= 0 || cfg.Sync.Cooldown < 0 || cfg.Sync.Interval <= 0 {
		return fmt.Errorf("sync timings must be positive")
	}
	if cfg.Sync.BlockEvery <= 0 {
		return fmt.Errorf("sync.block_every must be positive")
	}
	if cfg.Sync.CoffeeInterval <= 0 || cfg.Sync.BalanceInterval <= 0 {
		return fmt.Errorf("background intervals must be positive")
	}
	return nil
}

// WritesEnabled is true if a contract address is configured on a
// known network.
func (cfg Config) WritesEnabled() bool {
	if cfg.ContractAddress == "" {
		return false
	}
	_, err := chain.LookupNetwork(cfg.Network)
	return err == nil
}

// ChainConfig returns the settings for chain.Dial.
func (cfg Config) ChainConfig() chain.Config {
	return chain.Config{
		Network:      cfg.Network,
		RPCURL:       cfg.RPCURL,
		WSURL:        cfg.WSURL,
		Contract:     cfg.ContractAddress,
		PrivateKey:   cfg.PrivateKey,
		PollInterval: cfg.PollInterval,
	}
}
