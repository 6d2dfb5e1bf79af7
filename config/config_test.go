// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package config

import (
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnv(string) string { return "" }

func writeFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "coffeetip.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0600))
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := LoadEnv("", noEnv)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.False(t, cfg.WritesEnabled())
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
network: arbitrum
contract_address: "0x000000000000000000000000000000000000c0ff"
backend: postgres://coffeetip@db/coffeetip
cache_size: 16
poll_interval: 4s
sync:
  debounce: 250ms
  block_every: 5
  optimistic_timeout: -1s
`)
	cfg, err := LoadEnv(path, noEnv)
	require.NoError(t, err)
	assert.Equal(t, "arbitrum", cfg.Network)
	assert.Equal(t, "0x000000000000000000000000000000000000c0ff", cfg.ContractAddress)
	assert.Equal(t, "postgres://coffeetip@db/coffeetip", cfg.Backend)
	assert.Equal(t, 16, cfg.CacheSize)
	assert.Equal(t, 4*time.Second, cfg.PollInterval)
	assert.Equal(t, 250*time.Millisecond, cfg.Sync.Debounce)
	assert.Equal(t, 5, cfg.Sync.BlockEvery)
	assert.Equal(t, -time.Second, cfg.Sync.OptimisticTimeout)

	// untouched settings keep their defaults
	assert.Equal(t, 2*time.Second, cfg.Sync.Cooldown)
	assert.Equal(t, ":5980", cfg.HTTP)
	assert.True(t, cfg.WritesEnabled())

	cc := cfg.ChainConfig()
	assert.Equal(t, "arbitrum", cc.Network)
	assert.Equal(t, cfg.ContractAddress, cc.Contract)
	assert.Equal(t, 4*time.Second, cc.PollInterval)
}

func TestEnvironmentOverrides(t *testing.T) {
	path := writeFile(t, "network: arbitrum\nrpc_url: http://file:8545\n")
	env := map[string]string{
		EnvNetwork:  "localhost",
		EnvContract: "0x000000000000000000000000000000000000beef",
		EnvBackend:  "  ",
	}
	cfg, err := LoadEnv(path, func(name string) string { return env[name] })
	require.NoError(t, err)
	assert.Equal(t, "localhost", cfg.Network)
	assert.Equal(t, "http://file:8545", cfg.RPCURL)
	assert.Equal(t, "0x000000000000000000000000000000000000beef", cfg.ContractAddress)
	assert.Equal(t, "memory", cfg.Backend, "blank variables are ignored")
}

func TestInvalid(t *testing.T) {
	_, err := LoadEnv(writeFile(t, "network: mainnet\n"), noEnv)
	assert.Error(t, err)

	_, err = LoadEnv(writeFile(t, "colour: blue\n"), noEnv)
	assert.Error(t, err)

	_, err = LoadEnv(writeFile(t, "sync:\n  debounce: soon\n"), noEnv)
	assert.Error(t, err)

	_, err = LoadEnv(writeFile(t, "sync:\n  block_every: 0\n"), noEnv)
	assert.Error(t, err)

	_, err = LoadEnv(filepath.Join(t.TempDir(), "missing.yaml"), noEnv)
	assert.Error(t, err)

	cfg := Default()
	cfg.Network = "nowhere"
	cfg.ContractAddress = "0xc0ff"
	assert.False(t, cfg.WritesEnabled())
}
