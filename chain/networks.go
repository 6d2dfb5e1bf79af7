// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package chain

import (
	"fmt"
	"sort"
)

// Network describes a chain the contract may be deployed on.
type Network struct {
	Name     string
	ChainID  int64
	RPCURL   string
	Explorer string
}

// Networks are the supported chains, by name.
var Networks = map[string]Network{
	"arbitrum": {
		Name:     "arbitrum",
		ChainID:  42161,
		RPCURL:   "https://arb1.arbitrum.io/rpc",
		Explorer: "https://arbiscan.io",
	},
	"arbitrum-sepolia": {
		Name:     "arbitrum-sepolia",
		ChainID:  421614,
		RPCURL:   "https://sepolia-rollup.arbitrum.io/rpc",
		Explorer: "https://sepolia.arbiscan.io",
	},
	"localhost": {
		Name:    "localhost",
		ChainID: 31337,
		RPCURL:  "http://127.0.0.1:8545",
	},
}

// LookupNetwork returns the named network.
func LookupNetwork(name string) (Network, error) {
	n, ok := Networks[name]
	if !ok {
		return Network{}, fmt.Errorf("unknown network %q", name)
	}
	return n, nil
}

// NetworkNames returns the supported network names in sorted order.
func NetworkNames() []string {
	names := make([]string, 0, len(Networks))
	for name := range Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
