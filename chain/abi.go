// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package chain

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// contractJSON is the ABI of the CoffeeTip contract, limited to the
// functions and events used here.
const contractJSON = `[
  {"type":"function","name":"getAllCoffees","stateMutability":"view",
   "inputs":[{"name":"creator","type":"address"}],
   "outputs":[{"name":"","type":"tuple[]","components":[
     {"name":"from","type":"address"},
     {"name":"name","type":"string"},
     {"name":"message","type":"string"},
     {"name":"amount","type":"uint256"},
     {"name":"timestamp","type":"uint256"}]}]},
  {"type":"function","name":"getRecentCoffees","stateMutability":"view",
   "inputs":[{"name":"creator","type":"address"}],
   "outputs":[{"name":"","type":"tuple[]","components":[
     {"name":"from","type":"address"},
     {"name":"name","type":"string"},
     {"name":"message","type":"string"},
     {"name":"amount","type":"uint256"},
     {"name":"timestamp","type":"uint256"}]}]},
  {"type":"function","name":"getBalance","stateMutability":"view",
   "inputs":[{"name":"owner","type":"address"}],
   "outputs":[{"name":"","type":"uint256"}]},
  {"type":"function","name":"getCreatorInfo","stateMutability":"view",
   "inputs":[{"name":"creator","type":"address"}],
   "outputs":[
     {"name":"username","type":"string"},
     {"name":"registered","type":"bool"},
     {"name":"totalCoffees","type":"uint256"},
     {"name":"totalAmount","type":"uint256"}]},
  {"type":"function","name":"isUsernameAvailable","stateMutability":"view",
   "inputs":[{"name":"username","type":"string"}],
   "outputs":[{"name":"","type":"bool"}]},
  {"type":"function","name":"registerCreator","stateMutability":"nonpayable",
   "inputs":[{"name":"username","type":"string"}],
   "outputs":[]},
  {"type":"function","name":"buyCoffee","stateMutability":"payable",
   "inputs":[
     {"name":"creator","type":"address"},
     {"name":"name","type":"string"},
     {"name":"message","type":"string"}],
   "outputs":[]},
  {"type":"event","name":"NewCoffee","anonymous":false,
   "inputs":[
     {"name":"creator","type":"address","indexed":true},
     {"name":"from","type":"address","indexed":true},
     {"name":"name","type":"string","indexed":false},
     {"name":"message","type":"string","indexed":false},
     {"name":"amount","type":"uint256","indexed":false},
     {"name":"timestamp","type":"uint256","indexed":false}]},
  {"type":"event","name":"CreatorRegistered","anonymous":false,
   "inputs":[
     {"name":"creator","type":"address","indexed":true},
     {"name":"username","type":"string","indexed":false}]}
]`

// Method and event names.
const (
	methodAllCoffees    = "getAllCoffees"
	methodRecentCoffees = "getRecentCoffees"
	methodBalance       = "getBalance"
	methodCreatorInfo   = "getCreatorInfo"
	methodUsernameFree  = "isUsernameAvailable"
	methodRegister      = "registerCreator"
	methodBuyCoffee     = "buyCoffee"
	eventNewCoffee      = "NewCoffee"
)

// ContractABI is the parsed CoffeeTip ABI.
var ContractABI = mustParse(contractJSON)

func mustParse(s string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(s))
	if err != nil {
		panic(err)
	}
	return parsed
}

// coffeeTuple is the Solidity Coffee struct.
type coffeeTuple struct {
	From      common.Address
	Name      string
	Message   string
	Amount    *big.Int
	Timestamp *big.Int
}

// creatorInfo is the result of getCreatorInfo.
type creatorInfo struct {
	Username     string
	Registered   bool
	TotalCoffees *big.Int
	TotalAmount  *big.Int
}

// newCoffeeLog is a decoded NewCoffee event.
type newCoffeeLog struct {
	Creator   common.Address
	From      common.Address
	Name      string
	Message   string
	Amount    *big.Int
	Timestamp *big.Int
}
