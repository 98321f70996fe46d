// Copyright (c) 2020 - for information on the respective copyright owner
// see the NOTICE file and/or the repository at
// https://github.com/direct-state-transfer/chainsheet
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package chains holds the networks known to the cheat sheet.
//
// Use ByName to look up a chain by the name used in configuration files.
package chains

import (
	"math/big"
	"sort"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/direct-state-transfer/chainsheet"
)

// Multicall3 is deployed at the same address on all chains listed here, except localhost.
var multicall3 = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")

// Names of the known chains.
const (
	CeloAlfajoresName = "celo-alfajores"
	CeloName          = "celo"
	MainnetName       = "mainnet"
	SepoliaName       = "sepolia"
	LocalhostName     = "localhost"

	// Default is the chain used when none is configured.
	Default = CeloAlfajoresName
)

var (
	celo = chainsheet.NativeCurrency{Name: "Celo", Symbol: "CELO", Decimals: 18}
	eth  = chainsheet.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18}
)

var known = map[string]chainsheet.Chain{
	CeloAlfajoresName: {
		Name:           CeloAlfajoresName,
		ID:             big.NewInt(44787),
		RPCURL:         "https://alfajores-forno.celo-testnet.org",
		NativeCurrency: celo,
		Multicall3:     multicall3,
		BlockExplorer:  "https://explorer.celo.org/alfajores",
	},
	CeloName: {
		Name:           CeloName,
		ID:             big.NewInt(42220),
		RPCURL:         "https://forno.celo.org",
		NativeCurrency: celo,
		Multicall3:     multicall3,
		BlockExplorer:  "https://celoscan.io",
	},
	MainnetName: {
		Name:           MainnetName,
		ID:             big.NewInt(1),
		RPCURL:         "https://cloudflare-eth.com",
		NativeCurrency: eth,
		Multicall3:     multicall3,
		BlockExplorer:  "https://etherscan.io",
	},
	SepoliaName: {
		Name:           SepoliaName,
		ID:             big.NewInt(11155111),
		RPCURL:         "https://rpc.sepolia.org",
		NativeCurrency: eth,
		Multicall3:     multicall3,
		BlockExplorer:  "https://sepolia.etherscan.io",
	},
	LocalhostName: {
		Name:           LocalhostName,
		ID:             big.NewInt(1337),
		RPCURL:         "http://127.0.0.1:8545",
		NativeCurrency: eth,
	},
}

// ByName returns the chain registered with the given name.
func ByName(name string) (chainsheet.Chain, error) {
	c, ok := known[name]
	if !ok {
		return chainsheet.Chain{}, errors.Wrap(chainsheet.ErrUnknownChain, name)
	}
	// Return a copy of the ID, so callers cannot modify the registry.
	c.ID = new(big.Int).Set(c.ID)
	return c, nil
}

// Names returns the names of all known chains in sorted order.
func Names() []string {
	names := make([]string, 0, len(known))
	for name := range known {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
