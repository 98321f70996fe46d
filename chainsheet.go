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

// Package chainsheet defines domain types shared by the cheat sheet packages:
// the network a client is bound to, the credential used for deriving a
// signing account and the errors returned across package boundaries.
package chainsheet

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
)

// MaxBlockAge is the maximum age of the latest block reported by an rpc
// endpoint for the endpoint to be considered in sync. It is not configurable.
const MaxBlockAge = 30 * time.Second

// NativeCurrency describes the currency used for paying fees on a chain.
type NativeCurrency struct {
	Name     string
	Symbol   string
	Decimals uint8
}

// Chain represents the network identity that the public and wallet clients are bound to.
type Chain struct {
	// Name used for referring to the chain in configuration and commands.
	Name string
	ID   *big.Int

	RPCURL         string // Default rpc endpoint, used when no url is configured.
	NativeCurrency NativeCurrency

	// Address of the Multicall3 contract. Zero value if the chain has none,
	// in which case multicall batching is not available.
	Multicall3    common.Address
	BlockExplorer string
}

// HasMulticall reports whether a Multicall3 contract is known for the chain.
func (c Chain) HasMulticall() bool {
	return c.Multicall3 != (common.Address{})
}

// Credential represents the parameters for deriving an account that can sign transactions.
//
// Exactly one source is used, in the order of priority: PrivateKey, Mnemonic, KeystorePath.
type Credential struct {
	PrivateKey string // Hex encoded secp256k1 key, with or without 0x prefix.

	Mnemonic string
	HDPath   string // Derivation path for the mnemonic. Defaults to m/44'/60'/0'/0/0.

	KeystorePath string
	Password     string
	Addr         string // Address of the account in the keystore, as hex string with 0x prefix.
}

// Account is an identity that can sign transactions.
type Account interface {
	Address() common.Address

	// TransactOpts returns options for sending a transaction signed by this account on the given chain.
	TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error)
}
