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

package implementation

import (
	"context"
	"crypto/ecdsa"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	hdwallet "github.com/miguelmota/go-ethereum-hdwallet"
	"github.com/pkg/errors"

	"github.com/direct-state-transfer/chainsheet"
)

// DefaultHDPath is the derivation path used for mnemonics when none is given.
const DefaultHDPath = "m/44'/60'/0'/0/0"

// Account is a signing identity, backed either by a private key held in memory
// or by an unlocked account in a keystore.
type Account struct {
	addr common.Address

	key *ecdsa.PrivateKey

	ks    *keystore.KeyStore
	ksAcc accounts.Account
}

// Address returns the address of the account.
func (a *Account) Address() common.Address {
	return a.addr
}

// TransactOpts returns transaction options that sign with this account for the given chain.
func (a *Account) TransactOpts(ctx context.Context, chainID *big.Int) (*bind.TransactOpts, error) {
	var opts *bind.TransactOpts
	var err error
	if a.key != nil {
		opts, err = bind.NewKeyedTransactorWithChainID(a.key, chainID)
	} else {
		opts, err = bind.NewKeyStoreTransactorWithChainID(a.ks, a.ksAcc, chainID)
	}
	if err != nil {
		return nil, errors.Wrap(err, "initializing transactor")
	}
	opts.Context = ctx
	return opts, nil
}

// ParsePrivateKey parses a hex encoded secp256k1 private key. The 0x prefix is optional.
func ParsePrivateKey(hexKey string) (*ecdsa.PrivateKey, error) {
	hexKey = strings.TrimSpace(hexKey)
	if hexKey == "" {
		return nil, errors.Wrap(chainsheet.ErrMissingCredential, "private key")
	}
	hexKey = strings.TrimPrefix(strings.TrimPrefix(hexKey, "0x"), "0X")
	key, err := crypto.HexToECDSA(hexKey)
	if err != nil {
		return nil, errors.Wrapf(chainsheet.ErrInvalidCredential, "private key: %v", err)
	}
	return key, nil
}

// NewKeyAccount returns an account for the given hex encoded private key.
func NewKeyAccount(hexKey string) (*Account, error) {
	key, err := ParsePrivateKey(hexKey)
	if err != nil {
		return nil, err
	}
	return &Account{addr: crypto.PubkeyToAddress(key.PublicKey), key: key}, nil
}

// NewHDAccount derives an account from the mnemonic at the given derivation path.
// DefaultHDPath is used if path is empty.
func NewHDAccount(mnemonic, path string) (*Account, error) {
	if strings.TrimSpace(mnemonic) == "" {
		return nil, errors.Wrap(chainsheet.ErrMissingCredential, "mnemonic")
	}
	if path == "" {
		path = DefaultHDPath
	}
	w, err := hdwallet.NewFromMnemonic(mnemonic)
	if err != nil {
		return nil, errors.Wrapf(chainsheet.ErrInvalidCredential, "mnemonic: %v", err)
	}
	derivationPath, err := hdwallet.ParseDerivationPath(path)
	if err != nil {
		return nil, errors.Wrapf(chainsheet.ErrInvalidCredential, "hd path: %v", err)
	}
	acc, err := w.Derive(derivationPath, false)
	if err != nil {
		return nil, errors.Wrapf(chainsheet.ErrInvalidCredential, "deriving account: %v", err)
	}
	key, err := w.PrivateKey(acc)
	if err != nil {
		return nil, errors.Wrapf(chainsheet.ErrInvalidCredential, "deriving key: %v", err)
	}
	return &Account{addr: acc.Address, key: key}, nil
}
