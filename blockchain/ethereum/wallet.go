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

package ethereum

import (
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/pkg/errors"

	"github.com/direct-state-transfer/chainsheet"
	"github.com/direct-state-transfer/chainsheet/blockchain/ethereum/internal/implementation"
)

// Standard encryption parameters used for creating wallets. Using these parameters will
// cause the decryption to use 256MB of RAM and takes approx 1s on a modern processor.
const (
	standardScryptN = keystore.StandardScryptN
	standardScryptP = keystore.StandardScryptP
)

// DefaultHDPath is the derivation path used for mnemonics when none is given.
const DefaultHDPath = implementation.DefaultHDPath

// NewWalletBackend initializes a keystore wallet backend with standard encryption parameters.
func NewWalletBackend() *implementation.WalletBackend {
	return &implementation.WalletBackend{EncParams: implementation.ScryptParams{
		N: standardScryptN,
		P: standardScryptP,
	}}
}

// NewAccount derives a signing account from the credential.
//
// The first non empty source is used, in the order: PrivateKey, Mnemonic (with HDPath), KeystorePath
// (with Addr and Password). If all are empty, the error wraps chainsheet.ErrMissingCredential.
// A malformed credential results in an error wrapping chainsheet.ErrInvalidCredential.
func NewAccount(cred chainsheet.Credential) (chainsheet.Account, error) {
	var acc *implementation.Account
	var err error
	switch {
	case cred.PrivateKey != "":
		acc, err = implementation.NewKeyAccount(cred.PrivateKey)
	case cred.Mnemonic != "":
		acc, err = implementation.NewHDAccount(cred.Mnemonic, cred.HDPath)
	case cred.KeystorePath != "":
		acc, err = NewWalletBackend().NewAccount(cred.KeystorePath, cred.Addr, cred.Password)
	default:
		err = errors.Wrap(chainsheet.ErrMissingCredential, "no private key, mnemonic or keystore configured")
	}
	if err != nil {
		return nil, err
	}
	return acc, nil
}
