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
	"os"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/direct-state-transfer/chainsheet"
)

// WalletBackend provides keystore based accounts.
type WalletBackend struct {
	EncParams ScryptParams
}

// ScryptParams defines the parameters for scrypt algorithm. It determines the security level of algorithm
// used for encrypting the for storage on disk.
//
// Weak values should be used only for testing purposes (enables faster unlockcing). Use standard values otherwise.
type ScryptParams struct {
	N, P int
}

// NewKeystore initializes an ethereum keystore at the given path. The directory should already exist.
func (wb *WalletBackend) NewKeystore(keystorePath string) (*keystore.KeyStore, error) {
	if _, err := os.Stat(keystorePath); os.IsNotExist(err) {
		return nil, errors.Wrap(chainsheet.ErrInvalidCredential, "dir does not exists - "+keystorePath)
	}
	return keystore.NewKeyStore(keystorePath, wb.EncParams.N, wb.EncParams.P), nil
}

// NewAccount retreives the account correspoding to the given address from the keystore, unlocks it
// with the given password and returns it.
func (wb *WalletBackend) NewAccount(keystorePath, addr, password string) (*Account, error) {
	if !common.IsHexAddress(addr) {
		return nil, errors.Wrap(chainsheet.ErrInvalidCredential, "invalid address - "+addr)
	}
	ks, err := wb.NewKeystore(keystorePath)
	if err != nil {
		return nil, err
	}
	acc, err := ks.Find(accounts.Account{Address: common.HexToAddress(addr)})
	if err != nil {
		return nil, errors.Wrapf(chainsheet.ErrInvalidCredential, "finding account %s: %v", addr, err)
	}
	if err = ks.Unlock(acc, password); err != nil {
		return nil, errors.Wrapf(chainsheet.ErrInvalidCredential, "unlocking account %s: %v", addr, err)
	}
	return &Account{addr: acc.Address, ks: ks, ksAcc: acc}, nil
}
