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

package ethereumtest

import (
	"crypto/ecdsa"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/accounts/keystore"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/direct-state-transfer/chainsheet"
	"github.com/direct-state-transfer/chainsheet/blockchain/ethereum/internal/implementation"
)

// Weak encryption parameters used for creating test wallets that can be decrypted and unlocked faster.
const (
	weakScryptN = 2
	weakScryptP = 1
)

// TestMnemonic is the well known mnemonic used by development chains.
const TestMnemonic = "test test test test test test test test test test test junk"

// TestMnemonicAddr is the address derived from TestMnemonic at the default hd path.
var TestMnemonicAddr = common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266")

// NewTestWalletBackend initializes a keystore wallet backend with weak encryption parameters.
func NewTestWalletBackend() *implementation.WalletBackend {
	return &implementation.WalletBackend{EncParams: implementation.ScryptParams{N: weakScryptN, P: weakScryptP}}
}

// WalletSetup holds a keystore with n accounts. To enable faster unlocking of keys, it uses
// weak encryption parameters for storage encryption of keys.
type WalletSetup struct {
	WalletBackend *implementation.WalletBackend
	KeystorePath  string
	Keystore      *keystore.KeyStore
	Password      string
	Accounts      []accounts.Account
}

// NewWalletSetup initializes a keystore in a temporary directory with n accounts, generated
// from rng and encrypted with the password. The directory is removed on test cleanup.
func NewWalletSetup(t *testing.T, rng *rand.Rand, password string, n int) *WalletSetup {
	ksPath := t.TempDir()
	ks := keystore.NewKeyStore(ksPath, weakScryptN, weakScryptP)
	accs := make([]accounts.Account, n)
	for idx := 0; idx < n; idx++ {
		acc, err := ks.ImportECDSA(NewRandomKey(t, rng), password)
		require.NoError(t, err)
		accs[idx] = acc
	}
	return &WalletSetup{
		WalletBackend: NewTestWalletBackend(),
		KeystorePath:  ksPath,
		Keystore:      ks,
		Password:      password,
		Accounts:      accs,
	}
}

// Credential returns a keystore credential for the account at index idx.
func (ws *WalletSetup) Credential(idx int) chainsheet.Credential {
	return chainsheet.Credential{
		KeystorePath: ws.KeystorePath,
		Password:     ws.Password,
		Addr:         ws.Accounts[idx].Address.Hex(),
	}
}

// NewRandomKey generates a private key from rng.
func NewRandomKey(t *testing.T, rng *rand.Rand) *ecdsa.PrivateKey {
	key, err := ecdsa.GenerateKey(crypto.S256(), rng)
	require.NoError(t, err)
	return key
}

// NewKeyCredential generates a private key from rng and returns it as a credential
// (hex encoded, with 0x prefix), along with its address.
func NewKeyCredential(t *testing.T, rng *rand.Rand) (chainsheet.Credential, common.Address) {
	key := NewRandomKey(t, rng)
	cred := chainsheet.Credential{PrivateKey: hexutil.Encode(crypto.FromECDSA(key))}
	return cred, crypto.PubkeyToAddress(key.PublicKey)
}

// NewRandomAddress generates a random address. It generates the address only as a byte array.
// Hence it does not generate any public or private keys corresponding to the address.
func NewRandomAddress(rng *rand.Rand) common.Address {
	var a common.Address
	rng.Read(a[:])
	return a
}
