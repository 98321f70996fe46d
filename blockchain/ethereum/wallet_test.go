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

package ethereum_test

import (
	"context"
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/direct-state-transfer/chainsheet"
	"github.com/direct-state-transfer/chainsheet/blockchain/ethereum"
	"github.com/direct-state-transfer/chainsheet/blockchain/ethereum/ethereumtest"
)

// Private key of the first account derived from ethereumtest.TestMnemonic.
const testMnemonicKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func Test_NewAccount(t *testing.T) {
	rng := rand.New(rand.NewSource(1729))
	setup := ethereumtest.NewWalletSetup(t, rng, "test-pwd", 1)

	t.Run("happy_private_key", func(t *testing.T) {
		acc, err := ethereum.NewAccount(chainsheet.Credential{PrivateKey: testMnemonicKey})
		require.NoError(t, err)
		assert.Equal(t, ethereumtest.TestMnemonicAddr, acc.Address())
	})
	t.Run("happy_private_key_0x_prefix", func(t *testing.T) {
		acc, err := ethereum.NewAccount(chainsheet.Credential{PrivateKey: "0x" + testMnemonicKey})
		require.NoError(t, err)
		assert.Equal(t, ethereumtest.TestMnemonicAddr, acc.Address())
	})
	t.Run("happy_mnemonic_default_path", func(t *testing.T) {
		acc, err := ethereum.NewAccount(chainsheet.Credential{Mnemonic: ethereumtest.TestMnemonic})
		require.NoError(t, err)
		assert.Equal(t, ethereumtest.TestMnemonicAddr, acc.Address())
	})
	t.Run("happy_mnemonic_other_path", func(t *testing.T) {
		acc, err := ethereum.NewAccount(chainsheet.Credential{
			Mnemonic: ethereumtest.TestMnemonic,
			HDPath:   "m/44'/60'/0'/0/1",
		})
		require.NoError(t, err)
		assert.NotEqual(t, ethereumtest.TestMnemonicAddr, acc.Address())
	})
	t.Run("happy_private_key_preferred", func(t *testing.T) {
		cred := setup.Credential(0)
		cred.PrivateKey = testMnemonicKey
		acc, err := ethereum.NewAccount(cred)
		require.NoError(t, err)
		assert.Equal(t, ethereumtest.TestMnemonicAddr, acc.Address())
	})
	t.Run("happy_keystore", func(t *testing.T) {
		acc, err := ethereum.NewAccount(setup.Credential(0))
		require.NoError(t, err)
		assert.Equal(t, setup.Accounts[0].Address, acc.Address())
	})
	t.Run("err_missing", func(t *testing.T) {
		acc, err := ethereum.NewAccount(chainsheet.Credential{})
		assert.ErrorIs(t, err, chainsheet.ErrMissingCredential)
		assert.Nil(t, acc)
	})
	t.Run("err_invalid_private_key", func(t *testing.T) {
		acc, err := ethereum.NewAccount(chainsheet.Credential{PrivateKey: "0xinvalid"})
		assert.ErrorIs(t, err, chainsheet.ErrInvalidCredential)
		assert.Nil(t, acc)
	})
	t.Run("err_invalid_mnemonic", func(t *testing.T) {
		acc, err := ethereum.NewAccount(chainsheet.Credential{Mnemonic: "not a valid mnemonic"})
		assert.ErrorIs(t, err, chainsheet.ErrInvalidCredential)
		assert.Nil(t, acc)
	})
	t.Run("err_invalid_hd_path", func(t *testing.T) {
		acc, err := ethereum.NewAccount(chainsheet.Credential{Mnemonic: ethereumtest.TestMnemonic, HDPath: "x/y"})
		assert.ErrorIs(t, err, chainsheet.ErrInvalidCredential)
		assert.Nil(t, acc)
	})
	t.Run("err_keystore_wrong_password", func(t *testing.T) {
		cred := setup.Credential(0)
		cred.Password = "invalid-pwd"
		acc, err := ethereum.NewAccount(cred)
		assert.ErrorIs(t, err, chainsheet.ErrInvalidCredential)
		assert.Nil(t, acc)
	})
	t.Run("err_keystore_account_not_present", func(t *testing.T) {
		cred := setup.Credential(0)
		cred.Addr = ethereumtest.NewRandomAddress(rng).Hex()
		acc, err := ethereum.NewAccount(cred)
		assert.ErrorIs(t, err, chainsheet.ErrInvalidCredential)
		assert.Nil(t, acc)
	})
	t.Run("err_keystore_invalid_path", func(t *testing.T) {
		cred := setup.Credential(0)
		cred.KeystorePath = "invalid-ks-path"
		acc, err := ethereum.NewAccount(cred)
		assert.ErrorIs(t, err, chainsheet.ErrInvalidCredential)
		assert.Nil(t, acc)
	})
}

func Test_Account_TransactOpts(t *testing.T) {
	rng := rand.New(rand.NewSource(1729))
	setup := ethereumtest.NewWalletSetup(t, rng, "", 1)
	keyCred, keyAddr := ethereumtest.NewKeyCredential(t, rng)
	chainID := big.NewInt(1337)

	tests := []struct {
		name string
		cred chainsheet.Credential
		addr common.Address
	}{
		{"key", keyCred, keyAddr},
		{"keystore", setup.Credential(0), setup.Accounts[0].Address},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			acc, err := ethereum.NewAccount(tc.cred)
			require.NoError(t, err)

			ctx := context.Background()
			opts, err := acc.TransactOpts(ctx, chainID)
			require.NoError(t, err)
			assert.Equal(t, tc.addr, opts.From)
			assert.Equal(t, ctx, opts.Context)

			to := ethereumtest.NewRandomAddress(rng)
			tx := types.NewTx(&types.DynamicFeeTx{ChainID: chainID, Nonce: 1, Gas: 21000, To: &to, Value: big.NewInt(1)})
			signedTx, err := opts.Signer(opts.From, tx)
			require.NoError(t, err)
			sender, err := types.Sender(types.LatestSignerForChainID(chainID), signedTx)
			require.NoError(t, err)
			assert.Equal(t, tc.addr, sender)
		})
	}
}
