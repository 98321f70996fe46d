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

package client_test

import (
	"context"
	"math/big"
	"math/rand"
	"testing"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/direct-state-transfer/chainsheet"
	"github.com/direct-state-transfer/chainsheet/blockchain/ethereum"
	"github.com/direct-state-transfer/chainsheet/blockchain/ethereum/ethereumtest"
	"github.com/direct-state-transfer/chainsheet/client"
	"github.com/direct-state-transfer/chainsheet/metrics"
)

type walletSetup struct {
	node    *ethereumtest.Node
	wc      *client.WalletClient
	acc     chainsheet.Account
	metrics *metrics.Metrics
}

func newWalletSetup(t *testing.T, rng *rand.Rand) walletSetup {
	m, err := metrics.New()
	require.NoError(t, err)
	node := ethereumtest.NewNode(t)
	cred, _ := ethereumtest.NewKeyCredential(t, rng)
	acc, err := ethereum.NewAccount(cred)
	require.NoError(t, err)
	node.Fund(acc.Address(), new(big.Int).Mul(big.NewInt(10), big.NewInt(params.Ether)))

	wc := client.NewWalletClient(ethereumtest.NewTestChain(), node.DialInProc(t), client.Config{Metrics: m})
	return walletSetup{node: node, wc: wc, acc: acc, metrics: m}
}

func Test_WalletClient_SendTransaction(t *testing.T) {
	rng := rand.New(rand.NewSource(1729))
	halfEther := big.NewInt(500000000000000000)

	t.Run("happy_dynamic_fee", func(t *testing.T) {
		setup := newWalletSetup(t, rng)
		to := ethereumtest.NewRandomAddress(rng)

		hash, err := setup.wc.SendTransaction(context.Background(), setup.acc, client.TxRequest{To: to, Value: halfEther})
		require.NoError(t, err)

		txs := setup.node.Transactions()
		require.Len(t, txs, 1)
		assert.Equal(t, hash, txs[0].Hash())
		assert.Equal(t, uint8(types.DynamicFeeTxType), txs[0].Type())
		assert.Equal(t, uint64(ethereumtest.TransferGas), txs[0].Gas())
		assert.Equal(t, 0, setup.node.Balance(to).Cmp(halfEther))
		assert.Equal(t, float64(1), testutil.ToFloat64(setup.metrics.TxSent.WithLabelValues(metrics.TxNative)))
	})
	t.Run("happy_legacy", func(t *testing.T) {
		setup := newWalletSetup(t, rng)
		setup.node.SetLegacy()
		to := ethereumtest.NewRandomAddress(rng)

		hash, err := setup.wc.SendTransaction(context.Background(), setup.acc, client.TxRequest{To: to, Value: halfEther})
		require.NoError(t, err)

		txs := setup.node.Transactions()
		require.Len(t, txs, 1)
		assert.Equal(t, hash, txs[0].Hash())
		assert.Equal(t, uint8(types.LegacyTxType), txs[0].Type())
	})
	t.Run("happy_nonce_increments", func(t *testing.T) {
		setup := newWalletSetup(t, rng)
		to := ethereumtest.NewRandomAddress(rng)

		for i := 0; i < 2; i++ {
			_, err := setup.wc.SendTransaction(context.Background(), setup.acc, client.TxRequest{To: to})
			require.NoError(t, err)
		}
		txs := setup.node.Transactions()
		require.Len(t, txs, 2)
		assert.Equal(t, uint64(0), txs[0].Nonce())
		assert.Equal(t, uint64(1), txs[1].Nonce())
	})
	t.Run("err_chain_mismatch", func(t *testing.T) {
		setup := newWalletSetup(t, rng)
		setup.node.SetChainID(big.NewInt(5))

		_, err := setup.wc.SendTransaction(context.Background(), setup.acc,
			client.TxRequest{To: ethereumtest.NewRandomAddress(rng), Value: halfEther})
		assert.ErrorIs(t, err, chainsheet.ErrChainMismatch)
		assert.Empty(t, setup.node.Transactions())
	})
	t.Run("err_insufficient_funds", func(t *testing.T) {
		setup := newWalletSetup(t, rng)
		tooMuch := new(big.Int).Mul(big.NewInt(100), big.NewInt(params.Ether))

		_, err := setup.wc.SendTransaction(context.Background(), setup.acc,
			client.TxRequest{To: ethereumtest.NewRandomAddress(rng), Value: tooMuch})
		assert.Error(t, err)
		assert.Empty(t, setup.node.Transactions())
		assert.Equal(t, float64(0), testutil.ToFloat64(setup.metrics.TxSent.WithLabelValues(metrics.TxNative)))
	})
}

func Test_WalletClient_VerifyChain(t *testing.T) {
	rng := rand.New(rand.NewSource(1729))
	setup := newWalletSetup(t, rng)

	assert.NoError(t, setup.wc.VerifyChain(context.Background()))
	setup.node.SetChainID(big.NewInt(44787))
	assert.ErrorIs(t, setup.wc.VerifyChain(context.Background()), chainsheet.ErrChainMismatch)
}
