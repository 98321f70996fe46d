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

package cheatsheet_test

import (
	"bytes"
	"context"
	"math/big"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/params"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/direct-state-transfer/chainsheet"
	"github.com/direct-state-transfer/chainsheet/app/cheatsheet"
	"github.com/direct-state-transfer/chainsheet/blockchain/ethereum/ethereumtest"
	"github.com/direct-state-transfer/chainsheet/config"
)

const runTimeout = 10 * time.Second

// syncBuffer is a bytes.Buffer that can be read while the run writes to it.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := strings.TrimSuffix(b.buf.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}

type runSetup struct {
	node *ethereumtest.Node
	cfg  config.Config
}

// newRunSetup returns a default configuration for celo alfajores, pointing to a node that serves
// the chain over http, with a funded account as credential.
func newRunSetup(t *testing.T, rng *rand.Rand) runSetup {
	cfg, err := config.ParseConfig(viper.New(), "")
	require.NoError(t, err)

	node := ethereumtest.NewNode(t)
	node.SetChainID(big.NewInt(44787))
	cred, addr := ethereumtest.NewKeyCredential(t, rng)
	tenEther := new(big.Int).Mul(big.NewInt(10), big.NewInt(params.Ether))
	node.Fund(addr, tenEther)
	node.Mint(addr, tenEther)
	node.Fund(common.HexToAddress(cfg.Addresses.Balance), big.NewInt(params.Ether))
	node.Mint(common.HexToAddress(cfg.Addresses.TokenHolder), big.NewInt(5*params.Ether/10))

	cfg.RPCURL = node.ServeHTTP(t)
	cfg.PollingInterval = 20 * time.Millisecond
	cfg.Credential = cred
	return runSetup{node: node, cfg: cfg}
}

func Test_Run(t *testing.T) {
	rng := rand.New(rand.NewSource(1729))
	s := newRunSetup(t, rng)
	out := new(syncBuffer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runErr := make(chan error, 1)
	go func() {
		runErr <- cheatsheet.Run(ctx, s.cfg, out)
	}()

	// Transfers are emitted until one is printed, as the watch starts after the last step
	// and logs before it are not delivered.
	from, to := ethereumtest.NewRandomAddress(rng), ethereumtest.NewRandomAddress(rng)
	require.Eventually(t, func() bool {
		if len(out.Lines()) > 5 {
			return true
		}
		if len(out.Lines()) == 5 {
			s.node.EmitTransfer(from, to, big.NewInt(42))
		}
		return false
	}, runTimeout, 50*time.Millisecond, "output: %v", out.Lines())

	cancel()
	select {
	case err := <-runErr:
		assert.NoError(t, err)
	case <-time.After(runTimeout):
		require.FailNow(t, "run did not return after cancel")
	}

	txs := s.node.Transactions()
	require.Len(t, txs, 2)
	lines := out.Lines()
	holder := common.HexToAddress(s.cfg.Addresses.TokenHolder)
	assert.Equal(t, "balance: 1", lines[0])
	assert.Equal(t, "send ether tx: "+txs[0].Hash().Hex(), lines[1])
	assert.Equal(t, "token name: "+ethereumtest.TokenName, lines[2])
	assert.Equal(t, ethereumtest.TokenSymbol+" balance of "+holder.Hex()+": 0.5", lines[3])
	assert.Equal(t, "transfer erc20 tx: "+txs[1].Hash().Hex(), lines[4])
	assert.True(t, strings.HasPrefix(lines[5], "Transfer(from="+from.Hex()+", to="+to.Hex()+", value=42)"),
		lines[5])

	recipient := common.HexToAddress(s.cfg.Addresses.Recipient)
	halfEther := big.NewInt(5 * params.Ether / 10)
	assert.Equal(t, 0, s.node.Balance(recipient).Cmp(halfEther))
	assert.Equal(t, 0, s.node.TokenBalance(recipient).Cmp(halfEther))
}

func Test_Run_Errors(t *testing.T) {
	rng := rand.New(rand.NewSource(1729))

	t.Run("err_out_of_sync", func(t *testing.T) {
		s := newRunSetup(t, rng)
		s.node.SetBlockTime(uint64(time.Now().Add(-time.Minute).Unix()))
		out := new(syncBuffer)

		err := cheatsheet.Run(context.Background(), s.cfg, out)
		assert.ErrorIs(t, err, chainsheet.ErrRPCOutOfSync)
		assert.Empty(t, out.Lines())
	})
	t.Run("err_missing_credential", func(t *testing.T) {
		s := newRunSetup(t, rng)
		s.cfg.Credential = chainsheet.Credential{}
		out := new(syncBuffer)

		err := cheatsheet.Run(context.Background(), s.cfg, out)
		assert.ErrorIs(t, err, chainsheet.ErrMissingCredential)
		assert.Equal(t, []string{"balance: 1"}, out.Lines())
		assert.Empty(t, s.node.Transactions())
	})
	t.Run("err_invalid_credential", func(t *testing.T) {
		s := newRunSetup(t, rng)
		s.cfg.Credential = chainsheet.Credential{PrivateKey: "0x1234"}
		out := new(syncBuffer)

		err := cheatsheet.Run(context.Background(), s.cfg, out)
		assert.ErrorIs(t, err, chainsheet.ErrInvalidCredential)
		assert.Empty(t, s.node.Transactions())
	})
	t.Run("err_chain_mismatch", func(t *testing.T) {
		s := newRunSetup(t, rng)
		s.node.SetChainID(big.NewInt(1))
		out := new(syncBuffer)

		err := cheatsheet.Run(context.Background(), s.cfg, out)
		assert.ErrorIs(t, err, chainsheet.ErrChainMismatch)
		assert.Empty(t, s.node.Transactions())
	})
	t.Run("err_zero_native_amount", func(t *testing.T) {
		s := newRunSetup(t, rng)
		s.cfg.Amounts.Native = "0"
		out := new(syncBuffer)

		err := cheatsheet.Run(context.Background(), s.cfg, out)
		require.Error(t, err)
		assert.Equal(t, []string{"balance: 1"}, out.Lines())
		assert.Empty(t, s.node.Transactions())
	})
	t.Run("err_unknown_chain", func(t *testing.T) {
		s := newRunSetup(t, rng)
		s.cfg.Chain = "ropsten"

		err := cheatsheet.Run(context.Background(), s.cfg, new(syncBuffer))
		assert.ErrorIs(t, err, chainsheet.ErrUnknownChain)
	})
}
