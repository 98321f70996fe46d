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
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/direct-state-transfer/chainsheet"
	"github.com/direct-state-transfer/chainsheet/blockchain/ethereum/ethereumtest"
	"github.com/direct-state-transfer/chainsheet/client"
	"github.com/direct-state-transfer/chainsheet/metrics"
)

type callOutcome struct {
	out []byte
	err error
}

// callConcurrently issues one token call per method concurrently and returns the outcomes in order.
func callConcurrently(t *testing.T, pc *client.PublicClient, methods ...string) []callOutcome {
	erc20 := ethereumtest.ERC20ABI()
	outcomes := make([]callOutcome, len(methods))
	var wg sync.WaitGroup
	for i, method := range methods {
		input, err := erc20.Pack(method)
		require.NoError(t, err)

		wg.Add(1)
		go func(i int, input []byte) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			out, err := pc.Call(ctx, ethereum.CallMsg{To: &ethereumtest.TokenAddr, Data: input})
			outcomes[i] = callOutcome{out: out, err: err}
		}(i, input)
	}
	wg.Wait()
	return outcomes
}

func Test_Multicall_Coalesce(t *testing.T) {
	m, err := metrics.New()
	require.NoError(t, err)
	node, pc := newPublicClient(t, client.Config{
		Multicall:     true,
		MulticallWait: 100 * time.Millisecond,
		Metrics:       m,
	})
	require.True(t, pc.Multicall())

	outcomes := callConcurrently(t, pc, "name", "symbol", "decimals")

	erc20 := ethereumtest.ERC20ABI()
	want := []interface{}{ethereumtest.TokenName, ethereumtest.TokenSymbol, uint8(ethereumtest.TokenDecimals)}
	for i, method := range []string{"name", "symbol", "decimals"} {
		require.NoError(t, outcomes[i].err, method)
		res, err := erc20.Unpack(method, outcomes[i].out)
		require.NoError(t, err)
		assert.Equal(t, want[i], res[0])
	}
	assert.Equal(t, 1, node.Calls())
	assert.Equal(t, 1, node.AggregateCalls())
	assert.Equal(t, float64(1), testutil.ToFloat64(m.MulticallBatches))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.MulticallCalls))
}

func Test_Multicall_RevertIsolation(t *testing.T) {
	node, pc := newPublicClient(t, client.Config{Multicall: true, MulticallWait: 100 * time.Millisecond})
	node.RevertMethod("symbol", "no symbol")

	outcomes := callConcurrently(t, pc, "name", "symbol", "decimals")

	assert.NoError(t, outcomes[0].err)
	assert.ErrorIs(t, outcomes[1].err, chainsheet.ErrCallReverted)
	assert.Contains(t, outcomes[1].err.Error(), "no symbol")
	assert.NoError(t, outcomes[2].err)
	assert.Equal(t, 1, node.AggregateCalls())
}

func Test_Multicall_SingleCall(t *testing.T) {
	node, pc := newPublicClient(t, client.Config{Multicall: true})

	outcomes := callConcurrently(t, pc, "name")
	require.NoError(t, outcomes[0].err)
	assert.Equal(t, 1, node.Calls())
	assert.Equal(t, 0, node.AggregateCalls())
}

func Test_Multicall_BatchSize(t *testing.T) {
	rng := rand.New(rand.NewSource(1729))
	holder1, holder2 := ethereumtest.NewRandomAddress(rng), ethereumtest.NewRandomAddress(rng)
	// Calldata of balanceOf is 36 bytes, so the second call fills the batch.
	node, pc := newPublicClient(t, client.Config{
		Multicall:          true,
		MulticallWait:      time.Minute,
		MulticallBatchSize: 72,
	})
	node.Mint(holder1, big.NewInt(10))
	node.Mint(holder2, big.NewInt(20))

	erc20 := ethereumtest.ERC20ABI()
	results := make([]*big.Int, 2)
	var wg sync.WaitGroup
	for i, holder := range []interface{}{holder1, holder2} {
		input, err := erc20.Pack("balanceOf", holder)
		require.NoError(t, err)
		wg.Add(1)
		go func(i int, input []byte) {
			defer wg.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			out, err := pc.Call(ctx, ethereum.CallMsg{To: &ethereumtest.TokenAddr, Data: input})
			if !assert.NoError(t, err) {
				return
			}
			res, err := erc20.Unpack("balanceOf", out)
			if assert.NoError(t, err) {
				results[i] = res[0].(*big.Int)
			}
		}(i, input)
	}
	wg.Wait()

	require.NotNil(t, results[0])
	require.NotNil(t, results[1])
	assert.Equal(t, int64(10), results[0].Int64())
	assert.Equal(t, int64(20), results[1].Int64())
	assert.Equal(t, 1, node.AggregateCalls())
}

func Test_Multicall_IneligibleCall(t *testing.T) {
	rng := rand.New(rand.NewSource(1729))
	node, pc := newPublicClient(t, client.Config{Multicall: true, MulticallWait: time.Minute})

	input, err := ethereumtest.ERC20ABI().Pack("name")
	require.NoError(t, err)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = pc.Call(ctx, ethereum.CallMsg{
		From: ethereumtest.NewRandomAddress(rng), To: &ethereumtest.TokenAddr, Data: input,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, node.AggregateCalls())
}

func Test_Aggregate3_Codec(t *testing.T) {
	calls := []client.Call3{
		{Target: ethereumtest.TokenAddr, AllowFailure: true, CallData: []byte{0x01, 0x02}},
		{Target: ethereumtest.MulticallAddr, AllowFailure: false, CallData: []byte{}},
	}
	input, err := client.PackAggregate3(calls)
	require.NoError(t, err)
	got, err := client.UnpackAggregate3Input(input)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, calls[0], got[0])
	assert.Equal(t, calls[1].Target, got[1].Target)
	assert.False(t, got[1].AllowFailure)

	_, err = client.UnpackAggregate3Input([]byte{0x01})
	assert.Error(t, err)
}
