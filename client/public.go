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

package client

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	"github.com/direct-state-transfer/chainsheet"
	"github.com/direct-state-transfer/chainsheet/log"
	"github.com/direct-state-transfer/chainsheet/metrics"
)

// PublicClient is a read-only handle to a remote chain endpoint.
type PublicClient struct {
	log.Logger

	chain   chainsheet.Chain
	rpc     *rpc.Client
	eth     *ethclient.Client
	batcher *multicall // nil when multicall batching is disabled.
	metrics *metrics.Metrics
}

// DialPublicClient connects to the configured endpoint and returns a public client bound to the chain.
func DialPublicClient(ctx context.Context, chain chainsheet.Chain, cfg Config) (*PublicClient, error) {
	rc, err := Dial(ctx, endpointURL(chain, cfg.URL))
	if err != nil {
		return nil, err
	}
	return NewPublicClient(chain, rc, cfg), nil
}

// NewPublicClient returns a public client bound to the chain that uses the given rpc connection.
//
// If multicall is enabled in the config but the chain has no Multicall3 contract, batching
// is disabled and a warning is logged.
func NewPublicClient(chain chainsheet.Chain, rc *rpc.Client, cfg Config) *PublicClient {
	cfg = cfg.withDefaults()
	c := &PublicClient{
		Logger:  log.NewLoggerWithField("public-client", chain.Name),
		chain:   chain,
		rpc:     rc,
		eth:     ethclient.NewClient(rc),
		metrics: cfg.Metrics,
	}
	if cfg.Multicall {
		if chain.HasMulticall() {
			c.batcher = newMulticall(c.eth, chain.Multicall3, cfg)
		} else {
			c.Logger.Warn(errors.Wrap(chainsheet.ErrMulticallUnsupported, chain.Name), ", batching disabled")
		}
	}
	return c
}

// Chain returns the chain the client is bound to.
func (c *PublicClient) Chain() chainsheet.Chain {
	return c.chain
}

// Metrics returns the metrics the client reports to. It may be nil.
func (c *PublicClient) Metrics() *metrics.Metrics {
	return c.metrics
}

// Multicall reports whether read calls are batched.
func (c *PublicClient) Multicall() bool {
	return c.batcher != nil
}

// ChainID retrieves the chain id reported by the endpoint.
func (c *PublicClient) ChainID(ctx context.Context) (*big.Int, error) {
	c.Logger.Debug("Received request: client.ChainID")
	id, err := c.eth.ChainID(ctx)
	return id, errors.Wrap(err, "reading chain id")
}

// BlockHeader retrieves the header of the latest block.
func (c *PublicClient) BlockHeader(ctx context.Context) (*types.Header, error) {
	c.Logger.Debug("Received request: client.BlockHeader")
	head, err := c.eth.HeaderByNumber(ctx, nil)
	return head, errors.Wrap(err, "reading latest block header")
}

// BlockNumber retrieves the number of the latest block.
func (c *PublicClient) BlockNumber(ctx context.Context) (uint64, error) {
	c.Logger.Debug("Received request: client.BlockNumber")
	n, err := c.eth.BlockNumber(ctx)
	return n, errors.Wrap(err, "reading block number")
}

// Balance retrieves the native currency balance (in base units) of the address at the latest block.
func (c *PublicClient) Balance(ctx context.Context, addr common.Address) (*big.Int, error) {
	c.Logger.Debug("Received request: client.Balance")
	bal, err := c.eth.BalanceAt(ctx, addr, nil)
	return bal, errors.Wrap(err, "reading balance")
}

// Code retrieves the contract code at the address at the latest block.
func (c *PublicClient) Code(ctx context.Context, addr common.Address) ([]byte, error) {
	c.Logger.Debug("Received request: client.Code")
	code, err := c.eth.CodeAt(ctx, addr, nil)
	return code, errors.Wrap(err, "reading code")
}

// Call executes a read-only message call at the latest block. A reverted call results in an
// error wrapping chainsheet.ErrCallReverted.
//
// If multicall batching is enabled, calls that only set To and Data are aggregated with
// other concurrent calls.
func (c *PublicClient) Call(ctx context.Context, msg ethereum.CallMsg) ([]byte, error) {
	if c.batcher != nil && batchable(msg) {
		return c.batcher.call(ctx, *msg.To, msg.Data)
	}
	c.Logger.Debug("Received request: client.Call")
	out, err := c.eth.CallContract(ctx, msg, nil)
	if err != nil {
		var target common.Address
		if msg.To != nil {
			target = *msg.To
		}
		return nil, callError(target, err)
	}
	return out, nil
}

// FilterLogs retrieves the logs matching the query.
func (c *PublicClient) FilterLogs(ctx context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	c.Logger.Debug("Received request: client.FilterLogs")
	logs, err := c.eth.FilterLogs(ctx, q)
	return logs, errors.Wrap(err, "filtering logs")
}

// SubscribeFilterLogs subscribes to new logs matching the query. The returned error
// is rpc.ErrNotificationsUnsupported (unwrapped) if the transport cannot push notifications.
func (c *PublicClient) SubscribeFilterLogs(ctx context.Context, q ethereum.FilterQuery,
	ch chan<- types.Log) (ethereum.Subscription, error) {
	c.Logger.Debug("Received request: client.SubscribeFilterLogs")
	return c.eth.SubscribeFilterLogs(ctx, q, ch)
}

// CheckSync retrieves the latest block header and verifies that the block is not older than
// chainsheet.MaxBlockAge at the given time. If it is older, the error wraps chainsheet.ErrRPCOutOfSync.
func (c *PublicClient) CheckSync(ctx context.Context, now time.Time) (*types.Header, error) {
	head, err := c.BlockHeader(ctx)
	if err != nil {
		return nil, err
	}
	age := now.Unix() - int64(head.Time)
	c.metrics.ObserveBlockAge(time.Duration(age) * time.Second)
	if IsStale(head.Time, now) {
		return nil, errors.Wrapf(chainsheet.ErrRPCOutOfSync, "latest block %v is %ds old", head.Number, age)
	}
	return head, nil
}

// IsStale reports whether a block with the given timestamp (unix seconds) is older than
// chainsheet.MaxBlockAge at the given time. A block exactly MaxBlockAge old is not stale.
// Blocks with a timestamp in the future are not stale.
func IsStale(blockTime uint64, now time.Time) bool {
	return now.Unix()-int64(blockTime) > int64(chainsheet.MaxBlockAge/time.Second)
}

// Close closes the underlying rpc connection.
func (c *PublicClient) Close() {
	c.rpc.Close()
}

func batchable(msg ethereum.CallMsg) bool {
	return msg.To != nil && msg.From == (common.Address{}) && msg.Gas == 0 &&
		msg.GasPrice == nil && msg.GasFeeCap == nil && msg.GasTipCap == nil &&
		(msg.Value == nil || msg.Value.Sign() == 0) && msg.AccessList == nil
}
