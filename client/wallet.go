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

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	"github.com/direct-state-transfer/chainsheet"
	"github.com/direct-state-transfer/chainsheet/log"
	"github.com/direct-state-transfer/chainsheet/metrics"
)

// TxRequest describes a transaction to be sent. Nonce, gas and fees are filled by the wallet client.
type TxRequest struct {
	To    common.Address
	Value *big.Int // In base units of the native currency. Nil means zero.
	Data  []byte
}

// WalletClient is a handle to a remote chain endpoint that can submit signed transactions.
type WalletClient struct {
	log.Logger

	chain   chainsheet.Chain
	rpc     *rpc.Client
	eth     *ethclient.Client
	metrics *metrics.Metrics
}

// DialWalletClient connects to the configured endpoint and returns a wallet client bound to the chain.
func DialWalletClient(ctx context.Context, chain chainsheet.Chain, cfg Config) (*WalletClient, error) {
	rc, err := Dial(ctx, endpointURL(chain, cfg.URL))
	if err != nil {
		return nil, err
	}
	return NewWalletClient(chain, rc, cfg), nil
}

// NewWalletClient returns a wallet client bound to the chain that uses the given rpc connection.
func NewWalletClient(chain chainsheet.Chain, rc *rpc.Client, cfg Config) *WalletClient {
	return &WalletClient{
		Logger:  log.NewLoggerWithField("wallet-client", chain.Name),
		chain:   chain,
		rpc:     rc,
		eth:     ethclient.NewClient(rc),
		metrics: cfg.Metrics,
	}
}

// Chain returns the chain the client is bound to.
func (c *WalletClient) Chain() chainsheet.Chain {
	return c.chain
}

// Metrics returns the metrics the client reports to. It may be nil.
func (c *WalletClient) Metrics() *metrics.Metrics {
	return c.metrics
}

// Transactor returns the backend for sending contract transactions with go-ethereum bindings.
func (c *WalletClient) Transactor() bind.ContractTransactor {
	return c.eth
}

// VerifyChain checks that the endpoint serves the chain the client is bound to.
func (c *WalletClient) VerifyChain(ctx context.Context) error {
	id, err := c.eth.ChainID(ctx)
	if err != nil {
		return errors.Wrap(err, "reading chain id")
	}
	if id.Cmp(c.chain.ID) != 0 {
		return errors.Wrapf(chainsheet.ErrChainMismatch, "endpoint: %v, configured: %v", id, c.chain.ID)
	}
	return nil
}

// SendTransaction signs the transaction with the account and submits it. It returns the transaction
// hash as soon as the endpoint accepts the transaction, without waiting for it to be included in a block.
//
// EIP-1559 fees are used if the latest block has a base fee, legacy gas price otherwise.
func (c *WalletClient) SendTransaction(ctx context.Context, acc chainsheet.Account, req TxRequest) (
	common.Hash, error) {
	c.Logger.Debug("Received request: client.SendTransaction")
	if err := c.VerifyChain(ctx); err != nil {
		return common.Hash{}, err
	}
	opts, err := acc.TransactOpts(ctx, c.chain.ID)
	if err != nil {
		return common.Hash{}, err
	}
	tx, err := c.newTx(ctx, opts.From, req)
	if err != nil {
		return common.Hash{}, err
	}
	signedTx, err := opts.Signer(opts.From, tx)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "signing transaction")
	}
	if err = c.eth.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, errors.Wrap(err, "sending transaction")
	}

	kind := metrics.TxNative
	if len(req.Data) != 0 {
		kind = metrics.TxContract
	}
	c.metrics.IncTxSent(kind)
	c.Logger.Infof("Sent transaction %s from %s to %s", signedTx.Hash().Hex(), opts.From.Hex(), req.To.Hex())
	return signedTx.Hash(), nil
}

func (c *WalletClient) newTx(ctx context.Context, from common.Address, req TxRequest) (*types.Transaction, error) {
	value := req.Value
	if value == nil {
		value = new(big.Int)
	}
	nonce, err := c.eth.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, errors.Wrap(err, "reading nonce")
	}
	head, err := c.eth.HeaderByNumber(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(err, "reading latest block header")
	}
	msg := ethereum.CallMsg{From: from, To: &req.To, Value: value, Data: req.Data}

	if head.BaseFee == nil {
		gasPrice, err := c.eth.SuggestGasPrice(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "reading gas price")
		}
		msg.GasPrice = gasPrice
		gas, err := c.eth.EstimateGas(ctx, msg)
		if err != nil {
			return nil, errors.Wrap(err, "estimating gas")
		}
		return types.NewTx(&types.LegacyTx{
			Nonce: nonce, GasPrice: gasPrice, Gas: gas, To: &req.To, Value: value, Data: req.Data,
		}), nil
	}

	gasTipCap, err := c.eth.SuggestGasTipCap(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "reading gas tip cap")
	}
	gasFeeCap := new(big.Int).Add(gasTipCap, new(big.Int).Mul(head.BaseFee, big.NewInt(2)))
	msg.GasTipCap, msg.GasFeeCap = gasTipCap, gasFeeCap
	gas, err := c.eth.EstimateGas(ctx, msg)
	if err != nil {
		return nil, errors.Wrap(err, "estimating gas")
	}
	return types.NewTx(&types.DynamicFeeTx{
		ChainID: c.chain.ID, Nonce: nonce, GasTipCap: gasTipCap, GasFeeCap: gasFeeCap,
		Gas: gas, To: &req.To, Value: value, Data: req.Data,
	}), nil
}

// Close closes the underlying rpc connection.
func (c *WalletClient) Close() {
	c.rpc.Close()
}
