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

// Package contract binds a parsed abi to a deployed contract and the two chain clients,
// and provides reads (single and batched), writes and event watching.
package contract

import (
	"context"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/direct-state-transfer/chainsheet"
	"github.com/direct-state-transfer/chainsheet/client"
	"github.com/direct-state-transfer/chainsheet/log"
	"github.com/direct-state-transfer/chainsheet/metrics"
)

// Contract is a session with a deployed contract. Reads go through the public client,
// writes through the wallet client.
type Contract struct {
	log.Logger

	address common.Address
	abi     abi.ABI
	public  *client.PublicClient
	wallet  *client.WalletClient // nil for read-only sessions.
}

// ReadRequest is a single read in a batch.
type ReadRequest struct {
	Method string
	Args   []interface{}
}

// New returns a session with the contract at address. The wallet client may be nil, in
// which case writes fail with chainsheet.ErrNoWallet.
func New(address common.Address, contractABI abi.ABI, public *client.PublicClient,
	wallet *client.WalletClient) *Contract {
	return &Contract{
		Logger:  log.NewLoggerWithField("contract", address.Hex()),
		address: address,
		abi:     contractABI,
		public:  public,
		wallet:  wallet,
	}
}

// Address returns the address of the contract.
func (c *Contract) Address() common.Address {
	return c.address
}

// ABI returns the abi the contract is bound with.
func (c *Contract) ABI() abi.ABI {
	return c.abi
}

// Read calls the view method with args at the latest block and returns the decoded outputs.
//
// A reverted call results in an error wrapping chainsheet.ErrCallReverted. If there is no
// contract at the address, the error is bind.ErrNoCode.
func (c *Contract) Read(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	c.Logger.Debug("Received request: contract.Read ", method)
	m, ok := c.abi.Methods[method]
	if !ok {
		return nil, errors.Wrap(chainsheet.ErrUnknownMethod, method)
	}
	input, err := c.abi.Pack(method, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "packing %s", method)
	}
	output, err := c.public.Call(ctx, ethereum.CallMsg{To: &c.address, Data: input})
	if err != nil {
		return nil, errors.WithMessage(err, method)
	}
	if len(output) == 0 && len(m.Outputs) != 0 {
		code, err := c.public.Code(ctx, c.address)
		if err != nil {
			return nil, err
		}
		if len(code) == 0 {
			return nil, bind.ErrNoCode
		}
	}
	values, err := m.Outputs.Unpack(output)
	return values, errors.Wrapf(err, "unpacking %s", method)
}

// ReadBatch issues the reads concurrently and returns their outputs in the order of reqs.
// If any read fails, the error of the first failure is returned and all outputs are discarded.
//
// When the public client has multicall enabled, the reads are aggregated into a single call.
func (c *Contract) ReadBatch(ctx context.Context, reqs ...ReadRequest) ([][]interface{}, error) {
	results := make([][]interface{}, len(reqs))
	g, gctx := errgroup.WithContext(ctx)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			values, err := c.Read(gctx, req.Method, req.Args...)
			if err != nil {
				return err
			}
			results[i] = values
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Write sends a transaction calling the method with args, signed by the account. It returns
// the hash as soon as the endpoint accepts the transaction, without waiting for it to be
// included in a block.
func (c *Contract) Write(ctx context.Context, acc chainsheet.Account, method string, args ...interface{}) (
	common.Hash, error) {
	c.Logger.Debug("Received request: contract.Write ", method)
	if c.wallet == nil {
		return common.Hash{}, errors.WithStack(chainsheet.ErrNoWallet)
	}
	if _, ok := c.abi.Methods[method]; !ok {
		return common.Hash{}, errors.Wrap(chainsheet.ErrUnknownMethod, method)
	}
	if err := c.wallet.VerifyChain(ctx); err != nil {
		return common.Hash{}, err
	}
	opts, err := acc.TransactOpts(ctx, c.wallet.Chain().ID)
	if err != nil {
		return common.Hash{}, err
	}
	bound := bind.NewBoundContract(c.address, c.abi, nil, c.wallet.Transactor(), nil)
	tx, err := bound.Transact(opts, method, args...)
	if err != nil {
		return common.Hash{}, errors.Wrapf(err, "sending %s transaction", method)
	}
	c.wallet.Metrics().IncTxSent(metrics.TxContract)
	c.Logger.Infof("Sent %s transaction %s", method, tx.Hash().Hex())
	return tx.Hash(), nil
}

// Event is a decoded contract event log.
type Event struct {
	Name string
	Args map[string]interface{}
	Log  types.Log

	argNames []string // In the order of the event signature.
}
