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

// Package cheatsheet implements the cheat sheet flow: check the endpoint is in sync, read
// and transfer the native currency, then read, transfer and watch an ERC-20 token.
//
// Each step is available as a method on Session, so that it can be run on its own.
package cheatsheet

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/pkg/errors"

	"github.com/direct-state-transfer/chainsheet"
	"github.com/direct-state-transfer/chainsheet/chains"
	"github.com/direct-state-transfer/chainsheet/client"
	"github.com/direct-state-transfer/chainsheet/config"
	"github.com/direct-state-transfer/chainsheet/contract"
	"github.com/direct-state-transfer/chainsheet/currency"
	"github.com/direct-state-transfer/chainsheet/log"
	"github.com/direct-state-transfer/chainsheet/metrics"
)

// TransferEvent is the name of the token event watched by the cheat sheet.
const TransferEvent = "Transfer"

// Session holds the clients and the token contract session for one configuration.
type Session struct {
	log.Logger

	cfg    config.Config
	chain  chainsheet.Chain
	public *client.PublicClient
	wallet *client.WalletClient
	token  *contract.Contract
}

// TokenInfo is the result of the batched token reads.
type TokenInfo struct {
	Symbol   string
	Decimals uint8
	Holder   common.Address
	Balance  *big.Int // In base units of the token.
}

// String returns the token info in the form "SYMBOL balance of HOLDER: BALANCE".
func (info TokenInfo) String() string {
	return info.Symbol + " balance of " + info.Holder.Hex() + ": " + currency.FormatUnits(info.Balance, info.Decimals)
}

// NewSession connects the public and wallet clients to the configured endpoint and binds the
// ERC-20 abi to the configured token address. The metrics may be nil.
func NewSession(ctx context.Context, cfg config.Config, m *metrics.Metrics) (*Session, error) {
	chain, err := chains.ByName(cfg.Chain)
	if err != nil {
		return nil, err
	}
	clientCfg := client.Config{URL: cfg.RPCURL, Multicall: cfg.Multicall, Metrics: m}
	public, err := client.DialPublicClient(ctx, chain, clientCfg)
	if err != nil {
		return nil, err
	}
	wallet, err := client.DialWalletClient(ctx, chain, clientCfg)
	if err != nil {
		public.Close()
		return nil, err
	}
	erc20, err := contract.ParseABI(contract.ERC20)
	if err != nil {
		public.Close()
		wallet.Close()
		return nil, err
	}
	return &Session{
		Logger: log.NewLoggerWithField("cheatsheet", chain.Name),
		cfg:    cfg,
		chain:  chain,
		public: public,
		wallet: wallet,
		token:  contract.New(common.HexToAddress(cfg.Addresses.Token), erc20, public, wallet),
	}, nil
}

// Chain returns the chain of the session.
func (s *Session) Chain() chainsheet.Chain {
	return s.chain
}

// CheckSync fails with chainsheet.ErrRPCOutOfSync if the latest block is older than
// chainsheet.MaxBlockAge.
func (s *Session) CheckSync(ctx context.Context) (*types.Header, error) {
	return s.public.CheckSync(ctx, time.Now())
}

// NativeBalance returns the native balance of the address, formatted in whole units.
func (s *Session) NativeBalance(ctx context.Context, addr common.Address) (string, error) {
	bal, err := s.public.Balance(ctx, addr)
	if err != nil {
		return "", err
	}
	return currency.FormatUnits(bal, s.chain.NativeCurrency.Decimals), nil
}

// SendNative transfers amount (in whole units of the native currency) to the address.
// For the currencies known to the currency package, the amount must be positive.
func (s *Session) SendNative(ctx context.Context, acc chainsheet.Account, to common.Address, amount string) (
	common.Hash, error) {
	var value *big.Int
	var err error
	if symbol := s.chain.NativeCurrency.Symbol; currency.IsSupported(symbol) {
		value, err = currency.NewParser(symbol).Parse(amount)
	} else {
		value, err = currency.ParseUnits(amount, s.chain.NativeCurrency.Decimals)
	}
	if err != nil {
		return common.Hash{}, err
	}
	return s.wallet.SendTransaction(ctx, acc, client.TxRequest{To: to, Value: value})
}

// TokenName reads the name of the token.
func (s *Session) TokenName(ctx context.Context) (string, error) {
	out, err := s.token.Read(ctx, "name")
	if err != nil {
		return "", err
	}
	name, ok := out[0].(string)
	if !ok {
		return "", outputTypeError("name", out[0])
	}
	return name, nil
}

// TokenInfo reads the symbol and decimals of the token and the token balance of the holder
// concurrently. When multicall is enabled, the reads are sent in a single call.
func (s *Session) TokenInfo(ctx context.Context, holder common.Address) (TokenInfo, error) {
	out, err := s.token.ReadBatch(ctx,
		contract.ReadRequest{Method: "symbol"},
		contract.ReadRequest{Method: "decimals"},
		contract.ReadRequest{Method: "balanceOf", Args: []interface{}{holder}},
	)
	if err != nil {
		return TokenInfo{}, err
	}
	info := TokenInfo{Holder: holder}
	var ok bool
	if info.Symbol, ok = out[0][0].(string); !ok {
		return TokenInfo{}, outputTypeError("symbol", out[0][0])
	}
	if info.Decimals, ok = out[1][0].(uint8); !ok {
		return TokenInfo{}, outputTypeError("decimals", out[1][0])
	}
	if info.Balance, ok = out[2][0].(*big.Int); !ok {
		return TokenInfo{}, outputTypeError("balanceOf", out[2][0])
	}
	return info, nil
}

// TransferToken transfers amount (in whole units of the token) to the address. If decimals
// is nil, it is read from the token.
func (s *Session) TransferToken(ctx context.Context, acc chainsheet.Account, to common.Address, amount string,
	decimals *uint8) (common.Hash, error) {
	if decimals == nil {
		out, err := s.token.Read(ctx, "decimals")
		if err != nil {
			return common.Hash{}, err
		}
		d, ok := out[0].(uint8)
		if !ok {
			return common.Hash{}, outputTypeError("decimals", out[0])
		}
		decimals = &d
	}
	value, err := currency.ParseUnits(amount, *decimals)
	if err != nil {
		return common.Hash{}, err
	}
	return s.token.Write(ctx, acc, "transfer", to, value)
}

// WatchTransfers watches the Transfer events of the token and calls onEvent for each of them.
func (s *Session) WatchTransfers(ctx context.Context, onEvent func(contract.Event)) (event.Subscription, error) {
	opts := contract.WatchOpts{PollingInterval: s.cfg.PollingInterval}
	return s.token.WatchEvent(ctx, TransferEvent, opts, func(events []contract.Event) {
		for _, e := range events {
			onEvent(e)
		}
	})
}

// Close closes the connections of both clients.
func (s *Session) Close() {
	s.public.Close()
	s.wallet.Close()
}

func outputTypeError(method string, v interface{}) error {
	return errors.Errorf("unexpected output type %T of %s", v, method)
}
