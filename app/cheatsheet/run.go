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

package cheatsheet

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"github.com/direct-state-transfer/chainsheet/blockchain/ethereum"
	"github.com/direct-state-transfer/chainsheet/config"
	"github.com/direct-state-transfer/chainsheet/contract"
	"github.com/direct-state-transfer/chainsheet/log"
	"github.com/direct-state-transfer/chainsheet/metrics"
)

// Run executes the cheat sheet and writes the results of each step to out:
//
//	balance: <native balance of the balance address>
//	send ether tx: <hash>
//	token name: <name>
//	<symbol> balance of <holder>: <token balance>
//	transfer erc20 tx: <hash>
//
// followed by one line per Transfer event of the token emitted after the transfer was sent.
// A missing or invalid credential fails the run before any transaction is sent.
//
// Once watching, Run blocks until the watch fails, in which case the error is returned, or
// the context is done, in which case it returns nil.
func Run(ctx context.Context, cfg config.Config, out io.Writer) error {
	m, err := startMetrics(ctx, cfg.MetricsAddr)
	if err != nil {
		return err
	}
	s, err := NewSession(ctx, cfg, m)
	if err != nil {
		return err
	}
	defer s.Close()
	w := &syncWriter{w: out}

	if _, err = s.CheckSync(ctx); err != nil {
		return err
	}

	balance, err := s.NativeBalance(ctx, common.HexToAddress(cfg.Addresses.Balance))
	if err != nil {
		return err
	}
	w.Printf("balance: %s\n", balance)

	acc, err := ethereum.NewAccount(cfg.Credential)
	if err != nil {
		return err
	}
	recipient := common.HexToAddress(cfg.Addresses.Recipient)
	hash, err := s.SendNative(ctx, acc, recipient, cfg.Amounts.Native)
	if err != nil {
		return err
	}
	w.Printf("send ether tx: %s\n", hash.Hex())

	name, err := s.TokenName(ctx)
	if err != nil {
		return err
	}
	w.Printf("token name: %s\n", name)

	info, err := s.TokenInfo(ctx, common.HexToAddress(cfg.Addresses.TokenHolder))
	if err != nil {
		return err
	}
	w.Printf("%s\n", info)

	hash, err = s.TransferToken(ctx, acc, recipient, cfg.Amounts.Token, &info.Decimals)
	if err != nil {
		return err
	}
	w.Printf("transfer erc20 tx: %s\n", hash.Hex())

	sub, err := s.WatchTransfers(ctx, func(e contract.Event) { w.Printf("%s\n", e) })
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	select {
	case err = <-sub.Err():
		if ctx.Err() != nil {
			return nil
		}
		return errors.WithMessage(err, "watching transfers")
	case <-ctx.Done():
		s.Logger.Info("Stopped watching transfers")
		return nil
	}
}

// startMetrics serves the metrics at addr until the context is done. If addr is empty, no
// metrics are collected.
func startMetrics(ctx context.Context, addr string) (*metrics.Metrics, error) {
	if addr == "" {
		return nil, nil
	}
	m, err := metrics.New()
	if err != nil {
		return nil, err
	}
	logger := log.NewLoggerWithField("metrics", addr)
	go func() {
		logger.Info("Serving metrics")
		if err := m.Serve(ctx, addr); err != nil {
			logger.Error("Serving metrics: ", err)
		}
	}()
	return m, nil
}

// syncWriter serializes the writes of the run and the event watch.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (sw *syncWriter) Printf(format string, a ...interface{}) {
	sw.mu.Lock()
	defer sw.mu.Unlock()
	fmt.Fprintf(sw.w, format, a...) // nolint: errcheck
}
