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

// Package client provides the two handles to a remote chain endpoint used by the
// cheat sheet: a PublicClient for read-only queries and a WalletClient for
// submitting signed transactions. Both are bound to a single chain and talk to
// the endpoint over the go-ethereum rpc client (http, websocket or ipc).
package client

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	"github.com/direct-state-transfer/chainsheet"
	"github.com/direct-state-transfer/chainsheet/metrics"
)

// Default values for the multicall batching parameters.
const (
	DefaultMulticallWait      = 10 * time.Millisecond
	DefaultMulticallBatchSize = 1024
	DefaultMulticallTimeout   = 30 * time.Second
)

// Config defines the parameters for initializing a client.
type Config struct {
	// URL of the rpc endpoint. If empty, the default url of the chain is used.
	URL string

	// Multicall enables aggregation of concurrent read calls into a single call to the
	// Multicall3 contract of the chain. It is ignored by the wallet client.
	Multicall bool
	// MulticallWait is the duration for which calls are collected before a batch is sent.
	MulticallWait time.Duration
	// MulticallBatchSize is the size of calldata (in bytes) that triggers sending a batch
	// before MulticallWait expires.
	MulticallBatchSize int
	// MulticallTimeout limits the duration of an aggregated call.
	MulticallTimeout time.Duration

	Metrics *metrics.Metrics // Optional.
}

func (cfg Config) withDefaults() Config {
	if cfg.MulticallWait == 0 {
		cfg.MulticallWait = DefaultMulticallWait
	}
	if cfg.MulticallBatchSize == 0 {
		cfg.MulticallBatchSize = DefaultMulticallBatchSize
	}
	if cfg.MulticallTimeout == 0 {
		cfg.MulticallTimeout = DefaultMulticallTimeout
	}
	return cfg
}

// Dial connects to the rpc endpoint at the given url.
func Dial(ctx context.Context, url string) (*rpc.Client, error) {
	rc, err := rpc.DialContext(ctx, url)
	if err != nil {
		return nil, errors.Wrap(err, "connecting to rpc endpoint")
	}
	return rc, nil
}

func endpointURL(chain chainsheet.Chain, url string) string {
	if url != "" {
		return url
	}
	return chain.RPCURL
}
