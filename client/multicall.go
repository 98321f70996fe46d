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
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	"github.com/direct-state-transfer/chainsheet"
	"github.com/direct-state-transfer/chainsheet/log"
	"github.com/direct-state-transfer/chainsheet/metrics"
)

// Multicall3ABI is the abi of the aggregate3 function of the Multicall3 contract.
const Multicall3ABI = `[{"inputs":[{"components":[` +
	`{"internalType":"address","name":"target","type":"address"},` +
	`{"internalType":"bool","name":"allowFailure","type":"bool"},` +
	`{"internalType":"bytes","name":"callData","type":"bytes"}],` +
	`"internalType":"struct Multicall3.Call3[]","name":"calls","type":"tuple[]"}],` +
	`"name":"aggregate3","outputs":[{"components":[` +
	`{"internalType":"bool","name":"success","type":"bool"},` +
	`{"internalType":"bytes","name":"returnData","type":"bytes"}],` +
	`"internalType":"struct Multicall3.Result[]","name":"returnData","type":"tuple[]"}],` +
	`"stateMutability":"payable","type":"function"}]`

var multicallABI abi.ABI

func init() {
	var err error
	if multicallABI, err = abi.JSON(strings.NewReader(Multicall3ABI)); err != nil {
		panic("parsing multicall abi: " + err.Error())
	}
}

// Call3 is a single call in an aggregate3 request.
type Call3 struct {
	Target       common.Address
	AllowFailure bool
	CallData     []byte
}

// Result3 is the result of a single call in an aggregate3 request.
type Result3 struct {
	Success    bool
	ReturnData []byte
}

// PackAggregate3 encodes the calldata for an aggregate3 request.
func PackAggregate3(calls []Call3) ([]byte, error) {
	input, err := multicallABI.Pack("aggregate3", calls)
	return input, errors.Wrap(err, "packing aggregate3")
}

// UnpackAggregate3 decodes the return data of an aggregate3 request.
func UnpackAggregate3(output []byte) ([]Result3, error) {
	out, err := multicallABI.Unpack("aggregate3", output)
	if err != nil {
		return nil, errors.Wrap(err, "unpacking aggregate3")
	}
	return *abi.ConvertType(out[0], new([]Result3)).(*[]Result3), nil
}

// UnpackAggregate3Input decodes the calldata of an aggregate3 request. The input should include the selector.
func UnpackAggregate3Input(input []byte) ([]Call3, error) {
	if len(input) < 4 {
		return nil, errors.New("input too short")
	}
	args, err := multicallABI.Methods["aggregate3"].Inputs.Unpack(input[4:])
	if err != nil {
		return nil, errors.Wrap(err, "unpacking aggregate3 input")
	}
	return *abi.ConvertType(args[0], new([]Call3)).(*[]Call3), nil
}

// PackAggregate3Output encodes the return data of an aggregate3 request.
func PackAggregate3Output(results []Result3) ([]byte, error) {
	output, err := multicallABI.Methods["aggregate3"].Outputs.Pack(results)
	return output, errors.Wrap(err, "packing aggregate3 output")
}

type contractCaller interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

type callResult struct {
	data []byte
	err  error
}

type pendingCall struct {
	target common.Address
	data   []byte
	result chan callResult // Buffered, receives exactly one value.
}

// multicall collects concurrent calls and sends them as a single aggregate3 call.
//
// A batch is sent when the wait duration since the first call in the batch expires or when
// the calldata collected reaches the batch size, whichever happens first.
type multicall struct {
	log.Logger

	caller  contractCaller
	address common.Address
	wait    time.Duration
	maxSize int
	timeout time.Duration
	metrics *metrics.Metrics

	mu      sync.Mutex
	pending []*pendingCall
	size    int
	timer   *time.Timer
}

func newMulticall(caller contractCaller, address common.Address, cfg Config) *multicall {
	return &multicall{
		Logger:  log.NewLoggerWithField("multicall", address.Hex()),
		caller:  caller,
		address: address,
		wait:    cfg.MulticallWait,
		maxSize: cfg.MulticallBatchSize,
		timeout: cfg.MulticallTimeout,
		metrics: cfg.Metrics,
	}
}

// call queues the call and waits for its result. If the context is done before the batch
// returns, the call is abandoned but the batch is still sent.
func (m *multicall) call(ctx context.Context, target common.Address, data []byte) ([]byte, error) {
	pc := &pendingCall{target: target, data: data, result: make(chan callResult, 1)}
	m.enqueue(pc)

	select {
	case r := <-pc.result:
		return r.data, r.err
	case <-ctx.Done():
		return nil, errors.WithStack(ctx.Err())
	}
}

func (m *multicall) enqueue(pc *pendingCall) {
	m.mu.Lock()
	m.pending = append(m.pending, pc)
	m.size += len(pc.data)

	var batch []*pendingCall
	if m.size >= m.maxSize {
		batch = m.takeLocked()
	} else if m.timer == nil {
		m.timer = time.AfterFunc(m.wait, m.flush)
	}
	m.mu.Unlock()

	if batch != nil {
		go m.execute(batch)
	}
}

// takeLocked removes and returns the pending calls. m.mu must be held.
func (m *multicall) takeLocked() []*pendingCall {
	batch := m.pending
	m.pending, m.size = nil, 0
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	return batch
}

func (m *multicall) flush() {
	m.mu.Lock()
	batch := m.takeLocked()
	m.mu.Unlock()

	if len(batch) != 0 {
		m.execute(batch)
	}
}

func (m *multicall) execute(batch []*pendingCall) {
	ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
	defer cancel()

	if len(batch) == 1 {
		pc := batch[0]
		data, err := m.caller.CallContract(ctx, ethereum.CallMsg{To: &pc.target, Data: pc.data}, nil)
		if err != nil {
			err = callError(pc.target, err)
		}
		pc.result <- callResult{data: data, err: err}
		return
	}

	results, err := m.aggregate(ctx, batch)
	if err != nil {
		m.Logger.Error(err)
		for _, pc := range batch {
			pc.result <- callResult{err: err}
		}
		return
	}

	m.metrics.ObserveMulticall(len(batch))
	m.Logger.Debugf("Sent batch of %d calls", len(batch))
	for i, pc := range batch {
		if !results[i].Success {
			pc.result <- callResult{err: revertError(pc.target, results[i].ReturnData)}
			continue
		}
		pc.result <- callResult{data: results[i].ReturnData}
	}
}

func (m *multicall) aggregate(ctx context.Context, batch []*pendingCall) ([]Result3, error) {
	calls := make([]Call3, len(batch))
	for i, pc := range batch {
		calls[i] = Call3{Target: pc.target, AllowFailure: true, CallData: pc.data}
	}
	input, err := PackAggregate3(calls)
	if err != nil {
		return nil, err
	}
	output, err := m.caller.CallContract(ctx, ethereum.CallMsg{To: &m.address, Data: input}, nil)
	if err != nil {
		return nil, errors.Wrap(err, "multicall")
	}
	results, err := UnpackAggregate3(output)
	if err != nil {
		return nil, errors.WithMessage(err, "multicall")
	}
	if len(results) != len(batch) {
		return nil, errors.Errorf("multicall: got %d results for %d calls", len(results), len(batch))
	}
	return results, nil
}

// callError converts the error of a reverted eth_call, which carries the revert data, to an
// error wrapping chainsheet.ErrCallReverted. Other errors are returned unchanged.
func callError(target common.Address, err error) error {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return errors.Wrap(err, "calling contract")
	}
	hexData, ok := dataErr.ErrorData().(string)
	if !ok {
		return errors.Wrap(err, "calling contract")
	}
	data, decodeErr := hexutil.Decode(hexData)
	if decodeErr != nil {
		return errors.Wrap(err, "calling contract")
	}
	return revertError(target, data)
}

func revertError(target common.Address, returnData []byte) error {
	if reason, err := abi.UnpackRevert(returnData); err == nil {
		return errors.Wrapf(chainsheet.ErrCallReverted, "call to %s: %s", target.Hex(), reason)
	}
	return errors.Wrapf(chainsheet.ErrCallReverted, "call to %s", target.Hex())
}
