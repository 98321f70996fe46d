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

package ethereumtest

import (
	"math/big"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"

	"github.com/direct-state-transfer/chainsheet"
)

// Addresses of the contracts emulated by the Node.
var (
	MulticallAddr = common.HexToAddress("0xcA11bde05977b3631167028862bE2a173976CA11")
	TokenAddr     = common.HexToAddress("0x874069Fa1Eb16D44d622F2e0Ca25eeA172369bC1")
)

// Properties of the token emulated by the Node.
const (
	TokenName     = "Celo Dollar"
	TokenSymbol   = "cUSD"
	TokenDecimals = 18
)

// erc20JSON is the abi of the subset of the ERC-20 interface emulated by the Node.
const erc20JSON = `[
{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]},
{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[{"name":"account","type":"address"}],
 "outputs":[{"name":"","type":"uint256"}]},
{"type":"function","name":"transfer","stateMutability":"nonpayable",
 "inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"outputs":[{"name":"","type":"bool"}]},
{"type":"event","name":"Transfer","anonymous":false,"inputs":[{"name":"from","type":"address","indexed":true},
 {"name":"to","type":"address","indexed":true},{"name":"value","type":"uint256","indexed":false}]}
]`

var erc20ABI abi.ABI

func init() {
	var err error
	if erc20ABI, err = abi.JSON(strings.NewReader(erc20JSON)); err != nil {
		panic("parsing erc20 abi: " + err.Error())
	}
}

// ERC20ABI returns the abi of the token emulated by the Node.
func ERC20ABI() abi.ABI {
	return erc20ABI
}

// TransferEventID is the topic of the ERC-20 Transfer event.
func TransferEventID() common.Hash {
	return erc20ABI.Events["Transfer"].ID
}

// NewTestChain returns the chain served by a Node.
func NewTestChain() chainsheet.Chain {
	return chainsheet.Chain{
		Name:           "testchain",
		ID:             big.NewInt(1337),
		NativeCurrency: chainsheet.NativeCurrency{Name: "Ether", Symbol: "ETH", Decimals: 18},
		Multicall3:     MulticallAddr,
	}
}

// Node is an in-memory ethereum json-rpc node for tests. It serves the subset of the
// "eth" namespace used by the public and wallet clients, holds native balances and an
// ERC-20 token at TokenAddr, and emulates the Multicall3 contract at MulticallAddr.
//
// Every accepted transaction is included immediately in a new block.
type Node struct {
	server *rpc.Server

	mu       sync.Mutex
	chainID  *big.Int
	head     uint64
	time     uint64 // Fixed block time. Zero means wall clock time.
	baseFee  *big.Int
	balances map[common.Address]*big.Int
	nonces   map[common.Address]uint64
	token    map[common.Address]*big.Int
	reverts  map[string]string // method name to revert reason.
	txs      []*types.Transaction
	logs     []types.Log
	feeds    map[chan types.Log]struct{}

	calls          int
	aggregateCalls int
}

// NewNode initializes a node serving the test chain. The node is stopped on test cleanup.
func NewNode(t *testing.T) *Node {
	n := &Node{
		server:   rpc.NewServer(),
		chainID:  NewTestChain().ID,
		head:     1,
		baseFee:  big.NewInt(params.GWei),
		balances: make(map[common.Address]*big.Int),
		nonces:   make(map[common.Address]uint64),
		token:    make(map[common.Address]*big.Int),
		reverts:  make(map[string]string),
		feeds:    make(map[chan types.Log]struct{}),
	}
	require.NoError(t, n.server.RegisterName("eth", &ethAPI{n: n}))
	t.Cleanup(n.server.Stop)
	return n
}

// DialInProc returns an in-process rpc connection to the node. It supports subscriptions.
func (n *Node) DialInProc(t *testing.T) *rpc.Client {
	rc := rpc.DialInProc(n.server)
	t.Cleanup(rc.Close)
	return rc
}

// ServeHTTP serves the node over http and returns its url. Subscriptions are not
// supported over http.
func (n *Node) ServeHTTP(t *testing.T) string {
	srv := httptest.NewServer(n.server)
	t.Cleanup(srv.Close)
	return srv.URL
}

// SetChainID changes the chain id reported by the node.
func (n *Node) SetChainID(id *big.Int) {
	n.mu.Lock()
	n.chainID = id
	n.mu.Unlock()
}

// SetBlockTime fixes the timestamp of the latest block. Use zero to report the current time.
func (n *Node) SetBlockTime(unix uint64) {
	n.mu.Lock()
	n.time = unix
	n.mu.Unlock()
}

// SetLegacy makes the node report blocks without a base fee.
func (n *Node) SetLegacy() {
	n.mu.Lock()
	n.baseFee = nil
	n.mu.Unlock()
}

// RevertMethod makes all the calls to the given token method revert with the reason.
func (n *Node) RevertMethod(method, reason string) {
	n.mu.Lock()
	n.reverts[method] = reason
	n.mu.Unlock()
}

// Fund sets the native balance of the address.
func (n *Node) Fund(addr common.Address, amount *big.Int) {
	n.mu.Lock()
	n.balances[addr] = new(big.Int).Set(amount)
	n.mu.Unlock()
}

// Mint sets the token balance of the address.
func (n *Node) Mint(addr common.Address, amount *big.Int) {
	n.mu.Lock()
	n.token[addr] = new(big.Int).Set(amount)
	n.mu.Unlock()
}

// Balance returns the native balance of the address.
func (n *Node) Balance(addr common.Address) *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.balanceLocked(n.balances, addr)
}

// TokenBalance returns the token balance of the address.
func (n *Node) TokenBalance(addr common.Address) *big.Int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.balanceLocked(n.token, addr)
}

// Transactions returns the transactions accepted by the node, in order.
func (n *Node) Transactions() []*types.Transaction {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*types.Transaction(nil), n.txs...)
}

// Calls returns the number of eth_call requests served.
func (n *Node) Calls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls
}

// AggregateCalls returns the number of eth_call requests served by the multicall contract.
func (n *Node) AggregateCalls() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.aggregateCalls
}

// EmitTransfer includes a token Transfer log in a new block, without a transaction.
func (n *Node) EmitTransfer(from, to common.Address, value *big.Int) types.Log {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.head++
	return n.emitTransferLocked(n.head, common.Hash{}, from, to, value)
}

func (n *Node) balanceLocked(balances map[common.Address]*big.Int, addr common.Address) *big.Int {
	if bal, ok := balances[addr]; ok {
		return new(big.Int).Set(bal)
	}
	return new(big.Int)
}

func (n *Node) headerLocked() *types.Header {
	blockTime := n.time
	if blockTime == 0 {
		blockTime = uint64(time.Now().Unix())
	}
	var baseFee *big.Int
	if n.baseFee != nil {
		baseFee = new(big.Int).Set(n.baseFee)
	}
	return &types.Header{
		ParentHash: common.BigToHash(new(big.Int).SetUint64(n.head - 1)),
		Number:     new(big.Int).SetUint64(n.head),
		Difficulty: new(big.Int),
		GasLimit:   30000000,
		Time:       blockTime,
		Extra:      []byte{},
		BaseFee:    baseFee,
	}
}

func (n *Node) emitTransferLocked(block uint64, txHash common.Hash, from, to common.Address, value *big.Int) types.Log {
	event := erc20ABI.Events["Transfer"]
	data, err := event.Inputs.NonIndexed().Pack(value)
	if err != nil {
		panic("packing transfer log: " + err.Error())
	}
	l := types.Log{
		Address:     TokenAddr,
		Topics:      []common.Hash{event.ID, common.BytesToHash(from.Bytes()), common.BytesToHash(to.Bytes())},
		Data:        data,
		BlockNumber: block,
		TxHash:      txHash,
		BlockHash:   common.BytesToHash(crypto.Keccak256(new(big.Int).SetUint64(block).Bytes())),
		Index:       uint(len(n.logs)),
	}
	n.logs = append(n.logs, l)
	for feed := range n.feeds {
		select {
		case feed <- l:
		default: // Slow subscriber, drop the log.
		}
	}
	return l
}

func (n *Node) subscribe() chan types.Log {
	feed := make(chan types.Log, 128)
	n.mu.Lock()
	n.feeds[feed] = struct{}{}
	n.mu.Unlock()
	return feed
}

func (n *Node) unsubscribe(feed chan types.Log) {
	n.mu.Lock()
	delete(n.feeds, feed)
	n.mu.Unlock()
}
