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
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	"github.com/direct-state-transfer/chainsheet/client"
)

// Gas reported by eth_estimateGas.
const (
	TransferGas     = 21000
	ContractCallGas = 60000
)

// placeholderCode is returned by eth_getCode for the emulated contracts.
var placeholderCode = hexutil.Bytes{0x60, 0x80, 0x60, 0x40, 0x52}

// revertSelector is the selector of Error(string).
var revertSelector = []byte{0x08, 0xc3, 0x79, 0xa0}

type callArgs struct {
	From  *common.Address `json:"from"`
	To    *common.Address `json:"to"`
	Value *hexutil.Big    `json:"value"`
	Data  *hexutil.Bytes  `json:"data"`
	Input *hexutil.Bytes  `json:"input"`
}

func (args callArgs) data() []byte {
	if args.Input != nil {
		return *args.Input
	}
	if args.Data != nil {
		return *args.Data
	}
	return nil
}

type filterArgs struct {
	Address   []common.Address `json:"address"`
	Topics    [][]common.Hash  `json:"topics"`
	FromBlock string           `json:"fromBlock"`
	ToBlock   string           `json:"toBlock"`
}

func (f filterArgs) matches(l types.Log) bool {
	if len(f.Address) != 0 {
		found := false
		for _, addr := range f.Address {
			if addr == l.Address {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if len(f.Topics) > len(l.Topics) {
		return false
	}
	for i, alternatives := range f.Topics {
		if len(alternatives) == 0 {
			continue
		}
		found := false
		for _, topic := range alternatives {
			if topic == l.Topics[i] {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// revertErr is returned for reverted calls and transactions. It carries the revert data
// in the same way as the rpc errors of geth.
type revertErr struct {
	reason string
	data   []byte
}

func (e *revertErr) Error() string          { return "execution reverted: " + e.reason }
func (e *revertErr) ErrorCode() int         { return 3 }
func (e *revertErr) ErrorData() interface{} { return hexutil.Encode(e.data) }

func newRevertErr(reason string) *revertErr {
	stringType, err := abi.NewType("string", "", nil)
	if err != nil {
		panic(err)
	}
	packed, err := abi.Arguments{{Type: stringType}}.Pack(reason)
	if err != nil {
		panic(err)
	}
	return &revertErr{reason: reason, data: append(append([]byte{}, revertSelector...), packed...)}
}

// ethAPI implements the subset of the "eth" namespace served by the Node.
type ethAPI struct {
	n *Node
}

func (api *ethAPI) ChainId() *hexutil.Big {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	return (*hexutil.Big)(new(big.Int).Set(api.n.chainID))
}

func (api *ethAPI) BlockNumber() hexutil.Uint64 {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	return hexutil.Uint64(api.n.head)
}

func (api *ethAPI) GetBlockByNumber(number string, full bool) (*types.Header, error) {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	if number != "latest" && number != "pending" {
		return nil, errors.Errorf("only the latest block is served, got %s", number)
	}
	return api.n.headerLocked(), nil
}

func (api *ethAPI) GetBalance(addr common.Address, block string) *hexutil.Big {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	return (*hexutil.Big)(api.n.balanceLocked(api.n.balances, addr))
}

func (api *ethAPI) GetCode(addr common.Address, block string) hexutil.Bytes {
	if addr == TokenAddr || addr == MulticallAddr {
		return placeholderCode
	}
	return hexutil.Bytes{}
}

func (api *ethAPI) GetTransactionCount(addr common.Address, block string) hexutil.Uint64 {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	return hexutil.Uint64(api.n.nonces[addr])
}

func (api *ethAPI) GasPrice() *hexutil.Big {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	price := big.NewInt(params.GWei)
	if api.n.baseFee != nil {
		price.Add(price, api.n.baseFee)
	}
	return (*hexutil.Big)(price)
}

func (api *ethAPI) MaxPriorityFeePerGas() *hexutil.Big {
	return (*hexutil.Big)(big.NewInt(params.GWei))
}

func (api *ethAPI) EstimateGas(args callArgs, block *string) hexutil.Uint64 {
	if len(args.data()) == 0 {
		return TransferGas
	}
	return ContractCallGas
}

func (api *ethAPI) Call(args callArgs, block *string) (hexutil.Bytes, error) {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	api.n.calls++

	if args.To == nil {
		return nil, errors.New("contract creation is not supported")
	}
	if *args.To == MulticallAddr {
		api.n.aggregateCalls++
		return api.n.aggregate3Locked(args.data())
	}
	out, err := api.n.callLocked(*args.To, args.data())
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (api *ethAPI) SendRawTransaction(raw hexutil.Bytes) (common.Hash, error) {
	tx := new(types.Transaction)
	if err := tx.UnmarshalBinary(raw); err != nil {
		return common.Hash{}, errors.Wrap(err, "decoding transaction")
	}

	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	if tx.Protected() && tx.ChainId().Cmp(api.n.chainID) != 0 {
		return common.Hash{}, errors.Errorf("invalid chain id %v", tx.ChainId())
	}
	from, err := types.Sender(types.LatestSignerForChainID(api.n.chainID), tx)
	if err != nil {
		return common.Hash{}, errors.Wrap(err, "invalid sender")
	}
	if nonce := api.n.nonces[from]; tx.Nonce() != nonce {
		return common.Hash{}, errors.Errorf("invalid nonce: got %d, want %d", tx.Nonce(), nonce)
	}
	balance := api.n.balanceLocked(api.n.balances, from)
	if balance.Cmp(tx.Cost()) < 0 {
		return common.Hash{}, errors.Errorf("insufficient funds for gas * price + value: have %v want %v",
			balance, tx.Cost())
	}
	if tx.To() == nil {
		return common.Hash{}, errors.New("contract creation is not supported")
	}
	if *tx.To() == TokenAddr && len(tx.Data()) != 0 {
		// The transaction is included in the block after the current head.
		if err := api.n.transferLocked(api.n.head+1, tx.Hash(), from, tx.Data()); err != nil {
			return common.Hash{}, err
		}
	}

	// Gas is not charged.
	to := *tx.To()
	api.n.balances[from] = balance.Sub(balance, tx.Value())
	api.n.balances[to] = new(big.Int).Add(api.n.balanceLocked(api.n.balances, to), tx.Value())
	api.n.nonces[from]++
	api.n.txs = append(api.n.txs, tx)
	api.n.head++
	return tx.Hash(), nil
}

func (api *ethAPI) GetLogs(crit filterArgs) ([]types.Log, error) {
	api.n.mu.Lock()
	defer api.n.mu.Unlock()
	from, err := api.n.blockNumberLocked(crit.FromBlock)
	if err != nil {
		return nil, err
	}
	to, err := api.n.blockNumberLocked(crit.ToBlock)
	if err != nil {
		return nil, err
	}
	logs := []types.Log{}
	for _, l := range api.n.logs {
		if l.BlockNumber >= from && l.BlockNumber <= to && crit.matches(l) {
			logs = append(logs, l)
		}
	}
	return logs, nil
}

// Logs pushes the logs matching the criteria as they are included.
func (api *ethAPI) Logs(ctx context.Context, crit filterArgs) (*rpc.Subscription, error) {
	notifier, ok := rpc.NotifierFromContext(ctx)
	if !ok {
		return nil, rpc.ErrNotificationsUnsupported
	}
	sub := notifier.CreateSubscription()
	feed := api.n.subscribe()
	go func() {
		defer api.n.unsubscribe(feed)
		for {
			select {
			case l := <-feed:
				if crit.matches(l) {
					_ = notifier.Notify(sub.ID, l)
				}
			case <-sub.Err():
				return
			}
		}
	}()
	return sub, nil
}

func (n *Node) blockNumberLocked(tag string) (uint64, error) {
	switch tag {
	case "", "latest", "pending", "safe", "finalized":
		return n.head, nil
	case "earliest":
		return 0, nil
	}
	num, err := hexutil.DecodeUint64(tag)
	return num, errors.Wrapf(err, "decoding block number %s", tag)
}

// callLocked executes a read-only call to the target. Addresses without emulated code
// return empty output.
func (n *Node) callLocked(target common.Address, data []byte) ([]byte, error) {
	if target != TokenAddr {
		return []byte{}, nil
	}
	if len(data) < 4 {
		return nil, newRevertErr("invalid calldata")
	}
	method, err := erc20ABI.MethodById(data[:4])
	if err != nil {
		return nil, newRevertErr("unknown method")
	}
	if reason, ok := n.reverts[method.Name]; ok {
		return nil, newRevertErr(reason)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, newRevertErr("invalid arguments")
	}

	switch method.Name {
	case "name":
		return method.Outputs.Pack(TokenName)
	case "symbol":
		return method.Outputs.Pack(TokenSymbol)
	case "decimals":
		return method.Outputs.Pack(uint8(TokenDecimals))
	case "balanceOf":
		return method.Outputs.Pack(n.balanceLocked(n.token, args[0].(common.Address)))
	case "transfer":
		return method.Outputs.Pack(true)
	}
	return nil, newRevertErr(fmt.Sprintf("method %s is not callable", method.Name))
}

func (n *Node) aggregate3Locked(input []byte) ([]byte, error) {
	calls, err := client.UnpackAggregate3Input(input)
	if err != nil {
		return nil, newRevertErr("invalid aggregate3 calldata")
	}
	results := make([]client.Result3, len(calls))
	for i, call := range calls {
		out, err := n.callLocked(call.Target, call.CallData)
		var rerr *revertErr
		switch {
		case errors.As(err, &rerr) && call.AllowFailure:
			results[i] = client.Result3{Success: false, ReturnData: rerr.data}
		case err != nil:
			return nil, newRevertErr("Multicall3: call failed")
		default:
			results[i] = client.Result3{Success: true, ReturnData: out}
		}
	}
	return client.PackAggregate3Output(results)
}

func (n *Node) transferLocked(block uint64, txHash common.Hash, from common.Address, data []byte) error {
	method, err := erc20ABI.MethodById(data[:min(len(data), 4)])
	if err != nil || method.Name != "transfer" {
		return newRevertErr("unknown method")
	}
	if reason, ok := n.reverts[method.Name]; ok {
		return newRevertErr(reason)
	}
	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return newRevertErr("invalid arguments")
	}
	to, value := args[0].(common.Address), args[1].(*big.Int)
	balance := n.balanceLocked(n.token, from)
	if balance.Cmp(value) < 0 {
		return newRevertErr("ERC20: transfer amount exceeds balance")
	}
	n.token[from] = balance.Sub(balance, value)
	n.token[to] = new(big.Int).Add(n.balanceLocked(n.token, to), value)
	n.emitTransferLocked(block, txHash, from, to, value)
	return nil
}
