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

package contract

import (
	"context"
	"fmt"
	"math/big"
	"sort"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/event"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/pkg/errors"

	"github.com/direct-state-transfer/chainsheet"
)

// DefaultPollingInterval is the interval between two eth_getLogs requests when polling for events.
const DefaultPollingInterval = 4 * time.Second

// WatchOpts configures an event watch.
type WatchOpts struct {
	// Poll forces polling even if the transport supports subscriptions.
	Poll bool
	// PollingInterval is used when polling. Defaults to DefaultPollingInterval.
	PollingInterval time.Duration
}

// WatchEvent watches for new logs of the named event emitted by the contract and calls
// onLogs with each delivered batch. Logs are pushed by the endpoint if the transport
// supports subscriptions, otherwise they are polled from the block after the current head.
//
// onLogs is called from a single goroutine. The watch runs until the returned subscription
// is unsubscribed, the context is done or the underlying transport fails. The cause is
// sent on the Err channel of the subscription.
func (c *Contract) WatchEvent(ctx context.Context, name string, opts WatchOpts, onLogs func([]Event)) (
	event.Subscription, error) {
	c.Logger.Debug("Received request: contract.WatchEvent ", name)
	ev, ok := c.abi.Events[name]
	if !ok {
		return nil, errors.Wrap(chainsheet.ErrUnknownEvent, name)
	}
	q := ethereum.FilterQuery{Addresses: []common.Address{c.address}}
	if !ev.Anonymous {
		q.Topics = [][]common.Hash{{ev.ID}}
	}

	if !opts.Poll {
		logs := make(chan types.Log, 64)
		sub, err := c.public.SubscribeFilterLogs(ctx, q, logs)
		if err == nil {
			c.Logger.Info("Watching ", name, " events with subscription")
			return c.pushWatch(ctx, ev, sub, logs, onLogs), nil
		}
		if !errors.Is(err, rpc.ErrNotificationsUnsupported) {
			return nil, errors.Wrap(err, "subscribing to logs")
		}
	}

	head, err := c.public.BlockNumber(ctx)
	if err != nil {
		return nil, err
	}
	interval := opts.PollingInterval
	if interval == 0 {
		interval = DefaultPollingInterval
	}
	c.Logger.Info("Watching ", name, " events by polling every ", interval)
	return c.pollWatch(ctx, ev, q, head+1, interval, onLogs), nil
}

func (c *Contract) pushWatch(ctx context.Context, ev abi.Event, sub ethereum.Subscription,
	logs <-chan types.Log, onLogs func([]Event)) event.Subscription {
	return event.NewSubscription(func(quit <-chan struct{}) error {
		defer sub.Unsubscribe()
		for {
			select {
			case l := <-logs:
				c.deliver(ev, []types.Log{l}, onLogs)
			case err := <-sub.Err():
				return errors.Wrap(err, "log subscription")
			case <-ctx.Done():
				return errors.WithStack(ctx.Err())
			case <-quit:
				return nil
			}
		}
	})
}

func (c *Contract) pollWatch(ctx context.Context, ev abi.Event, q ethereum.FilterQuery, from uint64,
	interval time.Duration, onLogs func([]Event)) event.Subscription {
	return event.NewSubscription(func(quit <-chan struct{}) error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
			case <-ctx.Done():
				return errors.WithStack(ctx.Err())
			case <-quit:
				return nil
			}

			head, err := c.public.BlockNumber(ctx)
			if err != nil {
				return err
			}
			if head < from {
				continue
			}
			q.FromBlock, q.ToBlock = new(big.Int).SetUint64(from), new(big.Int).SetUint64(head)
			logs, err := c.public.FilterLogs(ctx, q)
			if err != nil {
				return err
			}
			from = head + 1
			if len(logs) != 0 {
				c.deliver(ev, logs, onLogs)
			}
		}
	})
}

func (c *Contract) deliver(ev abi.Event, logs []types.Log, onLogs func([]Event)) {
	events := make([]Event, 0, len(logs))
	for _, l := range logs {
		e, err := decodeEvent(ev, l)
		if err != nil {
			c.Logger.Error("Decoding ", ev.Name, " log: ", err)
			continue
		}
		events = append(events, e)
	}
	if len(events) == 0 {
		return
	}
	c.public.Metrics().AddEvents(ev.Name, len(events))
	onLogs(events)
}

func decodeEvent(ev abi.Event, l types.Log) (Event, error) {
	args := make(map[string]interface{}, len(ev.Inputs))
	if err := ev.Inputs.UnpackIntoMap(args, l.Data); err != nil {
		return Event{}, errors.Wrap(err, "unpacking data")
	}
	var indexed abi.Arguments
	for _, arg := range ev.Inputs {
		if arg.Indexed {
			indexed = append(indexed, arg)
		}
	}
	topics := l.Topics
	if !ev.Anonymous {
		if len(topics) == 0 || topics[0] != ev.ID {
			return Event{}, errors.New("topic does not match event id")
		}
		topics = topics[1:]
	}
	if err := abi.ParseTopicsIntoMap(args, indexed, topics); err != nil {
		return Event{}, errors.Wrap(err, "parsing topics")
	}
	names := make([]string, len(ev.Inputs))
	for i, arg := range ev.Inputs {
		names[i] = arg.Name
	}
	return Event{Name: ev.RawName, Args: args, Log: l, argNames: names}, nil
}

// String returns the event in the form "Name(arg=value, ...) block=N tx=HASH", with the
// arguments in the order of the event signature.
func (e Event) String() string {
	names := e.argNames
	if names == nil {
		names = make([]string, 0, len(e.Args))
		for k := range e.Args {
			names = append(names, k)
		}
		sort.Strings(names)
	}
	return fmt.Sprintf("%s(%s) block=%d tx=%s", e.Name, formatArgs(e.Args, names), e.Log.BlockNumber,
		e.Log.TxHash.Hex())
}

func formatArgs(args map[string]interface{}, order []string) string {
	parts := make([]string, 0, len(order))
	for _, k := range order {
		parts = append(parts, k+"="+formatValue(args[k]))
	}
	return strings.Join(parts, ", ")
}

func formatValue(v interface{}) string {
	switch v := v.(type) {
	case common.Address:
		return v.Hex()
	case common.Hash:
		return v.Hex()
	case *big.Int:
		return v.String()
	case []byte:
		return common.Bytes2Hex(v)
	}
	return fmt.Sprint(v)
}
