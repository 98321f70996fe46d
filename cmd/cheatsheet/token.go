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

package main

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/direct-state-transfer/chainsheet/blockchain/ethereum"
	"github.com/direct-state-transfer/chainsheet/contract"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Read, transfer and watch the configured ERC-20 token",
}

func init() {
	tokenCmd.AddCommand(tokenInfoCmd, tokenTransferCmd, tokenWatchCmd)
}

var tokenInfoCmd = &cobra.Command{
	Use:   "info [holder]",
	Short: "Read the name, symbol and decimals of the token and the balance of the holder",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		holder, err := addressArg(args, 0, cfg.Addresses.TokenHolder)
		if err != nil {
			return err
		}
		name, err := s.TokenName(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Printf("token name: %s\n", name)
		info, err := s.TokenInfo(cmd.Context(), holder)
		if err != nil {
			return err
		}
		fmt.Println(info)
		return nil
	},
}

var tokenTransferCmd = &cobra.Command{
	Use:   "transfer [to] [amount]",
	Short: "Transfer the token from the configured account",
	Long: `
Transfer amount (in whole units of the token) to the address. Defaults to the recipient
address and token amount in the configuration.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		to, err := addressArg(args, 0, cfg.Addresses.Recipient)
		if err != nil {
			return err
		}
		amount := cfg.Amounts.Token
		if len(args) > 1 {
			amount = args[1]
		}
		acc, err := ethereum.NewAccount(cfg.Credential)
		if err != nil {
			return err
		}
		hash, err := s.TransferToken(cmd.Context(), acc, to, amount, nil)
		if err != nil {
			return err
		}
		fmt.Printf("transfer erc20 tx: %s\n", hash.Hex())
		return nil
	},
}

var tokenWatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print the Transfer events of the token until interrupted",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		sub, err := s.WatchTransfers(ctx, func(e contract.Event) { fmt.Println(e) })
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
			return nil
		}
	},
}
