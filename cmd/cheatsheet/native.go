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

	"github.com/spf13/cobra"

	"github.com/direct-state-transfer/chainsheet/blockchain/ethereum"
)

var balanceCmd = &cobra.Command{
	Use:   "balance [address]",
	Short: "Read the native balance of the address",
	Long:  "Read the native balance of the address. Defaults to the balance address in the configuration.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, s, err := newSession(cmd)
		if err != nil {
			return err
		}
		defer s.Close()

		addr, err := addressArg(args, 0, cfg.Addresses.Balance)
		if err != nil {
			return err
		}
		if _, err = s.CheckSync(cmd.Context()); err != nil {
			return err
		}
		balance, err := s.NativeBalance(cmd.Context(), addr)
		if err != nil {
			return err
		}
		fmt.Printf("balance: %s %s\n", balance, s.Chain().NativeCurrency.Symbol)
		return nil
	},
}

var sendCmd = &cobra.Command{
	Use:   "send [to] [amount]",
	Short: "Send native currency from the configured account",
	Long: `
Send amount (in whole units of the native currency) to the address. Defaults to the recipient
address and native amount in the configuration.`,
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
		amount := cfg.Amounts.Native
		if len(args) > 1 {
			amount = args[1]
		}
		acc, err := ethereum.NewAccount(cfg.Credential)
		if err != nil {
			return err
		}
		if _, err = s.CheckSync(cmd.Context()); err != nil {
			return err
		}
		hash, err := s.SendNative(cmd.Context(), acc, to, amount)
		if err != nil {
			return err
		}
		fmt.Printf("send ether tx: %s\n", hash.Hex())
		return nil
	},
}
