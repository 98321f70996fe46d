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

	"github.com/direct-state-transfer/chainsheet/chains"
	"github.com/direct-state-transfer/chainsheet/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [path]",
	Short: fmt.Sprintf("Write a config file with default values. Defaults to %s", defaultConfigFile),
	Long: `
Write a config file with default values for all parameters. An existing file is not
overwritten. The credential is not part of the config file, define it in the env file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := defaultConfigFile
		if len(args) > 0 {
			path = args[0]
		}
		if err := config.WriteSample(path); err != nil {
			return err
		}
		fmt.Println(greenf("Wrote config file %s", path))
		return nil
	},
}

var chainsCmd = &cobra.Command{
	Use:   "chains",
	Short: "List the supported chains",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range chains.Names() {
			chain, err := chains.ByName(name)
			if err != nil {
				return err
			}
			fmt.Printf("%-20s id: %-10v currency: %-6s multicall: %t\n",
				name, chain.ID, chain.NativeCurrency.Symbol, chain.HasMulticall())
		}
		return nil
	},
}

func init() {
	configCmd.AddCommand(configInitCmd)
}
