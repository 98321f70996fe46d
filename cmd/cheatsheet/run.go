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
	"os"

	"github.com/spf13/cobra"

	"github.com/direct-state-transfer/chainsheet/app/cheatsheet"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the whole cheat sheet against the configured chain",
	Long: `
Checks the rpc endpoint is in sync, reads the native balance, sends native currency,
reads the token name, symbol, decimals and holder balance, transfers the token and
then watches the Transfer events of the token until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return cheatsheet.Run(cmd.Context(), cfg, os.Stdout)
	},
}
