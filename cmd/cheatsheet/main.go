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
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/direct-state-transfer/chainsheet/app/cheatsheet"
	"github.com/direct-state-transfer/chainsheet/config"
	"github.com/direct-state-transfer/chainsheet/log"
)

const (
	// flag names for the persistent flags of the root command.
	configfileF  = "configfile"
	envfileF     = "envfile"
	loglevelF    = "loglevel"
	logfileF     = "logfile"
	chainF       = "chain"
	rpcurlF      = "rpcurl"
	multicallF   = "multicall"
	metricsaddrF = "metricsaddr"

	// default values for flags.
	defaultConfigFile = "cheatsheet.yaml"
)

var (
	// viper instance for parsing configuration from flags and configuration files.
	cfgViper *viper.Viper

	// flags in the root command are bound with the viper instance to override values from config file.
	flagsToBind = map[string]string{
		loglevelF:    config.LogLevelKey,
		logfileF:     config.LogFileKey,
		chainF:       config.ChainKey,
		rpcurlF:      config.RPCURLKey,
		multicallF:   config.MulticallKey,
		metricsaddrF: config.MetricsAddrKey,
	}

	// SPrintf style functions that produce colored text.
	redf, greenf func(format string, a ...interface{}) string
)

var rootCmd = &cobra.Command{
	Use:   "cheatsheet",
	Short: "Read, transfer and watch native currency and ERC-20 tokens on EVM chains",
	Long: `
Cheat sheet for interacting with EVM chains: checks the rpc endpoint is in sync,
reads balances, sends native currency and reads, transfers and watches an ERC-20 token.

Configuration can be specified in the config file or via flags. If both are given,
values in flags are used. The signing credential is read from the environment
(PRIVATE_KEY, MNEMONIC and HD_PATH, or KEYSTORE_PATH, KEYSTORE_PASSWORD and ACCOUNT),
after loading the variables defined in the env file.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	redf = color.New(color.FgRed).SprintfFunc()
	greenf = color.New(color.FgGreen).SprintfFunc()

	cfgViper = viper.New()
	flags := rootCmd.PersistentFlags()
	flags.String(configfileF, "", fmt.Sprintf("Config file. Defaults to %s, if it exists", defaultConfigFile))
	flags.String(envfileF, config.DefaultEnvFile, "File with environment variables, in dotenv format")
	flags.String(loglevelF, "", "Log level. Supported levels: debug, info, error")
	flags.String(logfileF, "", "Log file path. Use empty string for stderr")
	flags.String(chainF, "", "Name of the chain")
	flags.String(rpcurlF, "", "URL of the rpc endpoint. Defaults to the public endpoint of the chain")
	flags.Bool(multicallF, true, "Aggregate concurrent reads using the Multicall3 contract")
	flags.String(metricsaddrF, "", "Address for serving prometheus metrics. Metrics are disabled if empty")

	// Bind the configuration flags to viper instance used for to override the values defined in config file.
	for flag, key := range flagsToBind {
		if err := cfgViper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", flag, err))
		}
	}

	rootCmd.AddCommand(runCmd, balanceCmd, sendCmd, tokenCmd, chainsCmd, configCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, redf("Error: %v", err))
		os.Exit(1)
	}
}

// loadConfig parses the configuration, initializes the logger and loads the credential.
func loadConfig(cmd *cobra.Command) (config.Config, error) {
	cfgFile, err := cmd.Flags().GetString(configfileF)
	if err != nil {
		return config.Config{}, errors.WithStack(err)
	}
	if cfgFile == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			cfgFile = defaultConfigFile
		}
	}
	cfg, err := config.ParseConfig(cfgViper, cfgFile)
	if err != nil {
		return config.Config{}, err
	}
	if err = log.InitLogger(cfg.LogLevel, cfg.LogFile); err != nil {
		return config.Config{}, err
	}

	envFile, err := cmd.Flags().GetString(envfileF)
	if err != nil {
		return config.Config{}, errors.WithStack(err)
	}
	if cfg.Credential, err = config.LoadCredential(filepath.Clean(envFile)); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

// newSession loads the configuration and connects to the endpoint. The caller should close the session.
func newSession(cmd *cobra.Command) (config.Config, *cheatsheet.Session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return config.Config{}, nil, err
	}
	s, err := cheatsheet.NewSession(cmd.Context(), cfg, nil)
	if err != nil {
		return config.Config{}, nil, err
	}
	return cfg, s, nil
}

// addressArg parses the idx-th argument as a hex address, or returns def if there are fewer arguments.
func addressArg(args []string, idx int, def string) (common.Address, error) {
	addr := def
	if len(args) > idx {
		addr = args[idx]
	}
	if !common.IsHexAddress(addr) {
		return common.Address{}, errors.Errorf("invalid address %q", addr)
	}
	return common.HexToAddress(addr), nil
}
