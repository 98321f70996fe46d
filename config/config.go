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

// Package config defines the configuration of the cheat sheet and parses it from
// configuration files, flags bound to viper and the environment.
package config

import (
	"io/fs"
	"path/filepath"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/direct-state-transfer/chainsheet"
	"github.com/direct-state-transfer/chainsheet/chains"
	"github.com/direct-state-transfer/chainsheet/currency"
)

// Keys of the configuration parameters. Flags bound to viper should use the same names.
const (
	LogLevelKey        = "loglevel"
	LogFileKey         = "logfile"
	ChainKey           = "chain"
	RPCURLKey          = "rpcurl"
	MulticallKey       = "multicall"
	MetricsAddrKey     = "metricsaddr"
	PollingIntervalKey = "pollinginterval"
	BalanceAddrKey     = "addresses.balance"
	RecipientAddrKey   = "addresses.recipient"
	TokenAddrKey       = "addresses.token"
	TokenHolderAddrKey = "addresses.tokenholder"
	NativeAmountKey    = "amounts.native"
	TokenAmountKey     = "amounts.token"
)

// Environment variables holding the credential.
const (
	PrivateKeyEnv       = "PRIVATE_KEY"
	MnemonicEnv         = "MNEMONIC"
	HDPathEnv           = "HD_PATH"
	KeystorePathEnv     = "KEYSTORE_PATH"
	KeystorePasswordEnv = "KEYSTORE_PASSWORD"
	AccountEnv          = "ACCOUNT"
)

// DefaultEnvFile is the file in the working directory from which environment variables are loaded.
const DefaultEnvFile = ".env"

// defaults reproduce the values used by the cheat sheet on celo alfajores.
var defaults = map[string]interface{}{
	LogLevelKey:        "info",
	LogFileKey:         "",
	ChainKey:           chains.Default,
	RPCURLKey:          "",
	MulticallKey:       true,
	MetricsAddrKey:     "",
	PollingIntervalKey: "4s",
	BalanceAddrKey:     "0x303C22e6ef01CbA9d03259248863836CB91336D5",
	RecipientAddrKey:   "0x8E3DC120aa9e34cA55b572324AB8Ef73ca211092",
	TokenAddrKey:       "0x874069Fa1Eb16D44d622F2e0Ca25eeA172369bC1", // cUSD.
	TokenHolderAddrKey: "0xcEe284F754E854890e311e3280b767F80797180d",
	NativeAmountKey:    "0.5",
	TokenAmountKey:     "0.5",
}

// Config represents the configuration parameters of the cheat sheet.
type Config struct {
	LogLevel string
	LogFile  string

	Chain           string
	RPCURL          string // Optional, the default url of the chain is used if empty.
	Multicall       bool
	MetricsAddr     string // Optional, metrics are not served if empty.
	PollingInterval time.Duration

	Addresses Addresses
	Amounts   Amounts

	// Credential is read from the environment and never from configuration files.
	Credential chainsheet.Credential `mapstructure:"-"`
}

// Addresses used by the cheat sheet, as hex strings with 0x prefix.
type Addresses struct {
	Balance     string // Address whose native balance is read.
	Recipient   string // Recipient of the native and token transfers.
	Token       string // ERC-20 token contract.
	TokenHolder string // Address whose token balance is read.
}

// Amounts transferred by the cheat sheet, as decimal strings in whole units.
type Amounts struct {
	Native string
	Token  string
}

// SetDefaults registers the default values for all parameters on the viper instance.
func SetDefaults(v *viper.Viper) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}

// ParseConfig parses the configuration from the given file using the viper instance.
// Flags bound to the viper instance override the values in the file. Parameters missing
// in both take the default values. If configFile is empty, no file is read.
//
// The credential is not parsed. Use LoadCredential.
func ParseConfig(v *viper.Viper, configFile string) (Config, error) {
	SetDefaults(v)
	if configFile != "" {
		v.SetConfigFile(filepath.Clean(configFile))
		if err := v.ReadInConfig(); err != nil {
			return Config{}, errors.Wrap(err, "reading config file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errors.Wrap(err, "unmarshalling config")
	}
	return cfg, cfg.Validate()
}

// Validate checks that the chain is known, all addresses are valid hex addresses and all
// amounts are valid decimal numbers.
func (cfg Config) Validate() error {
	if _, err := chains.ByName(cfg.Chain); err != nil {
		return err
	}
	addrs := map[string]string{
		BalanceAddrKey:     cfg.Addresses.Balance,
		RecipientAddrKey:   cfg.Addresses.Recipient,
		TokenAddrKey:       cfg.Addresses.Token,
		TokenHolderAddrKey: cfg.Addresses.TokenHolder,
	}
	for key, addr := range addrs {
		if !common.IsHexAddress(addr) {
			return errors.Errorf("invalid address for %s: %q", key, addr)
		}
	}
	amounts := map[string]string{NativeAmountKey: cfg.Amounts.Native, TokenAmountKey: cfg.Amounts.Token}
	for key, amount := range amounts {
		if _, err := currency.ParseUnits(amount, currency.EtherDecimals); err != nil {
			return errors.WithMessagef(err, "invalid amount for %s", key)
		}
	}
	if cfg.PollingInterval < 0 {
		return errors.Errorf("invalid polling interval %v", cfg.PollingInterval)
	}
	return nil
}

// LoadCredential reads the credential from the environment. Variables defined in envFile
// (dotenv format) are loaded first and the variables in the environment take precedence.
// A missing envFile is not an error.
func LoadCredential(envFile string) (chainsheet.Credential, error) {
	v := viper.New()
	if envFile != "" {
		v.SetConfigFile(filepath.Clean(envFile))
		v.SetConfigType("env")
		if err := v.ReadInConfig(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return chainsheet.Credential{}, errors.Wrap(err, "reading env file")
		}
	}
	v.AutomaticEnv()

	return chainsheet.Credential{
		PrivateKey:   v.GetString(PrivateKeyEnv),
		Mnemonic:     v.GetString(MnemonicEnv),
		HDPath:       v.GetString(HDPathEnv),
		KeystorePath: v.GetString(KeystorePathEnv),
		Password:     v.GetString(KeystorePasswordEnv),
		Addr:         v.GetString(AccountEnv),
	}, nil
}

// WriteSample writes a configuration file with the default values to path. The format is
// derived from the extension. It fails if the file exists.
func WriteSample(path string) error {
	v := viper.New()
	SetDefaults(v)
	return errors.Wrap(v.SafeWriteConfigAs(filepath.Clean(path)), "writing config file")
}
