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

package chainsheet

import (
	"github.com/pkg/errors"
)

// Errors returned by the packages in this module. They are wrapped with additional
// context, use errors.Is (or errors.Cause) for comparing.
var (
	ErrRPCOutOfSync = errors.New("rpc out of sync")

	ErrMissingCredential = errors.New("missing credential")
	ErrInvalidCredential = errors.New("invalid credential")

	ErrUnknownChain  = errors.New("unknown chain")
	ErrChainMismatch = errors.New("chain id of rpc endpoint does not match the configured chain")

	ErrMulticallUnsupported = errors.New("multicall not supported on chain")
	ErrCallReverted         = errors.New("call reverted")

	ErrUnknownMethod = errors.New("method not found in abi")
	ErrUnknownEvent  = errors.New("event not found in abi")
	ErrNoWallet      = errors.New("contract is not bound to a wallet client")
)
