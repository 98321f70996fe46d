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

// Package ethereum provides the signing accounts used for sending transactions
// on ethereum compatible chains. The actual implementation of the functionality
// is done in internal/implementation to reduce code duplication as most of the
// implementation details are shared between this package and the ethereum test
// helper package "./ethereumtest".
//
// An account can be derived from one of three sources: a hex encoded private
// key, a BIP-39 mnemonic with a BIP-44 derivation path, or an encrypted key
// file in a keystore directory. See NewAccount for the order of priority.
package ethereum
