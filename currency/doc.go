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

// Package currency converts amounts between their decimal string form and the
// base unit used on chain, for native currencies and for tokens with arbitrary
// decimals.
//
// Use FormatUnits and ParseUnits for tokens. For native currencies, use
// IsSupported to check if the currency is supported and NewParser to obtain a
// parser for that currency.
package currency
