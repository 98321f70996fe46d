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

package currency

import (
	"math/big"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

const (
	// ETH represents the ethereum currency.
	ETH = "ETH"
	// CELO represents the celo currency.
	CELO = "CELO"

	// EtherDecimals is the number of decimals of the native currencies supported here.
	EtherDecimals    = 18
	ethPlacesToRound = 6
)

// Parser converts amounts between their decimal string representation and the base unit.
type Parser interface {
	Parse(string) (*big.Int, error)
	Print(*big.Int) string
}

var currencies map[string]Parser

func init() {
	currencies = make(map[string]Parser)

	currencies[ETH] = unitParser{decimals: EtherDecimals, placesToRound: ethPlacesToRound}
	currencies[CELO] = unitParser{decimals: EtherDecimals, placesToRound: ethPlacesToRound}
}

// IsSupported checks if there is parser regsitered for the currency
// represented by the given string.
func IsSupported(currency string) bool {
	p, ok := currencies[currency]
	return ok && p != nil
}

// NewParser returns the currency parser. It returns nil if unsupported currency is used.
// so check if exists before usage.
func NewParser(currency string) Parser {
	return currencies[currency]
}

// FormatUnits converts the value in base units to a decimal string with the given number of decimals.
// The result is exact, trailing zeros in the fractional part are removed.
//
// FormatUnits(500000000000000000, 18) returns "0.5".
func FormatUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}
	return decimal.NewFromBigInt(value, -int32(decimals)).String()
}

// ParseUnits converts the decimal string to base units, scaling it by 10^decimals.
// It fails if the string has more fractional digits than decimals.
func ParseUnits(input string, decimals uint8) (*big.Int, error) {
	amount, err := decimal.NewFromString(input)
	if err != nil {
		return nil, errors.Wrap(err, "invalid decimal string")
	}

	amountBaseUnit := amount.Shift(int32(decimals))
	if !amountBaseUnit.Equal(amountBaseUnit.Truncate(0)) {
		return nil, errors.Errorf("amount has more than %d decimal places", decimals)
	}
	return amountBaseUnit.BigInt(), nil
}

// FormatEther is FormatUnits with 18 decimals.
func FormatEther(wei *big.Int) string {
	return FormatUnits(wei, EtherDecimals)
}

// ParseEther is ParseUnits with 18 decimals.
func ParseEther(input string) (*big.Int, error) {
	return ParseUnits(input, EtherDecimals)
}

type unitParser struct {
	decimals      uint8
	placesToRound int32
}

// Parse parses the given currency string, converts it to the base unit and returns a
// big.Int representation of the value.
// It can parse decimal values upto 1e-18 (the minimum value of the currency) without
// loss of accuracy.
func (p unitParser) Parse(input string) (*big.Int, error) {
	amount, err := ParseUnits(input, p.decimals)
	if err != nil {
		return nil, err
	}
	if amount.Sign() < 1 {
		return nil, errors.New("amount is too small, should be larger than 1e-18")
	}
	return amount, nil
}

// Print converts the input in base unit and returns a string representation of it.
// The returned string is rounded off to 6 decimal places for visual representation.
func (p unitParser) Print(input *big.Int) string {
	amount := decimal.NewFromBigInt(input, -int32(p.decimals))
	return amount.StringFixedBank(p.placesToRound)
}
