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

package currency_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/direct-state-transfer/chainsheet/currency"
)

func Test_Exists_NewParser_Native(t *testing.T) {
	for _, c := range []string{currency.ETH, currency.CELO} {
		assert.True(t, currency.IsSupported(c))
		assert.NotNil(t, currency.NewParser(c))
	}
}

func bigFromString(t *testing.T, s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok)
	return v
}

func Test_FormatUnits(t *testing.T) {
	tests := []struct {
		name     string
		input    *big.Int
		decimals uint8
		output   string
	}{
		{"happy_half_ether", big.NewInt(5e17), 18, "0.5"},
		{"happy_whole", big.NewInt(1e18), 18, "1"},
		{"happy_large", bigFromString(t, "123456789000000000000000"), 18, "123456.789"},
		{"happy_smallest", big.NewInt(1), 18, "0.000000000000000001"},
		{"happy_six_decimals", big.NewInt(1500000), 6, "1.5"},
		{"happy_zero_decimals", big.NewInt(42), 0, "42"},
		{"happy_negative", big.NewInt(-5e17), 18, "-0.5"},
		{"zero", big.NewInt(0), 18, "0"},
		{"nil", nil, 18, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.output, currency.FormatUnits(tt.input, tt.decimals))
		})
	}
}

func Test_FormatEther(t *testing.T) {
	assert.Equal(t, "0.5", currency.FormatEther(bigFromString(t, "500000000000000000")))
}

func Test_ParseUnits(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		decimals uint8
		output   *big.Int
		wantErr  bool
	}{
		{"happy_half", "0.5", 18, big.NewInt(5e17), false},
		{"happy_whole", "2", 6, big.NewInt(2e6), false},
		{"happy_exp_form", "5e-18", 18, big.NewInt(5), false},
		{"happy_max_places", "0.000001", 6, big.NewInt(1), false},

		{"err_too_many_places", "0.0000001", 6, nil, true},
		{"err_too_many_places_zero_decimals", "1.5", 0, nil, true},
		{"err_invalid_string", "invalid-amount-string", 18, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := currency.ParseUnits(tt.input, tt.decimals)
			if err != nil {
				t.Log(err)
			}
			require.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.output, got)
		})
	}
}

func Test_ParseUnits_Zero(t *testing.T) {
	got, err := currency.ParseUnits("0", 18)
	require.NoError(t, err)
	assert.Zero(t, got.Sign())
}

func Test_ParseEther(t *testing.T) {
	got, err := currency.ParseEther("0.5")
	require.NoError(t, err)
	assert.Equal(t, "500000000000000000", got.String())
}

func Test_unitParser_Parse(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		output  *big.Int
		wantErr bool
	}{
		{"happy_1", "0.5", big.NewInt(5e17), false},
		{"happy_2", "0.000000000000000005", big.NewInt(5), false},
		{"happy_3_exp_form", "5e-18", big.NewInt(5), false},
		{"happy_3_exp_form_upper_case", "5E-18", big.NewInt(5), false},

		{"err_too_small_exp_form", "5e-19", nil, true},
		{"err_too_small", "0.0000000000000000005", nil, true},
		{"err_zero", "0", nil, true},
		{"invalid_string", "invalid-currency-string", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := currency.NewParser(currency.ETH)
			got, err := p.Parse(tt.input)
			if err != nil {
				t.Log(err)
			}
			require.Equal(t, tt.wantErr, err != nil)
			assert.Equal(t, tt.output, got)
		})
	}
}

func Test_unitParser_Print(t *testing.T) {
	tests := []struct {
		name   string
		input  *big.Int
		output string
	}{
		{"happy_1_whole_number", big.NewInt(5e18), "5.000000"},
		{"happy_1_decimal", big.NewInt(5e17), "0.500000"},
		{"happy_round_up", big.NewInt(12345678e10), "0.123457"},
		{"happy_round_down", big.NewInt(87654321e10), "0.876543"},
		{"happy_to_zero", big.NewInt(5), "0.000000"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := currency.NewParser(currency.CELO)
			assert.Equal(t, tt.output, p.Print(tt.input))
		})
	}
}
