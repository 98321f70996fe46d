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

package contract_test

import (
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/direct-state-transfer/chainsheet/blockchain/ethereum/ethereumtest"
	"github.com/direct-state-transfer/chainsheet/contract"
)

func Test_ParseABI_ERC20(t *testing.T) {
	parsed, err := contract.ParseABI(contract.ERC20)
	require.NoError(t, err)
	want := ethereumtest.ERC20ABI()

	require.Len(t, parsed.Methods, 5)
	for name, wantMethod := range want.Methods {
		gotMethod, ok := parsed.Methods[name]
		require.True(t, ok, name)
		assert.Equal(t, wantMethod.Sig, gotMethod.Sig)
		assert.Equal(t, wantMethod.ID, gotMethod.ID)
		assert.Equal(t, wantMethod.StateMutability, gotMethod.StateMutability)
		assert.Len(t, gotMethod.Outputs, len(wantMethod.Outputs))
	}
	require.Len(t, parsed.Events, 1)
	transfer := parsed.Events["Transfer"]
	assert.Equal(t, ethereumtest.TransferEventID(), transfer.ID)
	assert.True(t, transfer.Inputs[0].Indexed)
	assert.True(t, transfer.Inputs[1].Indexed)
	assert.False(t, transfer.Inputs[2].Indexed)
	assert.Equal(t, "value", transfer.Inputs[2].Name)
}

func Test_ParseABI(t *testing.T) {
	t.Run("happy_uint_alias", func(t *testing.T) {
		parsed, err := contract.ParseABI([]string{"function f(uint a, int[] b) pure returns (uint)"})
		require.NoError(t, err)
		assert.Equal(t, "f(uint256,int256[])", parsed.Methods["f"].Sig)
		assert.True(t, parsed.Methods["f"].IsConstant())
		assert.Equal(t, abi.UintTy, parsed.Methods["f"].Outputs[0].Type.T)
	})
	t.Run("happy_payable", func(t *testing.T) {
		parsed, err := contract.ParseABI([]string{"function deposit() external payable"})
		require.NoError(t, err)
		assert.True(t, parsed.Methods["deposit"].IsPayable())
		assert.Empty(t, parsed.Methods["deposit"].Inputs)
	})
	t.Run("happy_overload", func(t *testing.T) {
		parsed, err := contract.ParseABI([]string{
			"function transfer(address to, uint256 value) returns (bool)",
			"function transfer(address to, uint256 value, bytes data) returns (bool)",
		})
		require.NoError(t, err)
		assert.Equal(t, "transfer(address,uint256)", parsed.Methods["transfer"].Sig)
		assert.Equal(t, "transfer(address,uint256,bytes)", parsed.Methods["transfer0"].Sig)
		assert.Equal(t, "transfer", parsed.Methods["transfer0"].RawName)
	})
	t.Run("happy_unnamed_event_args", func(t *testing.T) {
		parsed, err := contract.ParseABI([]string{"event Approval(address indexed, address indexed, uint256)"})
		require.NoError(t, err)
		ev := parsed.Events["Approval"]
		assert.Equal(t, "arg0", ev.Inputs[0].Name)
		assert.Equal(t, "arg2", ev.Inputs[2].Name)
	})
	t.Run("happy_calldata_semicolon", func(t *testing.T) {
		parsed, err := contract.ParseABI([]string{"function setName(string calldata name);"})
		require.NoError(t, err)
		assert.Equal(t, "setName(string)", parsed.Methods["setName"].Sig)
		packed, err := parsed.Pack("setName", "x")
		require.NoError(t, err)
		assert.Equal(t, parsed.Methods["setName"].ID, packed[:4])
	})

	errTests := []struct {
		name string
		sig  string
	}{
		{"unknown_kind", "error Unauthorized()"},
		{"missing_params", "function name"},
		{"missing_close", "function name(uint256"},
		{"tuple_param", "function f((uint256,address) t)"},
		{"tuple_keyword", "function f(tuple t)"},
		{"unknown_type", "function f(uint7 a)"},
		{"unknown_modifier", "function f() internal"},
		{"indexed_in_function", "function f(address indexed a)"},
		{"invalid_name", "function 1f()"},
		{"extra_token", "function f(address a b)"},
	}
	for _, tc := range errTests {
		tc := tc
		t.Run("err_"+tc.name, func(t *testing.T) {
			_, err := contract.ParseABI([]string{tc.sig})
			assert.Error(t, err)
		})
	}
}

func Test_ParseABI_PackTransfer(t *testing.T) {
	parsed, err := contract.ParseABI(contract.ERC20)
	require.NoError(t, err)
	to := common.HexToAddress("0x8E3DC120aa9e34cA55b572324AB8Ef73ca211092")

	got, err := parsed.Pack("balanceOf", to)
	require.NoError(t, err)
	want, err := ethereumtest.ERC20ABI().Pack("balanceOf", to)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}
