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

package contract

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/pkg/errors"
)

// ERC20 holds the human-readable signatures of the subset of the ERC-20 interface used by the cheat sheet.
var ERC20 = []string{
	"function name() public view returns (string memory)",
	"function symbol() view returns (string memory)",
	"function decimals() view returns (uint8)",
	"function balanceOf(address account) public view returns (uint256)",
	"function transfer(address to, uint256 value) public returns (bool)",
	"event Transfer(address indexed from, address indexed to, uint256 value)",
}

// ParseABI parses human-readable function and event signatures, as found in solidity
// interfaces, into an abi. For example:
//
//	function balanceOf(address account) public view returns (uint256)
//	event Transfer(address indexed from, address indexed to, uint256 value)
//
// Elementary types and their arrays are supported. Tuples are not. Overloaded functions
// are renamed in the same way as in abi.JSON (name, name0, name1, ...).
func ParseABI(signatures []string) (abi.ABI, error) {
	parsed := abi.ABI{
		Methods: make(map[string]abi.Method),
		Events:  make(map[string]abi.Event),
	}
	for _, sig := range signatures {
		if err := parseSignature(&parsed, sig); err != nil {
			return abi.ABI{}, errors.WithMessagef(err, "parsing %q", sig)
		}
	}
	return parsed, nil
}

func parseSignature(parsed *abi.ABI, sig string) error {
	sig = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(sig), ";"))
	keyword, rest, _ := strings.Cut(sig, " ")
	switch keyword {
	case "function":
		return parseFunction(parsed, rest)
	case "event":
		return parseEvent(parsed, rest)
	}
	return errors.Errorf("unsupported signature kind %q", keyword)
}

func parseFunction(parsed *abi.ABI, sig string) error {
	name, params, rest, err := splitCall(sig)
	if err != nil {
		return err
	}
	inputs, err := parseArgs(params, false)
	if err != nil {
		return err
	}

	mutability := "nonpayable"
	var outputs abi.Arguments
	for rest = strings.TrimSpace(rest); rest != ""; rest = strings.TrimSpace(rest) {
		word, remaining, _ := strings.Cut(rest, " ")
		if strings.HasPrefix(rest, "returns") {
			var outParams string
			if outParams, remaining, err = splitParens(strings.TrimSpace(strings.TrimPrefix(rest, "returns"))); err != nil {
				return errors.WithMessage(err, "returns")
			}
			if outputs, err = parseArgs(outParams, false); err != nil {
				return err
			}
			rest = remaining
			continue
		}
		switch word {
		case "public", "external":
		case "view", "pure", "payable", "nonpayable":
			mutability = word
		default:
			return errors.Errorf("unsupported modifier %q", word)
		}
		rest = remaining
	}

	isConst := mutability == "view" || mutability == "pure"
	isPayable := mutability == "payable"
	key := abi.ResolveNameConflict(name, func(s string) bool { _, ok := parsed.Methods[s]; return ok })
	parsed.Methods[key] = abi.NewMethod(key, name, abi.Function, mutability, isConst, isPayable, inputs, outputs)
	return nil
}

func parseEvent(parsed *abi.ABI, sig string) error {
	name, params, rest, err := splitCall(sig)
	if err != nil {
		return err
	}
	inputs, err := parseArgs(params, true)
	if err != nil {
		return err
	}
	anonymous := false
	switch strings.TrimSpace(rest) {
	case "":
	case "anonymous":
		anonymous = true
	default:
		return errors.Errorf("unsupported event modifier %q", strings.TrimSpace(rest))
	}
	for i := range inputs {
		if inputs[i].Name == "" {
			inputs[i].Name = fmt.Sprintf("arg%d", i)
		}
	}
	key := abi.ResolveNameConflict(name, func(s string) bool { _, ok := parsed.Events[s]; return ok })
	parsed.Events[key] = abi.NewEvent(key, name, anonymous, inputs)
	return nil
}

// splitCall splits "name(params) rest" into its parts.
func splitCall(sig string) (name, params, rest string, err error) {
	idx := strings.Index(sig, "(")
	if idx < 0 {
		return "", "", "", errors.New("missing parameter list")
	}
	name = strings.TrimSpace(sig[:idx])
	if !isIdentifier(name) {
		return "", "", "", errors.Errorf("invalid name %q", name)
	}
	params, rest, err = splitParens(sig[idx:])
	return name, params, rest, err
}

// splitParens splits "(inner) rest" into inner and rest. Nested parentheses denote tuples.
func splitParens(s string) (inner, rest string, err error) {
	if !strings.HasPrefix(s, "(") {
		return "", "", errors.New("expected (")
	}
	end := strings.Index(s, ")")
	if end < 0 {
		return "", "", errors.New("missing )")
	}
	inner = s[1:end]
	if strings.Contains(inner, "(") {
		return "", "", errors.New("tuples are not supported")
	}
	return inner, s[end+1:], nil
}

func parseArgs(params string, allowIndexed bool) (abi.Arguments, error) {
	params = strings.TrimSpace(params)
	if params == "" {
		return abi.Arguments{}, nil
	}
	parts := strings.Split(params, ",")
	args := make(abi.Arguments, 0, len(parts))
	for _, part := range parts {
		arg, err := parseArg(part, allowIndexed)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
	return args, nil
}

func parseArg(s string, allowIndexed bool) (abi.Argument, error) {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return abi.Argument{}, errors.New("empty parameter")
	}
	typ, err := parseType(fields[0])
	if err != nil {
		return abi.Argument{}, err
	}
	arg := abi.Argument{Type: typ}
	for _, field := range fields[1:] {
		switch {
		case field == "indexed" && allowIndexed:
			arg.Indexed = true
		case field == "memory" || field == "calldata" || field == "storage":
		case arg.Name == "" && isIdentifier(field):
			arg.Name = field
		default:
			return abi.Argument{}, errors.Errorf("unexpected %q in parameter %q", field, strings.TrimSpace(s))
		}
	}
	return arg, nil
}

func parseType(s string) (abi.Type, error) {
	if strings.HasPrefix(s, "tuple") {
		return abi.Type{}, errors.New("tuples are not supported")
	}
	elem, suffix := s, ""
	if idx := strings.Index(s, "["); idx >= 0 {
		elem, suffix = s[:idx], s[idx:]
	}
	switch elem {
	case "uint":
		elem = "uint256"
	case "int":
		elem = "int256"
	}
	typ, err := abi.NewType(elem+suffix, "", nil)
	return typ, errors.Wrapf(err, "type %s", s)
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r == '_' || r == '$':
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9' && i > 0:
		default:
			return false
		}
	}
	return true
}
