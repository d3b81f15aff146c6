// Copyright 2025 The fixturefill Authors
// This file is part of the fixturefill library.
//
// The fixturefill library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The fixturefill library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the fixturefill library. If not, see <http://www.gnu.org/licenses/>.

package filler

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"

	"fixturefill/forks"
	"fixturefill/t8n"
	"fixturefill/testcase"
)

// CodeCompiler turns high-level account source into bytecode. Satisfied by
// compiler.Compiler; tests substitute a canned implementation.
type CodeCompiler interface {
	Compile(ctx context.Context, src *testcase.Source, fork forks.Fork) (hexutil.Bytes, error)
}

// buildPre materializes the instance's pre-state: parameter substitution,
// value parsing, source compilation, plus the accounts the target fork
// requires at genesis. Authored accounts win over fork-mandated ones.
func buildPre(ctx context.Context, inst *Instance, comp CodeCompiler) (t8n.Alloc, error) {
	alloc := make(t8n.Alloc, len(inst.Test.Pre))
	for addrStr, acct := range inst.Test.Pre {
		addr, err := testcase.ParseAddress(testcase.Substitute(addrStr, inst.Params))
		if err != nil {
			return nil, fmt.Errorf("pre-state account: %w", err)
		}
		balance, err := testcase.ParseWei(testcase.Substitute(acct.Balance, inst.Params))
		if err != nil {
			return nil, fmt.Errorf("pre-state account %s: %w", addr, err)
		}
		code := hexutil.Bytes{}
		switch {
		case acct.Source != nil:
			src := &testcase.Source{
				Language: acct.Source.Language,
				Code:     testcase.Substitute(acct.Source.Code, inst.Params),
			}
			if code, err = comp.Compile(ctx, src, inst.Fork); err != nil {
				return nil, err
			}
		case acct.Code != "":
			if code, err = testcase.ParseBytes(testcase.Substitute(acct.Code, inst.Params)); err != nil {
				return nil, fmt.Errorf("pre-state account %s: %w", addr, err)
			}
		}
		storage, err := parseStorage(acct.Storage, inst.Params)
		if err != nil {
			return nil, fmt.Errorf("pre-state account %s: %w", addr, err)
		}
		alloc[addr] = t8n.Account{
			Balance: balance,
			Nonce:   hexutil.Uint64(acct.Nonce),
			Code:    code,
			Storage: storage,
		}
	}
	for addr, acct := range forks.PreAlloc(inst.Fork) {
		if _, authored := alloc[addr]; authored {
			continue
		}
		alloc[addr] = t8n.Account{
			Balance: new(uint256.Int),
			Nonce:   hexutil.Uint64(acct.Nonce),
			Code:    acct.Code,
		}
	}
	return alloc, nil
}

// buildEnv derives the block environment for the given block number. Block
// zero is the pre-state probe; it carries no reward and timestamp zero.
// Fields gated off at the target fork stay nil.
func buildEnv(inst *Instance, number uint64, override *testcase.Env) (t8n.Env, error) {
	base := inst.Test.Env
	if base == nil {
		base = testcase.DefaultEnv()
	}
	merged := mergeEnv(testcase.DefaultEnv(), base)
	merged = mergeEnv(merged, override)

	coinbase, err := testcase.ParseAddress(testcase.Substitute(merged.Coinbase, inst.Params))
	if err != nil {
		return t8n.Env{}, fmt.Errorf("block %d environment: %w", number, err)
	}
	env := t8n.Env{
		Coinbase: coinbase,
		GasLimit: hexutil.Uint64(merged.GasLimit),
		Number:   hexutil.Uint64(number),
	}
	if number > 0 {
		// Timestamps scale with the block number unless the block declares
		// its own, keeping multi-block chains strictly increasing.
		ts := merged.Timestamp * number
		if override != nil && override.Timestamp != 0 {
			ts = override.Timestamp
		}
		env.Timestamp = hexutil.Uint64(ts)
	}

	if forks.Supports(inst.Fork, forks.FeatureZeroDifficulty) {
		random, err := testcase.ParseHash(testcase.Substitute(merged.Random, inst.Params))
		if err != nil {
			return t8n.Env{}, fmt.Errorf("block %d environment: %w", number, err)
		}
		env.Random = &random
	} else {
		difficulty, err := testcase.ParseWei(testcase.Substitute(merged.Difficulty, inst.Params))
		if err != nil {
			return t8n.Env{}, fmt.Errorf("block %d environment: %w", number, err)
		}
		env.Difficulty = (*hexutil.Big)(difficulty.ToBig())
		if number > 0 {
			env.BlockReward = (*hexutil.Big)(forks.BlockReward(inst.Fork))
		}
	}
	if forks.Supports(inst.Fork, forks.FeatureHeaderBaseFee) {
		baseFee, err := testcase.ParseWei(testcase.Substitute(merged.BaseFee, inst.Params))
		if err != nil {
			return t8n.Env{}, fmt.Errorf("block %d environment: %w", number, err)
		}
		env.BaseFee = (*hexutil.Big)(baseFee.ToBig())
	}
	return env, nil
}

// mergeEnv overlays non-zero fields of the override onto the base.
func mergeEnv(base, override *testcase.Env) *testcase.Env {
	merged := *base
	if override == nil {
		return &merged
	}
	if override.Coinbase != "" {
		merged.Coinbase = override.Coinbase
	}
	if override.GasLimit != 0 {
		merged.GasLimit = override.GasLimit
	}
	if override.Timestamp != 0 {
		merged.Timestamp = override.Timestamp
	}
	if override.Difficulty != "" {
		merged.Difficulty = override.Difficulty
	}
	if override.Random != "" {
		merged.Random = override.Random
	}
	if override.BaseFee != "" {
		merged.BaseFee = override.BaseFee
	}
	return &merged
}

// buildTxs materializes the block's transaction list, checking each
// transaction type against the target fork's capabilities.
func buildTxs(inst *Instance, block *testcase.Block) ([]t8n.Transaction, error) {
	txs := make([]t8n.Transaction, 0, len(block.Txs))
	for i, authored := range block.Txs {
		tx, err := buildTx(inst, &authored)
		if err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

func buildTx(inst *Instance, authored *testcase.Transaction) (t8n.Transaction, error) {
	txType, err := resolveTxType(inst.Fork, authored)
	if err != nil {
		return t8n.Transaction{}, err
	}
	value, err := testcase.ParseWei(testcase.Substitute(authored.Value, inst.Params))
	if err != nil {
		return t8n.Transaction{}, err
	}
	input, err := testcase.ParseBytes(testcase.Substitute(authored.Data, inst.Params))
	if err != nil {
		return t8n.Transaction{}, err
	}
	sender, err := testcase.SenderAddress(authored.SecretKey)
	if err != nil {
		return t8n.Transaction{}, err
	}
	secretBytes, err := testcase.ParseHash(authored.SecretKey)
	if err != nil {
		return t8n.Transaction{}, err
	}

	tx := t8n.Transaction{
		Type:      hexutil.Uint64(txType),
		Nonce:     hexutil.Uint64(authored.Nonce),
		Value:     value,
		Gas:       hexutil.Uint64(authored.Gas),
		Input:     input,
		SecretKey: secretBytes,
		Sender:    sender,
	}
	if to := testcase.Substitute(authored.To, inst.Params); to != "" {
		addr, err := testcase.ParseAddress(to)
		if err != nil {
			return t8n.Transaction{}, err
		}
		tx.To = &addr
	}
	if txType >= forks.TxTypeDynamicFee {
		if tx.MaxFeePerGas, err = testcase.ParseWei(testcase.Substitute(authored.MaxFeePerGas, inst.Params)); err != nil {
			return t8n.Transaction{}, err
		}
		if tx.MaxPriorityFeePerGas, err = testcase.ParseWei(testcase.Substitute(authored.MaxPriorityFeePerGas, inst.Params)); err != nil {
			return t8n.Transaction{}, err
		}
	} else {
		if tx.GasPrice, err = testcase.ParseWei(testcase.Substitute(authored.GasPrice, inst.Params)); err != nil {
			return t8n.Transaction{}, err
		}
	}
	if txType >= forks.TxTypeAccessList {
		tx.AccessList, err = buildAccessList(inst, authored.AccessList)
		if err != nil {
			return t8n.Transaction{}, err
		}
	}
	return tx, nil
}

// resolveTxType maps the authored type name to the wire identifier, or
// infers it from the fee fields when unset.
func resolveTxType(fork forks.Fork, authored *testcase.Transaction) (int, error) {
	var txType int
	switch authored.Type {
	case "legacy":
		txType = forks.TxTypeLegacy
	case "accessList":
		txType = forks.TxTypeAccessList
	case "dynamicFee":
		txType = forks.TxTypeDynamicFee
	case "blob":
		txType = forks.TxTypeBlob
	case "":
		switch {
		case authored.MaxFeePerGas != "" || authored.MaxPriorityFeePerGas != "":
			txType = forks.TxTypeDynamicFee
		case len(authored.AccessList) > 0:
			txType = forks.TxTypeAccessList
		default:
			txType = forks.TxTypeLegacy
		}
	default:
		return 0, fmt.Errorf("unknown transaction type %q", authored.Type)
	}

	for _, supported := range forks.TxTypes(fork) {
		if supported == txType {
			return txType, nil
		}
	}
	return 0, fmt.Errorf("transaction type %d not available at fork %s", txType, fork.Name)
}

func buildAccessList(inst *Instance, authored []testcase.AccessTuple) ([]t8n.AccessTuple, error) {
	if len(authored) == 0 {
		return nil, nil
	}
	list := make([]t8n.AccessTuple, 0, len(authored))
	for _, tuple := range authored {
		addr, err := testcase.ParseAddress(testcase.Substitute(tuple.Address, inst.Params))
		if err != nil {
			return nil, fmt.Errorf("access list: %w", err)
		}
		keys := make([]common.Hash, 0, len(tuple.StorageKeys))
		for _, key := range tuple.StorageKeys {
			h, err := testcase.ParseHash(testcase.Substitute(key, inst.Params))
			if err != nil {
				return nil, fmt.Errorf("access list: %w", err)
			}
			keys = append(keys, h)
		}
		list = append(list, t8n.AccessTuple{Address: addr, StorageKeys: keys})
	}
	return list, nil
}

func parseStorage(authored map[string]string, binding map[string]string) (map[common.Hash]common.Hash, error) {
	if len(authored) == 0 {
		return nil, nil
	}
	storage := make(map[common.Hash]common.Hash, len(authored))
	for k, v := range authored {
		key, err := testcase.ParseHash(testcase.Substitute(k, binding))
		if err != nil {
			return nil, err
		}
		value, err := testcase.ParseHash(testcase.Substitute(v, binding))
		if err != nil {
			return nil, err
		}
		storage[key] = value
	}
	return storage, nil
}
