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

// Package t8n speaks the structured request/response protocol of the
// external state-transition executable. It owns the process boundary: the
// engine never computes a state root itself, it only ships pre-state and
// transactions out and verified documents back in.
package t8n

import (
	"encoding/json"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/holiman/uint256"
)

// Request is the document shipped to the transition tool. It is built
// fresh per instance and never mutated after construction.
type Request struct {
	Fork    string         `json:"fork"`
	ChainID hexutil.Uint64 `json:"chainid"`
	Env     Env            `json:"env"`
	Alloc   Alloc          `json:"alloc"`
	Txs     []Transaction  `json:"txs"`
}

// Env is the block environment. Fields gated by fork features are nil when
// the target fork does not activate them.
type Env struct {
	Coinbase    common.Address `json:"currentCoinbase"`
	GasLimit    hexutil.Uint64 `json:"currentGasLimit"`
	Number      hexutil.Uint64 `json:"currentNumber"`
	Timestamp   hexutil.Uint64 `json:"currentTimestamp"`
	Difficulty  *hexutil.Big   `json:"currentDifficulty,omitempty"`
	Random      *common.Hash   `json:"currentRandom,omitempty"`
	BaseFee     *hexutil.Big   `json:"currentBaseFee,omitempty"`
	BlockReward *hexutil.Big   `json:"blockReward,omitempty"`
}

// Alloc maps addresses onto accounts, for both pre- and post-state.
type Alloc map[common.Address]Account

// Account is one account of an allocation.
type Account struct {
	Balance *uint256.Int                `json:"balance"`
	Nonce   hexutil.Uint64              `json:"nonce"`
	Code    hexutil.Bytes               `json:"code,omitempty"`
	Storage map[common.Hash]common.Hash `json:"storage,omitempty"`
}

// Transaction is one transaction of the request, unsigned; the tool signs
// with the attached secret key, the long-standing state-test convention.
type Transaction struct {
	Type                 hexutil.Uint64  `json:"type"`
	Nonce                hexutil.Uint64  `json:"nonce"`
	To                   *common.Address `json:"to"`
	Value                *uint256.Int    `json:"value"`
	Gas                  hexutil.Uint64  `json:"gas"`
	GasPrice             *uint256.Int    `json:"gasPrice,omitempty"`
	MaxFeePerGas         *uint256.Int    `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas *uint256.Int    `json:"maxPriorityFeePerGas,omitempty"`
	Input                hexutil.Bytes   `json:"input"`
	AccessList           []AccessTuple   `json:"accessList,omitempty"`
	SecretKey            common.Hash     `json:"secretKey"`
	Sender               common.Address  `json:"sender"`
}

// AccessTuple is one EIP-2930 access list entry on the wire.
type AccessTuple struct {
	Address     common.Address `json:"address"`
	StorageKeys []common.Hash  `json:"storageKeys"`
}

// Result is the tool's response: the post-state allocation plus the
// execution summary. Owned exclusively by the instance that requested it.
type Result struct {
	Alloc  Alloc           `json:"alloc"`
	Result ExecutionResult `json:"result"`
}

// ExecutionResult carries the computed roots and per-transaction outcomes.
type ExecutionResult struct {
	StateRoot    common.Hash       `json:"stateRoot"`
	TxRoot       common.Hash       `json:"txRoot"`
	ReceiptsRoot common.Hash       `json:"receiptsRoot"`
	LogsHash     common.Hash       `json:"logsHash"`
	LogsBloom    hexutil.Bytes     `json:"logsBloom"`
	Receipts     []Receipt         `json:"receipts"`
	Rejected     []RejectedTx      `json:"rejected,omitempty"`
	GasUsed      hexutil.Uint64    `json:"gasUsed"`
	Traces       []json.RawMessage `json:"traces,omitempty"`
}

// Receipt is one transaction receipt as reported by the tool.
type Receipt struct {
	TxHash            common.Hash     `json:"transactionHash"`
	GasUsed           hexutil.Uint64  `json:"gasUsed"`
	CumulativeGasUsed hexutil.Uint64  `json:"cumulativeGasUsed"`
	Status            hexutil.Uint64  `json:"status"`
	ContractAddress   *common.Address `json:"contractAddress,omitempty"`
	Logs              json.RawMessage `json:"logs,omitempty"`
}

// RejectedTx names a transaction the tool refused to include, with the
// reason. Index refers to the position in the request transaction list.
type RejectedTx struct {
	Index int    `json:"index"`
	Error string `json:"error"`
}
