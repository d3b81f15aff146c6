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

// Package fixture defines the persisted conformance artifact and the
// write-once sinks it is stored in. A persisted fixture is never mutated,
// only superseded by a fresh generation run.
package fixture

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
	"golang.org/x/crypto/sha3"

	"fixturefill/t8n"
)

// Fixture is the final artifact replayed by downstream conformance
// runners: every input and every validated output of one instance, with
// no state left to re-derive.
type Fixture struct {
	ID            string     `json:"id"`
	Network       string     `json:"network"`
	SealEngine    string     `json:"sealEngine"`
	GenesisHeader Header     `json:"genesisBlockHeader"`
	Pre           t8n.Alloc  `json:"pre"`
	Blocks        []Block    `json:"blocks"`
	PostState     t8n.Alloc  `json:"postState"`
	Info          Provenance `json:"_info"`
}

// Block is one entry of the fixture chain.
type Block struct {
	Header    Header            `json:"blockHeader"`
	Txs       []t8n.Transaction `json:"transactions"`
	Receipts  []t8n.Receipt     `json:"receipts"`
	PostState t8n.Alloc         `json:"postState"`
}

// Header carries the fields a conformance runner needs to replay the
// block. ParentStateRoot is the chaining reference: it must equal the
// previous block's (or the genesis') state root.
type Header struct {
	ParentHash      common.Hash    `json:"parentHash"`
	Coinbase        common.Address `json:"coinbase"`
	StateRoot       common.Hash    `json:"stateRoot"`
	ParentStateRoot common.Hash    `json:"parentStateRoot"`
	TxRoot          common.Hash    `json:"transactionsTrie"`
	ReceiptsRoot    common.Hash    `json:"receiptTrie"`
	Number          hexutil.Uint64 `json:"number"`
	GasLimit        hexutil.Uint64 `json:"gasLimit"`
	GasUsed         hexutil.Uint64 `json:"gasUsed"`
	Timestamp       hexutil.Uint64 `json:"timestamp"`
	Difficulty      *hexutil.Big   `json:"difficulty,omitempty"`
	Random          *common.Hash   `json:"mixHash,omitempty"`
	BaseFee         *hexutil.Big   `json:"baseFeePerGas,omitempty"`
	Hash            common.Hash    `json:"hash"`
}

// Provenance records where a fixture came from, enough to reproduce the
// instance in isolation.
type Provenance struct {
	TestID     string            `json:"source-test"`
	Params     map[string]string `json:"parameters,omitempty"`
	FilledWith string            `json:"filled-with"`
	Hash       string            `json:"hash"`
}

// headerRLP is the encoding the block hash commits to. Nil big values
// encode as empty, matching the gated-field convention of the JSON form.
type headerRLP struct {
	ParentHash      common.Hash
	Coinbase        common.Address
	StateRoot       common.Hash
	ParentStateRoot common.Hash
	TxRoot          common.Hash
	ReceiptsRoot    common.Hash
	Number          uint64
	GasLimit        uint64
	GasUsed         uint64
	Timestamp       uint64
	Difficulty      *big.Int     `rlp:"nil"`
	Random          *common.Hash `rlp:"nil"`
	BaseFee         *big.Int     `rlp:"nil"`
}

// SealHash computes the block hash: keccak256 over the RLP encoding of
// every header field except the hash itself.
func (h *Header) SealHash() common.Hash {
	enc := headerRLP{
		ParentHash:      h.ParentHash,
		Coinbase:        h.Coinbase,
		StateRoot:       h.StateRoot,
		ParentStateRoot: h.ParentStateRoot,
		TxRoot:          h.TxRoot,
		ReceiptsRoot:    h.ReceiptsRoot,
		Number:          uint64(h.Number),
		GasLimit:        uint64(h.GasLimit),
		GasUsed:         uint64(h.GasUsed),
		Timestamp:       uint64(h.Timestamp),
		Difficulty:      (*big.Int)(h.Difficulty),
		Random:          h.Random,
		BaseFee:         (*big.Int)(h.BaseFee),
	}
	raw, err := rlp.EncodeToBytes(&enc)
	if err != nil {
		panic(fmt.Sprintf("header does not RLP-encode: %v", err))
	}
	return crypto.Keccak256Hash(raw)
}

// MakeID derives the deterministic fixture identifier from the instance
// coordinates. Parameters contribute sorted by name, so the id does not
// depend on map order.
func MakeID(testID, fork string, params map[string]string) string {
	parts := []string{testID, fork}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		parts = append(parts, name+"_"+sanitize(params[name]))
	}
	return strings.Join(parts, "__")
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-' || r == '_' || r == '.':
			return r
		default:
			return '_'
		}
	}, s)
}

// Serialize renders the canonical byte form: indented JSON, struct keys in
// declaration order, map keys sorted by encoding/json. Identical fixtures
// serialize byte-identically.
func (f *Fixture) Serialize() ([]byte, error) {
	data, err := json.MarshalIndent(f, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("failed to serialize fixture %s: %w", f.ID, err)
	}
	return append(data, '\n'), nil
}

// ContentHash hashes the fixture body with the provenance hash field
// blanked, so the hash can be embedded into the document it covers.
func (f *Fixture) ContentHash() (string, error) {
	clone := *f
	clone.Info.Hash = ""
	h := sha3.New256()
	if err := json.NewEncoder(h).Encode(&clone); err != nil {
		return "", fmt.Errorf("failed to hash fixture %s: %w", f.ID, err)
	}
	return hexutil.Encode(h.Sum(nil)), nil
}

// Parse reconstructs a fixture from its serialized form. Parse after
// Serialize yields a model equal to the original.
func Parse(data []byte) (*Fixture, error) {
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse fixture: %w", err)
	}
	return &f, nil
}

// LoadFile parses a persisted fixture document.
func LoadFile(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture file: %w", err)
	}
	return Parse(data)
}
