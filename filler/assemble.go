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
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"fixturefill/fixture"
	"fixturefill/t8n"
)

// blockExecution is one executed block: the environment and transactions
// that went out, the result that came back, and the state root the request
// was built on.
type blockExecution struct {
	Env             t8n.Env
	Txs             []t8n.Transaction
	ParentStateRoot common.Hash
	Result          *t8n.Result
}

// assemble builds the persisted fixture from the instance's executions. The
// execution records are caller input and are not trusted to chain: the
// header chain is re-derived from the recorded results, and each record's
// parent state root must equal the root the re-derived chain reached. A
// mismatch fails the instance before anything is persisted.
func assemble(inst *Instance, pre t8n.Alloc, genesisEnv t8n.Env, genesisRoot common.Hash, blocks []blockExecution, version string) (*fixture.Fixture, error) {
	genesis := fixture.Header{
		Coinbase:     genesisEnv.Coinbase,
		StateRoot:    genesisRoot,
		TxRoot:       types.EmptyTxsHash,
		ReceiptsRoot: types.EmptyReceiptsHash,
		GasLimit:     genesisEnv.GasLimit,
		Difficulty:   genesisEnv.Difficulty,
		Random:       genesisEnv.Random,
		BaseFee:      genesisEnv.BaseFee,
	}
	genesis.Hash = genesis.SealHash()

	f := &fixture.Fixture{
		ID:            inst.FixtureID,
		Network:       inst.Fork.Name,
		SealEngine:    "NoProof",
		GenesisHeader: genesis,
		Pre:           pre,
		Blocks:        make([]fixture.Block, 0, len(blocks)),
		Info: fixture.Provenance{
			TestID:     inst.Test.ID,
			Params:     inst.Params,
			FilledWith: version,
		},
	}

	parentHash := genesis.Hash
	parentRoot := genesisRoot
	for i, exec := range blocks {
		if exec.ParentStateRoot != parentRoot {
			return nil, &ChainConsistencyError{
				FixtureID: inst.FixtureID,
				Block:     i + 1,
				Want:      parentRoot,
				Got:       exec.ParentStateRoot,
			}
		}
		header := fixture.Header{
			ParentHash:      parentHash,
			Coinbase:        exec.Env.Coinbase,
			StateRoot:       exec.Result.Result.StateRoot,
			ParentStateRoot: parentRoot,
			TxRoot:          exec.Result.Result.TxRoot,
			ReceiptsRoot:    exec.Result.Result.ReceiptsRoot,
			Number:          exec.Env.Number,
			GasLimit:        exec.Env.GasLimit,
			GasUsed:         exec.Result.Result.GasUsed,
			Timestamp:       exec.Env.Timestamp,
			Difficulty:      exec.Env.Difficulty,
			Random:          exec.Env.Random,
			BaseFee:         exec.Env.BaseFee,
		}
		header.Hash = header.SealHash()

		f.Blocks = append(f.Blocks, fixture.Block{
			Header:    header,
			Txs:       includedTxs(exec.Txs, exec.Result.Result.Rejected),
			Receipts:  exec.Result.Result.Receipts,
			PostState: exec.Result.Alloc,
		})
		parentHash = header.Hash
		parentRoot = header.StateRoot
	}

	if len(blocks) > 0 {
		f.PostState = blocks[len(blocks)-1].Result.Alloc
	} else {
		f.PostState = pre
	}

	hash, err := f.ContentHash()
	if err != nil {
		return nil, err
	}
	f.Info.Hash = hash
	return f, nil
}

// includedTxs drops the rejected transactions from the persisted block;
// the fixture replays only what the tool actually included.
func includedTxs(txs []t8n.Transaction, rejected []t8n.RejectedTx) []t8n.Transaction {
	if len(rejected) == 0 {
		return txs
	}
	skip := make(map[int]bool, len(rejected))
	for _, r := range rejected {
		skip[r.Index] = true
	}
	kept := make([]t8n.Transaction, 0, len(txs))
	for i, tx := range txs {
		if !skip[i] {
			kept = append(kept, tx)
		}
	}
	return kept
}
