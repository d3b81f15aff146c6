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
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fixturefill/forks"
	"fixturefill/t8n"
	"fixturefill/testcase"
)

func chainInstance() *Instance {
	return &Instance{
		Test:      &testcase.Model{ID: "chain"},
		Fork:      forks.London,
		FixtureID: "chain__London",
	}
}

func chainEnv(number uint64) t8n.Env {
	return t8n.Env{
		Coinbase:  common.HexToAddress("0x2adc25665018aa1fe0e6bc666dac8fc2697ff9ba"),
		GasLimit:  10_000_000,
		Number:    hexutil.Uint64(number),
		Timestamp: hexutil.Uint64(number * 1_000),
	}
}

func chainResult(root common.Hash) *t8n.Result {
	return &t8n.Result{
		Alloc: t8n.Alloc{},
		Result: t8n.ExecutionResult{
			StateRoot:    root,
			TxRoot:       types.EmptyTxsHash,
			ReceiptsRoot: types.EmptyReceiptsHash,
		},
	}
}

func TestAssembleChainsHeaders(t *testing.T) {
	var (
		genesisRoot = common.HexToHash("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
		rootOne     = common.HexToHash("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
		rootTwo     = common.HexToHash("0xcccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc")
	)
	blocks := []blockExecution{
		{Env: chainEnv(1), ParentStateRoot: genesisRoot, Result: chainResult(rootOne)},
		{Env: chainEnv(2), ParentStateRoot: rootOne, Result: chainResult(rootTwo)},
	}

	f, err := assemble(chainInstance(), t8n.Alloc{}, chainEnv(0), genesisRoot, blocks, "test-version")
	require.NoError(t, err)
	require.Len(t, f.Blocks, 2)

	assert.Equal(t, genesisRoot, f.GenesisHeader.StateRoot)
	assert.Equal(t, f.GenesisHeader.Hash, f.Blocks[0].Header.ParentHash)
	assert.Equal(t, genesisRoot, f.Blocks[0].Header.ParentStateRoot)
	assert.Equal(t, f.Blocks[0].Header.Hash, f.Blocks[1].Header.ParentHash)
	assert.Equal(t, rootOne, f.Blocks[1].Header.ParentStateRoot)
	assert.Equal(t, rootTwo, f.Blocks[1].Header.StateRoot)
}

func TestAssembleRejectsInconsistentChain(t *testing.T) {
	var (
		genesisRoot = common.HexToHash("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
		rootOne     = common.HexToHash("0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb")
		rootTwo     = common.HexToHash("0xcccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccccc")
	)
	// The second record claims to build on the genesis root even though
	// block one moved the state to rootOne.
	blocks := []blockExecution{
		{Env: chainEnv(1), ParentStateRoot: genesisRoot, Result: chainResult(rootOne)},
		{Env: chainEnv(2), ParentStateRoot: genesisRoot, Result: chainResult(rootTwo)},
	}

	_, err := assemble(chainInstance(), t8n.Alloc{}, chainEnv(0), genesisRoot, blocks, "test-version")
	var cerr *ChainConsistencyError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, "chain__London", cerr.FixtureID)
	assert.Equal(t, 2, cerr.Block)
	assert.Equal(t, rootOne, cerr.Want)
	assert.Equal(t, genesisRoot, cerr.Got)
}
